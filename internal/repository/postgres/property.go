package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/repository"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

const propertyColumns = `id, agent_id, title, description, price, currency, listing_type, status, address, city, postal_code, bedrooms, bathrooms, area_sqm, amenities, created_at, updated_at`

// PropertyRepository implements repository.PropertyRepository using PostgreSQL.
type PropertyRepository struct {
	db    DB
	media *MediaRepository
}

// NewPropertyRepository creates a new PostgreSQL-backed property repository.
// The media repository is used to hydrate the property aggregate on reads.
func NewPropertyRepository(db DB, media *MediaRepository) *PropertyRepository {
	return &PropertyRepository{db: db, media: media}
}

// Create inserts a new property row.
func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	query := `
		INSERT INTO properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.AgentID,
		p.Title,
		p.Description,
		p.Price,
		p.Currency,
		p.ListingType,
		p.Status,
		p.Address,
		p.City,
		p.PostalCode,
		p.Bedrooms,
		p.Bathrooms,
		p.AreaSqm,
		p.Amenities,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}

	return nil
}

// GetByID retrieves a property with its linked media.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	p, err := r.scanProperty(ctx, query, id)
	if err != nil {
		return nil, err
	}

	images, err := r.media.ListImages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list property images: %w", err)
	}
	videos, err := r.media.ListVideos(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list property videos: %w", err)
	}

	p.Images = images
	p.Videos = videos
	return p, nil
}

// List returns a page of properties matching the filter plus the total count.
// Media is not hydrated for list results.
func (r *PropertyRepository) List(ctx context.Context, filter repository.PropertyFilter, page, perPage int) ([]domain.Property, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1

	if filter.AgentID != "" {
		where += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, filter.AgentID)
		idx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.City != "" {
		where += fmt.Sprintf(" AND city = $%d", idx)
		args = append(args, filter.City)
		idx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM properties`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	query := `SELECT ` + propertyColumns + ` FROM properties` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var properties []domain.Property
	for rows.Next() {
		var p domain.Property
		if err := scanPropertyRow(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate properties: %w", err)
	}

	return properties, total, nil
}

// Update modifies an existing property row.
func (r *PropertyRepository) Update(ctx context.Context, p *domain.Property) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE properties
		SET title = $1, description = $2, price = $3, currency = $4, listing_type = $5,
		    status = $6, address = $7, city = $8, postal_code = $9, bedrooms = $10,
		    bathrooms = $11, area_sqm = $12, amenities = $13, updated_at = $14
		WHERE id = $15`

	ct, err := r.db.Exec(ctx, query,
		p.Title,
		p.Description,
		p.Price,
		p.Currency,
		p.ListingType,
		p.Status,
		p.Address,
		p.City,
		p.PostalCode,
		p.Bedrooms,
		p.Bathrooms,
		p.AreaSqm,
		p.Amenities,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", p.ID)
	}

	return nil
}

// Delete removes a property; media rows cascade at the schema level.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM properties WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", id)
	}

	return nil
}

func (r *PropertyRepository) scanProperty(ctx context.Context, query string, args ...any) (*domain.Property, error) {
	var p domain.Property
	err := scanPropertyRow(r.db.QueryRow(ctx, query, args...), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan property: %w", err)
	}
	return &p, nil
}

// scanPropertyRow scans one property row from either a pgx.Row or pgx.Rows.
func scanPropertyRow(row pgx.Row, p *domain.Property) error {
	return row.Scan(
		&p.ID,
		&p.AgentID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.ListingType,
		&p.Status,
		&p.Address,
		&p.City,
		&p.PostalCode,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.AreaSqm,
		&p.Amenities,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

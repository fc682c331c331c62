package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/homevista/brokerage/internal/domain"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

// MediaRepository implements repository.MediaRepository using PostgreSQL.
type MediaRepository struct {
	db DB
}

// NewMediaRepository creates a new PostgreSQL-backed media repository.
func NewMediaRepository(db DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// CreateImage inserts an image media row linked to a property.
func (r *MediaRepository) CreateImage(ctx context.Context, img *domain.PropertyImage) error {
	query := `
		INSERT INTO property_images (id, property_id, file_name, url, size, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		img.ID, img.PropertyID, img.FileName, img.URL, img.Size, img.SortOrder, img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert property image: %w", err)
	}

	return nil
}

// CreateVideo inserts a video media row linked to a property.
func (r *MediaRepository) CreateVideo(ctx context.Context, vid *domain.PropertyVideo) error {
	query := `
		INSERT INTO property_videos (id, property_id, file_name, url, size, duration_seconds, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		vid.ID, vid.PropertyID, vid.FileName, vid.URL, vid.Size, vid.Duration, vid.SortOrder, vid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert property video: %w", err)
	}

	return nil
}

// ListImages returns all image rows for a property ordered by sort order.
func (r *MediaRepository) ListImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error) {
	query := `
		SELECT id, property_id, file_name, url, size, sort_order, created_at
		FROM property_images
		WHERE property_id = $1
		ORDER BY sort_order, created_at`

	rows, err := r.db.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list property images: %w", err)
	}
	defer rows.Close()

	images := []domain.PropertyImage{}
	for rows.Next() {
		var img domain.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.FileName, &img.URL, &img.Size, &img.SortOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan property image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property images: %w", err)
	}

	return images, nil
}

// ListVideos returns all video rows for a property ordered by sort order.
func (r *MediaRepository) ListVideos(ctx context.Context, propertyID string) ([]domain.PropertyVideo, error) {
	query := `
		SELECT id, property_id, file_name, url, size, duration_seconds, sort_order, created_at
		FROM property_videos
		WHERE property_id = $1
		ORDER BY sort_order, created_at`

	rows, err := r.db.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list property videos: %w", err)
	}
	defer rows.Close()

	videos := []domain.PropertyVideo{}
	for rows.Next() {
		var vid domain.PropertyVideo
		if err := rows.Scan(&vid.ID, &vid.PropertyID, &vid.FileName, &vid.URL, &vid.Size, &vid.Duration, &vid.SortOrder, &vid.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan property video: %w", err)
		}
		videos = append(videos, vid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property videos: %w", err)
	}

	return videos, nil
}

// DeleteImageByURL removes an image row by its URL, returning the deleted row.
func (r *MediaRepository) DeleteImageByURL(ctx context.Context, propertyID, url string) (*domain.PropertyImage, error) {
	query := `
		DELETE FROM property_images
		WHERE property_id = $1 AND url = $2
		RETURNING id, property_id, file_name, url, size, sort_order, created_at`

	var img domain.PropertyImage
	err := r.db.QueryRow(ctx, query, propertyID, url).Scan(
		&img.ID, &img.PropertyID, &img.FileName, &img.URL, &img.Size, &img.SortOrder, &img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("property image", url)
		}
		return nil, fmt.Errorf("delete property image: %w", err)
	}

	return &img, nil
}

// DeleteVideoByURL removes a video row by its URL, returning the deleted row.
func (r *MediaRepository) DeleteVideoByURL(ctx context.Context, propertyID, url string) (*domain.PropertyVideo, error) {
	query := `
		DELETE FROM property_videos
		WHERE property_id = $1 AND url = $2
		RETURNING id, property_id, file_name, url, size, duration_seconds, sort_order, created_at`

	var vid domain.PropertyVideo
	err := r.db.QueryRow(ctx, query, propertyID, url).Scan(
		&vid.ID, &vid.PropertyID, &vid.FileName, &vid.URL, &vid.Size, &vid.Duration, &vid.SortOrder, &vid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("property video", url)
		}
		return nil, fmt.Errorf("delete property video: %w", err)
	}

	return &vid, nil
}

package repository

import (
	"context"
	"time"

	"github.com/homevista/brokerage/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by their username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByIdentifier retrieves a user by email or username.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository defines the interface for refresh token persistence.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID string) error
}

// PropertyFilter narrows property list queries.
type PropertyFilter struct {
	AgentID string
	Status  string
	City    string
}

// PropertyRepository defines the interface for property persistence.
type PropertyRepository interface {
	// Create inserts a new property row (without media).
	Create(ctx context.Context, p *domain.Property) error

	// GetByID retrieves a property with its linked media.
	GetByID(ctx context.Context, id string) (*domain.Property, error)

	// List returns a page of properties matching the filter, plus the total count.
	List(ctx context.Context, filter PropertyFilter, page, perPage int) ([]domain.Property, int, error)

	// Update modifies an existing property row.
	Update(ctx context.Context, p *domain.Property) error

	// Delete removes a property and (via cascade) its media rows.
	Delete(ctx context.Context, id string) error
}

// MediaRepository defines the interface for property media persistence.
type MediaRepository interface {
	// CreateImage inserts an image media row linked to a property.
	CreateImage(ctx context.Context, img *domain.PropertyImage) error

	// CreateVideo inserts a video media row linked to a property.
	CreateVideo(ctx context.Context, vid *domain.PropertyVideo) error

	// ListImages returns all image rows for a property ordered by sort order.
	ListImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error)

	// ListVideos returns all video rows for a property ordered by sort order.
	ListVideos(ctx context.Context, propertyID string) ([]domain.PropertyVideo, error)

	// DeleteImageByURL removes an image row by its URL, returning the row.
	DeleteImageByURL(ctx context.Context, propertyID, url string) (*domain.PropertyImage, error)

	// DeleteVideoByURL removes a video row by its URL, returning the row.
	DeleteVideoByURL(ctx context.Context, propertyID, url string) (*domain.PropertyVideo, error)
}

// OneTimeTokenKind distinguishes the single-use token namespaces.
type OneTimeTokenKind string

const (
	TokenKindPasswordReset     OneTimeTokenKind = "password_reset"
	TokenKindEmailVerification OneTimeTokenKind = "email_verification"
)

// OneTimeTokenStore stores single-use tokens (password reset, email
// verification) with a TTL. Consume is atomic: a token can be redeemed once.
type OneTimeTokenStore interface {
	// Put stores a token mapped to a user ID with the given TTL.
	Put(ctx context.Context, kind OneTimeTokenKind, token, userID string, ttl time.Duration) error

	// Consume redeems a token, returning the user ID it was issued for.
	// The token is deleted; a second call fails.
	Consume(ctx context.Context, kind OneTimeTokenKind, token string) (string, error)
}

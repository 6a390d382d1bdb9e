package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for properties.
type Repository interface {
	Save(ctx context.Context, p *Property) error
	Update(ctx context.Context, p *Property) error
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*Property, error)
	// CountByCreatorSince counts properties the user posted on or after
	// the given date. Quota consumption is derived from this, not from a
	// debited balance.
	CountByCreatorSince(ctx context.Context, creatorID uuid.UUID, since time.Time) (int64, error)
	// FindExpiredVerified returns still-verified listings whose expiry
	// date has passed, for the nightly sweep.
	FindExpiredVerified(ctx context.Context, limit int) ([]*Property, error)
}

// Favorite is a user's saved property.
type Favorite struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	PropertyID uuid.UUID
	CreatedAt  time.Time
}

// FavoriteRepository defines persistence for saved properties.
type FavoriteRepository interface {
	// Save inserts the favorite, reporting created=false when the pair
	// already exists.
	Save(ctx context.Context, f *Favorite) (created bool, err error)
	Delete(ctx context.Context, userID, propertyID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Favorite, error)
}

package subscription

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository defines persistence operations for plans.
type PlanRepository interface {
	Save(ctx context.Context, p *Plan) error
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	FindBySlug(ctx context.Context, slug string) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
}

// Repository defines persistence operations for user subscriptions.
type Repository interface {
	Save(ctx context.Context, s *UserSubscription) error
	Update(ctx context.Context, s *UserSubscription) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*UserSubscription, error)
	// FindActiveByUserID returns every is_active subscription for the
	// user; quota stacking needs all of them, not just the newest.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*UserSubscription, error)
	// FindLapsed returns active-flagged subscriptions whose end date has
	// passed, for the expiry sweep.
	FindLapsed(ctx context.Context, limit int) ([]*UserSubscription, error)
}

package promo

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for promo codes.
//
// FindByCodeForUpdate must acquire an exclusive row lock (SELECT ... FOR
// UPDATE) so that check-then-increment runs as one critical section; it
// is only meaningful inside a database.InTx unit of work.
type Repository interface {
	Save(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	ListActive(ctx context.Context) ([]*PromoCode, error)
}

package payment

import (
	"context"

	"github.com/google/uuid"
)

// ListingPaymentRepository defines persistence for listing payments.
type ListingPaymentRepository interface {
	Save(ctx context.Context, p *ListingPayment) error
	Update(ctx context.Context, p *ListingPayment) error
	FindByReference(ctx context.Context, reference string) (*ListingPayment, error)
	// FindByReferenceForUpdate loads the payment holding an exclusive
	// row lock. It must run inside database.InTx; the lock serializes
	// racing verifications of the same reference.
	FindByReferenceForUpdate(ctx context.Context, reference string) (*ListingPayment, error)
	// ExistsForUserAndPromo reports whether the user already holds any
	// listing payment referencing the promo, regardless of status.
	ExistsForUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (bool, error)
}

// SubscriptionPaymentRepository defines persistence for subscription payments.
type SubscriptionPaymentRepository interface {
	Save(ctx context.Context, p *SubscriptionPayment) error
	Update(ctx context.Context, p *SubscriptionPayment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByReference(ctx context.Context, reference string) (*SubscriptionPayment, error)
	// FindByReferenceForUpdate loads the payment holding an exclusive
	// row lock, serializing racing verifications of the same reference.
	FindByReferenceForUpdate(ctx context.Context, reference string) (*SubscriptionPayment, error)
	// ExistsSuccessfulForUserAndPromo reports whether the user already
	// holds a successful subscription payment referencing the promo.
	ExistsSuccessfulForUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*SubscriptionPayment, int64, error)
}

package payment

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// Status is the lifecycle state of a payment record. Transitions are
// monotonic: pending→success or pending→failed. Success is terminal and
// idempotent; re-verification of a successful payment is a no-op.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// NewReference generates the opaque correlation id handed to the payment
// gateway and used to reconcile its verdict later.
func NewReference() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// record holds the fields shared by both payment kinds.
type record struct {
	id         uuid.UUID
	userID     uuid.UUID
	amount     decimal.Decimal
	promoID    *uuid.UUID
	paymentRef string
	status     Status
	createdAt  time.Time
	updatedAt  time.Time
}

func newRecord(userID uuid.UUID, amount decimal.Decimal, promoID *uuid.UUID) record {
	now := time.Now().UTC()
	return record{
		id:         uuid.New(),
		userID:     userID,
		amount:     amount,
		promoID:    promoID,
		paymentRef: NewReference(),
		status:     StatusPending,
		createdAt:  now,
		updatedAt:  now,
	}
}

// MarkSucceeded transitions pending→success. Calling it on an already
// successful record reports alreadyDone so the caller can short-circuit
// without re-applying side effects.
func (r *record) MarkSucceeded(now time.Time) (alreadyDone bool, err error) {
	switch r.status {
	case StatusSuccess:
		return true, nil
	case StatusPending:
		r.status = StatusSuccess
		r.updatedAt = now
		return false, nil
	default:
		return false, domain.NewInvalidStateError(string(r.status), string(StatusSuccess))
	}
}

// MarkFailed transitions pending→failed.
func (r *record) MarkFailed(now time.Time) error {
	if r.status != StatusPending {
		return domain.NewInvalidStateError(string(r.status), string(StatusFailed))
	}
	r.status = StatusFailed
	r.updatedAt = now
	return nil
}

func (r *record) ID() uuid.UUID           { return r.id }
func (r *record) UserID() uuid.UUID       { return r.userID }
func (r *record) Amount() decimal.Decimal { return r.amount }
func (r *record) PromoID() *uuid.UUID     { return r.promoID }
func (r *record) PaymentRef() string      { return r.paymentRef }
func (r *record) Status() Status          { return r.status }
func (r *record) CreatedAt() time.Time    { return r.createdAt }
func (r *record) UpdatedAt() time.Time    { return r.updatedAt }

// ListingPayment pays for publishing a single property.
type ListingPayment struct {
	record
	propertyID uuid.UUID
}

// NewListingPayment creates a pending listing payment.
func NewListingPayment(userID, propertyID uuid.UUID, amount decimal.Decimal, promoID *uuid.UUID) *ListingPayment {
	return &ListingPayment{record: newRecord(userID, amount, promoID), propertyID: propertyID}
}

// ReconstructListingPayment rebuilds a ListingPayment from persistence.
func ReconstructListingPayment(id, userID, propertyID uuid.UUID, amount decimal.Decimal, promoID *uuid.UUID, paymentRef string, status Status, createdAt, updatedAt time.Time) *ListingPayment {
	return &ListingPayment{
		record: record{
			id: id, userID: userID, amount: amount, promoID: promoID,
			paymentRef: paymentRef, status: status,
			createdAt: createdAt, updatedAt: updatedAt,
		},
		propertyID: propertyID,
	}
}

func (p *ListingPayment) PropertyID() uuid.UUID { return p.propertyID }

// SubscriptionPayment pays for one subscription period.
type SubscriptionPayment struct {
	record
	subscriptionID uuid.UUID
}

// NewSubscriptionPayment creates a pending subscription payment.
func NewSubscriptionPayment(userID, subscriptionID uuid.UUID, amount decimal.Decimal, promoID *uuid.UUID) *SubscriptionPayment {
	return &SubscriptionPayment{record: newRecord(userID, amount, promoID), subscriptionID: subscriptionID}
}

// ReconstructSubscriptionPayment rebuilds a SubscriptionPayment from persistence.
func ReconstructSubscriptionPayment(id, userID, subscriptionID uuid.UUID, amount decimal.Decimal, promoID *uuid.UUID, paymentRef string, status Status, createdAt, updatedAt time.Time) *SubscriptionPayment {
	return &SubscriptionPayment{
		record: record{
			id: id, userID: userID, amount: amount, promoID: promoID,
			paymentRef: paymentRef, status: status,
			createdAt: createdAt, updatedAt: updatedAt,
		},
		subscriptionID: subscriptionID,
	}
}

func (p *SubscriptionPayment) SubscriptionID() uuid.UUID { return p.subscriptionID }

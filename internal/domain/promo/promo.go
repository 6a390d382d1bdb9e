package promo

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// Validation failures surfaced to callers as rejected-with-reason.
var (
	ErrNotFound     = &domain.DomainError{Err: domain.ErrValidation, Message: "promo code not found or inactive"}
	ErrExpired      = &domain.DomainError{Err: domain.ErrValidation, Message: "promo code has expired"}
	ErrLimitReached = &domain.DomainError{Err: domain.ErrValidation, Message: "promo code usage limit reached"}
	ErrAlreadyUsed  = &domain.DomainError{Err: domain.ErrValidation, Message: "you have already used this promo code"}
)

// PromoCode is the aggregate root for discount codes. It is the
// authoritative ledger of how many times a code has been redeemed;
// Apply and Rollback must only run while the caller holds an exclusive
// lock on the backing row.
type PromoCode struct {
	id              uuid.UUID
	code            string
	discountPercent int
	usageLimit      int
	usedCount       int
	isActive        bool
	expiresAt       *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewPromoCode creates a promo code. Codes are stored upper-cased so
// lookups are case-insensitive.
func NewPromoCode(code string, discountPercent, usageLimit int, expiresAt *time.Time) (*PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("code", "is required")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, domain.NewValidationError("discount_percent", "must be between 0 and 100")
	}
	if usageLimit <= 0 {
		return nil, domain.NewValidationError("usage_limit", "must be positive")
	}

	now := time.Now().UTC()
	return &PromoCode{
		id:              uuid.New(),
		code:            code,
		discountPercent: discountPercent,
		usageLimit:      usageLimit,
		usedCount:       0,
		isActive:        true,
		expiresAt:       expiresAt,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a PromoCode from persistence.
func Reconstruct(id uuid.UUID, code string, discountPercent, usageLimit, usedCount int, isActive bool, expiresAt *time.Time, createdAt, updatedAt time.Time) *PromoCode {
	return &PromoCode{
		id: id, code: code, discountPercent: discountPercent,
		usageLimit: usageLimit, usedCount: usedCount, isActive: isActive,
		expiresAt: expiresAt, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// CheckUsable verifies activity, expiry and remaining uses without
// mutating the ledger. Callers re-check under the row lock before Apply.
func (p *PromoCode) CheckUsable(now time.Time) error {
	// The limit check runs first: Apply deactivates a code once it is
	// exhausted, and an exhausted code must still read as limit-reached
	// rather than not-found.
	if p.usedCount >= p.usageLimit {
		return ErrLimitReached
	}
	if !p.isActive {
		return ErrNotFound
	}
	if p.expiresAt != nil && now.After(*p.expiresAt) {
		return ErrExpired
	}
	return nil
}

// Discount returns amount * (100 - discount_percent) / 100 rounded to
// two decimal places. It does not touch the usage ledger.
func (p *PromoCode) Discount(amount decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - p.discountPercent)).Div(decimal.NewFromInt(100))
	return amount.Mul(factor).Round(2)
}

// Apply consumes one use. It fails when the code is no longer usable and
// deactivates the code once the limit is reached.
func (p *PromoCode) Apply(now time.Time) error {
	if err := p.CheckUsable(now); err != nil {
		return err
	}
	p.usedCount++
	if p.usedCount >= p.usageLimit {
		p.isActive = false
	}
	p.updatedAt = now
	return nil
}

// Rollback returns one use to the ledger, re-activating the code when
// the rolled-back use was the one that exhausted it.
func (p *PromoCode) Rollback(now time.Time) error {
	if p.usedCount <= 0 {
		return fmt.Errorf("promo %s has no uses to roll back", p.code)
	}
	if p.usedCount == p.usageLimit && !p.isActive {
		p.isActive = true
	}
	p.usedCount--
	p.updatedAt = now
	return nil
}

// Getters.
func (p *PromoCode) ID() uuid.UUID         { return p.id }
func (p *PromoCode) Code() string          { return p.code }
func (p *PromoCode) DiscountPercent() int  { return p.discountPercent }
func (p *PromoCode) UsageLimit() int       { return p.usageLimit }
func (p *PromoCode) UsedCount() int        { return p.usedCount }
func (p *PromoCode) IsActive() bool        { return p.isActive }
func (p *PromoCode) ExpiresAt() *time.Time { return p.expiresAt }
func (p *PromoCode) CreatedAt() time.Time  { return p.createdAt }
func (p *PromoCode) UpdatedAt() time.Time  { return p.updatedAt }

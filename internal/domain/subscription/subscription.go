package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// Perk is a listing badge granted by a plan.
type Perk string

const (
	PerkFeatured    Perk = "featured"
	PerkRecommended Perk = "recommended"
	PerkPromoted    Perk = "promoted"
)

// Plan describes a purchasable subscription tier. Plans are effectively
// immutable after creation; operators edit them rarely and offline.
type Plan struct {
	id                uuid.UUID
	slug              string
	price             decimal.Decimal
	durationDays      int
	freeListings      int
	unlimitedListings bool
	perks             []Perk
	isActive          bool
	createdAt         time.Time
}

// NewPlan creates a plan.
func NewPlan(slug string, price decimal.Decimal, durationDays, freeListings int, unlimited bool, perks []Perk) (*Plan, error) {
	if slug == "" {
		return nil, domain.NewValidationError("slug", "is required")
	}
	if durationDays <= 0 {
		return nil, domain.NewValidationError("duration_days", "must be positive")
	}
	return &Plan{
		id:                uuid.New(),
		slug:              slug,
		price:             price,
		durationDays:      durationDays,
		freeListings:      freeListings,
		unlimitedListings: unlimited,
		perks:             perks,
		isActive:          true,
		createdAt:         time.Now().UTC(),
	}, nil
}

// ReconstructPlan rebuilds a Plan from persistence.
func ReconstructPlan(id uuid.UUID, slug string, price decimal.Decimal, durationDays, freeListings int, unlimited bool, perks []Perk, isActive bool, createdAt time.Time) *Plan {
	return &Plan{
		id: id, slug: slug, price: price, durationDays: durationDays,
		freeListings: freeListings, unlimitedListings: unlimited,
		perks: perks, isActive: isActive, createdAt: createdAt,
	}
}

// HasPerk reports whether the plan grants the given badge.
func (p *Plan) HasPerk(perk Perk) bool {
	for _, x := range p.perks {
		if x == perk {
			return true
		}
	}
	return false
}

func (p *Plan) ID() uuid.UUID          { return p.id }
func (p *Plan) Slug() string           { return p.slug }
func (p *Plan) Price() decimal.Decimal { return p.price }
func (p *Plan) DurationDays() int      { return p.durationDays }
func (p *Plan) FreeListings() int      { return p.freeListings }
func (p *Plan) Unlimited() bool        { return p.unlimitedListings }
func (p *Plan) Perks() []Perk          { return p.perks }
func (p *Plan) IsActive() bool         { return p.isActive }
func (p *Plan) CreatedAt() time.Time   { return p.createdAt }

// UserSubscription is one purchased subscription period. A user may hold
// several concurrently; overlapping periods stack rather than replace.
type UserSubscription struct {
	id        uuid.UUID
	userID    uuid.UUID
	planID    uuid.UUID
	startDate time.Time
	endDate   time.Time
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewUserSubscription creates an inactive subscription awaiting payment
// verification. The dates are provisional until Activate runs; end_date
// is computed once and never recomputed afterwards.
func NewUserSubscription(userID uuid.UUID, plan *Plan) *UserSubscription {
	now := time.Now().UTC()
	return &UserSubscription{
		id:        uuid.New(),
		userID:    userID,
		planID:    plan.ID(),
		startDate: now,
		endDate:   now.AddDate(0, 0, plan.DurationDays()),
		isActive:  false,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructUserSubscription rebuilds a UserSubscription from persistence.
func ReconstructUserSubscription(id, userID, planID uuid.UUID, startDate, endDate time.Time, isActive bool, createdAt, updatedAt time.Time) *UserSubscription {
	return &UserSubscription{
		id: id, userID: userID, planID: planID,
		startDate: startDate, endDate: endDate, isActive: isActive,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// IsCurrent reports whether the subscription is active with time left.
func (s *UserSubscription) IsCurrent(now time.Time) bool {
	return s.isActive && s.endDate.After(now)
}

// Activate starts a fresh period from now. Used when the subscription was
// never active or had lapsed before the payment was verified.
func (s *UserSubscription) Activate(now time.Time, durationDays int) {
	s.startDate = now
	s.endDate = now.AddDate(0, 0, durationDays)
	s.isActive = true
	s.updatedAt = now
}

// Extend appends a full plan period onto the current end date. A renewal
// before expiry must not cost the user their remaining days.
func (s *UserSubscription) Extend(now time.Time, durationDays int) {
	s.endDate = s.endDate.AddDate(0, 0, durationDays)
	s.updatedAt = now
}

// Deactivate marks a lapsed subscription inactive.
func (s *UserSubscription) Deactivate(now time.Time) {
	s.isActive = false
	s.updatedAt = now
}

func (s *UserSubscription) ID() uuid.UUID        { return s.id }
func (s *UserSubscription) UserID() uuid.UUID    { return s.userID }
func (s *UserSubscription) PlanID() uuid.UUID    { return s.planID }
func (s *UserSubscription) StartDate() time.Time { return s.startDate }
func (s *UserSubscription) EndDate() time.Time   { return s.endDate }
func (s *UserSubscription) IsActive() bool       { return s.isActive }
func (s *UserSubscription) CreatedAt() time.Time { return s.createdAt }
func (s *UserSubscription) UpdatedAt() time.Time { return s.updatedAt }

package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// DefaultListingDays is how long a listing stays visible once published.
const DefaultListingDays = 14

// Badges are the perk flags stamped onto a property at creation time
// from the creator's active subscription plans.
type Badges struct {
	Featured    bool
	Recommended bool
	Promoted    bool
}

// Property is a listed real-estate advert. Visibility to non-owners
// requires is_verified and an expiry date in the future.
type Property struct {
	id          uuid.UUID
	creatorID   uuid.UUID
	title       string
	slugValue   string
	description string
	price       decimal.Decimal
	isVerified  bool
	badges      Badges
	expiryDate  time.Time
	visitCount  int64
	datePosted  time.Time
	updatedAt   time.Time
}

// NewProperty creates an unverified property expiring in 14 days.
func NewProperty(creatorID uuid.UUID, title, description string, price decimal.Decimal, badges Badges) (*Property, error) {
	if title == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	if price.IsNegative() {
		return nil, domain.NewValidationError("price", "must not be negative")
	}

	now := time.Now().UTC()
	return &Property{
		id:          uuid.New(),
		creatorID:   creatorID,
		title:       title,
		slugValue:   slug.Make(title),
		description: description,
		price:       price,
		isVerified:  false,
		badges:      badges,
		expiryDate:  now.AddDate(0, 0, DefaultListingDays),
		datePosted:  now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a Property from persistence.
func Reconstruct(id, creatorID uuid.UUID, title, slugValue, description string, price decimal.Decimal, isVerified bool, badges Badges, expiryDate time.Time, visitCount int64, datePosted, updatedAt time.Time) *Property {
	return &Property{
		id: id, creatorID: creatorID, title: title, slugValue: slugValue,
		description: description, price: price, isVerified: isVerified,
		badges: badges, expiryDate: expiryDate, visitCount: visitCount,
		datePosted: datePosted, updatedAt: updatedAt,
	}
}

// MarkVerified publishes the property and resets its expiry window.
// It reports whether a false→true transition actually happened, so that
// the verified notification fires at most once no matter how many
// callers (payment reconciler, moderator) invoke it.
func (p *Property) MarkVerified(now time.Time) (transitioned bool) {
	if p.isVerified {
		return false
	}
	p.isVerified = true
	p.expiryDate = now.AddDate(0, 0, DefaultListingDays)
	p.updatedAt = now
	return true
}

// Expire hides a listing whose window has closed.
func (p *Property) Expire(now time.Time) {
	p.isVerified = false
	p.updatedAt = now
}

// IsVisible reports whether non-owner queries may see the property.
func (p *Property) IsVisible(now time.Time) bool {
	return p.isVerified && p.expiryDate.After(now)
}

// RecordVisit increments the visit counter.
func (p *Property) RecordVisit() {
	p.visitCount++
}

func (p *Property) ID() uuid.UUID          { return p.id }
func (p *Property) CreatorID() uuid.UUID   { return p.creatorID }
func (p *Property) Title() string          { return p.title }
func (p *Property) Slug() string           { return p.slugValue }
func (p *Property) Description() string    { return p.description }
func (p *Property) Price() decimal.Decimal { return p.price }
func (p *Property) IsVerified() bool       { return p.isVerified }
func (p *Property) BadgeFlags() Badges     { return p.badges }
func (p *Property) ExpiryDate() time.Time  { return p.expiryDate }
func (p *Property) VisitCount() int64      { return p.visitCount }
func (p *Property) DatePosted() time.Time  { return p.datePosted }
func (p *Property) UpdatedAt() time.Time   { return p.updatedAt }

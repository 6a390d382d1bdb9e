package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
)

// QuotaSummaryDTO aggregates the user's stacked subscriptions into one
// view: earliest start, latest end, summed free listings and how many of
// them remain.
type QuotaSummaryDTO struct {
	Plans        []string   `json:"plans"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Unlimited    bool       `json:"unlimited"`
	TotalAllowed int        `json:"total_allowed"`
	Used         int64      `json:"used"`
	Remaining    int64      `json:"remaining"`
	HasFreeQuota bool       `json:"has_free_quota"`
}

// QuotaService computes listing quota from the user's active
// subscriptions. Quota is derived, never debited: "used" is the count of
// properties posted since the earliest active subscription started,
// summed against the free-listing allowance of every active plan.
type QuotaService struct {
	subRepo      subscription.Repository
	planRepo     subscription.PlanRepository
	propertyRepo listing.Repository
	logger       *zap.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(
	subRepo subscription.Repository,
	planRepo subscription.PlanRepository,
	propertyRepo listing.Repository,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		subRepo:      subRepo,
		planRepo:     planRepo,
		propertyRepo: propertyRepo,
		logger:       logger,
	}
}

// HasFreeQuota reports whether the user may post a listing without
// paying. Users with no current subscription have no free quota.
func (s *QuotaService) HasFreeQuota(ctx context.Context, userID uuid.UUID) (bool, error) {
	summary, err := s.CurrentSummary(ctx, userID)
	if err != nil {
		return false, err
	}
	return summary.HasFreeQuota, nil
}

// CurrentSummary aggregates every currently active subscription.
func (s *QuotaService) CurrentSummary(ctx context.Context, userID uuid.UUID) (*QuotaSummaryDTO, error) {
	now := time.Now().UTC()

	subs, err := s.subRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	current := subs[:0]
	for _, sub := range subs {
		if sub.IsCurrent(now) {
			current = append(current, sub)
		}
	}
	if len(current) == 0 {
		return &QuotaSummaryDTO{Plans: []string{}}, nil
	}

	summary := &QuotaSummaryDTO{Plans: make([]string, 0, len(current))}
	plans := make(map[uuid.UUID]*subscription.Plan)
	earliest := current[0].StartDate()
	latest := current[0].EndDate()

	for _, sub := range current {
		plan, ok := plans[sub.PlanID()]
		if !ok {
			plan, err = s.planRepo.FindByID(ctx, sub.PlanID())
			if err != nil {
				return nil, err
			}
			plans[sub.PlanID()] = plan
		}

		summary.Plans = append(summary.Plans, plan.Slug())
		if plan.Unlimited() {
			summary.Unlimited = true
		} else {
			summary.TotalAllowed += plan.FreeListings()
		}
		if sub.StartDate().Before(earliest) {
			earliest = sub.StartDate()
		}
		if sub.EndDate().After(latest) {
			latest = sub.EndDate()
		}
	}

	summary.StartDate = &earliest
	summary.EndDate = &latest

	// Usage counts from the start of the earliest subscription's first
	// day, so a listing posted earlier that same day still burns quota.
	sinceDay := time.Date(earliest.Year(), earliest.Month(), earliest.Day(), 0, 0, 0, 0, time.UTC)
	used, err := s.propertyRepo.CountByCreatorSince(ctx, userID, sinceDay)
	if err != nil {
		return nil, err
	}
	summary.Used = used

	if summary.Unlimited {
		summary.HasFreeQuota = true
		return summary, nil
	}

	summary.Remaining = int64(summary.TotalAllowed) - used
	if summary.Remaining < 0 {
		summary.Remaining = 0
	}
	summary.HasFreeQuota = used < int64(summary.TotalAllowed)
	return summary, nil
}

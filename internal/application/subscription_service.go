package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/internal/domain/user"
)

// PlanDTO is the API response DTO for subscription plans.
type PlanDTO struct {
	ID                uuid.UUID       `json:"id"`
	Slug              string          `json:"slug"`
	Price             decimal.Decimal `json:"price"`
	DurationDays      int             `json:"duration_days"`
	FreeListings      int             `json:"free_listings"`
	UnlimitedListings bool            `json:"unlimited_listings"`
	Perks             []string        `json:"perks"`
}

// RegisterDeviceRequest is the DTO for registering a push token.
type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// SubscriptionService exposes the plan catalogue, the aggregate quota
// summary and push-token registration.
type SubscriptionService struct {
	planRepo subscription.PlanRepository
	quotaSvc *QuotaService
	userRepo user.Repository
	logger   *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(planRepo subscription.PlanRepository, quotaSvc *QuotaService, userRepo user.Repository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{planRepo: planRepo, quotaSvc: quotaSvc, userRepo: userRepo, logger: logger}
}

// ListPlans returns every purchasable plan.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]PlanDTO, len(plans))
	for i, p := range plans {
		perks := make([]string, len(p.Perks()))
		for j, perk := range p.Perks() {
			perks[j] = string(perk)
		}
		dtos[i] = PlanDTO{
			ID:                p.ID(),
			Slug:              p.Slug(),
			Price:             p.Price(),
			DurationDays:      p.DurationDays(),
			FreeListings:      p.FreeListings(),
			UnlimitedListings: p.Unlimited(),
			Perks:             perks,
		}
	}
	return dtos, nil
}

// Me returns the caller's aggregate subscription summary.
func (s *SubscriptionService) Me(ctx context.Context, userID uuid.UUID) (*QuotaSummaryDTO, error) {
	return s.quotaSvc.CurrentSummary(ctx, userID)
}

// RegisterDevice upserts a push token for the caller.
func (s *SubscriptionService) RegisterDevice(ctx context.Context, userID uuid.UUID, req RegisterDeviceRequest) error {
	return s.userRepo.SaveDeviceToken(ctx, &user.DeviceToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     req.Token,
		Platform:  req.Platform,
		CreatedAt: time.Now().UTC(),
	})
}

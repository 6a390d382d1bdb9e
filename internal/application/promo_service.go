package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/internal/domain/promo"
)

// PromoScope distinguishes which payment kind a code is being redeemed
// against; the already-used rule is evaluated per scope.
type PromoScope string

const (
	ScopeListing      PromoScope = "listing"
	ScopeSubscription PromoScope = "subscription"
)

// CreatePromoRequest is the DTO for creating a promo code.
type CreatePromoRequest struct {
	Code            string     `json:"code" binding:"required"`
	DiscountPercent int        `json:"discount_percent" binding:"required,gte=0,lte=100"`
	UsageLimit      int        `json:"usage_limit" binding:"required,gt=0"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// PromoDTO is the API response DTO for promo code data.
type PromoDTO struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	UsageLimit      int        `json:"usage_limit"`
	UsedCount       int        `json:"used_count"`
	IsActive        bool       `json:"is_active"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toPromoDTO(p *promo.PromoCode) PromoDTO {
	return PromoDTO{
		ID:              p.ID(),
		Code:            p.Code(),
		DiscountPercent: p.DiscountPercent(),
		UsageLimit:      p.UsageLimit(),
		UsedCount:       p.UsedCount(),
		IsActive:        p.IsActive(),
		ExpiresAt:       p.ExpiresAt(),
		CreatedAt:       p.CreatedAt(),
	}
}

// PromoService is the application service for the promo code ledger.
type PromoService struct {
	promoRepo      promo.Repository
	listingPayRepo payment.ListingPaymentRepository
	subPayRepo     payment.SubscriptionPaymentRepository
	logger         *zap.Logger
}

// NewPromoService creates a new PromoService.
func NewPromoService(
	promoRepo promo.Repository,
	listingPayRepo payment.ListingPaymentRepository,
	subPayRepo payment.SubscriptionPaymentRepository,
	logger *zap.Logger,
) *PromoService {
	return &PromoService{
		promoRepo:      promoRepo,
		listingPayRepo: listingPayRepo,
		subPayRepo:     subPayRepo,
		logger:         logger,
	}
}

// Create registers a new promo code.
func (s *PromoService) Create(ctx context.Context, req CreatePromoRequest) (*PromoDTO, error) {
	code, err := promo.NewPromoCode(req.Code, req.DiscountPercent, req.UsageLimit, req.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.promoRepo.Save(ctx, code); err != nil {
		return nil, err
	}

	s.logger.Info("promo code created",
		zap.String("code", code.Code()),
		zap.Int("discount_percent", code.DiscountPercent()),
		zap.Int("usage_limit", code.UsageLimit()),
	)

	dto := toPromoDTO(code)
	return &dto, nil
}

// ListActive returns every active promo code.
func (s *PromoService) ListActive(ctx context.Context) ([]PromoDTO, error) {
	codes, err := s.promoRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]PromoDTO, len(codes))
	for i, c := range codes {
		dtos[i] = toPromoDTO(c)
	}
	return dtos, nil
}

// Validate checks that the code exists, is usable now, and has not been
// used by this user before within the given scope. It reserves nothing;
// the actual Apply happens later under the row lock.
func (s *PromoService) Validate(ctx context.Context, userID uuid.UUID, code string, scope PromoScope) (*promo.PromoCode, error) {
	p, err := s.promoRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := p.CheckUsable(time.Now().UTC()); err != nil {
		return nil, err
	}

	var used bool
	switch scope {
	case ScopeListing:
		used, err = s.listingPayRepo.ExistsForUserAndPromo(ctx, userID, p.ID())
	case ScopeSubscription:
		used, err = s.subPayRepo.ExistsSuccessfulForUserAndPromo(ctx, userID, p.ID())
	}
	if err != nil {
		return nil, err
	}
	if used {
		return nil, promo.ErrAlreadyUsed
	}
	return p, nil
}

// Preview computes the discounted amount without reserving a use. An
// empty code returns the base amount unchanged.
func (s *PromoService) Preview(ctx context.Context, userID uuid.UUID, code string, base decimal.Decimal, scope PromoScope) (decimal.Decimal, error) {
	if code == "" {
		return base.Round(2), nil
	}
	p, err := s.Validate(ctx, userID, code, scope)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Discount(base), nil
}

package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/internal/domain/promo"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/internal/domain/user"
	"github.com/homelet/service-classifieds/internal/saga"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
)

// CreateListingPaymentRequest is the DTO for creating a listing payment.
type CreateListingPaymentRequest struct {
	PropertyID uuid.UUID `json:"property_id" binding:"required"`
	PromoCode  string    `json:"promo_code"`
}

// CreateSubscriptionPaymentRequest is the DTO for subscription checkout.
type CreateSubscriptionPaymentRequest struct {
	Plan      string `json:"plan" binding:"required"`
	PromoCode string `json:"promo_code"`
}

// PreviewRequest is the DTO for the read-only amount preview.
type PreviewRequest struct {
	Plan      string `json:"plan" binding:"required"`
	PromoCode string `json:"promo_code"`
}

// ListingPaymentDTO is the API response DTO for a listing payment.
type ListingPaymentDTO struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID uuid.UUID       `json:"property_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaymentRef string          `json:"payment_ref"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CheckoutDTO is the API response DTO for subscription checkout.
type CheckoutDTO struct {
	PaymentRef string          `json:"payment_ref"`
	AccessCode string          `json:"access_code"`
	Amount     decimal.Decimal `json:"amount"`
}

// SubscriptionPaymentDTO is the API response DTO for a subscription payment.
type SubscriptionPaymentDTO struct {
	ID             uuid.UUID       `json:"id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentRef     string          `json:"payment_ref"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaymentService is the application service for payment intents.
type PaymentService struct {
	db             *gorm.DB
	promoSvc       *PromoService
	checkoutSaga   *saga.CheckoutSagaService
	listingPayRepo payment.ListingPaymentRepository
	subPayRepo     payment.SubscriptionPaymentRepository
	propertyRepo   listing.Repository
	planRepo       subscription.PlanRepository
	userRepo       user.Repository
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	db *gorm.DB,
	promoSvc *PromoService,
	checkoutSaga *saga.CheckoutSagaService,
	listingPayRepo payment.ListingPaymentRepository,
	subPayRepo payment.SubscriptionPaymentRepository,
	propertyRepo listing.Repository,
	planRepo subscription.PlanRepository,
	userRepo user.Repository,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		db:             db,
		promoSvc:       promoSvc,
		checkoutSaga:   checkoutSaga,
		listingPayRepo: listingPayRepo,
		subPayRepo:     subPayRepo,
		propertyRepo:   propertyRepo,
		planRepo:       planRepo,
		userRepo:       userRepo,
		logger:         logger,
	}
}

// CreateListingPayment creates a pending payment for publishing a
// property. Promo validation, the ledger increment and the payment
// insert run in one transaction so a crash cannot leave the promo
// counter incremented without a payment row.
func (s *PaymentService) CreateListingPayment(ctx context.Context, userID uuid.UUID, req CreateListingPaymentRequest) (*ListingPaymentDTO, error) {
	property, err := s.propertyRepo.FindByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.CreatorID() != userID {
		return nil, domain.NewPermissionError("you can only pay for your own property")
	}

	var pay *payment.ListingPayment
	err = database.InTx(ctx, s.db, func(ctx context.Context) error {
		amount := property.Price()
		var promoID *uuid.UUID

		if req.PromoCode != "" {
			code, err := s.promoSvc.promoRepo.FindByCodeForUpdate(ctx, req.PromoCode)
			if err != nil {
				return err
			}
			used, err := s.listingPayRepo.ExistsForUserAndPromo(ctx, userID, code.ID())
			if err != nil {
				return err
			}
			if used {
				return promo.ErrAlreadyUsed
			}
			if err := code.Apply(time.Now().UTC()); err != nil {
				return err
			}
			if err := s.promoSvc.promoRepo.Update(ctx, code); err != nil {
				return err
			}
			id := code.ID()
			promoID = &id
			amount = code.Discount(property.Price())
		}

		pay = payment.NewListingPayment(userID, property.ID(), amount, promoID)
		return s.listingPayRepo.Save(ctx, pay)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing payment created",
		zap.String("payment_ref", pay.PaymentRef()),
		zap.String("property_id", property.ID().String()),
		zap.String("amount", pay.Amount().StringFixed(2)),
	)

	return &ListingPaymentDTO{
		ID:         pay.ID(),
		PropertyID: pay.PropertyID(),
		Amount:     pay.Amount(),
		PaymentRef: pay.PaymentRef(),
		Status:     string(pay.Status()),
		CreatedAt:  pay.CreatedAt(),
	}, nil
}

// CreateSubscriptionPayment runs the subscription checkout saga and
// returns what the client needs to open the gateway widget.
func (s *PaymentService) CreateSubscriptionPayment(ctx context.Context, userID uuid.UUID, req CreateSubscriptionPaymentRequest) (*CheckoutDTO, error) {
	plan, err := s.planRepo.FindBySlug(ctx, req.Plan)
	if err != nil {
		return nil, err
	}

	if req.PromoCode != "" {
		if _, err := s.promoSvc.Validate(ctx, userID, req.PromoCode, ScopeSubscription); err != nil {
			return nil, err
		}
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.checkoutSaga.Checkout(ctx, userID, u.Email, plan, req.PromoCode)
	if err != nil {
		return nil, err
	}

	return &CheckoutDTO{
		PaymentRef: result.Payment.PaymentRef(),
		AccessCode: result.AccessCode,
		Amount:     result.Amount,
	}, nil
}

// PreviewSubscriptionPayment computes the amount the checkout would
// charge, reserving nothing.
func (s *PaymentService) PreviewSubscriptionPayment(ctx context.Context, userID uuid.UUID, req PreviewRequest) (decimal.Decimal, error) {
	plan, err := s.planRepo.FindBySlug(ctx, req.Plan)
	if err != nil {
		return decimal.Zero, err
	}
	return s.promoSvc.Preview(ctx, userID, req.PromoCode, plan.Price(), ScopeSubscription)
}

// ListMySubscriptionPayments returns the caller's subscription payments,
// newest first.
func (s *PaymentService) ListMySubscriptionPayments(ctx context.Context, userID uuid.UUID, page, limit int) ([]SubscriptionPaymentDTO, int64, error) {
	payments, total, err := s.subPayRepo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]SubscriptionPaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = SubscriptionPaymentDTO{
			ID:             p.ID(),
			SubscriptionID: p.SubscriptionID(),
			Amount:         p.Amount(),
			PaymentRef:     p.PaymentRef(),
			Status:         string(p.Status()),
			CreatedAt:      p.CreatedAt(),
		}
	}
	return dtos, total, nil
}

package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelet/service-classifieds/internal/adapter"
	"github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/internal/domain/promo"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/pkg/database"
)

// CheckoutResult is what the client needs to complete a subscription purchase.
type CheckoutResult struct {
	Payment    *payment.SubscriptionPayment
	AccessCode string
	Amount     decimal.Decimal
}

// CheckoutSagaService orchestrates subscription checkout: it reserves the
// promo use, persists the provisional subscription and pending payment, and
// registers the charge with the gateway. Any step failure unwinds every
// earlier step, so a gateway outage leaves no promo use consumed and no
// orphan rows behind.
type CheckoutSagaService struct {
	db        *gorm.DB
	subRepo   subscription.Repository
	payRepo   payment.SubscriptionPaymentRepository
	promoRepo promo.Repository
	gateway   adapter.PaymentGateway
	logger    *zap.Logger
}

// NewCheckoutSagaService creates a new CheckoutSagaService.
func NewCheckoutSagaService(
	db *gorm.DB,
	subRepo subscription.Repository,
	payRepo payment.SubscriptionPaymentRepository,
	promoRepo promo.Repository,
	gateway adapter.PaymentGateway,
	logger *zap.Logger,
) *CheckoutSagaService {
	return &CheckoutSagaService{
		db:        db,
		subRepo:   subRepo,
		payRepo:   payRepo,
		promoRepo: promoRepo,
		gateway:   gateway,
		logger:    logger,
	}
}

// Checkout runs the subscription purchase saga. promoCode may be empty.
// The final amount has any promo discount already applied.
func (s *CheckoutSagaService) Checkout(
	ctx context.Context,
	userID uuid.UUID,
	customerEmail string,
	plan *subscription.Plan,
	promoCode string,
) (*CheckoutResult, error) {
	amount := plan.Price()
	var promoID *uuid.UUID

	// A renewal pays against the user's existing subscription for the
	// plan; only first-time purchases create a row. The reconciler
	// decides extend-vs-activate when the payment is verified.
	sub, subCreated, err := s.findOrBuildSubscription(ctx, userID, plan)
	if err != nil {
		return nil, err
	}
	var pay *payment.SubscriptionPayment
	var accessCode string

	sg := New("subscription_checkout", s.logger)

	if promoCode != "" {
		// Reserve one promo use under an exclusive row lock so the
		// check-then-increment cannot race a concurrent checkout.
		sg.AddStep(Step{
			Name: "reserve_promo_use",
			Execute: func(ctx context.Context) error {
				return database.InTx(ctx, s.db, func(ctx context.Context) error {
					code, err := s.promoRepo.FindByCodeForUpdate(ctx, promoCode)
					if err != nil {
						return err
					}
					now := time.Now().UTC()
					if err := code.Apply(now); err != nil {
						return err
					}
					if err := s.promoRepo.Update(ctx, code); err != nil {
						return err
					}
					id := code.ID()
					promoID = &id
					amount = code.Discount(plan.Price())
					return nil
				})
			},
			Compensate: func(ctx context.Context) error {
				return database.InTx(ctx, s.db, func(ctx context.Context) error {
					code, err := s.promoRepo.FindByCodeForUpdate(ctx, promoCode)
					if err != nil {
						return err
					}
					if err := code.Rollback(time.Now().UTC()); err != nil {
						return err
					}
					return s.promoRepo.Update(ctx, code)
				})
			},
		})
	}

	if subCreated {
		sg.AddStep(Step{
			Name: "create_subscription",
			Execute: func(ctx context.Context) error {
				return s.subRepo.Save(ctx, sub)
			},
			Compensate: func(ctx context.Context) error {
				return s.subRepo.Delete(ctx, sub.ID())
			},
		})
	}

	sg.AddStep(Step{
		Name: "create_pending_payment",
		Execute: func(ctx context.Context) error {
			pay = payment.NewSubscriptionPayment(userID, sub.ID(), amount, promoID)
			return s.payRepo.Save(ctx, pay)
		},
		Compensate: func(ctx context.Context) error {
			return s.payRepo.Delete(ctx, pay.ID())
		},
	})

	sg.AddStep(Step{
		Name: "initialize_gateway_transaction",
		Execute: func(ctx context.Context) error {
			var err error
			accessCode, err = s.gateway.InitializeTransaction(ctx, customerEmail, amount, pay.PaymentRef())
			return err
		},
		Compensate: nil,
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	return &CheckoutResult{Payment: pay, AccessCode: accessCode, Amount: amount}, nil
}

// findOrBuildSubscription returns the user's existing subscription for the
// plan, or builds a fresh inactive one awaiting verification.
func (s *CheckoutSagaService) findOrBuildSubscription(ctx context.Context, userID uuid.UUID, plan *subscription.Plan) (*subscription.UserSubscription, bool, error) {
	active, err := s.subRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	for _, sub := range active {
		if sub.PlanID() == plan.ID() {
			return sub, false, nil
		}
	}
	return subscription.NewUserSubscription(userID, plan), true, nil
}

package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelet/service-classifieds/internal/adapter"
	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/domain"
	"github.com/homelet/service-classifieds/pkg/events"
	"github.com/homelet/service-classifieds/pkg/kafka"
)

// VerifyRequest is the DTO for payment verification calls.
type VerifyRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// VerifyResultDTO reports the reconciliation outcome.
type VerifyResultDTO struct {
	Reference        string `json:"reference"`
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"already_processed"`
}

// VerificationService reconciles the gateway's authoritative verdict
// into local state. Verification is safely re-triggerable: success is
// terminal and a second call short-circuits without side effects, while
// any gateway-side failure leaves the payment pending for retry.
type VerificationService struct {
	db             *gorm.DB
	gateway        adapter.PaymentGateway
	listingPayRepo payment.ListingPaymentRepository
	subPayRepo     payment.SubscriptionPaymentRepository
	propertyRepo   listing.Repository
	subRepo        subscription.Repository
	planRepo       subscription.PlanRepository
	producer       *kafka.Producer
	logger         *zap.Logger
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	db *gorm.DB,
	gateway adapter.PaymentGateway,
	listingPayRepo payment.ListingPaymentRepository,
	subPayRepo payment.SubscriptionPaymentRepository,
	propertyRepo listing.Repository,
	subRepo subscription.Repository,
	planRepo subscription.PlanRepository,
	producer *kafka.Producer,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		db:             db,
		gateway:        gateway,
		listingPayRepo: listingPayRepo,
		subPayRepo:     subPayRepo,
		propertyRepo:   propertyRepo,
		subRepo:        subRepo,
		planRepo:       planRepo,
		producer:       producer,
		logger:         logger,
	}
}

// confirmWithGateway asks the gateway for the charge outcome. Anything
// other than an explicit success is an error; in particular a timeout
// must never be read as success.
func (s *VerificationService) confirmWithGateway(ctx context.Context, reference string) error {
	if reference == "" {
		return domain.NewValidationError("reference", "is required")
	}
	result, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return domain.NewGatewayRejectedError("transaction status is " + result.GatewayStatus)
	}
	return nil
}

// VerifyListing confirms a listing payment with the gateway and, on the
// first successful confirmation, publishes the property.
func (s *VerificationService) VerifyListing(ctx context.Context, userID uuid.UUID, reference string) (*VerifyResultDTO, error) {
	if err := s.confirmWithGateway(ctx, reference); err != nil {
		return nil, err
	}

	pay, err := s.listingPayRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if pay.UserID() != userID {
		return nil, domain.NewPermissionError("payment belongs to another user")
	}
	if pay.Status() == payment.StatusSuccess {
		return &VerifyResultDTO{Reference: reference, Status: string(pay.Status()), AlreadyProcessed: true}, nil
	}

	var property *listing.Property
	var transitioned, alreadyDone bool
	err = database.InTx(ctx, s.db, func(ctx context.Context) error {
		// Re-read under the row lock: a racing verification may have
		// committed between the unlocked read above and this point.
		pay, err = s.listingPayRepo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		alreadyDone, err = pay.MarkSucceeded(now)
		if err != nil {
			return err
		}
		if alreadyDone {
			return nil
		}
		if err := s.listingPayRepo.Update(ctx, pay); err != nil {
			return err
		}

		property, err = s.propertyRepo.FindByID(ctx, pay.PropertyID())
		if err != nil {
			return err
		}
		if transitioned = property.MarkVerified(now); transitioned {
			return s.propertyRepo.Update(ctx, property)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyDone {
		return &VerifyResultDTO{Reference: reference, Status: string(pay.Status()), AlreadyProcessed: true}, nil
	}

	s.logger.Info("listing payment verified",
		zap.String("reference", reference),
		zap.String("property_id", pay.PropertyID().String()),
	)

	if transitioned {
		s.publishPropertyVerified(ctx, property)
	}

	return &VerifyResultDTO{Reference: reference, Status: string(pay.Status())}, nil
}

// VerifySubscription confirms a subscription payment and activates or
// extends the subscription. Renewal before expiry appends a full plan
// period onto the remaining days; a lapsed subscription restarts now.
func (s *VerificationService) VerifySubscription(ctx context.Context, userID uuid.UUID, reference string) (*VerifyResultDTO, error) {
	if err := s.confirmWithGateway(ctx, reference); err != nil {
		return nil, err
	}

	pay, err := s.subPayRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if pay.UserID() != userID {
		return nil, domain.NewPermissionError("payment belongs to another user")
	}
	if pay.Status() == payment.StatusSuccess {
		return &VerifyResultDTO{Reference: reference, Status: string(pay.Status()), AlreadyProcessed: true}, nil
	}

	var sub *subscription.UserSubscription
	var plan *subscription.Plan
	var renewed, alreadyDone bool
	err = database.InTx(ctx, s.db, func(ctx context.Context) error {
		// Re-read under the row lock: a racing verification may have
		// committed between the unlocked read above and this point.
		pay, err = s.subPayRepo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		alreadyDone, err = pay.MarkSucceeded(now)
		if err != nil {
			return err
		}
		if alreadyDone {
			return nil
		}
		if err := s.subPayRepo.Update(ctx, pay); err != nil {
			return err
		}

		sub, err = s.subRepo.FindByID(ctx, pay.SubscriptionID())
		if err != nil {
			return err
		}
		plan, err = s.planRepo.FindByID(ctx, sub.PlanID())
		if err != nil {
			return err
		}

		if sub.IsCurrent(now) {
			sub.Extend(now, plan.DurationDays())
			renewed = true
		} else {
			sub.Activate(now, plan.DurationDays())
		}
		return s.subRepo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	if alreadyDone {
		return &VerifyResultDTO{Reference: reference, Status: string(pay.Status()), AlreadyProcessed: true}, nil
	}

	s.logger.Info("subscription payment verified",
		zap.String("reference", reference),
		zap.String("subscription_id", pay.SubscriptionID().String()),
		zap.Bool("renewed", renewed),
	)

	if sub != nil {
		s.publishSubscriptionActivated(ctx, sub, plan, renewed)
	}

	return &VerifyResultDTO{Reference: reference, Status: string(pay.Status())}, nil
}

// publishPropertyVerified emits the verified event. Publish failures are
// logged only; the state transition has already committed.
func (s *VerificationService) publishPropertyVerified(ctx context.Context, property *listing.Property) {
	event := events.PropertyVerifiedEvent{
		PropertyID:    property.ID(),
		PropertyTitle: property.Title(),
		PropertySlug:  property.Slug(),
		OwnerID:       property.CreatorID(),
		OccurredAt:    time.Now().UTC(),
	}
	s.publish(ctx, events.PropertyVerified, event)
}

func (s *VerificationService) publishSubscriptionActivated(ctx context.Context, sub *subscription.UserSubscription, plan *subscription.Plan, renewed bool) {
	event := events.SubscriptionActivatedEvent{
		SubscriptionID: sub.ID(),
		UserID:         sub.UserID(),
		PlanSlug:       plan.Slug(),
		EndDate:        sub.EndDate(),
		Renewed:        renewed,
		OccurredAt:     time.Now().UTC(),
	}
	s.publish(ctx, events.SubscriptionActivated, event)
}

func (s *VerificationService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.producer == nil {
		return
	}
	ce, err := kafka.NewCloudEvent(events.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to build cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicClassifiedsEvents, ce); err != nil {
		s.logger.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}


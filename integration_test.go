//go:build integration

package main_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/internal/domain/listing"
	"github.com/homelet/service-classifieds/internal/domain/promo"
	"github.com/homelet/service-classifieds/internal/domain/subscription"
	"github.com/homelet/service-classifieds/internal/repository"
	"github.com/homelet/service-classifieds/pkg/domain"
	"github.com/homelet/service-classifieds/pkg/events"
)

// TestListingPaymentLifecycle verifies the full listing flow: a pending
// payment is created with a promo discount, verification flips the
// property live, and the verified notification lands via Kafka.
func TestListingPaymentLifecycle(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupClassifiedsStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer stack.CleanupConsumer()

	ctx := context.Background()
	userID := seedUser(t, infra.DB, "landlord1")

	// Start the notification consumer.
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = stack.Consumer.Start(consumerCtx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	// Seed a promo code and a property.
	_, err := stack.Promos.Create(ctx, application.CreatePromoRequest{
		Code: "SAVE50", DiscountPercent: 50, UsageLimit: 10,
	})
	require.NoError(t, err)

	property, err := listing.NewProperty(userID, "3 Bedroom Flat in Lekki", "spacious", decimal.NewFromInt(1500000), listing.Badges{})
	require.NoError(t, err)
	propertyRepo := repository.NewGormPropertyRepository(infra.DB)
	require.NoError(t, propertyRepo.Save(ctx, property))

	// Create the pending payment with the promo applied.
	dto, err := stack.Payments.CreateListingPayment(ctx, userID, application.CreateListingPaymentRequest{
		PropertyID: property.ID(),
		PromoCode:  "SAVE50",
	})
	require.NoError(t, err)
	assert.True(t, dto.Amount.Equal(decimal.NewFromInt(750000)), "got %s", dto.Amount)
	assert.Equal(t, "pending", dto.Status)

	// Verify the payment; the mock gateway approves.
	result, err := stack.Verifier.VerifyListing(ctx, userID, dto.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.False(t, result.AlreadyProcessed)

	// Assert: property row is verified.
	var propertyModel repository.PropertyModel
	require.NoError(t, infra.DB.Where("id = ?", property.ID()).First(&propertyModel).Error)
	assert.True(t, propertyModel.IsVerified)

	// Assert: the verified event made it onto the topic.
	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicClassifiedsEvents,
		events.PropertyVerified, 15*time.Second)
	var event events.PropertyVerifiedEvent
	require.NoError(t, ce.ParseData(&event))
	assert.Equal(t, property.ID(), event.PropertyID)
	assert.Equal(t, userID, event.OwnerID)

	// Assert: the consumer stored a notification for the owner.
	notif := waitForNotification(t, infra.DB, userID, 15*time.Second)
	assert.Equal(t, "verified", notif.NotifType)

	// Re-verification must short-circuit without a second notification.
	replay, err := stack.Verifier.VerifyListing(ctx, userID, dto.PaymentRef)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyProcessed)
}

// TestSubscriptionCheckoutAndVerify verifies checkout through the saga,
// payment verification, activation and the derived listing quota.
func TestSubscriptionCheckoutAndVerify(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupClassifiedsStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer stack.CleanupConsumer()

	ctx := context.Background()
	userID := seedUser(t, infra.DB, "agent1")

	plan, err := subscription.NewPlan("gold", decimal.NewFromInt(25000), 30, 5, false, []subscription.Perk{subscription.PerkFeatured})
	require.NoError(t, err)
	planRepo := repository.NewGormPlanRepository(infra.DB)
	require.NoError(t, planRepo.Save(ctx, plan))

	// No quota before any subscription.
	ok, err := stack.Quota.HasFreeQuota(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Checkout.
	checkout, err := stack.Payments.CreateSubscriptionPayment(ctx, userID, application.CreateSubscriptionPaymentRequest{
		Plan: "gold",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, checkout.AccessCode)

	// The provisional subscription exists but is inactive.
	var subModel repository.UserSubscriptionModel
	require.NoError(t, infra.DB.Where("user_id = ?", userID).First(&subModel).Error)
	assert.False(t, subModel.IsActive)

	// Verify the payment.
	result, err := stack.Verifier.VerifySubscription(ctx, userID, checkout.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	require.NoError(t, infra.DB.Where("user_id = ?", userID).First(&subModel).Error)
	assert.True(t, subModel.IsActive)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), subModel.EndDate, time.Minute)

	// Quota now reflects the plan's free listings.
	summary, err := stack.Quota.CurrentSummary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalAllowed)
	assert.True(t, summary.HasFreeQuota)

	// The activation event carries the plan and period end.
	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicClassifiedsEvents,
		events.SubscriptionActivated, 15*time.Second)
	var event events.SubscriptionActivatedEvent
	require.NoError(t, ce.ParseData(&event))
	assert.Equal(t, "gold", event.PlanSlug)
	assert.False(t, event.Renewed)
}

// TestCheckoutGatewayOutage_RollsBackEverything verifies the saga
// compensation path against the real database.
func TestCheckoutGatewayOutage_RollsBackEverything(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupClassifiedsStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer stack.CleanupConsumer()

	ctx := context.Background()
	userID := seedUser(t, infra.DB, "agent2")

	plan, err := subscription.NewPlan("silver", decimal.NewFromInt(10000), 30, 2, false, nil)
	require.NoError(t, err)
	require.NoError(t, repository.NewGormPlanRepository(infra.DB).Save(ctx, plan))

	_, err = stack.Promos.Create(ctx, application.CreatePromoRequest{
		Code: "LAUNCH", DiscountPercent: 20, UsageLimit: 5,
	})
	require.NoError(t, err)

	stack.Gateway.FailInitialize = true
	_, err = stack.Payments.CreateSubscriptionPayment(ctx, userID, application.CreateSubscriptionPaymentRequest{
		Plan: "silver", PromoCode: "LAUNCH",
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrGatewayUnavailable))

	// No orphan rows and the promo use was returned.
	var subCount, payCount int64
	infra.DB.Model(&repository.UserSubscriptionModel{}).Where("user_id = ?", userID).Count(&subCount)
	infra.DB.Model(&repository.SubscriptionPaymentModel{}).Where("user_id = ?", userID).Count(&payCount)
	assert.Zero(t, subCount)
	assert.Zero(t, payCount)

	var promoModel repository.PromoModel
	require.NoError(t, infra.DB.Where("code = ?", "LAUNCH").First(&promoModel).Error)
	assert.Zero(t, promoModel.UsedCount)

	// The same checkout succeeds once the gateway recovers.
	stack.Gateway.FailInitialize = false
	checkout, err := stack.Payments.CreateSubscriptionPayment(ctx, userID, application.CreateSubscriptionPaymentRequest{
		Plan: "silver", PromoCode: "LAUNCH",
	})
	require.NoError(t, err)
	assert.True(t, checkout.Amount.Equal(decimal.NewFromInt(8000)), "got %s", checkout.Amount)
}

// TestPromoConcurrentApplies_NeverOvercommits races more applications at
// a promo code than it has remaining uses. The row lock must grant
// exactly the remaining capacity and reject the rest.
func TestPromoConcurrentApplies_NeverOvercommits(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupClassifiedsStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer stack.CleanupConsumer()

	ctx := context.Background()

	const workers = 8
	const limit = 3

	_, err := stack.Promos.Create(ctx, application.CreatePromoRequest{
		Code: "FLASH", DiscountPercent: 10, UsageLimit: limit,
	})
	require.NoError(t, err)

	// Each applicant is a distinct user with their own property, so the
	// per-user reuse guard never interferes with the capacity race.
	propertyRepo := repository.NewGormPropertyRepository(infra.DB)
	type applicant struct {
		userID     uuid.UUID
		propertyID uuid.UUID
	}
	applicants := make([]applicant, workers)
	for i := range applicants {
		userID := seedUser(t, infra.DB, fmt.Sprintf("racer%d", i))
		property, err := listing.NewProperty(userID, fmt.Sprintf("Studio Apartment %d", i), "", decimal.NewFromInt(200000), listing.Badges{})
		require.NoError(t, err)
		require.NoError(t, propertyRepo.Save(ctx, property))
		applicants[i] = applicant{userID: userID, propertyID: property.ID()}
	}

	start := make(chan struct{})
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for _, a := range applicants {
		wg.Add(1)
		go func(a applicant) {
			defer wg.Done()
			<-start
			_, err := stack.Payments.CreateListingPayment(ctx, a.userID, application.CreateListingPaymentRequest{
				PropertyID: a.propertyID,
				PromoCode:  "FLASH",
			})
			results <- err
		}(a)
	}
	close(start)
	wg.Wait()
	close(results)

	var granted, rejected int
	for err := range results {
		if err == nil {
			granted++
			continue
		}
		rejected++
		assert.ErrorIs(t, err, promo.ErrLimitReached)
	}
	assert.Equal(t, limit, granted, "exactly the remaining capacity may be granted")
	assert.Equal(t, workers-limit, rejected)

	var promoModel repository.PromoModel
	require.NoError(t, infra.DB.Where("code = ?", "FLASH").First(&promoModel).Error)
	assert.Equal(t, limit, promoModel.UsedCount, "used count never exceeds the limit")
	assert.False(t, promoModel.IsActive, "an exhausted code deactivates")

	var withPromo int64
	infra.DB.Model(&repository.ListingPaymentModel{}).Where("promo_id IS NOT NULL").Count(&withPromo)
	assert.EqualValues(t, limit, withPromo, "every grant left exactly one payment row")
}

// TestSubscriptionRenewal_ExtendsInsteadOfReplacing verifies that paying
// for a plan the user already holds extends the same row.
func TestSubscriptionRenewal_ExtendsInsteadOfReplacing(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupClassifiedsStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer stack.CleanupConsumer()

	ctx := context.Background()
	userID := seedUser(t, infra.DB, "agent3")

	plan, err := subscription.NewPlan("gold", decimal.NewFromInt(25000), 30, 5, false, nil)
	require.NoError(t, err)
	require.NoError(t, repository.NewGormPlanRepository(infra.DB).Save(ctx, plan))

	// First purchase and verification.
	first, err := stack.Payments.CreateSubscriptionPayment(ctx, userID, application.CreateSubscriptionPaymentRequest{Plan: "gold"})
	require.NoError(t, err)
	_, err = stack.Verifier.VerifySubscription(ctx, userID, first.PaymentRef)
	require.NoError(t, err)

	var subModel repository.UserSubscriptionModel
	require.NoError(t, infra.DB.Where("user_id = ?", userID).First(&subModel).Error)
	firstEnd := subModel.EndDate

	// Renewal before expiry.
	second, err := stack.Payments.CreateSubscriptionPayment(ctx, userID, application.CreateSubscriptionPaymentRequest{Plan: "gold"})
	require.NoError(t, err)
	result, err := stack.Verifier.VerifySubscription(ctx, userID, second.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	var count int64
	infra.DB.Model(&repository.UserSubscriptionModel{}).Where("user_id = ?", userID).Count(&count)
	assert.Equal(t, int64(1), count, "renewal must reuse the existing subscription row")

	require.NoError(t, infra.DB.Where("id = ?", subModel.ID).First(&subModel).Error)
	assert.WithinDuration(t, firstEnd.AddDate(0, 0, 30), subModel.EndDate, 2*time.Second, "remaining days are preserved")

	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicClassifiedsEvents,
		events.SubscriptionActivated, 15*time.Second)
	var event events.SubscriptionActivatedEvent
	require.NoError(t, ce.ParseData(&event))
	assert.Equal(t, userID, event.UserID)
}

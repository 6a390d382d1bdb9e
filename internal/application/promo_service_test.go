package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/domain/payment"
	"github.com/homelet/service-classifieds/internal/domain/promo"
)

type promoFixture struct {
	svc         *PromoService
	promos      *fakePromoRepo
	listingPays *fakeListingPaymentRepo
	subPays     *fakeSubscriptionPaymentRepo
}

func newPromoFixture() *promoFixture {
	f := &promoFixture{
		promos:      newFakePromoRepo(),
		listingPays: newFakeListingPaymentRepo(),
		subPays:     newFakeSubscriptionPaymentRepo(),
	}
	f.svc = NewPromoService(f.promos, f.listingPays, f.subPays, zap.NewNop())
	return f
}

func (f *promoFixture) seedCode(t *testing.T, code string, percent int) *promo.PromoCode {
	t.Helper()
	p, err := promo.NewPromoCode(code, percent, 10, nil)
	require.NoError(t, err)
	require.NoError(t, f.promos.Save(context.Background(), p))
	return p
}

func TestPromoCreate_ReturnsUppercasedDTO(t *testing.T) {
	f := newPromoFixture()

	dto, err := f.svc.Create(context.Background(), CreatePromoRequest{
		Code: "save50", DiscountPercent: 50, UsageLimit: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE50", dto.Code)
	assert.Equal(t, 50, dto.DiscountPercent)
	assert.True(t, dto.IsActive)
	assert.Zero(t, dto.UsedCount)
}

func TestPromoValidate_UnknownCode(t *testing.T) {
	f := newPromoFixture()

	_, err := f.svc.Validate(context.Background(), uuid.New(), "NOPE", ScopeListing)
	assert.ErrorIs(t, err, promo.ErrNotFound)
}

func TestPromoValidate_CaseInsensitiveLookup(t *testing.T) {
	f := newPromoFixture()
	f.seedCode(t, "SAVE50", 50)

	p, err := f.svc.Validate(context.Background(), uuid.New(), "save50", ScopeListing)
	require.NoError(t, err)
	assert.Equal(t, "SAVE50", p.Code())
}

func TestPromoValidate_ListingScopeCountsAnyPayment(t *testing.T) {
	f := newPromoFixture()
	code := f.seedCode(t, "SAVE50", 50)
	userID := uuid.New()

	// Even a still-pending listing payment burns the code for this user.
	promoID := code.ID()
	pending := payment.NewListingPayment(userID, uuid.New(), decimal.NewFromInt(500), &promoID)
	require.NoError(t, f.listingPays.Save(context.Background(), pending))

	_, err := f.svc.Validate(context.Background(), userID, "SAVE50", ScopeListing)
	assert.ErrorIs(t, err, promo.ErrAlreadyUsed)

	// A different user is unaffected.
	_, err = f.svc.Validate(context.Background(), uuid.New(), "SAVE50", ScopeListing)
	assert.NoError(t, err)
}

func TestPromoValidate_SubscriptionScopeCountsOnlySuccessfulPayments(t *testing.T) {
	f := newPromoFixture()
	code := f.seedCode(t, "SAVE50", 50)
	userID := uuid.New()
	promoID := code.ID()

	pending := payment.NewSubscriptionPayment(userID, uuid.New(), decimal.NewFromInt(250), &promoID)
	require.NoError(t, f.subPays.Save(context.Background(), pending))

	// Abandoned checkouts do not burn the code.
	_, err := f.svc.Validate(context.Background(), userID, "SAVE50", ScopeSubscription)
	require.NoError(t, err)

	_, err = pending.MarkSucceeded(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.subPays.Update(context.Background(), pending))

	_, err = f.svc.Validate(context.Background(), userID, "SAVE50", ScopeSubscription)
	assert.ErrorIs(t, err, promo.ErrAlreadyUsed)
}

func TestPromoValidate_ExpiredCode(t *testing.T) {
	f := newPromoFixture()
	past := time.Now().UTC().Add(-time.Hour)
	p, err := promo.NewPromoCode("OLD", 20, 10, &past)
	require.NoError(t, err)
	require.NoError(t, f.promos.Save(context.Background(), p))

	_, err = f.svc.Validate(context.Background(), uuid.New(), "OLD", ScopeListing)
	assert.ErrorIs(t, err, promo.ErrExpired)
}

func TestPromoPreview_AppliesDiscount(t *testing.T) {
	f := newPromoFixture()
	f.seedCode(t, "SAVE50", 50)

	amount, err := f.svc.Preview(context.Background(), uuid.New(), "SAVE50", decimal.NewFromInt(250), ScopeSubscription)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(125)), "got %s", amount)
}

func TestPromoPreview_EmptyCodeReturnsBase(t *testing.T) {
	f := newPromoFixture()

	amount, err := f.svc.Preview(context.Background(), uuid.New(), "", decimal.NewFromFloat(99.999), ScopeListing)
	require.NoError(t, err)
	assert.Equal(t, "100.00", amount.StringFixed(2))
}

func TestPromoPreview_DoesNotConsumeUse(t *testing.T) {
	f := newPromoFixture()
	code := f.seedCode(t, "SAVE50", 50)

	_, err := f.svc.Preview(context.Background(), uuid.New(), "SAVE50", decimal.NewFromInt(250), ScopeSubscription)
	require.NoError(t, err)
	assert.Zero(t, code.UsedCount())
}

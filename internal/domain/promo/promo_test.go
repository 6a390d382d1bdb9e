package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromoCode_UppercasesCode(t *testing.T) {
	p, err := NewPromoCode("save50", 50, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "SAVE50", p.Code())
	assert.True(t, p.IsActive())
	assert.Equal(t, 0, p.UsedCount())
}

func TestNewPromoCode_Validation(t *testing.T) {
	_, err := NewPromoCode("", 10, 1, nil)
	assert.Error(t, err)

	_, err = NewPromoCode("X", 101, 1, nil)
	assert.Error(t, err)

	_, err = NewPromoCode("X", -1, 1, nil)
	assert.Error(t, err)

	_, err = NewPromoCode("X", 10, 0, nil)
	assert.Error(t, err)
}

func TestDiscount_Rounding(t *testing.T) {
	cases := []struct {
		percent int
		amount  string
		want    string
	}{
		{0, "100.00", "100.00"},
		{50, "100.00", "50.00"},
		{100, "100.00", "0.00"},
		{50, "99.99", "50.00"},
		{33, "10.00", "6.70"},
	}
	for _, tc := range cases {
		p, err := NewPromoCode("CODE", tc.percent, 10, nil)
		require.NoError(t, err)
		got := p.Discount(decimal.RequireFromString(tc.amount))
		assert.Equal(t, tc.want, got.StringFixed(2),
			"discount %d%% of %s", tc.percent, tc.amount)
	}
}

func TestApply_Save50Scenario(t *testing.T) {
	p, err := NewPromoCode("SAVE50", 50, 1, nil)
	require.NoError(t, err)

	amount := p.Discount(decimal.RequireFromString("100.00"))
	assert.Equal(t, "50.00", amount.StringFixed(2))

	now := time.Now().UTC()
	require.NoError(t, p.Apply(now))
	assert.Equal(t, 1, p.UsedCount())
	assert.False(t, p.IsActive(), "exhausted code deactivates")

	err = p.Apply(now)
	assert.ErrorIs(t, err, ErrLimitReached, "exhausted code reads as limit reached, not missing")
}

func TestCheckUsable_ManuallyDeactivatedCodeReadsAsNotFound(t *testing.T) {
	p := Reconstruct(p1().ID(), "PAUSED", 10, 5, 2, false, nil, time.Now(), time.Now())
	assert.ErrorIs(t, p.CheckUsable(time.Now().UTC()), ErrNotFound)
}

func TestApply_LimitReached(t *testing.T) {
	p := Reconstruct(p1().ID(), "BULK", 10, 3, 3, true, nil, time.Now(), time.Now())
	err := p.Apply(time.Now().UTC())
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.Equal(t, 3, p.UsedCount(), "used count never exceeds the limit")
}

func TestApply_Expired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	p, err := NewPromoCode("OLD", 10, 5, &past)
	require.NoError(t, err)

	assert.ErrorIs(t, p.Apply(time.Now().UTC()), ErrExpired)
	assert.Equal(t, 0, p.UsedCount())
}

func TestRollback_ReactivatesExhaustedCode(t *testing.T) {
	p, err := NewPromoCode("ONCE", 25, 1, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, p.Apply(now))
	require.False(t, p.IsActive())

	require.NoError(t, p.Rollback(now))
	assert.Equal(t, 0, p.UsedCount())
	assert.True(t, p.IsActive(), "rolling back the exhausting use reactivates the code")

	assert.Error(t, p.Rollback(now), "nothing left to roll back")
}

func p1() *PromoCode {
	p, _ := NewPromoCode("SEED", 10, 3, nil)
	return p
}

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coupondom "academy/internal/domain/coupon"
	orderdom "academy/internal/domain/order"
	plandom "academy/internal/domain/plan"
)

func newPricingFixture(t *testing.T) (*PricingResolver, *fakePlanRepo, *fakeCouponRepo) {
	t.Helper()

	plans := newFakePlanRepo()
	coupons := newFakeCouponRepo()

	p, err := plandom.New("course-go", "Go course", 110, 90, true, []int{7})
	require.NoError(t, err)
	plans.put(p)

	r := NewPricingResolver(plans, coupons)
	r.now = fixedNow
	return r, plans, coupons
}

func TestResolveSelectsPriceByMethod(t *testing.T) {
	r, _, _ := newPricingFixture(t)

	pix, err := r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "", "")
	require.NoError(t, err)
	assert.Equal(t, 90.00, pix.OriginalPrice)
	assert.Equal(t, 90.00, pix.FinalPrice)
	assert.Equal(t, 20.00, pix.PixDiscount)

	card, err := r.Resolve(context.Background(), "course-go", orderdom.MethodCard, "", "")
	require.NoError(t, err)
	assert.Equal(t, 110.00, card.OriginalPrice)
	assert.Equal(t, 110.00, card.FinalPrice)
}

func TestResolveAppliesPercentCoupon(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	c, err := coupondom.New("WELCOME10", 10, 0, true, nil, 0, 0)
	require.NoError(t, err)
	coupons.put(c)

	out, err := r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "welcome10", "12345678900")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", out.CouponCode)
	assert.Equal(t, 9.00, out.CouponDiscount)
	assert.Equal(t, 81.00, out.FinalPrice)
}

func TestResolveAppliesFixedAmountCoupon(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	c, err := coupondom.New("SAVE15", 0, 15, true, nil, 0, 0)
	require.NoError(t, err)
	coupons.put(c)

	out, err := r.Resolve(context.Background(), "course-go", orderdom.MethodCard, "SAVE15", "12345678900")
	require.NoError(t, err)
	assert.Equal(t, 15.00, out.CouponDiscount)
	assert.Equal(t, 95.00, out.FinalPrice)
}

func TestResolveRejectsUnknownCoupon(t *testing.T) {
	r, _, _ := newPricingFixture(t)
	_, err := r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "NOPE", "12345678900")
	require.ErrorIs(t, err, coupondom.ErrInvalid)
}

func TestResolveRejectsExpiredCoupon(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	past := testNow.Add(-time.Hour)
	c, err := coupondom.New("OLD", 10, 0, true, &past, 0, 0)
	require.NoError(t, err)
	coupons.put(c)

	_, err = r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "OLD", "12345678900")
	require.ErrorIs(t, err, coupondom.ErrInvalid)
}

func TestResolveRejectsExhaustedCoupon(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	c, err := coupondom.New("LIMITED", 10, 0, true, nil, 0, 5)
	require.NoError(t, err)
	c.CurrentUses = 5
	coupons.put(c)

	_, err = r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "LIMITED", "12345678900")
	require.ErrorIs(t, err, coupondom.ErrInvalid)
}

func TestResolveRequiresTaxIDForCoupon(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	c, err := coupondom.New("WELCOME10", 10, 0, true, nil, 0, 0)
	require.NoError(t, err)
	coupons.put(c)

	_, err = r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "WELCOME10", "")
	require.ErrorIs(t, err, coupondom.ErrInvalid)
}

func TestResolveRejectsDiscountSwallowingPrice(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	c, err := coupondom.New("FREE", 0, 90, true, nil, 0, 0)
	require.NoError(t, err)
	coupons.put(c)

	_, err = r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "FREE", "12345678900")
	require.ErrorIs(t, err, coupondom.ErrInvalid)
}

func TestResolveRejectsUnknownOrInactivePlan(t *testing.T) {
	r, plans, _ := newPricingFixture(t)

	_, err := r.Resolve(context.Background(), "no-such-product", orderdom.MethodPix, "", "")
	require.ErrorIs(t, err, plandom.ErrNotFound)

	inactive, err := plandom.New("course-off", "Retired course", 100, 80, false, nil)
	require.NoError(t, err)
	plans.put(inactive)

	_, err = r.Resolve(context.Background(), "course-off", orderdom.MethodPix, "", "")
	require.ErrorIs(t, err, plandom.ErrInactive)
}

func TestResolveNeverConsumesCouponInventory(t *testing.T) {
	r, _, coupons := newPricingFixture(t)

	c, err := coupondom.New("WELCOME10", 10, 0, true, nil, 0, 10)
	require.NoError(t, err)
	coupons.put(c)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), "course-go", orderdom.MethodPix, "WELCOME10", "12345678900")
		require.NoError(t, err)
	}

	got, err := coupons.GetByCode(context.Background(), "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentUses)
	assert.Equal(t, 0, coupons.usageCount())
}

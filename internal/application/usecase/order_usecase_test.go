package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdom "academy/internal/domain/order"
	plandom "academy/internal/domain/plan"
)

func newOrderFixture(t *testing.T) (*OrderUsecase, *fakeOrderRepo) {
	t.Helper()

	orders := newFakeOrderRepo()
	plans := newFakePlanRepo()
	coupons := newFakeCouponRepo()

	p, err := plandom.New("course-go", "Go course", 110, 90, true, []int{7})
	require.NoError(t, err)
	plans.put(p)

	pricing := NewPricingResolver(plans, coupons)
	pricing.now = fixedNow

	uc := NewOrderUsecase(orders, pricing)
	uc.now = fixedNow
	uc.newID = func() string { return "ord-fixed" }
	return uc, orders
}

func TestCreateOrderPersistsPendingOrder(t *testing.T) {
	uc, orders := newOrderFixture(t)

	out, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		Email:         "Buyer@Example.com",
		TaxID:         "12345678900",
		LegalName:     "Buyer Example",
		ProductID:     "course-go",
		PaymentMethod: orderdom.MethodPix,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-fixed", out.OrderID)
	assert.Equal(t, 90.00, out.Breakdown.FinalPrice)

	got := orders.get("ord-fixed")
	assert.Equal(t, orderdom.StatusPending, got.Status)
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.Equal(t, testNow.Add(orderdom.OrderExpiryWindow), got.ExpiresAt)
}

func TestCreateOrderRejectsInvalidInput(t *testing.T) {
	uc, orders := newOrderFixture(t)

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		Email:         "not-an-email",
		LegalName:     "Buyer Example",
		ProductID:     "course-go",
		PaymentMethod: orderdom.MethodPix,
	})
	require.ErrorIs(t, err, orderdom.ErrInvalidEmail)
	assert.Empty(t, orders.get("ord-fixed").ID)
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	uc, _ := newOrderFixture(t)

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		Email:         "buyer@example.com",
		LegalName:     "Buyer Example",
		ProductID:     "no-such-product",
		PaymentMethod: orderdom.MethodPix,
	})
	require.ErrorIs(t, err, plandom.ErrNotFound)
}

func TestLinkPaymentAttachesGatewayReference(t *testing.T) {
	uc, orders := newOrderFixture(t)
	orders.put(newTestOrder("ord-1"))

	require.NoError(t, uc.LinkPayment(context.Background(), "ord-1", "pay_123456789012", "pix-code"))

	got := orders.get("ord-1")
	assert.Equal(t, "pay_123456789012", got.GatewayPaymentID)
	assert.Equal(t, "pix-code", got.PixPayload)
	assert.Equal(t, orderdom.StatusPending, got.Status)

	// Last write wins, empty fields leave previous values.
	require.NoError(t, uc.LinkPayment(context.Background(), "ord-1", "pay_999999999999", ""))
	got = orders.get("ord-1")
	assert.Equal(t, "pay_999999999999", got.GatewayPaymentID)
	assert.Equal(t, "pix-code", got.PixPayload)
}

func TestLinkPaymentUnknownOrder(t *testing.T) {
	uc, _ := newOrderFixture(t)
	err := uc.LinkPayment(context.Background(), "no-such-order", "pay_1", "")
	require.ErrorIs(t, err, orderdom.ErrNotFound)
}

func TestGetStatusProjection(t *testing.T) {
	uc, orders := newOrderFixture(t)

	pending := newTestOrder("ord-pending")
	pending.PixPayload = "pix-code"
	orders.put(pending)
	orders.put(paidOrder("ord-paid"))

	failed := newTestOrder("ord-failed")
	failed.Status = orderdom.StatusExpired
	orders.put(failed)

	view, err := uc.GetStatus(context.Background(), "ord-pending")
	require.NoError(t, err)
	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, "pix-code", view.PixPayload)

	view, err = uc.GetStatus(context.Background(), "ord-paid")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", view.Status)

	view, err = uc.GetStatus(context.Background(), "ord-failed")
	require.NoError(t, err)
	assert.Equal(t, "failed", view.Status)

	_, err = uc.GetStatus(context.Background(), "no-such-order")
	require.ErrorIs(t, err, orderdom.ErrNotFound)
}

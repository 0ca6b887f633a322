package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func validOrder(t *testing.T) Order {
	t.Helper()
	o, err := New("ord-1", " Buyer@Example.com ", "12345678900", "Buyer Example",
		"course-go", MethodPix, 100, 90, "WELCOME10", 10, 20, now)
	require.NoError(t, err)
	return o
}

func TestNewNormalizesAndDefaults(t *testing.T) {
	o := validOrder(t)

	assert.Equal(t, "buyer@example.com", o.Email)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, now.Add(OrderExpiryWindow), o.ExpiresAt)
	assert.Nil(t, o.PaidAt)
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(args *[12]any)
		wantErr error
	}{
		{"empty id", func(a *[12]any) { a[0] = " " }, ErrInvalidID},
		{"bad email", func(a *[12]any) { a[1] = "nope" }, ErrInvalidEmail},
		{"empty legalName", func(a *[12]any) { a[3] = "" }, ErrInvalidLegalName},
		{"empty productId", func(a *[12]any) { a[4] = "" }, ErrInvalidProductID},
		{"bad method", func(a *[12]any) { a[5] = PaymentMethod("cash") }, ErrInvalidMethod},
		{"zero price", func(a *[12]any) { a[7] = 0.0 }, ErrInvalidPrice},
		{"discount without coupon", func(a *[12]any) { a[8] = "" }, ErrInvalidDiscount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := [12]any{"ord-1", "buyer@example.com", "12345678900", "Buyer Example",
				"course-go", MethodPix, 100.0, 90.0, "WELCOME10", 10.0, 20.0, now}
			tc.mutate(&args)
			_, err := New(
				args[0].(string), args[1].(string), args[2].(string), args[3].(string),
				args[4].(string), args[5].(PaymentMethod), args[6].(float64), args[7].(float64),
				args[8].(string), args[9].(float64), args[10].(float64), args[11].(time.Time),
			)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestMarkPaidIsForwardOnly(t *testing.T) {
	o := validOrder(t)

	require.NoError(t, o.MarkPaid("pay_1", now))
	assert.Equal(t, StatusPaid, o.Status)
	require.NotNil(t, o.PaidAt)
	firstPaidAt := *o.PaidAt

	// A second transition is refused and PaidAt stays.
	err := o.MarkPaid("pay_2", now.Add(time.Hour))
	require.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, firstPaidAt, *o.PaidAt)
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
}

func TestClaimFirstWins(t *testing.T) {
	o := validOrder(t)

	require.NoError(t, o.Claim("acc-1", "buyer@example.com"))
	require.NoError(t, o.Claim("acc-1", "buyer@example.com"))
	require.ErrorIs(t, o.Claim("acc-2", "other@example.com"), ErrAlreadyClaimed)
	assert.Equal(t, "acc-1", o.AccountID)
	assert.Equal(t, "buyer@example.com", o.AccountEmail)
}

func TestLifecycleTransitions(t *testing.T) {
	o := validOrder(t)

	require.ErrorIs(t, o.MarkProvisioned(now), ErrNotPaid)
	require.ErrorIs(t, o.Complete(), ErrNotProvisioned)

	require.NoError(t, o.MarkPaid("pay_1", now))
	assert.True(t, o.HasPayment())
	assert.True(t, o.PaidOrLater())

	require.NoError(t, o.MarkProvisioned(now))
	assert.False(t, o.HasPayment())
	assert.True(t, o.PaidOrLater())

	require.NoError(t, o.Complete())
	assert.Equal(t, StatusCompleted, o.Status)
	require.ErrorIs(t, o.Complete(), ErrNotProvisioned)
}

func TestAttachPaymentLastWriteWins(t *testing.T) {
	o := validOrder(t)

	o.AttachPayment("pay_1", "pix-1")
	o.AttachPayment("pay_2", "")
	o.AttachPayment("", "pix-2")

	assert.Equal(t, "pay_2", o.GatewayPaymentID)
	assert.Equal(t, "pix-2", o.PixPayload)
	assert.Equal(t, StatusPending, o.Status)
}

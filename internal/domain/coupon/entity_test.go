package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestNewNormalizesCode(t *testing.T) {
	c, err := New(" welcome10 ", 10, 0, true, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", c.Code)

	_, err = New("  ", 10, 0, true, nil, 0, 0)
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = New("X", 0, 0, true, nil, 0, 0)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = New("X", 120, 0, true, nil, 0, 0)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestDiscountForPercent(t *testing.T) {
	c, err := New("TEN", 10, 0, true, nil, 0, 0)
	require.NoError(t, err)

	d, err := c.DiscountFor(90, "12345678900", now)
	require.NoError(t, err)
	assert.Equal(t, 9.00, d)
}

func TestDiscountForFixedAmount(t *testing.T) {
	c, err := New("SAVE15", 0, 15, true, nil, 0, 0)
	require.NoError(t, err)

	d, err := c.DiscountFor(90, "12345678900", now)
	require.NoError(t, err)
	assert.Equal(t, 15.00, d)
}

func TestDiscountForRejections(t *testing.T) {
	expired := now.Add(-time.Minute)

	cases := []struct {
		name   string
		coupon func() Coupon
		price  float64
		taxID  string
	}{
		{"inactive", func() Coupon {
			c, _ := New("X", 10, 0, false, nil, 0, 0)
			return c
		}, 90, "123"},
		{"expired", func() Coupon {
			c, _ := New("X", 10, 0, true, &expired, 0, 0)
			return c
		}, 90, "123"},
		{"exhausted", func() Coupon {
			c, _ := New("X", 10, 0, true, nil, 0, 3)
			c.CurrentUses = 3
			return c
		}, 90, "123"},
		{"missing taxId", func() Coupon {
			c, _ := New("X", 10, 0, true, nil, 0, 0)
			return c
		}, 90, " "},
		{"below minimum price", func() Coupon {
			c, _ := New("X", 10, 0, true, nil, 100, 0)
			return c
		}, 90, "123"},
		{"discount swallows price", func() Coupon {
			c, _ := New("X", 0, 90, true, nil, 0, 0)
			return c
		}, 90, "123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.coupon().DiscountFor(tc.price, tc.taxID, now)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestUnlimitedCouponIgnoresUsageCount(t *testing.T) {
	c, err := New("X", 10, 0, true, nil, 0, 0)
	require.NoError(t, err)
	c.CurrentUses = 100000

	_, err = c.DiscountFor(90, "123", now)
	require.NoError(t, err)
}

// internal/domain/coupon/entity.go
package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	common "academy/internal/domain/common"
)

// Coupon is a promotional discount with a usage cap. CurrentUses counts
// confirmed payments only; applying a coupon at order creation never
// consumes inventory.
type Coupon struct {
	Code        string
	Percent     float64 // percentage discount, 0 when Amount is used
	Amount      float64 // fixed discount, 0 when Percent is used
	Active      bool
	ExpiresAt   *time.Time
	MinPrice    float64
	MaxUses     int // 0 = unlimited
	CurrentUses int
}

// Usage is one append-only ledger entry, created once per confirmed order.
// Invariant: the sum of Usage rows for a coupon equals its CurrentUses.
type Usage struct {
	ID            string
	CouponCode    string
	OrderID       string
	Discount      float64
	OriginalPrice float64
	FinalPrice    float64
	TaxID         string
	CreatedAt     time.Time
}

var (
	ErrInvalidCode = errors.New("coupon: invalid code")
	ErrInvalid     = errors.New("coupon: invalid")
	ErrNotFound    = errors.New("coupon: not found")
	ErrConflict    = errors.New("coupon: conflict")
)

func New(code string, percent, amount float64, active bool, expiresAt *time.Time, minPrice float64, maxUses int) (Coupon, error) {
	c := Coupon{
		Code:      strings.ToUpper(strings.TrimSpace(code)),
		Percent:   percent,
		Amount:    amount,
		Active:    active,
		ExpiresAt: expiresAt,
		MinPrice:  minPrice,
		MaxUses:   maxUses,
	}
	if c.Code == "" {
		return Coupon{}, ErrInvalidCode
	}
	if c.Percent < 0 || c.Percent > 100 || c.Amount < 0 {
		return Coupon{}, ErrInvalid
	}
	if c.Percent == 0 && c.Amount == 0 {
		return Coupon{}, ErrInvalid
	}
	return c, nil
}

// DiscountFor validates the coupon against a base price and tax id and
// returns the discount amount. The error carries the descriptive reason
// surfaced to the caller at order creation.
func (c Coupon) DiscountFor(basePrice float64, taxID string, now time.Time) (float64, error) {
	if !c.Active {
		return 0, fmt.Errorf("%w: coupon %s is inactive", ErrInvalid, c.Code)
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return 0, fmt.Errorf("%w: coupon %s expired", ErrInvalid, c.Code)
	}
	if c.MaxUses > 0 && c.CurrentUses >= c.MaxUses {
		return 0, fmt.Errorf("%w: coupon %s usage limit reached", ErrInvalid, c.Code)
	}
	if strings.TrimSpace(taxID) == "" {
		return 0, fmt.Errorf("%w: taxId is required to apply coupon %s", ErrInvalid, c.Code)
	}
	if c.MinPrice > 0 && basePrice < c.MinPrice {
		return 0, fmt.Errorf("%w: coupon %s requires a minimum price of %.2f", ErrInvalid, c.Code, c.MinPrice)
	}

	var discount float64
	if c.Percent > 0 {
		discount = common.Round2(basePrice * c.Percent / 100)
	} else {
		discount = common.Round2(c.Amount)
	}
	if discount >= basePrice {
		return 0, fmt.Errorf("%w: coupon %s discount exceeds price", ErrInvalid, c.Code)
	}
	return discount, nil
}

// internal/application/usecase/pricing_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	common "academy/internal/domain/common"
	coupondom "academy/internal/domain/coupon"
	orderdom "academy/internal/domain/order"
	plandom "academy/internal/domain/plan"
)

// PriceBreakdown is the pricing snapshot computed at intake and stored on
// the order.
type PriceBreakdown struct {
	OriginalPrice  float64 `json:"originalPrice"`
	FinalPrice     float64 `json:"finalPrice"`
	CouponCode     string  `json:"couponCode,omitempty"`
	CouponDiscount float64 `json:"couponDiscount"`
	PixDiscount    float64 `json:"pixDiscount"`
}

var ErrNonPositivePrice = errors.New("pricing: final price must be positive")

// PricingResolver is the pure computation turning (product, payment
// method, coupon) into a price breakdown. It reads plans and coupons but
// never writes; coupon usage is only counted on confirmed payment.
type PricingResolver struct {
	plans   plandom.Repository
	coupons coupondom.Repository
	now     func() time.Time
}

func NewPricingResolver(plans plandom.Repository, coupons coupondom.Repository) *PricingResolver {
	return &PricingResolver{
		plans:   plans,
		coupons: coupons,
		now:     time.Now,
	}
}

func (r *PricingResolver) Resolve(
	ctx context.Context,
	productID string,
	method orderdom.PaymentMethod,
	couponCode string,
	taxID string,
) (PriceBreakdown, error) {
	p, err := r.plans.GetByProductID(ctx, strings.TrimSpace(productID))
	if err != nil {
		return PriceBreakdown{}, err
	}
	if !p.Active {
		return PriceBreakdown{}, plandom.ErrInactive
	}

	base := common.Round2(p.PriceFor(method == orderdom.MethodPix))
	out := PriceBreakdown{
		OriginalPrice: base,
		FinalPrice:    base,
		PixDiscount:   common.Round2(p.PriceDefault - p.PricePix),
	}

	code := strings.ToUpper(strings.TrimSpace(couponCode))
	if code != "" {
		c, err := r.coupons.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, coupondom.ErrNotFound) {
				return PriceBreakdown{}, fmt.Errorf("%w: unknown coupon %s", coupondom.ErrInvalid, code)
			}
			return PriceBreakdown{}, err
		}
		discount, err := c.DiscountFor(base, taxID, r.now().UTC())
		if err != nil {
			return PriceBreakdown{}, err
		}
		out.CouponCode = c.Code
		out.CouponDiscount = discount
		out.FinalPrice = common.Round2(base - discount)
	}

	if out.FinalPrice <= 0 {
		return PriceBreakdown{}, ErrNonPositivePrice
	}
	return out, nil
}

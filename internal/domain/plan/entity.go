// internal/domain/plan/entity.go
package plan

import (
	"errors"
	"strings"
)

// Plan is the pricing plan for one product: a discounted instant-transfer
// (pix) price, a standard price, and the entitlement metadata used when
// access is granted.
type Plan struct {
	ProductID    string
	Name         string
	PriceDefault float64
	PricePix     float64
	Active       bool

	// ClassroomIDs is the identity-provider entitlement granted on
	// provisioning.
	ClassroomIDs []int
}

var (
	ErrNotFound = errors.New("plan: not found")
	ErrInactive = errors.New("plan: inactive")
	ErrInvalid  = errors.New("plan: invalid")
)

func New(productID, name string, priceDefault, pricePix float64, active bool, classroomIDs []int) (Plan, error) {
	p := Plan{
		ProductID:    strings.TrimSpace(productID),
		Name:         strings.TrimSpace(name),
		PriceDefault: priceDefault,
		PricePix:     pricePix,
		Active:       active,
		ClassroomIDs: classroomIDs,
	}
	if p.ProductID == "" || p.Name == "" {
		return Plan{}, ErrInvalid
	}
	if p.PriceDefault <= 0 || p.PricePix <= 0 || p.PricePix > p.PriceDefault {
		return Plan{}, ErrInvalid
	}
	return p, nil
}

// PriceFor selects the base price for a payment method.
func (p Plan) PriceFor(isPix bool) float64 {
	if isPix {
		return p.PricePix
	}
	return p.PriceDefault
}

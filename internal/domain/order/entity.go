// internal/domain/order/entity.go
package order

import (
	"errors"
	"strings"
	"time"

	common "academy/internal/domain/common"
)

// ========================================
// Status
// ========================================

// Status is forward-only: pending -> paid -> provisioned -> completed,
// with expired/failed as terminal side exits from pending.
type Status string

const (
	StatusPending     Status = "pending"
	StatusPaid        Status = "paid"
	StatusProvisioned Status = "provisioned"
	StatusCompleted   Status = "completed"
	StatusExpired     Status = "expired"
	StatusFailed      Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProvisioned, StatusCompleted, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// ========================================
// Entity
// ========================================

// PaymentMethod selects which plan price applies.
type PaymentMethod string

const (
	MethodPix  PaymentMethod = "pix"
	MethodCard PaymentMethod = "card"
)

// Order is the transactional aggregate from purchase intent through
// completed provisioning.
type Order struct {
	ID        string
	Email     string
	TaxID     string
	LegalName string

	ProductID     string
	PaymentMethod PaymentMethod

	// Pricing snapshot, fixed at intake.
	OriginalPrice  float64
	FinalPrice     float64
	CouponCode     string
	CouponDiscount float64
	PixDiscount    float64

	Status Status

	GatewayPaymentID string
	PixPayload       string

	// Set by the first successful identity claim.
	AccountID    string
	AccountEmail string

	CreatedAt     time.Time
	ExpiresAt     time.Time
	PaidAt        *time.Time
	ProvisionedAt *time.Time
}

// OrderExpiryWindow is the soft expiry stored at intake. It is not swept
// by this service.
const OrderExpiryWindow = 7 * 24 * time.Hour

// ========================================
// Errors
// ========================================

var (
	ErrInvalidID        = errors.New("order: invalid id")
	ErrInvalidEmail     = errors.New("order: invalid email")
	ErrInvalidLegalName = errors.New("order: invalid legalName")
	ErrInvalidProductID = errors.New("order: invalid productId")
	ErrInvalidMethod    = errors.New("order: invalid paymentMethod")
	ErrInvalidPrice     = errors.New("order: finalPrice must be positive")
	ErrInvalidDiscount  = errors.New("order: couponDiscount without couponCode")
	ErrInvalidCreatedAt = errors.New("order: invalid createdAt")

	ErrNotPending     = errors.New("order: not pending")
	ErrAlreadyClaimed = errors.New("order: already claimed by another account")
	ErrNotPaid        = errors.New("order: not paid")
	ErrNotProvisioned = errors.New("order: not provisioned")
)

// ========================================
// Constructor
// ========================================

func New(
	id string,
	email string,
	taxID string,
	legalName string,
	productID string,
	method PaymentMethod,
	originalPrice float64,
	finalPrice float64,
	couponCode string,
	couponDiscount float64,
	pixDiscount float64,
	createdAt time.Time,
) (Order, error) {
	o := Order{
		ID:        strings.TrimSpace(id),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		TaxID:     strings.TrimSpace(taxID),
		LegalName: strings.TrimSpace(legalName),

		ProductID:     strings.TrimSpace(productID),
		PaymentMethod: method,

		OriginalPrice:  common.Round2(originalPrice),
		FinalPrice:     common.Round2(finalPrice),
		CouponCode:     strings.TrimSpace(couponCode),
		CouponDiscount: common.Round2(couponDiscount),
		PixDiscount:    common.Round2(pixDiscount),

		Status:    StatusPending,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: createdAt.UTC().Add(OrderExpiryWindow),
	}
	if err := o.validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ========================================
// Behavior (mutators)
// ========================================

// AttachPayment stores the gateway reference. Last write wins; no status
// transition happens here.
func (o *Order) AttachPayment(gatewayPaymentID, pixPayload string) {
	if id := strings.TrimSpace(gatewayPaymentID); id != "" {
		o.GatewayPaymentID = id
	}
	if p := strings.TrimSpace(pixPayload); p != "" {
		o.PixPayload = p
	}
}

// MarkPaid performs the single pending->paid transition. PaidAt is set
// exactly once, here.
func (o *Order) MarkPaid(gatewayPaymentID string, at time.Time) error {
	if o.Status != StatusPending {
		return ErrNotPending
	}
	t := at.UTC()
	o.Status = StatusPaid
	o.PaidAt = &t
	if id := strings.TrimSpace(gatewayPaymentID); id != "" {
		o.GatewayPaymentID = id
	}
	return nil
}

// Claim binds the order to a newly created account. The first successful
// claim wins; re-claiming with the same account id is a no-op.
func (o *Order) Claim(accountID, accountEmail string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrAlreadyClaimed
	}
	if o.AccountID != "" && o.AccountID != accountID {
		return ErrAlreadyClaimed
	}
	o.AccountID = accountID
	o.AccountEmail = strings.ToLower(strings.TrimSpace(accountEmail))
	return nil
}

// MarkProvisioned advances paid->provisioned.
func (o *Order) MarkProvisioned(at time.Time) error {
	if o.Status != StatusPaid {
		return ErrNotPaid
	}
	t := at.UTC()
	o.Status = StatusProvisioned
	o.ProvisionedAt = &t
	return nil
}

// Complete advances provisioned->completed.
func (o *Order) Complete() error {
	if o.Status != StatusProvisioned {
		return ErrNotProvisioned
	}
	o.Status = StatusCompleted
	return nil
}

// HasPayment reports whether the payment signal has arrived and has not yet
// been consumed by provisioning.
func (o Order) HasPayment() bool { return o.Status == StatusPaid }

// HasAccount reports whether the identity signal has arrived.
func (o Order) HasAccount() bool { return o.AccountID != "" }

// PaidOrLater reports whether the money-received transition already ran.
func (o Order) PaidOrLater() bool {
	switch o.Status {
	case StatusPaid, StatusProvisioned, StatusCompleted:
		return true
	}
	return false
}

// ========================================
// Validation
// ========================================

func (o Order) validate() error {
	if o.ID == "" {
		return ErrInvalidID
	}
	if o.Email == "" || !strings.Contains(o.Email, "@") {
		return ErrInvalidEmail
	}
	if o.LegalName == "" {
		return ErrInvalidLegalName
	}
	if o.ProductID == "" {
		return ErrInvalidProductID
	}
	if o.PaymentMethod != MethodPix && o.PaymentMethod != MethodCard {
		return ErrInvalidMethod
	}
	if o.FinalPrice <= 0 {
		return ErrInvalidPrice
	}
	if o.CouponDiscount > 0 && o.CouponCode == "" {
		return ErrInvalidDiscount
	}
	if o.CreatedAt.IsZero() {
		return ErrInvalidCreatedAt
	}
	return nil
}

// internal/application/usecase/order_usecase.go
package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	orderdom "academy/internal/domain/order"
)

// OrderUsecase covers order intake, payment link attachment and the
// read-only status projection polled by waiting clients.
type OrderUsecase struct {
	orders  orderdom.Repository
	pricing *PricingResolver
	newID   func() string
	now     func() time.Time
}

func NewOrderUsecase(orders orderdom.Repository, pricing *PricingResolver) *OrderUsecase {
	return &OrderUsecase{
		orders:  orders,
		pricing: pricing,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// =======================
// Intake
// =======================

type CreateOrderInput struct {
	Email         string
	TaxID         string
	LegalName     string
	ProductID     string
	PaymentMethod orderdom.PaymentMethod
	CouponCode    string
}

type CreateOrderOutput struct {
	OrderID   string         `json:"orderId"`
	Breakdown PriceBreakdown `json:"pricing"`
}

// CreateOrder persists a new pending order with its pricing snapshot and
// a soft 7-day expiry. Validation failures surface to the caller and no
// order is created.
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderOutput, error) {
	bd, err := u.pricing.Resolve(ctx, in.ProductID, in.PaymentMethod, in.CouponCode, in.TaxID)
	if err != nil {
		log.Printf("[order_uc] CreateOrder pricing rejected productId=%s err=%v", in.ProductID, err)
		return CreateOrderOutput{}, err
	}

	o, err := orderdom.New(
		u.newID(),
		in.Email,
		in.TaxID,
		in.LegalName,
		in.ProductID,
		in.PaymentMethod,
		bd.OriginalPrice,
		bd.FinalPrice,
		bd.CouponCode,
		bd.CouponDiscount,
		bd.PixDiscount,
		u.now(),
	)
	if err != nil {
		return CreateOrderOutput{}, err
	}

	created, err := u.orders.Create(ctx, o)
	if err != nil {
		log.Printf("[order_uc] CreateOrder persist failed orderId=%s err=%v", o.ID, err)
		return CreateOrderOutput{}, err
	}

	log.Printf("[order_uc] CreateOrder OK orderId=%s productId=%s final=%.2f coupon=%s",
		created.ID, created.ProductID, created.FinalPrice, created.CouponCode,
	)
	return CreateOrderOutput{OrderID: created.ID, Breakdown: bd}, nil
}

// =======================
// Payment link
// =======================

// LinkPayment attaches the gateway payment id and pix payload to an
// order. Pure attachment: last write wins, idempotent, no status change.
func (u *OrderUsecase) LinkPayment(ctx context.Context, orderID, gatewayPaymentID, pixPayload string) error {
	_, err := u.orders.UpdateInTx(ctx, strings.TrimSpace(orderID), func(o *orderdom.Order) error {
		o.AttachPayment(gatewayPaymentID, pixPayload)
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[order_uc] LinkPayment OK orderId=%s paymentId=%s", strings.TrimSpace(orderID), maskID(gatewayPaymentID))
	return nil
}

// =======================
// Status query
// =======================

type OrderStatusView struct {
	Status        string  `json:"status"` // pending | confirmed | failed
	OrderID       string  `json:"orderId"`
	ProductID     string  `json:"productId"`
	FinalPrice    float64 `json:"finalPrice"`
	PaymentMethod string  `json:"paymentMethod"`
	PixPayload    string  `json:"pixPayload,omitempty"`
}

// GetStatus derives the polling projection purely from current order
// state; it is eventually consistent with payment confirmation.
func (u *OrderUsecase) GetStatus(ctx context.Context, orderID string) (OrderStatusView, error) {
	o, err := u.orders.GetByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return OrderStatusView{}, err
	}

	status := "pending"
	switch {
	case o.PaidOrLater():
		status = "confirmed"
	case o.Status == orderdom.StatusFailed || o.Status == orderdom.StatusExpired:
		status = "failed"
	}

	return OrderStatusView{
		Status:        status,
		OrderID:       o.ID,
		ProductID:     o.ProductID,
		FinalPrice:    o.FinalPrice,
		PaymentMethod: string(o.PaymentMethod),
		PixPayload:    o.PixPayload,
	}, nil
}

// maskID shortens identifiers for logs.
func maskID(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}

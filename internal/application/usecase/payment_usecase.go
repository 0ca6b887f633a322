// internal/application/usecase/payment_usecase.go
package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	common "academy/internal/domain/common"
	coupondom "academy/internal/domain/coupon"
	orderdom "academy/internal/domain/order"
	"academy/internal/infra/queue"
)

// GatewayPaymentEvent is the tagged payment event produced by webhook
// ingress after envelope validation. Value carries whichever of
// value/totalValue the gateway sent.
type GatewayPaymentEvent struct {
	Event             string
	PaymentID         string
	PaymentStatus     string
	Value             float64
	ExternalReference string
}

// PaymentIdentity is returned to the caller for the downstream
// best-effort invitation step.
type PaymentIdentity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Reconciler is the idempotent merge point invoked after either signal.
type Reconciler interface {
	Reconcile(ctx context.Context, orderID string) error
}

// PaymentUsecase validates and commits a gateway confirmation onto an
// order together with its coupon accounting, schedules invoice issuance
// and invokes the reconciler.
type PaymentUsecase struct {
	orders     orderdom.Repository
	tasks      queue.Enqueuer
	reconciler Reconciler
	now        func() time.Time
}

func NewPaymentUsecase(
	orders orderdom.Repository,
	tasks queue.Enqueuer,
	reconciler Reconciler,
) *PaymentUsecase {
	return &PaymentUsecase{
		orders:     orders,
		tasks:      tasks,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// errAlreadyPaid aborts the transaction when a concurrent duplicate won
// the pending->paid race; the caller treats it as a replay.
var errAlreadyPaid = errors.New("payment: already paid")

// moneyReceived reports whether a gateway payment status means the money
// actually arrived.
func moneyReceived(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED", "RECEIVED":
		return true
	}
	return false
}

// Confirm processes one gateway payment event.
//
// A nil identity with nil error means the event was ignored (wrong
// status, unknown reference, or integrity mismatch); the webhook still
// acknowledges generically so the sender stops retrying and an attacker
// learns nothing.
func (u *PaymentUsecase) Confirm(ctx context.Context, ev GatewayPaymentEvent) (*PaymentIdentity, error) {
	if !moneyReceived(ev.PaymentStatus) {
		log.Printf("[payment_uc] ignoring event=%s status=%s paymentId=%s", ev.Event, ev.PaymentStatus, maskID(ev.PaymentID))
		return nil, nil
	}

	ref := strings.TrimSpace(ev.ExternalReference)
	if ref == "" {
		log.Printf("[payment_uc] event without externalReference paymentId=%s; cannot process", maskID(ev.PaymentID))
		return nil, nil
	}

	ord, err := u.orders.GetByID(ctx, ref)
	if err != nil {
		if errors.Is(err, orderdom.ErrNotFound) {
			log.Printf("[payment_uc] externalReference=%s resolves to no order; cannot process", ref)
			return nil, nil
		}
		return nil, err
	}

	// Integrity check: a paid amount beyond tolerance of the stored price
	// is treated as a suspected tampering attempt. The order stays
	// untouched and the mismatch is not surfaced to the caller.
	if !common.WithinTolerance(ev.Value, ord.FinalPrice) {
		log.Printf("[payment_uc] SUSPECTED TAMPERING orderId=%s expected=%.2f got=%.2f paymentId=%s",
			ord.ID, ord.FinalPrice, ev.Value, maskID(ev.PaymentID),
		)
		return nil, nil
	}

	if ord.PaidOrLater() {
		log.Printf("[payment_uc] replay orderId=%s status=%s; no mutation", ord.ID, ord.Status)
		return &PaymentIdentity{Email: ord.Email, Name: ord.LegalName}, nil
	}

	// The usage id is the order id, so a crash-and-retry can never count
	// a coupon twice. The row and the counter increment commit in the
	// same transaction as the paid transition.
	var usage *coupondom.Usage
	if ord.CouponCode != "" {
		usage = &coupondom.Usage{
			ID:            ord.ID,
			CouponCode:    ord.CouponCode,
			OrderID:       ord.ID,
			Discount:      ord.CouponDiscount,
			OriginalPrice: ord.OriginalPrice,
			FinalPrice:    ord.FinalPrice,
			TaxID:         ord.TaxID,
			CreatedAt:     u.now().UTC(),
		}
	}

	updated, err := u.orders.ConfirmPaidInTx(ctx, ord.ID, func(o *orderdom.Order) error {
		if o.PaidOrLater() {
			return errAlreadyPaid
		}
		return o.MarkPaid(ev.PaymentID, u.now())
	}, usage)
	if err != nil {
		if errors.Is(err, errAlreadyPaid) {
			// Lost the race against a duplicate delivery; answer like a replay.
			log.Printf("[payment_uc] concurrent replay orderId=%s", ord.ID)
			return &PaymentIdentity{Email: ord.Email, Name: ord.LegalName}, nil
		}
		return nil, err
	}

	log.Printf("[payment_uc] order paid orderId=%s paymentId=%s amount=%.2f", updated.ID, maskID(ev.PaymentID), ev.Value)

	u.enqueueInvoice(ctx, updated.ID)

	if u.reconciler != nil {
		if rErr := u.reconciler.Reconcile(ctx, updated.ID); rErr != nil {
			log.Printf("[payment_uc] WARN reconcile failed orderId=%s err=%v", updated.ID, rErr)
		}
	}

	return &PaymentIdentity{Email: updated.Email, Name: updated.LegalName}, nil
}

// enqueueInvoice schedules the detached invoice issuance task. The queue
// must not block or fail the webhook response.
func (u *PaymentUsecase) enqueueInvoice(ctx context.Context, orderID string) {
	if u.tasks == nil {
		return
	}
	if err := u.tasks.Enqueue(ctx, queue.Task{Kind: queue.KindIssueInvoice, OrderID: orderID}); err != nil {
		log.Printf("[payment_uc] WARN invoice enqueue failed orderId=%s err=%v", orderID, err)
	}
}

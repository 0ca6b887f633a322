// internal/application/usecase/provisioning_usecase.go
package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	orderdom "academy/internal/domain/order"
	plandom "academy/internal/domain/plan"
)

// AccessGranter is the collaborator that actually grants course access
// to a claimed account.
type AccessGranter interface {
	GrantAccess(ctx context.Context, accountID, email string, classroomIDs []int) error
}

// ProvisioningUsecase is the single idempotent merge point for the two
// fulfillment signals (payment confirmation, identity claim).
//
// The guard requires status==paid AND a claimed account. Winning the
// paid->provisioned transition consumes the payment signal, so every
// later invocation, from a duplicate webhook, a retried claim or a
// concurrent delivery of both signals, observes hasPayment==false and
// becomes a no-op. No external locking is involved.
type ProvisioningUsecase struct {
	orders orderdom.Repository
	plans  plandom.Repository
	access AccessGranter
	now    func() time.Time
}

func NewProvisioningUsecase(orders orderdom.Repository, plans plandom.Repository, access AccessGranter) *ProvisioningUsecase {
	return &ProvisioningUsecase{
		orders: orders,
		plans:  plans,
		access: access,
		now:    time.Now,
	}
}

var _ Reconciler = (*ProvisioningUsecase)(nil)

// Reconcile evaluates the merge guard and, when both signals are
// present, grants access exactly once.
//
// A failure in the provisioning body is caught and logged; the order is
// left in its intermediate state and the only retry path is a future
// duplicate signal re-invoking this method.
func (u *ProvisioningUsecase) Reconcile(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)

	ord, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderdom.ErrNotFound) {
			log.Printf("[provision_uc] unknown orderId=%s; no-op", orderID)
			return nil
		}
		return err
	}

	if ord.Status == orderdom.StatusCompleted {
		return nil
	}
	if !(ord.HasPayment() && ord.HasAccount()) {
		log.Printf("[provision_uc] waiting orderId=%s status=%s hasAccount=%t", ord.ID, ord.Status, ord.HasAccount())
		return nil
	}

	// Win the paid->provisioned transition. The mutate callback may be
	// retried by the repository, so the flag is reset on every run.
	won := false
	ord, err = u.orders.UpdateInTx(ctx, orderID, func(o *orderdom.Order) error {
		won = false
		if o.Status == orderdom.StatusCompleted {
			return nil
		}
		if !(o.HasPayment() && o.HasAccount()) {
			return nil
		}
		if mErr := o.MarkProvisioned(u.now()); mErr != nil {
			return mErr
		}
		won = true
		return nil
	})
	if err != nil {
		return err
	}
	if !won {
		// Another invocation got there first.
		return nil
	}

	if gErr := u.grant(ctx, ord); gErr != nil {
		log.Printf("[provision_uc] STUCK provisioning body failed orderId=%s err=%v (order left %s)",
			ord.ID, gErr, ord.Status,
		)
		return nil
	}

	if _, cErr := u.orders.UpdateInTx(ctx, orderID, func(o *orderdom.Order) error {
		return o.Complete()
	}); cErr != nil {
		log.Printf("[provision_uc] STUCK completion failed orderId=%s err=%v", ord.ID, cErr)
		return nil
	}

	log.Printf("[provision_uc] completed orderId=%s accountId=%s", ord.ID, maskID(ord.AccountID))
	return nil
}

// grant performs the collaborator-delegated access grant using the
// plan's entitlement metadata.
func (u *ProvisioningUsecase) grant(ctx context.Context, ord orderdom.Order) error {
	if u.access == nil {
		return errors.New("provision: access granter is not configured")
	}
	var classrooms []int
	if u.plans != nil {
		if p, err := u.plans.GetByProductID(ctx, ord.ProductID); err == nil {
			classrooms = p.ClassroomIDs
		} else {
			log.Printf("[provision_uc] WARN plan lookup failed productId=%s err=%v", ord.ProductID, err)
		}
	}
	email := ord.AccountEmail
	if email == "" {
		email = ord.Email
	}
	return u.access.GrantAccess(ctx, ord.AccountID, email, classrooms)
}

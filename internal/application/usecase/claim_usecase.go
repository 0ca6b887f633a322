// internal/application/usecase/claim_usecase.go
package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	orderdom "academy/internal/domain/order"
)

// ClaimResult reports what an identity-provider signal did. Claimed=false
// with a nil error is the benign "nothing to claim" outcome: most new
// accounts have no pending purchase.
type ClaimResult struct {
	Claimed bool   `json:"claimed"`
	OrderID string `json:"orderId,omitempty"`
	Message string `json:"message"`
}

// ClaimUsecase binds a newly created account to its paid order and
// invokes the reconciler.
type ClaimUsecase struct {
	orders     orderdom.Repository
	reconciler Reconciler
	now        func() time.Time
}

func NewClaimUsecase(orders orderdom.Repository, reconciler Reconciler) *ClaimUsecase {
	return &ClaimUsecase{
		orders:     orders,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// Claim looks up the most recent paid order for the email (single-match
// contract on the repository) and attaches the account. The first
// successful claim wins; a conflicting re-claim is rejected and never
// overwrites.
func (u *ClaimUsecase) Claim(ctx context.Context, email, accountID string) (ClaimResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	accountID = strings.TrimSpace(accountID)
	if email == "" || accountID == "" {
		return ClaimResult{}, orderdom.ErrInvalidEmail
	}

	found, err := u.orders.FindLatestPaidByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, orderdom.ErrNotFound) {
			log.Printf("[claim_uc] no paid order for email=%s; nothing to claim", maskID(email))
			return ClaimResult{Claimed: false, Message: "nothing to claim"}, nil
		}
		return ClaimResult{}, err
	}

	updated, err := u.orders.UpdateInTx(ctx, found.ID, func(o *orderdom.Order) error {
		return o.Claim(accountID, email)
	})
	if err != nil {
		if errors.Is(err, orderdom.ErrAlreadyClaimed) {
			log.Printf("[claim_uc] conflicting claim orderId=%s accountId=%s", found.ID, maskID(accountID))
		}
		return ClaimResult{}, err
	}

	log.Printf("[claim_uc] claimed orderId=%s accountId=%s", updated.ID, maskID(accountID))

	if u.reconciler != nil {
		if rErr := u.reconciler.Reconcile(ctx, updated.ID); rErr != nil {
			log.Printf("[claim_uc] WARN reconcile failed orderId=%s err=%v", updated.ID, rErr)
		}
	}

	return ClaimResult{Claimed: true, OrderID: updated.ID, Message: "order claimed"}, nil
}

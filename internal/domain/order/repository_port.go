// internal/domain/order/repository_port.go
package order

import (
	"context"
	"errors"

	"academy/internal/domain/coupon"
)

// Repository defines the persistence port for Order.
//
// UpdateInTx is the atomicity contract for every state-mutating entry
// point: the mutate callback runs against a freshly read Order inside one
// repository transaction, and concurrent callers never observe a partial
// write. Returning an error from mutate aborts the transaction.
type Repository interface {
	// Queries
	GetByID(ctx context.Context, id string) (Order, error)

	// FindLatestPaidByEmail is an explicit single-match contract: the most
	// recent order with status=paid for the email (paidAt descending,
	// limit 1). Older paid orders for the same email are never returned.
	FindLatestPaidByEmail(ctx context.Context, email string) (Order, error)

	// Commands
	Create(ctx context.Context, o Order) (Order, error)
	UpdateInTx(ctx context.Context, id string, mutate func(*Order) error) (Order, error)

	// ConfirmPaidInTx applies mutate like UpdateInTx and, when usage is
	// non-nil, commits the coupon usage row and counter increment in the
	// same transaction as the order write.
	ConfirmPaidInTx(ctx context.Context, id string, mutate func(*Order) error, usage *coupon.Usage) (Order, error)
}

// Standard repository errors
var (
	ErrNotFound = errors.New("order: not found")
	ErrConflict = errors.New("order: conflict")
)

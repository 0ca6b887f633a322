// internal/domain/invoice/repository_port.go
package invoice

import "context"

// Repository defines the persistence port for Invoice. One record per
// order; the document id is the order id, which makes Create naturally
// idempotent (a second create reports ErrConflict).
type Repository interface {
	// GetByOrderID is an explicit single-match contract: at most one
	// invoice exists per order.
	GetByOrderID(ctx context.Context, orderID string) (Invoice, error)

	Create(ctx context.Context, inv Invoice) (Invoice, error)
	Save(ctx context.Context, inv Invoice) (Invoice, error)
}

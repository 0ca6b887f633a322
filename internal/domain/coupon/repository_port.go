// internal/domain/coupon/repository_port.go
package coupon

import "context"

// Repository defines the persistence port for Coupon and its usage ledger.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Coupon, error)

	// RecordUsage appends one ledger row and increments the coupon's
	// CurrentUses counter in a single transaction. A second call with the
	// same usage id returns ErrConflict and leaves the counter untouched.
	RecordUsage(ctx context.Context, u Usage) error

	// ListUsagesByCode returns the append-only ledger for a coupon.
	ListUsagesByCode(ctx context.Context, code string) ([]Usage, error)
}

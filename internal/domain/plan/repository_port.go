// internal/domain/plan/repository_port.go
package plan

import "context"

// Repository defines the read-only persistence port for pricing plans.
type Repository interface {
	GetByProductID(ctx context.Context, productID string) (Plan, error)
}

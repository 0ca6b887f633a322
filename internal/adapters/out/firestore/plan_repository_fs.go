// internal/adapters/out/firestore/plan_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	plandom "academy/internal/domain/plan"
)

// PlanRepositoryFS implements plan.Repository on Firestore, keyed by
// product id.
type PlanRepositoryFS struct {
	Client *firestore.Client
}

func NewPlanRepositoryFS(client *firestore.Client) *PlanRepositoryFS {
	return &PlanRepositoryFS{Client: client}
}

var _ plandom.Repository = (*PlanRepositoryFS)(nil)

func (r *PlanRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("plans")
}

func (r *PlanRepositoryFS) GetByProductID(ctx context.Context, productID string) (plandom.Plan, error) {
	if r.Client == nil {
		return plandom.Plan{}, errors.New("firestore client is nil")
	}

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return plandom.Plan{}, plandom.ErrNotFound
	}

	snap, err := r.col().Doc(productID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return plandom.Plan{}, plandom.ErrNotFound
		}
		return plandom.Plan{}, err
	}
	return docToPlan(snap)
}

func docToPlan(snap *firestore.DocumentSnapshot) (plandom.Plan, error) {
	data := snap.Data()
	if data == nil {
		return plandom.Plan{}, plandom.ErrNotFound
	}

	getStr := func(k string) string {
		if v, ok := data[k].(string); ok {
			return v
		}
		return ""
	}
	getFloat := func(k string) float64 {
		switch v := data[k].(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		}
		return 0
	}

	p := plandom.Plan{
		ProductID:    snap.Ref.ID,
		Name:         getStr("name"),
		PriceDefault: getFloat("priceDefault"),
		PricePix:     getFloat("pricePix"),
	}
	if v, ok := data["active"].(bool); ok {
		p.Active = v
	}
	if raw, ok := data["classroomIds"].([]any); ok {
		for _, e := range raw {
			switch v := e.(type) {
			case int64:
				p.ClassroomIDs = append(p.ClassroomIDs, int(v))
			case float64:
				p.ClassroomIDs = append(p.ClassroomIDs, int(v))
			}
		}
	}
	return p, nil
}

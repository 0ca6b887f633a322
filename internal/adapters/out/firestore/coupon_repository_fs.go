// internal/adapters/out/firestore/coupon_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	coupondom "academy/internal/domain/coupon"
)

// CouponRepositoryFS implements coupon.Repository on Firestore.
// Coupons live in "coupons" keyed by uppercase code; the usage ledger
// lives in "coupon_usages" keyed by usage id.
type CouponRepositoryFS struct {
	Client *firestore.Client
}

func NewCouponRepositoryFS(client *firestore.Client) *CouponRepositoryFS {
	return &CouponRepositoryFS{Client: client}
}

var _ coupondom.Repository = (*CouponRepositoryFS)(nil)

func (r *CouponRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("coupons")
}

func (r *CouponRepositoryFS) usagesCol() *firestore.CollectionRef {
	return r.Client.Collection("coupon_usages")
}

func (r *CouponRepositoryFS) GetByCode(ctx context.Context, code string) (coupondom.Coupon, error) {
	if r.Client == nil {
		return coupondom.Coupon{}, errors.New("firestore client is nil")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return coupondom.Coupon{}, coupondom.ErrNotFound
	}

	snap, err := r.col().Doc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return coupondom.Coupon{}, coupondom.ErrNotFound
		}
		return coupondom.Coupon{}, err
	}
	return docToCoupon(snap)
}

// RecordUsage appends the ledger row and bumps CurrentUses in one
// transaction. The usage id doubles as the document id, so a replayed
// confirmation hits AlreadyExists and the counter stays untouched.
func (r *CouponRepositoryFS) RecordUsage(ctx context.Context, u coupondom.Usage) error {
	if r.Client == nil {
		return errors.New("firestore client is nil")
	}
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.CouponCode) == "" {
		return coupondom.ErrInvalid
	}

	code := strings.ToUpper(strings.TrimSpace(u.CouponCode))
	usageRef := r.usagesCol().Doc(u.ID)
	couponRef := r.col().Doc(code)

	err := r.Client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(usageRef); err == nil {
			return coupondom.ErrConflict
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		if _, err := tx.Get(couponRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return coupondom.ErrNotFound
			}
			return err
		}

		if err := tx.Create(usageRef, usageToDoc(u)); err != nil {
			return err
		}
		return tx.Update(couponRef, []firestore.Update{
			{Path: "currentUses", Value: firestore.Increment(1)},
		})
	})
	if status.Code(err) == codes.AlreadyExists {
		return coupondom.ErrConflict
	}
	return err
}

func (r *CouponRepositoryFS) ListUsagesByCode(ctx context.Context, code string) ([]coupondom.Usage, error) {
	if r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	it := r.usagesCol().
		Where("couponCode", "==", code).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer it.Stop()

	var out []coupondom.Usage
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		u, err := docToUsage(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// ========================
// Mapping
// ========================

func usageToDoc(u coupondom.Usage) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"couponCode":    strings.ToUpper(strings.TrimSpace(u.CouponCode)),
		"orderId":       u.OrderID,
		"discount":      u.Discount,
		"originalPrice": u.OriginalPrice,
		"finalPrice":    u.FinalPrice,
		"taxId":         u.TaxID,
		"createdAt":     u.CreatedAt,
	}
}

func docToCoupon(snap *firestore.DocumentSnapshot) (coupondom.Coupon, error) {
	data := snap.Data()
	if data == nil {
		return coupondom.Coupon{}, coupondom.ErrNotFound
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
	getInt := func(k string) int {
		switch v := data[k].(type) {
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
		return 0
	}

	c := coupondom.Coupon{
		Code:        snap.Ref.ID,
		Percent:     getFloat("percent"),
		Amount:      getFloat("amount"),
		MinPrice:    getFloat("minPrice"),
		MaxUses:     getInt("maxUses"),
		CurrentUses: getInt("currentUses"),
	}
	if v, ok := data["active"].(bool); ok {
		c.Active = v
	}
	if v, ok := data["expiresAt"].(time.Time); ok {
		c.ExpiresAt = &v
	}
	return c, nil
}

func docToUsage(snap *firestore.DocumentSnapshot) (coupondom.Usage, error) {
	data := snap.Data()
	if data == nil {
		return coupondom.Usage{}, coupondom.ErrNotFound
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

	u := coupondom.Usage{
		ID:            snap.Ref.ID,
		CouponCode:    getStr("couponCode"),
		OrderID:       getStr("orderId"),
		Discount:      getFloat("discount"),
		OriginalPrice: getFloat("originalPrice"),
		FinalPrice:    getFloat("finalPrice"),
		TaxID:         getStr("taxId"),
	}
	if v, ok := data["createdAt"].(time.Time); ok {
		u.CreatedAt = v
	}
	return u, nil
}

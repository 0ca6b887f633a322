// internal/adapters/out/firestore/order_repository_fs.go
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
	orderdom "academy/internal/domain/order"
)

// OrderRepositoryFS implements order.Repository on Firestore.
type OrderRepositoryFS struct {
	Client *firestore.Client
}

func NewOrderRepositoryFS(client *firestore.Client) *OrderRepositoryFS {
	return &OrderRepositoryFS{Client: client}
}

var _ orderdom.Repository = (*OrderRepositoryFS)(nil)

func (r *OrderRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("orders")
}

// ========================
// Repository impl
// ========================

func (r *OrderRepositoryFS) GetByID(ctx context.Context, id string) (orderdom.Order, error) {
	if r.Client == nil {
		return orderdom.Order{}, errors.New("firestore client is nil")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return orderdom.Order{}, orderdom.ErrNotFound
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return orderdom.Order{}, orderdom.ErrNotFound
		}
		return orderdom.Order{}, err
	}
	return docToOrder(snap)
}

func (r *OrderRepositoryFS) FindLatestPaidByEmail(ctx context.Context, email string) (orderdom.Order, error) {
	if r.Client == nil {
		return orderdom.Order{}, errors.New("firestore client is nil")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return orderdom.Order{}, orderdom.ErrNotFound
	}

	it := r.col().
		Where("email", "==", email).
		Where("status", "==", string(orderdom.StatusPaid)).
		OrderBy("paidAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	if err != nil {
		return orderdom.Order{}, err
	}
	return docToOrder(snap)
}

func (r *OrderRepositoryFS) Create(ctx context.Context, o orderdom.Order) (orderdom.Order, error) {
	if r.Client == nil {
		return orderdom.Order{}, errors.New("firestore client is nil")
	}
	if strings.TrimSpace(o.ID) == "" {
		return orderdom.Order{}, orderdom.ErrInvalidID
	}

	_, err := r.col().Doc(o.ID).Create(ctx, orderToDoc(o))
	if status.Code(err) == codes.AlreadyExists {
		return orderdom.Order{}, orderdom.ErrConflict
	}
	if err != nil {
		return orderdom.Order{}, err
	}
	return o, nil
}

// UpdateInTx runs mutate against the current document inside a Firestore
// transaction. Mutate may be retried; it must not carry side effects out.
func (r *OrderRepositoryFS) UpdateInTx(ctx context.Context, id string, mutate func(o *orderdom.Order) error) (orderdom.Order, error) {
	if r.Client == nil {
		return orderdom.Order{}, errors.New("firestore client is nil")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return orderdom.Order{}, orderdom.ErrNotFound
	}

	ref := r.col().Doc(id)
	var result orderdom.Order
	err := r.Client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return orderdom.ErrNotFound
			}
			return err
		}

		o, err := docToOrder(snap)
		if err != nil {
			return err
		}
		if err := mutate(&o); err != nil {
			return err
		}
		if err := tx.Set(ref, orderToDoc(o)); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return orderdom.Order{}, err
	}
	return result, nil
}

// ConfirmPaidInTx commits the paid transition and, when usage is
// non-nil, the usage row plus currentUses increment in one transaction.
// An already-present usage row or a missing coupon document leaves the
// accounting untouched.
func (r *OrderRepositoryFS) ConfirmPaidInTx(ctx context.Context, id string, mutate func(o *orderdom.Order) error, usage *coupondom.Usage) (orderdom.Order, error) {
	if r.Client == nil {
		return orderdom.Order{}, errors.New("firestore client is nil")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return orderdom.Order{}, orderdom.ErrNotFound
	}

	ref := r.col().Doc(id)
	var result orderdom.Order
	err := r.Client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return orderdom.ErrNotFound
			}
			return err
		}
		o, err := docToOrder(snap)
		if err != nil {
			return err
		}

		// Every read must precede the first write of the transaction.
		recordUsage := false
		var usageRef, couponRef *firestore.DocumentRef
		if usage != nil {
			code := strings.ToUpper(strings.TrimSpace(usage.CouponCode))
			usageRef = r.Client.Collection("coupon_usages").Doc(usage.ID)
			couponRef = r.Client.Collection("coupons").Doc(code)

			_, uErr := tx.Get(usageRef)
			switch {
			case uErr == nil:
				// Already accounted by an earlier delivery.
			case status.Code(uErr) == codes.NotFound:
				if _, cErr := tx.Get(couponRef); cErr == nil {
					recordUsage = true
				} else if status.Code(cErr) != codes.NotFound {
					return cErr
				}
			default:
				return uErr
			}
		}

		if err := mutate(&o); err != nil {
			return err
		}
		if err := tx.Set(ref, orderToDoc(o)); err != nil {
			return err
		}
		if recordUsage {
			if err := tx.Create(usageRef, usageToDoc(*usage)); err != nil {
				return err
			}
			if err := tx.Update(couponRef, []firestore.Update{
				{Path: "currentUses", Value: firestore.Increment(1)},
			}); err != nil {
				return err
			}
		}
		result = o
		return nil
	})
	if err != nil {
		return orderdom.Order{}, err
	}
	return result, nil
}

// ========================
// Mapping
// ========================

func orderToDoc(o orderdom.Order) map[string]any {
	doc := map[string]any{
		"id":             o.ID,
		"email":          o.Email,
		"taxId":          o.TaxID,
		"legalName":      o.LegalName,
		"productId":      o.ProductID,
		"paymentMethod":  string(o.PaymentMethod),
		"originalPrice":  o.OriginalPrice,
		"finalPrice":     o.FinalPrice,
		"couponCode":     o.CouponCode,
		"couponDiscount": o.CouponDiscount,
		"pixDiscount":    o.PixDiscount,
		"status":         string(o.Status),
		"createdAt":      o.CreatedAt,
		"expiresAt":      o.ExpiresAt,
	}
	if o.GatewayPaymentID != "" {
		doc["gatewayPaymentId"] = o.GatewayPaymentID
	}
	if o.PixPayload != "" {
		doc["pixPayload"] = o.PixPayload
	}
	if o.AccountID != "" {
		doc["accountId"] = o.AccountID
	}
	if o.AccountEmail != "" {
		doc["accountEmail"] = o.AccountEmail
	}
	if o.PaidAt != nil {
		doc["paidAt"] = *o.PaidAt
	}
	if o.ProvisionedAt != nil {
		doc["provisionedAt"] = *o.ProvisionedAt
	}
	return doc
}

func docToOrder(snap *firestore.DocumentSnapshot) (orderdom.Order, error) {
	data := snap.Data()
	if data == nil {
		return orderdom.Order{}, orderdom.ErrNotFound
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
	getTime := func(k string) time.Time {
		if v, ok := data[k].(time.Time); ok {
			return v
		}
		return time.Time{}
	}
	getTimePtr := func(k string) *time.Time {
		if v, ok := data[k].(time.Time); ok {
			return &v
		}
		return nil
	}

	o := orderdom.Order{
		ID:               snap.Ref.ID,
		Email:            getStr("email"),
		TaxID:            getStr("taxId"),
		LegalName:        getStr("legalName"),
		ProductID:        getStr("productId"),
		PaymentMethod:    orderdom.PaymentMethod(getStr("paymentMethod")),
		OriginalPrice:    getFloat("originalPrice"),
		FinalPrice:       getFloat("finalPrice"),
		CouponCode:       getStr("couponCode"),
		CouponDiscount:   getFloat("couponDiscount"),
		PixDiscount:      getFloat("pixDiscount"),
		Status:           orderdom.Status(getStr("status")),
		GatewayPaymentID: getStr("gatewayPaymentId"),
		PixPayload:       getStr("pixPayload"),
		AccountID:        getStr("accountId"),
		AccountEmail:     getStr("accountEmail"),
		CreatedAt:        getTime("createdAt"),
		ExpiresAt:        getTime("expiresAt"),
		PaidAt:           getTimePtr("paidAt"),
		ProvisionedAt:    getTimePtr("provisionedAt"),
	}
	if o.Status == "" {
		o.Status = orderdom.StatusPending
	}
	return o, nil
}

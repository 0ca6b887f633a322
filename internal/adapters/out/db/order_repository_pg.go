package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	coupondom "academy/internal/domain/coupon"
	orderdom "academy/internal/domain/order"
)

// OrderRepositoryPG implements order.Repository on PostgreSQL. It is the
// drop-in alternative to the Firestore repository for deployments that
// run against a relational store. Coupons stay in their own store, so a
// coupon repository is carried for the confirmation command.
type OrderRepositoryPG struct {
	DB      *sql.DB
	Coupons coupondom.Repository
}

func NewOrderRepositoryPG(db *sql.DB, coupons coupondom.Repository) *OrderRepositoryPG {
	return &OrderRepositoryPG{DB: db, Coupons: coupons}
}

var _ orderdom.Repository = (*OrderRepositoryPG)(nil)

const orderColumns = `
  id, email, tax_id, legal_name, product_id, payment_method,
  original_price, final_price, coupon_code, coupon_discount, pix_discount,
  status, gateway_payment_id, pix_payload, account_id, account_email,
  created_at, expires_at, paid_at, provisioned_at`

// ========================
// Repository impl
// ========================

func (r *OrderRepositoryPG) GetByID(ctx context.Context, id string) (orderdom.Order, error) {
	const q = `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	row := r.DB.QueryRowContext(ctx, q, strings.TrimSpace(id))
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orderdom.Order{}, orderdom.ErrNotFound
		}
		return orderdom.Order{}, err
	}
	return o, nil
}

func (r *OrderRepositoryPG) FindLatestPaidByEmail(ctx context.Context, email string) (orderdom.Order, error) {
	const q = `SELECT` + orderColumns + `
FROM orders
WHERE email = $1 AND status = $2
ORDER BY paid_at DESC
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email)), string(orderdom.StatusPaid))
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orderdom.Order{}, orderdom.ErrNotFound
		}
		return orderdom.Order{}, err
	}
	return o, nil
}

func (r *OrderRepositoryPG) Create(ctx context.Context, o orderdom.Order) (orderdom.Order, error) {
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (id) DO NOTHING`

	res, err := r.DB.ExecContext(ctx, q,
		o.ID, o.Email, o.TaxID, o.LegalName, o.ProductID, string(o.PaymentMethod),
		o.OriginalPrice, o.FinalPrice, nullStr(o.CouponCode), o.CouponDiscount, o.PixDiscount,
		string(o.Status), nullStr(o.GatewayPaymentID), nullStr(o.PixPayload),
		nullStr(o.AccountID), nullStr(o.AccountEmail),
		o.CreatedAt, o.ExpiresAt, o.PaidAt, o.ProvisionedAt,
	)
	if err != nil {
		return orderdom.Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return orderdom.Order{}, orderdom.ErrConflict
	}
	return o, nil
}

// UpdateInTx loads the row FOR UPDATE, applies mutate, and writes the
// result back. The row lock serializes concurrent reconcilers.
func (r *OrderRepositoryPG) UpdateInTx(ctx context.Context, id string, mutate func(o *orderdom.Order) error) (orderdom.Order, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return orderdom.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	const sel = `SELECT` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	row := tx.QueryRowContext(ctx, sel, strings.TrimSpace(id))
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orderdom.Order{}, orderdom.ErrNotFound
		}
		return orderdom.Order{}, err
	}

	if err := mutate(&o); err != nil {
		return orderdom.Order{}, err
	}

	const upd = `
UPDATE orders SET
  status = $2, gateway_payment_id = $3, pix_payload = $4,
  account_id = $5, account_email = $6, paid_at = $7, provisioned_at = $8
WHERE id = $1`
	if _, err := tx.ExecContext(ctx, upd,
		o.ID, string(o.Status), nullStr(o.GatewayPaymentID), nullStr(o.PixPayload),
		nullStr(o.AccountID), nullStr(o.AccountEmail), o.PaidAt, o.ProvisionedAt,
	); err != nil {
		return orderdom.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return orderdom.Order{}, err
	}
	return o, nil
}

// ConfirmPaidInTx records the usage before the paid transition: the
// coupon store is separate, so the two writes cannot share one
// transaction here. The usage id doubles as the order id, which turns a
// retried confirmation into ErrConflict and keeps the counter at one; a
// crash between the two writes leaves the order pending and the next
// delivery completes it.
func (r *OrderRepositoryPG) ConfirmPaidInTx(ctx context.Context, id string, mutate func(o *orderdom.Order) error, usage *coupondom.Usage) (orderdom.Order, error) {
	if usage != nil && r.Coupons != nil {
		if err := r.Coupons.RecordUsage(ctx, *usage); err != nil && !errors.Is(err, coupondom.ErrConflict) {
			return orderdom.Order{}, err
		}
	}
	return r.UpdateInTx(ctx, id, mutate)
}

// ========================
// Scanning
// ========================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (orderdom.Order, error) {
	var (
		o                orderdom.Order
		method, stat     string
		couponCode       sql.NullString
		gatewayPaymentID sql.NullString
		pixPayload       sql.NullString
		accountID        sql.NullString
		accountEmail     sql.NullString
		paidAt           sql.NullTime
		provisionedAt    sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.Email, &o.TaxID, &o.LegalName, &o.ProductID, &method,
		&o.OriginalPrice, &o.FinalPrice, &couponCode, &o.CouponDiscount, &o.PixDiscount,
		&stat, &gatewayPaymentID, &pixPayload, &accountID, &accountEmail,
		&o.CreatedAt, &o.ExpiresAt, &paidAt, &provisionedAt,
	)
	if err != nil {
		return orderdom.Order{}, err
	}

	o.PaymentMethod = orderdom.PaymentMethod(method)
	o.Status = orderdom.Status(stat)
	o.CouponCode = couponCode.String
	o.GatewayPaymentID = gatewayPaymentID.String
	o.PixPayload = pixPayload.String
	o.AccountID = accountID.String
	o.AccountEmail = accountEmail.String
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	if provisionedAt.Valid {
		t := provisionedAt.Time
		o.ProvisionedAt = &t
	}
	return o, nil
}

func nullStr(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

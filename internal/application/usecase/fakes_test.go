package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	coupondom "academy/internal/domain/coupon"
	invoicedom "academy/internal/domain/invoice"
	orderdom "academy/internal/domain/order"
	plandom "academy/internal/domain/plan"
	"academy/internal/infra/queue"
)

// ------------------------------------------------------------
// order.Repository fake
// ------------------------------------------------------------

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]orderdom.Order

	// coupons receives the usage write of ConfirmPaidInTx, mirroring the
	// adapters' single-transaction contract: a failed usage write aborts
	// the order mutation.
	coupons *fakeCouponRepo

	updateErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]orderdom.Order{}}
}

var _ orderdom.Repository = (*fakeOrderRepo)(nil)

func (r *fakeOrderRepo) put(o orderdom.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

func (r *fakeOrderRepo) get(id string) orderdom.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id]
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (orderdom.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindLatestPaidByEmail(_ context.Context, email string) (orderdom.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  orderdom.Order
		found bool
	)
	for _, o := range r.orders {
		if o.Email != email || o.Status != orderdom.StatusPaid {
			continue
		}
		if !found || (o.PaidAt != nil && best.PaidAt != nil && o.PaidAt.After(*best.PaidAt)) {
			best = o
			found = true
		}
	}
	if !found {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	return best, nil
}

func (r *fakeOrderRepo) Create(_ context.Context, o orderdom.Order) (orderdom.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return orderdom.Order{}, orderdom.ErrConflict
	}
	r.orders[o.ID] = o
	return o, nil
}

func (r *fakeOrderRepo) UpdateInTx(_ context.Context, id string, mutate func(*orderdom.Order) error) (orderdom.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return orderdom.Order{}, r.updateErr
	}
	o, ok := r.orders[id]
	if !ok {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	if err := mutate(&o); err != nil {
		return orderdom.Order{}, err
	}
	r.orders[id] = o
	return o, nil
}

func (r *fakeOrderRepo) ConfirmPaidInTx(ctx context.Context, id string, mutate func(*orderdom.Order) error, usage *coupondom.Usage) (orderdom.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return orderdom.Order{}, r.updateErr
	}
	o, ok := r.orders[id]
	if !ok {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	if err := mutate(&o); err != nil {
		return orderdom.Order{}, err
	}
	if usage != nil && r.coupons != nil {
		if err := r.coupons.RecordUsage(ctx, *usage); err != nil && !errors.Is(err, coupondom.ErrConflict) {
			return orderdom.Order{}, err
		}
	}
	r.orders[id] = o
	return o, nil
}

// ------------------------------------------------------------
// coupon.Repository fake
// ------------------------------------------------------------

type fakeCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]coupondom.Coupon
	usages  map[string]coupondom.Usage

	recordErr error
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{
		coupons: map[string]coupondom.Coupon{},
		usages:  map[string]coupondom.Usage{},
	}
}

var _ coupondom.Repository = (*fakeCouponRepo)(nil)

func (r *fakeCouponRepo) put(c coupondom.Coupon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[c.Code] = c
}

func (r *fakeCouponRepo) usageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.usages)
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (coupondom.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[code]
	if !ok {
		return coupondom.Coupon{}, coupondom.ErrNotFound
	}
	return c, nil
}

func (r *fakeCouponRepo) RecordUsage(_ context.Context, u coupondom.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	if _, ok := r.usages[u.ID]; ok {
		return coupondom.ErrConflict
	}
	c, ok := r.coupons[u.CouponCode]
	if !ok {
		return coupondom.ErrNotFound
	}
	r.usages[u.ID] = u
	c.CurrentUses++
	r.coupons[u.CouponCode] = c
	return nil
}

func (r *fakeCouponRepo) ListUsagesByCode(_ context.Context, code string) ([]coupondom.Usage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []coupondom.Usage
	for _, u := range r.usages {
		if u.CouponCode == code {
			out = append(out, u)
		}
	}
	return out, nil
}

// ------------------------------------------------------------
// plan.Repository fake
// ------------------------------------------------------------

type fakePlanRepo struct {
	plans map[string]plandom.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[string]plandom.Plan{}}
}

var _ plandom.Repository = (*fakePlanRepo)(nil)

func (r *fakePlanRepo) put(p plandom.Plan) { r.plans[p.ProductID] = p }

func (r *fakePlanRepo) GetByProductID(_ context.Context, productID string) (plandom.Plan, error) {
	p, ok := r.plans[productID]
	if !ok {
		return plandom.Plan{}, plandom.ErrNotFound
	}
	return p, nil
}

// ------------------------------------------------------------
// queue.Enqueuer fake
// ------------------------------------------------------------

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

var _ queue.Enqueuer = (*fakeEnqueuer)(nil)

func (q *fakeEnqueuer) Enqueue(_ context.Context, t queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *fakeEnqueuer) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// ------------------------------------------------------------
// AccessGranter fake
// ------------------------------------------------------------

type fakeGranter struct {
	mu     sync.Mutex
	grants []string
	err    error
}

var _ AccessGranter = (*fakeGranter)(nil)

func (g *fakeGranter) GrantAccess(_ context.Context, accountID, _ string, _ []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.grants = append(g.grants, accountID)
	return nil
}

func (g *fakeGranter) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.grants)
}

// ------------------------------------------------------------
// Reconciler fake
// ------------------------------------------------------------

type fakeReconciler struct {
	mu    sync.Mutex
	calls []string
	err   error
}

var _ Reconciler = (*fakeReconciler)(nil)

func (r *fakeReconciler) Reconcile(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, orderID)
	return r.err
}

func (r *fakeReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// ------------------------------------------------------------
// invoice.Repository fake
// ------------------------------------------------------------

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]invoicedom.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: map[string]invoicedom.Invoice{}}
}

var _ invoicedom.Repository = (*fakeInvoiceRepo)(nil)

func (r *fakeInvoiceRepo) get(orderID string) invoicedom.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[orderID]
}

func (r *fakeInvoiceRepo) GetByOrderID(_ context.Context, orderID string) (invoicedom.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[orderID]
	if !ok {
		return invoicedom.Invoice{}, invoicedom.ErrNotFound
	}
	return inv, nil
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv invoicedom.Invoice) (invoicedom.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.OrderID]; ok {
		return invoicedom.Invoice{}, invoicedom.ErrConflict
	}
	r.invoices[inv.OrderID] = inv
	return inv, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, inv invoicedom.Invoice) (invoicedom.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.OrderID] = inv
	return inv, nil
}

// ------------------------------------------------------------
// FiscalPort fake
// ------------------------------------------------------------

type fakeFiscal struct {
	mu          sync.Mutex
	scheduled   []ScheduleInvoiceInput
	resolveErr  error
	resolveName string
	schedErr    error
}

var _ FiscalPort = (*fakeFiscal)(nil)

func (f *fakeFiscal) ResolveService(_ context.Context, serviceCode string) (FiscalService, error) {
	if f.resolveErr != nil {
		return FiscalService{}, f.resolveErr
	}
	name := f.resolveName
	if name == "" {
		name = "Instruction and training"
	}
	return FiscalService{ID: "svc-" + serviceCode, Name: name}, nil
}

func (f *fakeFiscal) ScheduleInvoice(_ context.Context, in ScheduleInvoiceInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.schedErr != nil {
		return "", f.schedErr
	}
	f.scheduled = append(f.scheduled, in)
	return "prov-inv-1", nil
}

// ------------------------------------------------------------
// Shared builders
// ------------------------------------------------------------

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestOrder(id string) orderdom.Order {
	o, err := orderdom.New(
		id,
		"buyer@example.com",
		"12345678900",
		"Buyer Example",
		"course-go",
		orderdom.MethodPix,
		100.00,
		90.00,
		"WELCOME10",
		10.00,
		20.00,
		testNow,
	)
	if err != nil {
		panic(err)
	}
	return o
}

var errBoom = errors.New("boom")

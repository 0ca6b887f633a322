// internal/application/usecase/invoice_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	invoicedom "academy/internal/domain/invoice"
	orderdom "academy/internal/domain/order"
)

// FiscalService is the provider-side descriptor resolved before
// scheduling an invoice.
type FiscalService struct {
	ID   string
	Name string
}

// TaxProfile is the fixed tax constant applied to every invoice: a
// single ISS percentage, everything else zero, no withholding.
type TaxProfile struct {
	RetainISS bool
	ISS       float64
	COFINS    float64
	CSLL      float64
	INSS      float64
	IR        float64
	PIS       float64
}

type ScheduleInvoiceInput struct {
	PaymentID   string
	ServiceID   string
	ServiceName string
	Note        string
	Value       float64
	Taxes       TaxProfile
}

// FiscalPort is the invoicing provider API consumed by the workflow.
type FiscalPort interface {
	ResolveService(ctx context.Context, serviceCode string) (FiscalService, error)
	ScheduleInvoice(ctx context.Context, in ScheduleInvoiceInput) (string, error)
}

// InvoiceArchiver is an optional best-effort sink for issued invoices.
type InvoiceArchiver interface {
	Archive(ctx context.Context, inv invoicedom.Invoice) error
}

const (
	// Municipal service code for instruction/training services.
	fiscalServiceCode = "08.02"
	// Provider limit for the human-readable service description.
	serviceNameMaxLen = 255
	issPercent        = 2.0
)

// InvoiceUsecase runs the detached, best-effort invoice issuance
// workflow. Every step failure is captured onto the invoice record;
// nothing here ever propagates to, or rolls back, the payment
// confirmation that enqueued it.
type InvoiceUsecase struct {
	invoices invoicedom.Repository
	orders   orderdom.Repository
	fiscal   FiscalPort
	archive  InvoiceArchiver
	now      func() time.Time
}

func NewInvoiceUsecase(invoices invoicedom.Repository, orders orderdom.Repository, fiscal FiscalPort, archive InvoiceArchiver) *InvoiceUsecase {
	return &InvoiceUsecase{
		invoices: invoices,
		orders:   orders,
		fiscal:   fiscal,
		archive:  archive,
		now:      time.Now,
	}
}

// IssueForOrder creates (or reuses) the single invoice record for an
// order and drives it through resolve -> processing -> schedule ->
// issued. The returned error covers persistence problems only; workflow
// failures end up on the record as status=failed.
func (u *InvoiceUsecase) IssueForOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)

	inv, err := u.invoices.GetByOrderID(ctx, orderID)
	switch {
	case err == nil:
		if inv.Status == invoicedom.StatusIssued {
			log.Printf("[invoice_uc] invoice already issued orderId=%s providerId=%s", orderID, inv.ProviderInvoiceID)
			return nil
		}
		log.Printf("[invoice_uc] reusing invoice orderId=%s status=%s", orderID, inv.Status)
	case errors.Is(err, invoicedom.ErrNotFound):
		inv, err = u.createFromOrder(ctx, orderID)
		if err != nil {
			return err
		}
	default:
		return err
	}

	// Step 1: resolve the fiscal service descriptor by fixed code.
	svc, err := u.fiscal.ResolveService(ctx, fiscalServiceCode)
	if err != nil {
		return u.fail(ctx, &inv, fmt.Sprintf("fiscal service %s not found: %v", fiscalServiceCode, err))
	}

	// Step 2: record the resolved service id.
	inv.MarkProcessing(svc.ID, u.now())
	if inv, err = u.invoices.Save(ctx, inv); err != nil {
		return err
	}

	// Step 3: provider enforces a description length limit.
	name := svc.Name
	if len(name) > serviceNameMaxLen {
		name = name[:serviceNameMaxLen]
	}

	// Steps 4-5: fixed tax profile, then schedule with the provider.
	providerID, err := u.fiscal.ScheduleInvoice(ctx, ScheduleInvoiceInput{
		PaymentID:   inv.GatewayPaymentID,
		ServiceID:   svc.ID,
		ServiceName: name,
		Note:        "course access order " + inv.OrderID,
		Value:       inv.Value,
		Taxes: TaxProfile{
			RetainISS: false,
			ISS:       issPercent,
		},
	})
	if err != nil {
		return u.fail(ctx, &inv, fmt.Sprintf("invoice scheduling failed: %v", err))
	}

	// Step 6: issued.
	inv.MarkIssued(providerID, u.now())
	if inv, err = u.invoices.Save(ctx, inv); err != nil {
		return err
	}
	log.Printf("[invoice_uc] issued orderId=%s providerId=%s value=%.2f", inv.OrderID, providerID, inv.Value)

	// Best-effort archive; failure only logged.
	if u.archive != nil {
		if aErr := u.archive.Archive(ctx, inv); aErr != nil {
			log.Printf("[invoice_uc] WARN archive failed orderId=%s err=%v", inv.OrderID, aErr)
		}
	}
	return nil
}

// createFromOrder lazily creates the invoice record on first confirmed
// payment. A concurrent creator winning the race is fine: the existing
// record is reused.
func (u *InvoiceUsecase) createFromOrder(ctx context.Context, orderID string) (invoicedom.Invoice, error) {
	ord, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return invoicedom.Invoice{}, err
	}

	inv, err := invoicedom.New(ord.ID, ord.FinalPrice, ord.LegalName, ord.Email, ord.TaxID, ord.GatewayPaymentID, u.now())
	if err != nil {
		return invoicedom.Invoice{}, err
	}

	created, err := u.invoices.Create(ctx, inv)
	if err != nil {
		if errors.Is(err, invoicedom.ErrConflict) {
			return u.invoices.GetByOrderID(ctx, orderID)
		}
		return invoicedom.Invoice{}, err
	}
	return created, nil
}

// fail captures a workflow failure on the record.
func (u *InvoiceUsecase) fail(ctx context.Context, inv *invoicedom.Invoice, msg string) error {
	log.Printf("[invoice_uc] step failed orderId=%s: %s", inv.OrderID, msg)
	inv.MarkFailed(msg, u.now())
	if _, err := u.invoices.Save(ctx, *inv); err != nil {
		return err
	}
	return nil
}

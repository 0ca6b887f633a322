// internal/domain/invoice/entity.go
package invoice

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIssued     Status = "issued"
	StatusFailed     Status = "failed"
)

// Invoice is the best-effort fiscal document record for one order,
// keyed by OrderID. It is created lazily on first confirmed payment and
// its failures never touch the order.
type Invoice struct {
	OrderID string
	Status  Status

	// Resolved from the fiscal provider.
	ServiceID         string
	ProviderInvoiceID string

	Value            float64
	CustomerName     string
	CustomerEmail    string
	CustomerTaxID    string
	GatewayPaymentID string

	ErrorMessage string
	IssuedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrInvalidOrderID = errors.New("invoice: invalid orderId")
	ErrInvalidValue   = errors.New("invoice: invalid value")
	ErrNotFound       = errors.New("invoice: not found")
	ErrConflict       = errors.New("invoice: conflict")
)

func New(orderID string, value float64, customerName, customerEmail, customerTaxID, gatewayPaymentID string, createdAt time.Time) (Invoice, error) {
	inv := Invoice{
		OrderID:          strings.TrimSpace(orderID),
		Status:           StatusPending,
		Value:            value,
		CustomerName:     strings.TrimSpace(customerName),
		CustomerEmail:    strings.ToLower(strings.TrimSpace(customerEmail)),
		CustomerTaxID:    strings.TrimSpace(customerTaxID),
		GatewayPaymentID: strings.TrimSpace(gatewayPaymentID),
		CreatedAt:        createdAt.UTC(),
		UpdatedAt:        createdAt.UTC(),
	}
	if inv.OrderID == "" {
		return Invoice{}, ErrInvalidOrderID
	}
	if inv.Value <= 0 {
		return Invoice{}, ErrInvalidValue
	}
	return inv, nil
}

// MarkProcessing records the resolved fiscal service id.
func (i *Invoice) MarkProcessing(serviceID string, at time.Time) {
	i.ServiceID = strings.TrimSpace(serviceID)
	i.Status = StatusProcessing
	i.ErrorMessage = ""
	i.UpdatedAt = at.UTC()
}

// MarkIssued records a successful schedule call.
func (i *Invoice) MarkIssued(providerInvoiceID string, at time.Time) {
	t := at.UTC()
	i.ProviderInvoiceID = strings.TrimSpace(providerInvoiceID)
	i.Status = StatusIssued
	i.ErrorMessage = ""
	i.IssuedAt = &t
	i.UpdatedAt = t
}

// MarkFailed captures a step failure on the record instead of raising it.
func (i *Invoice) MarkFailed(msg string, at time.Time) {
	i.Status = StatusFailed
	i.ErrorMessage = strings.TrimSpace(msg)
	i.UpdatedAt = at.UTC()
}

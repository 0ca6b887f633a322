// internal/adapters/out/firestore/invoice_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	invdom "academy/internal/domain/invoice"
)

// InvoiceRepositoryFS implements invoice.Repository on Firestore.
// Documents are keyed by order id, one invoice per order.
type InvoiceRepositoryFS struct {
	Client *firestore.Client
}

func NewInvoiceRepositoryFS(client *firestore.Client) *InvoiceRepositoryFS {
	return &InvoiceRepositoryFS{Client: client}
}

var _ invdom.Repository = (*InvoiceRepositoryFS)(nil)

func (r *InvoiceRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("invoices")
}

func (r *InvoiceRepositoryFS) GetByOrderID(ctx context.Context, orderID string) (invdom.Invoice, error) {
	if r.Client == nil {
		return invdom.Invoice{}, errors.New("firestore client is nil")
	}

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return invdom.Invoice{}, invdom.ErrNotFound
	}

	snap, err := r.col().Doc(orderID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return invdom.Invoice{}, invdom.ErrNotFound
		}
		return invdom.Invoice{}, err
	}
	return docToInvoice(snap)
}

func (r *InvoiceRepositoryFS) Create(ctx context.Context, inv invdom.Invoice) (invdom.Invoice, error) {
	if r.Client == nil {
		return invdom.Invoice{}, errors.New("firestore client is nil")
	}
	if strings.TrimSpace(inv.OrderID) == "" {
		return invdom.Invoice{}, invdom.ErrInvalidOrderID
	}

	_, err := r.col().Doc(inv.OrderID).Create(ctx, invoiceToDoc(inv))
	if status.Code(err) == codes.AlreadyExists {
		return invdom.Invoice{}, invdom.ErrConflict
	}
	if err != nil {
		return invdom.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepositoryFS) Save(ctx context.Context, inv invdom.Invoice) (invdom.Invoice, error) {
	if r.Client == nil {
		return invdom.Invoice{}, errors.New("firestore client is nil")
	}
	if strings.TrimSpace(inv.OrderID) == "" {
		return invdom.Invoice{}, invdom.ErrInvalidOrderID
	}

	if _, err := r.col().Doc(inv.OrderID).Set(ctx, invoiceToDoc(inv)); err != nil {
		return invdom.Invoice{}, err
	}
	return inv, nil
}

// ========================
// Mapping
// ========================

func invoiceToDoc(inv invdom.Invoice) map[string]any {
	doc := map[string]any{
		"orderId":       inv.OrderID,
		"status":        string(inv.Status),
		"value":         inv.Value,
		"customerName":  inv.CustomerName,
		"customerEmail": inv.CustomerEmail,
		"customerTaxId": inv.CustomerTaxID,
		"createdAt":     inv.CreatedAt,
		"updatedAt":     inv.UpdatedAt,
	}
	if inv.ServiceID != "" {
		doc["serviceId"] = inv.ServiceID
	}
	if inv.ProviderInvoiceID != "" {
		doc["providerInvoiceId"] = inv.ProviderInvoiceID
	}
	if inv.GatewayPaymentID != "" {
		doc["gatewayPaymentId"] = inv.GatewayPaymentID
	}
	if inv.ErrorMessage != "" {
		doc["errorMessage"] = inv.ErrorMessage
	}
	if inv.IssuedAt != nil {
		doc["issuedAt"] = *inv.IssuedAt
	}
	return doc
}

func docToInvoice(snap *firestore.DocumentSnapshot) (invdom.Invoice, error) {
	data := snap.Data()
	if data == nil {
		return invdom.Invoice{}, invdom.ErrNotFound
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

	return invdom.Invoice{
		OrderID:           snap.Ref.ID,
		Status:            invdom.Status(getStr("status")),
		ServiceID:         getStr("serviceId"),
		ProviderInvoiceID: getStr("providerInvoiceId"),
		Value:             getFloat("value"),
		CustomerName:      getStr("customerName"),
		CustomerEmail:     getStr("customerEmail"),
		CustomerTaxID:     getStr("customerTaxId"),
		GatewayPaymentID:  getStr("gatewayPaymentId"),
		ErrorMessage:      getStr("errorMessage"),
		IssuedAt:          getTimePtr("issuedAt"),
		CreatedAt:         getTime("createdAt"),
		UpdatedAt:         getTime("updatedAt"),
	}, nil
}

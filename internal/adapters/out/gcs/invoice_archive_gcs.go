// internal/adapters/out/gcs/invoice_archive_gcs.go
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	uc "academy/internal/application/usecase"
	invdom "academy/internal/domain/invoice"
)

// InvoiceArchiveGCS keeps a JSON snapshot of every issued invoice in a
// bucket, one object per order. It implements usecase.InvoiceArchiver
// and is strictly best-effort.
type InvoiceArchiveGCS struct {
	Client *storage.Client
	Bucket string
}

const defaultInvoiceArchiveBucket = "academy_invoice_archive"

func NewInvoiceArchiveGCS(client *storage.Client, bucket string) *InvoiceArchiveGCS {
	b := strings.TrimSpace(bucket)
	if b == "" {
		b = defaultInvoiceArchiveBucket
	}
	return &InvoiceArchiveGCS{Client: client, Bucket: b}
}

var _ uc.InvoiceArchiver = (*InvoiceArchiveGCS)(nil)

func (a *InvoiceArchiveGCS) Archive(ctx context.Context, inv invdom.Invoice) error {
	if a.Client == nil {
		return errors.New("storage client is nil")
	}
	if strings.TrimSpace(inv.OrderID) == "" {
		return invdom.ErrInvalidOrderID
	}

	b, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return err
	}

	objectPath := fmt.Sprintf("invoices/%s.json", inv.OrderID)
	w := a.Client.Bucket(a.Bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

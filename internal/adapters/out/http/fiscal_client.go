// internal/adapters/out/http/fiscal_client.go
package httpout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	uc "academy/internal/application/usecase"
)

// FiscalClient talks to the municipal invoicing provider's REST API and
// implements usecase.FiscalPort.
type FiscalClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewFiscalClient(baseURL, apiKey string) *FiscalClient {
	return &FiscalClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var _ uc.FiscalPort = (*FiscalClient)(nil)

type fiscalServiceDTO struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ResolveService looks up the provider-side service descriptor by its
// municipal code.
func (c *FiscalClient) ResolveService(ctx context.Context, serviceCode string) (uc.FiscalService, error) {
	if c.baseURL == "" {
		return uc.FiscalService{}, fmt.Errorf("fiscal client baseURL is empty")
	}

	endpoint := c.baseURL + "/v2/services?search=" + url.QueryEscape(strings.TrimSpace(serviceCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return uc.FiscalService{}, err
	}
	c.setHeaders(req)

	res, err := c.client.Do(req)
	if err != nil {
		return uc.FiscalService{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return uc.FiscalService{}, fmt.Errorf("service lookup failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Services []fiscalServiceDTO `json:"services"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return uc.FiscalService{}, err
	}
	for _, s := range out.Services {
		if s.Code == strings.TrimSpace(serviceCode) {
			return uc.FiscalService{ID: s.ID, Name: s.Name}, nil
		}
	}
	return uc.FiscalService{}, fmt.Errorf("service code %s not registered with provider", serviceCode)
}

type scheduleInvoiceDTO struct {
	PaymentID   string          `json:"payment"`
	ServiceID   string          `json:"municipalServiceId"`
	ServiceName string          `json:"municipalServiceName"`
	Note        string          `json:"observations"`
	Value       float64         `json:"value"`
	Deductions  float64         `json:"deductions"`
	Taxes       invoiceTaxesDTO `json:"taxes"`
}

type invoiceTaxesDTO struct {
	RetainISS bool    `json:"retainIss"`
	ISS       float64 `json:"iss"`
	COFINS    float64 `json:"cofins"`
	CSLL      float64 `json:"csll"`
	INSS      float64 `json:"inss"`
	IR        float64 `json:"ir"`
	PIS       float64 `json:"pis"`
}

// ScheduleInvoice submits the invoice for issuance and returns the
// provider's invoice id.
func (c *FiscalClient) ScheduleInvoice(ctx context.Context, in uc.ScheduleInvoiceInput) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("fiscal client baseURL is empty")
	}

	payload := scheduleInvoiceDTO{
		PaymentID:   in.PaymentID,
		ServiceID:   in.ServiceID,
		ServiceName: in.ServiceName,
		Note:        in.Note,
		Value:       in.Value,
		Taxes: invoiceTaxesDTO{
			RetainISS: in.Taxes.RetainISS,
			ISS:       in.Taxes.ISS,
			COFINS:    in.Taxes.COFINS,
			CSLL:      in.Taxes.CSLL,
			INSS:      in.Taxes.INSS,
			IR:        in.Taxes.IR,
			PIS:       in.Taxes.PIS,
		},
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/invoices", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return "", fmt.Errorf("invoice schedule failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", fmt.Errorf("provider returned an empty invoice id")
	}
	return out.ID, nil
}

func (c *FiscalClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

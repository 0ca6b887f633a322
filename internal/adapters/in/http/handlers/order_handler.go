// internal/adapters/in/http/handlers/order_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	uc "academy/internal/application/usecase"
	coupondom "academy/internal/domain/coupon"
	orderdom "academy/internal/domain/order"
	plandom "academy/internal/domain/plan"
)

// OrderHandler handles:
// - POST /orders                 (intake)
// - POST /orders/{id}/payment    (gateway link attachment)
// - GET  /orders/{id}/status     (polling projection)
type OrderHandler struct {
	uc *uc.OrderUsecase
}

func NewOrderHandler(orderUC *uc.OrderUsecase) http.Handler {
	return &OrderHandler{uc: orderUC}
}

func (h *OrderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if h.uc == nil {
		writeJSONError(w, http.StatusInternalServerError, "order usecase is not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case r.Method == http.MethodPost && path == "/orders":
		h.create(w, r)

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/orders/") && strings.HasSuffix(path, "/payment"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/orders/"), "/payment")
		h.linkPayment(w, r, strings.Trim(id, "/"))

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/orders/") && strings.HasSuffix(path, "/status"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/orders/"), "/status")
		h.status(w, r, strings.Trim(id, "/"))

	default:
		writeJSONError(w, http.StatusNotFound, "not_found")
	}
}

type createOrderRequest struct {
	Email         string `json:"email"`
	TaxID         string `json:"taxId"`
	LegalName     string `json:"legalName"`
	ProductID     string `json:"productId"`
	PaymentMethod string `json:"paymentMethod"`
	CouponCode    string `json:"couponCode,omitempty"`
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	out, err := h.uc.CreateOrder(r.Context(), uc.CreateOrderInput{
		Email:         req.Email,
		TaxID:         req.TaxID,
		LegalName:     req.LegalName,
		ProductID:     req.ProductID,
		PaymentMethod: orderdom.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeJSONError(w, validationStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(out)
}

type linkPaymentRequest struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	PixPayload       string `json:"pixPayload,omitempty"`
}

func (h *OrderHandler) linkPayment(w http.ResponseWriter, r *http.Request, orderID string) {
	var req linkPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.GatewayPaymentID) == "" {
		writeJSONError(w, http.StatusBadRequest, "gatewayPaymentId is required")
		return
	}

	if err := h.uc.LinkPayment(r.Context(), orderID, req.GatewayPaymentID, req.PixPayload); err != nil {
		if errors.Is(err, orderdom.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"linked": true})
}

func (h *OrderHandler) status(w http.ResponseWriter, r *http.Request, orderID string) {
	view, err := h.uc.GetStatus(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orderdom.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	_ = json.NewEncoder(w).Encode(view)
}

// validationStatus maps intake failures: domain validation problems are
// the caller's, everything else is ours.
func validationStatus(err error) int {
	switch {
	case errors.Is(err, plandom.ErrNotFound),
		errors.Is(err, plandom.ErrInactive),
		errors.Is(err, coupondom.ErrInvalid),
		errors.Is(err, uc.ErrNonPositivePrice),
		errors.Is(err, orderdom.ErrInvalidEmail),
		errors.Is(err, orderdom.ErrInvalidLegalName),
		errors.Is(err, orderdom.ErrInvalidProductID),
		errors.Is(err, orderdom.ErrInvalidMethod),
		errors.Is(err, orderdom.ErrInvalidPrice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

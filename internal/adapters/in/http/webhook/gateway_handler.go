// internal/adapters/in/http/webhook/gateway_handler.go
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	uc "academy/internal/application/usecase"
)

// Inviter triggers the best-effort account invitation after a confirmed
// payment. Its failure never affects the webhook outcome.
type Inviter interface {
	Invite(ctx context.Context, email, name string) error
}

// GatewayWebhookHandler authenticates and parses inbound payment-gateway
// callbacks and dispatches them by event type.
type GatewayWebhookHandler struct {
	secret    string
	paymentUC *uc.PaymentUsecase
	inviter   Inviter
}

func NewGatewayWebhookHandler(secret string, paymentUC *uc.PaymentUsecase, inviter Inviter) http.Handler {
	return &GatewayWebhookHandler{
		secret:    strings.TrimSpace(secret),
		paymentUC: paymentUC,
		inviter:   inviter,
	}
}

// Header carrying the shared secret agreed with the gateway.
const gatewayTokenHeader = "X-Gateway-Token"

// gatewayEnvelope is the loosely-typed gateway payload, validated here
// at the boundary before any dispatch logic runs.
type gatewayEnvelope struct {
	Event    string          `json:"event"`
	Payment  *gatewayPayment `json:"payment"`
	Checkout json.RawMessage `json:"checkout,omitempty"`
}

type gatewayPayment struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	Value             float64 `json:"value"`
	TotalValue        float64 `json:"totalValue"`
	ExternalReference string  `json:"externalReference"`
}

func (h *GatewayWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.paymentUC == nil {
		writeError(w, http.StatusInternalServerError, "payment usecase is not configured")
		return
	}

	// Auth first: a missing secret configuration or a mismatched header
	// rejects the request with no state change.
	if h.secret == "" {
		log.Printf("[gateway_wh] webhook secret is not configured")
		writeError(w, http.StatusInternalServerError, "webhook secret is not configured")
		return
	}
	token := strings.TrimSpace(r.Header.Get(gatewayTokenHeader))
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		log.Printf("[gateway_wh] unauthorized webhook call from %s", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	const maxBody = 1 << 20 // 1MB
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	_ = r.Body.Close()

	var env gatewayEnvelope
	if uErr := json.Unmarshal(body, &env); uErr != nil || strings.TrimSpace(env.Event) == "" {
		// Malformed payloads are acknowledged so the sender stops
		// retrying them; there is nothing to process.
		log.Printf("[gateway_wh] unparseable envelope from %s; acknowledged", r.RemoteAddr)
		writeAck(w)
		return
	}

	switch strings.ToUpper(strings.TrimSpace(env.Event)) {
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		h.handlePayment(w, r, env)
	default:
		// Unknown events are acknowledged as a no-op so the sender does
		// not retry them.
		log.Printf("[gateway_wh] event=%s acknowledged as no-op", env.Event)
		writeAck(w)
	}
}

func (h *GatewayWebhookHandler) handlePayment(w http.ResponseWriter, r *http.Request, env gatewayEnvelope) {
	if env.Payment == nil {
		log.Printf("[gateway_wh] event=%s without payment body; acknowledged", env.Event)
		writeAck(w)
		return
	}

	value := env.Payment.Value
	if value == 0 {
		value = env.Payment.TotalValue
	}

	identity, err := h.paymentUC.Confirm(r.Context(), uc.GatewayPaymentEvent{
		Event:             env.Event,
		PaymentID:         env.Payment.ID,
		PaymentStatus:     env.Payment.Status,
		Value:             value,
		ExternalReference: env.Payment.ExternalReference,
	})
	if err != nil {
		log.Printf("[gateway_wh] confirm failed paymentId=%s err=%v", env.Payment.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Downstream best-effort invitation; detached from the webhook
	// response and from the confirmation transaction.
	if identity != nil && h.inviter != nil {
		go func(email, name string) {
			if iErr := h.inviter.Invite(context.Background(), email, name); iErr != nil {
				log.Printf("[gateway_wh] WARN invitation failed email=%s err=%v", email, iErr)
			}
		}(identity.Email, identity.Name)
	}

	writeAck(w)
}

func writeAck(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

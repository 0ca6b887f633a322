package httpin

import (
	"net/http"

	fbauth "firebase.google.com/go/v4/auth"

	"academy/internal/adapters/in/http/handlers"
	"academy/internal/adapters/in/http/middleware"
	"academy/internal/adapters/in/http/webhook"
	usecase "academy/internal/application/usecase"
)

// RouterDeps collects everything the HTTP surface needs, injected from main.
type RouterDeps struct {
	OrderUC   *usecase.OrderUsecase
	PaymentUC *usecase.PaymentUsecase
	ClaimUC   *usecase.ClaimUsecase

	// Shared secret agreed with the payment gateway.
	GatewaySecret string

	// Firebase Auth client for identity-webhook token verification.
	FirebaseAuth *fbauth.Client

	// Best-effort post-payment invitation sender; may be nil.
	Inviter webhook.Inviter
}

// NewRouter wires every route onto a fresh mux.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	orderHandler := handlers.NewOrderHandler(deps.OrderUC)
	mux.Handle("/orders", orderHandler)
	mux.Handle("/orders/", orderHandler)

	mux.Handle("/webhooks/gateway", webhook.NewGatewayWebhookHandler(deps.GatewaySecret, deps.PaymentUC, deps.Inviter))
	// A typed nil must not slip into the verifier interface.
	var verifier webhook.TokenVerifier
	if deps.FirebaseAuth != nil {
		verifier = deps.FirebaseAuth
	}
	mux.Handle("/webhooks/identity", webhook.NewIdentityWebhookHandler(verifier, deps.ClaimUC))

	return middleware.Recover(middleware.CORS(mux))
}

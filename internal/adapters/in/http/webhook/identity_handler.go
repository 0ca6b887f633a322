// internal/adapters/in/http/webhook/identity_handler.go
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"

	uc "academy/internal/application/usecase"
	orderdom "academy/internal/domain/order"
)

// TokenVerifier checks the identity-provider token carried by the
// webhook. *fbauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// IdentityWebhookHandler receives identity-provider account events and
// feeds account creations into the claim usecase. The envelope is
// verified as a Firebase ID token carried in the Authorization header.
type IdentityWebhookHandler struct {
	auth    TokenVerifier
	claimUC *uc.ClaimUsecase
}

func NewIdentityWebhookHandler(auth TokenVerifier, claimUC *uc.ClaimUsecase) http.Handler {
	return &IdentityWebhookHandler{auth: auth, claimUC: claimUC}
}

type identityEnvelope struct {
	Event   string           `json:"event"`
	Account *identityAccount `json:"account"`
}

type identityAccount struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h *IdentityWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.claimUC == nil {
		writeError(w, http.StatusInternalServerError, "claim usecase is not configured")
		return
	}
	if h.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "identity verification is not initialized")
		return
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if _, err := h.auth.VerifyIDToken(r.Context(), idToken); err != nil {
		log.Printf("[identity_wh] token verification failed: %v", err)
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	const maxBody = 1 << 20
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	_ = r.Body.Close()

	var env identityEnvelope
	if uErr := json.Unmarshal(body, &env); uErr != nil || env.Account == nil {
		writeError(w, http.StatusBadRequest, "invalid envelope")
		return
	}

	switch strings.ToLower(strings.TrimSpace(env.Event)) {
	case "account.created", "account.updated":
		res, cErr := h.claimUC.Claim(r.Context(), env.Account.Email, env.Account.ID)
		if cErr != nil {
			if errors.Is(cErr, orderdom.ErrAlreadyClaimed) {
				// Terminal conflict: acknowledged so an at-least-once
				// sender stops redelivering. The rejection is already
				// logged by the claim usecase.
				w.WriteHeader(http.StatusOK)
				_ = json.NewEncoder(w).Encode(uc.ClaimResult{Claimed: false, Message: "order already claimed"})
				return
			}
			log.Printf("[identity_wh] claim failed email=%s err=%v", env.Account.Email, cErr)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(res)

	case "account.deleted":
		// Cleanup belongs to a collaborator; acknowledged here.
		log.Printf("[identity_wh] account.deleted acknowledged accountId=%s", env.Account.ID)
		writeAck(w)

	default:
		writeAck(w)
	}
}

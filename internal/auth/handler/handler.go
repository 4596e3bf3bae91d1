// Package handler exposes the organizer token endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"luckdraw/internal/transport/http/shared"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/requestcontext"
)

// TokenIssuer verifies organizer credentials and mints an access token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, organizerID, secret string) (string, time.Time, error)
}

// Handler handles the auth endpoints.
type Handler struct {
	tokens TokenIssuer
	logger *slog.Logger
}

// New creates an auth Handler.
func New(tokens TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, logger: logger}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
}

type tokenRequest struct {
	OrganizerID string `json:"organizer_id"`
	Secret      string `json:"secret"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if req.OrganizerID == "" || req.Secret == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "organizer_id and secret are required"))
		return
	}

	token, expiresAt, err := h.tokens.IssueToken(ctx, req.OrganizerID, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "token issuance refused",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}

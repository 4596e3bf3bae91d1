// Package handler exposes registration submission and listing over HTTP.
// Submission and the winner list are public; the full registrant roster is
// organizer-only.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"luckdraw/internal/platform/middleware"
	"luckdraw/internal/registration/models"
	"luckdraw/internal/transport/http/shared"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/requestcontext"
)

// Service defines the admission operations the handler needs.
type Service interface {
	Submit(ctx context.Context, activityID domain.ActivityID, name, phone string) (*models.Registration, error)
	ListByActivity(ctx context.Context, activityID domain.ActivityID) ([]*models.Registration, error)
	Winners(ctx context.Context, activityID domain.ActivityID) ([]models.Winner, error)
}

// Handler handles registration endpoints.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates a registration Handler.
func New(service Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger, validator: validator}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/activities/{id}/registrations", h.handleSubmit)
	r.Get("/activities/{id}/winners", h.handleWinners)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/activities/{id}/registrations", h.handleList)
	})
}

type submitRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid registration request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	registration, err := h.service.Submit(ctx, id, req.Name, req.Phone)
	if err != nil {
		h.writeServiceError(ctx, w, "registration rejected", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, registration)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	registrations, err := h.service.ListByActivity(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list registrations", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"registrations": registrations})
}

type winnerView struct {
	ID    domain.RegistrationID `json:"id"`
	Name  string                `json:"name"`
	Phone string                `json:"phone"`
}

func (h *Handler) handleWinners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	winners, err := h.service.Winners(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list winners", err)
		return
	}

	// Phone numbers are masked on the public winner list.
	views := make([]winnerView, 0, len(winners))
	for _, winner := range winners {
		views = append(views, winnerView{
			ID:    winner.ID,
			Name:  winner.Name,
			Phone: winner.MaskedPhone(),
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"winners": views})
}

func (h *Handler) activityID(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.ActivityID, bool) {
	id, err := domain.ParseActivityID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid activity id",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return domain.ActivityID{}, false
	}
	return id, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}

// Package handler exposes activity management over HTTP. Mutating routes
// require an organizer token; reads are public but only show published
// activities to anonymous callers.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"luckdraw/internal/activity/models"
	"luckdraw/internal/platform/middleware"
	"luckdraw/internal/transport/http/shared"
	regmodels "luckdraw/internal/registration/models"
	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
	"luckdraw/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	Create(ctx context.Context, title, content string, deadline time.Time, winnersCount, maxRegistrants int) (*models.Activity, error)
	Get(ctx context.Context, id domain.ActivityID) (*models.Activity, error)
	List(ctx context.Context, publishedOnly bool) ([]*models.Activity, error)
	Update(ctx context.Context, id domain.ActivityID, req *models.UpdateActivityRequest) (*models.Activity, error)
	TogglePublish(ctx context.Context, id domain.ActivityID) (*models.Activity, error)
	Draw(ctx context.Context, id domain.ActivityID) ([]regmodels.Winner, error)
	ForceDrawNow(ctx context.Context, id domain.ActivityID) ([]regmodels.Winner, error)
	Delete(ctx context.Context, id domain.ActivityID) error
}

// Handler handles activity endpoints.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates an activity Handler.
func New(service Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger, validator: validator}
}

// Register registers the activity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/activities", h.handleList)
	r.Get("/activities/{id}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/activities", h.handleCreate)
		r.Patch("/activities/{id}", h.handleUpdate)
		r.Delete("/activities/{id}", h.handleDelete)
		r.Post("/activities/{id}/publish", h.handleTogglePublish)
		r.Post("/activities/{id}/draw", h.handleDraw)
		r.Post("/activities/{id}/close", h.handleForceDrawNow)
	})
}

type createActivityRequest struct {
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Deadline       time.Time `json:"deadline"`
	WinnersCount   int       `json:"winners_count"`
	MaxRegistrants int       `json:"max_registrants"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create activity request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	activity, err := h.service.Create(ctx, req.Title, req.Content, req.Deadline, req.WinnersCount, req.MaxRegistrants)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create activity", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, activity)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Anonymous callers only see published activities. A valid organizer
	// token lifts the filter.
	publishedOnly := !h.isOrganizer(r)
	activities, err := h.service.List(ctx, publishedOnly)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list activities", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	activity, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load activity", err)
		return
	}
	// Unpublished activities are invisible to anonymous callers.
	if !activity.IsPublished && !h.isOrganizer(r) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "activity not found"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, activity)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	var req models.UpdateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	activity, err := h.service.Update(ctx, id, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update activity", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, activity)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "failed to delete activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	activity, err := h.service.TogglePublish(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to toggle publish", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, activity)
}

func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request) {
	h.runDraw(w, r, h.service.Draw)
}

func (h *Handler) handleForceDrawNow(w http.ResponseWriter, r *http.Request) {
	h.runDraw(w, r, h.service.ForceDrawNow)
}

func (h *Handler) runDraw(w http.ResponseWriter, r *http.Request, draw func(context.Context, domain.ActivityID) ([]regmodels.Winner, error)) {
	ctx := r.Context()
	id, ok := h.activityID(ctx, w, r)
	if !ok {
		return
	}

	winners, err := draw(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "draw failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"winners": winners})
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

// isOrganizer reports whether the request carries a valid organizer token.
// Used on public routes where auth is optional.
func (h *Handler) isOrganizer(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	_, err := h.validator.ValidateToken(token)
	return err == nil
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) || dErrors.Is(err, dErrors.CodePartialCommit) {
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

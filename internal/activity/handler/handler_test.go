package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckdraw/internal/activity/models"
	activityservice "luckdraw/internal/activity/service"
	activitystore "luckdraw/internal/activity/store"
	"luckdraw/internal/auth"
	"luckdraw/internal/draw"
	regmodels "luckdraw/internal/registration/models"
	registrationstore "luckdraw/internal/registration/store"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/secrets"
	"luckdraw/pkg/testutil"
)

type env struct {
	router        http.Handler
	token         string
	activities    *activitystore.InMemory
	registrations *registrationstore.InMemory
}

func newEnv(t *testing.T) *env {
	t.Helper()

	organizerID := domain.PrincipalID(uuid.New())
	secret := "organizer-secret"
	hash, err := secrets.Hash(secret)
	require.NoError(t, err)
	tokens := auth.NewTokenService("test-key", organizerID, hash, time.Hour)
	validator := auth.NewValidator(tokens, nil, 0, nil)

	token, _, err := tokens.IssueToken(context.Background(), organizerID.String(), secret)
	require.NoError(t, err)

	activities := activitystore.NewInMemory()
	registrations := registrationstore.NewInMemory()
	engine := draw.New(activities, registrations)
	svc := activityservice.New(activities, registrations, engine)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, validator, logger)
	r := chi.NewRouter()
	h.Register(r)

	return &env{router: r, token: token, activities: activities, registrations: registrations}
}

func (e *env) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+e.token)
	return req
}

func createBody(deadline time.Time) map[string]any {
	return map[string]any{
		"title":           "Launch Party",
		"content":         "Come join",
		"deadline":        deadline,
		"winners_count":   2,
		"max_registrants": 10,
	}
}

func TestCreateActivityEndpoint(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		e := newEnv(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/activities", createBody(time.Now().Add(time.Hour)))
		rr := testutil.DoRequest(e.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("creates with a valid token", func(t *testing.T) {
		e := newEnv(t)
		req := e.authed(testutil.NewJSONRequest(t, http.MethodPost, "/activities", createBody(time.Now().Add(time.Hour))))
		rr := testutil.DoRequest(e.router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		created := testutil.UnmarshalResponse[models.Activity](t, rr)
		assert.Equal(t, "Launch Party", created.Title)
		assert.False(t, created.ID.IsNil())
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		e := newEnv(t)
		body := createBody(time.Now().Add(time.Hour))
		body["winners_count"] = 0
		req := e.authed(testutil.NewJSONRequest(t, http.MethodPost, "/activities", body))
		rr := testutil.DoRequest(e.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "validation")
	})
}

func TestActivityVisibility(t *testing.T) {
	e := newEnv(t)

	// One draft activity.
	req := e.authed(testutil.NewJSONRequest(t, http.MethodPost, "/activities", createBody(time.Now().Add(time.Hour))))
	rr := testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[models.Activity](t, rr)

	t.Run("anonymous list hides drafts", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/activities"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		out := testutil.UnmarshalResponse[map[string][]models.Activity](t, rr)
		assert.Empty(t, (*out)["activities"])
	})

	t.Run("anonymous get on a draft is 404", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/activities/"+created.ID.String()))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("organizer sees the draft", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodGet, "/activities/"+created.ID.String())))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("publish toggle makes it public", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodPost, "/activities/"+created.ID.String()+"/publish")))
		testutil.AssertStatus(t, rr, http.StatusOK)

		rr = testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/activities/"+created.ID.String()))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}

func TestUpdateAndDeleteEndpoints(t *testing.T) {
	e := newEnv(t)
	req := e.authed(testutil.NewJSONRequest(t, http.MethodPost, "/activities", createBody(time.Now().Add(time.Hour))))
	created := testutil.UnmarshalResponse[models.Activity](t, testutil.DoRequest(e.router, req))

	t.Run("patch updates fields", func(t *testing.T) {
		patch := map[string]any{"title": "Renamed"}
		rr := testutil.DoRequest(e.router, e.authed(testutil.NewJSONRequest(t, http.MethodPatch, "/activities/"+created.ID.String(), patch)))
		testutil.AssertStatus(t, rr, http.StatusOK)
		updated := testutil.UnmarshalResponse[models.Activity](t, rr)
		assert.Equal(t, "Renamed", updated.Title)
	})

	t.Run("invalid id is 400", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodDelete, "/activities/not-a-uuid")))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("delete is 204 and idempotent", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodDelete, "/activities/"+created.ID.String())))
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodDelete, "/activities/"+created.ID.String())))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})
}

func TestDrawEndpoints(t *testing.T) {
	e := newEnv(t)
	req := e.authed(testutil.NewJSONRequest(t, http.MethodPost, "/activities", createBody(time.Now().Add(time.Hour))))
	created := testutil.UnmarshalResponse[models.Activity](t, testutil.DoRequest(e.router, req))

	t.Run("draw before deadline is rejected", func(t *testing.T) {
		rr := testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodPost, "/activities/"+created.ID.String()+"/draw")))
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertRejectionReason(t, rr, "draw_before_deadline")
	})

	t.Run("close forces the draw", func(t *testing.T) {
		seedRegistration(t, e, created.ID, "13800138000")

		rr := testutil.DoRequest(e.router, e.authed(testutil.NewRequest(t, http.MethodPost, "/activities/"+created.ID.String()+"/close")))
		testutil.AssertStatus(t, rr, http.StatusOK)
		out := testutil.UnmarshalResponse[map[string][]map[string]any](t, rr)
		assert.Len(t, (*out)["winners"], 1)
	})
}

func seedRegistration(t *testing.T, e *env, activityID domain.ActivityID, phone string) {
	t.Helper()
	reg := &regmodels.Registration{
		ID:         domain.RegistrationID(uuid.New()),
		ActivityID: activityID,
		Name:       "User",
		Phone:      phone,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, e.registrations.Create(context.Background(), reg))
}

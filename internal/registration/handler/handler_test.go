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

	activitymodels "luckdraw/internal/activity/models"
	activitystore "luckdraw/internal/activity/store"
	"luckdraw/internal/auth"
	"luckdraw/internal/registration/models"
	registrationservice "luckdraw/internal/registration/service"
	registrationstore "luckdraw/internal/registration/store"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/secrets"
	"luckdraw/pkg/testutil"
)

type env struct {
	router        http.Handler
	token         string
	activity      *activitymodels.Activity
	registrations *registrationstore.InMemory
}

func newEnv(t *testing.T, mutate func(*activitymodels.Activity)) *env {
	t.Helper()

	organizerID := domain.PrincipalID(uuid.New())
	secret := "organizer-secret"
	hash, err := secrets.Hash(secret)
	require.NoError(t, err)
	tokens := auth.NewTokenService("test-key", organizerID, hash, time.Hour)
	validator := auth.NewValidator(tokens, nil, 0, nil)
	token, _, err := tokens.IssueToken(context.Background(), organizerID.String(), secret)
	require.NoError(t, err)

	activity := &activitymodels.Activity{
		ID:             domain.ActivityID(uuid.New()),
		Title:          "Open Activity",
		Content:        "content",
		Deadline:       time.Now().Add(time.Hour),
		WinnersCount:   2,
		MaxRegistrants: 3,
		IsPublished:    true,
		CreatorID:      organizerID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if mutate != nil {
		mutate(activity)
	}

	activities := activitystore.NewInMemory()
	registrations := registrationstore.NewInMemory()
	require.NoError(t, activities.Create(context.Background(), activity))

	svc := registrationservice.New(activities, registrations)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, validator, logger)
	r := chi.NewRouter()
	h.Register(r)

	return &env{router: r, token: token, activity: activity, registrations: registrations}
}

func (e *env) submit(t *testing.T, name, phone string) *http.Request {
	t.Helper()
	return testutil.NewJSONRequest(t, http.MethodPost,
		"/activities/"+e.activity.ID.String()+"/registrations",
		map[string]string{"name": name, "phone": phone})
}

func TestSubmitEndpoint(t *testing.T) {
	t.Run("accepts a valid registration", func(t *testing.T) {
		e := newEnv(t, nil)
		rr := testutil.DoRequest(e.router, e.submit(t, "Alice", "13800138000"))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		created := testutil.UnmarshalResponse[models.Registration](t, rr)
		assert.Equal(t, e.activity.ID, created.ActivityID)
	})

	t.Run("rejects a malformed phone", func(t *testing.T) {
		e := newEnv(t, nil)
		rr := testutil.DoRequest(e.router, e.submit(t, "Alice", "12345"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "validation")
	})

	t.Run("duplicate phone surfaces its reason", func(t *testing.T) {
		e := newEnv(t, nil)
		testutil.AssertStatus(t, testutil.DoRequest(e.router, e.submit(t, "Alice", "13800138000")), http.StatusCreated)

		rr := testutil.DoRequest(e.router, e.submit(t, "Alice Again", "13800138000"))
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertRejectionReason(t, rr, "duplicate_registration")
	})

	t.Run("closed activity surfaces its reason", func(t *testing.T) {
		e := newEnv(t, func(a *activitymodels.Activity) { a.Deadline = time.Now().Add(-time.Minute) })
		rr := testutil.DoRequest(e.router, e.submit(t, "Alice", "13800138000"))
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertRejectionReason(t, rr, "registration_closed")
	})

	t.Run("unknown activity is 404", func(t *testing.T) {
		e := newEnv(t, nil)
		req := testutil.NewJSONRequest(t, http.MethodPost,
			"/activities/"+uuid.NewString()+"/registrations",
			map[string]string{"name": "Alice", "phone": "13800138000"})
		testutil.AssertStatus(t, testutil.DoRequest(e.router, req), http.StatusNotFound)
	})
}

func TestListEndpointRequiresAuth(t *testing.T) {
	e := newEnv(t, nil)
	testutil.AssertStatus(t, testutil.DoRequest(e.router, e.submit(t, "Alice", "13800138000")), http.StatusCreated)

	path := "/activities/" + e.activity.ID.String() + "/registrations"

	rr := testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, path))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	req := testutil.NewRequest(t, http.MethodGet, path)
	req.Header.Set("Authorization", "Bearer "+e.token)
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	out := testutil.UnmarshalResponse[map[string][]models.Registration](t, rr)
	assert.Len(t, (*out)["registrations"], 1)
}

func TestWinnersEndpointMasksPhones(t *testing.T) {
	e := newEnv(t, nil)
	rr := testutil.DoRequest(e.router, e.submit(t, "Alice", "13800138000"))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[models.Registration](t, rr)
	require.NoError(t, e.registrations.SetWinner(context.Background(), created.ID, true))

	rr = testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/activities/"+e.activity.ID.String()+"/winners"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	out := testutil.UnmarshalResponse[map[string][]map[string]string](t, rr)
	winners := (*out)["winners"]
	require.Len(t, winners, 1)
	assert.Equal(t, "Alice", winners[0]["name"])
	assert.Equal(t, "138****8000", winners[0]["phone"])
}

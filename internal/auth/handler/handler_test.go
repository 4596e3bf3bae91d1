package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckdraw/internal/auth"
	"luckdraw/pkg/domain"
	"luckdraw/pkg/secrets"
	"luckdraw/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, domain.PrincipalID) {
	t.Helper()

	organizerID := domain.PrincipalID(uuid.New())
	hash, err := secrets.Hash("organizer-secret")
	require.NoError(t, err)
	tokens := auth.NewTokenService("test-key", organizerID, hash, time.Hour)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(tokens, logger).Register(r)
	return r, organizerID
}

func TestTokenEndpoint(t *testing.T) {
	t.Run("issues a token for valid credentials", func(t *testing.T) {
		router, organizerID := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"organizer_id": organizerID.String(), "secret": "organizer-secret"})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[tokenResponse](t, rr)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)
	})

	t.Run("refuses a wrong secret", func(t *testing.T) {
		router, organizerID := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"organizer_id": organizerID.String(), "secret": "wrong"})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rr, "unauthorized")
	})

	t.Run("refuses an unknown organizer", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"organizer_id": uuid.NewString(), "secret": "organizer-secret"})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"organizer_id": "", "secret": ""})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "validation")
	})
}

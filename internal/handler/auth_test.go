package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/model"
)

func TestLogoutWithoutSession(t *testing.T) {
	// Logging out with no cookie never touches the auth service; the
	// response just clears the cookie.
	handler := NewAuthHandler(nil, time.Hour, false)

	rec := httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logged_out":true}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthenticated(t *testing.T) {
	handler := NewAuthHandler(nil, time.Hour, false)

	t.Run("echoes the session account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/authenticated", nil)
		ctx := context.WithValue(req.Context(), middleware.SessionContextKey,
			&model.SessionData{Account: "family1"})

		rec := httptest.NewRecorder()
		handler.Authenticated(rec, req.WithContext(ctx))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"account":"family1"}`, rec.Body.String())
	})

	t.Run("403 without a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Authenticated(rec, httptest.NewRequest(http.MethodGet, "/authenticated", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

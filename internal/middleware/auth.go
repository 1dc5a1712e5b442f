package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tractdb/tractdb-server/internal/couch"
	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/httputil"
	"github.com/tractdb/tractdb-server/internal/model"
)

type contextKey string

const (
	SessionCookie = "tractdb_session"

	SessionContextKey contextKey = "session"
	StoreContextKey   contextKey = "store"
)

// GetSession returns the request's session state, or nil outside an
// authenticated route.
func GetSession(ctx context.Context) *model.SessionData {
	if data, ok := ctx.Value(SessionContextKey).(*model.SessionData); ok {
		return data
	}
	return nil
}

// GetStore returns the document gateway scoped to the request's account.
func GetStore(ctx context.Context) couch.Store {
	if store, ok := ctx.Value(StoreContextKey).(couch.Store); ok {
		return store
	}
	return nil
}

// SessionResolver resolves a session token to its server-side state.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.SessionData, error)
}

// StoreFactory opens a document gateway from session credentials.
type StoreFactory interface {
	StoreFor(data *model.SessionData) (couch.Store, error)
}

// AuthMiddleware guards session-protected routes. A missing or expired
// session is a 403, distinct from the 401 a failed login produces. On
// success the session state and the scoped gateway are injected into the
// request context; handlers never touch credentials directly.
type AuthMiddleware struct {
	sessions SessionResolver
	stores   StoreFactory
}

func NewAuthMiddleware(sessions SessionResolver, stores StoreFactory) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, stores: stores}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			httputil.WriteError(w, apperrors.NoSession())
			return
		}

		data, err := m.sessions.Resolve(r.Context(), cookie.Value)
		if err != nil {
			if !apperrors.IsCode(err, apperrors.ErrCodeNoSession) {
				log.Error().Err(err).Msg("auth middleware: session lookup failed")
			}
			httputil.WriteError(w, err)
			return
		}

		store, err := m.stores.StoreFor(data)
		if err != nil {
			log.Error().Err(err).Str("account", data.Account).Msg("auth middleware: gateway dial failed")
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, data)
		ctx = context.WithValue(ctx, StoreContextKey, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionToken extracts the raw session token from a request, if any.
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetSessionCookie writes the session cookie on a login response.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie on logout.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tractdb/tractdb-server/internal/config"
	"github.com/tractdb/tractdb-server/internal/handler"
	"github.com/tractdb/tractdb-server/internal/httputil"
	"github.com/tractdb/tractdb-server/internal/middleware"
)

type routerDeps struct {
	cfg *config.Config

	auth            *middleware.AuthMiddleware
	loginLimit      *middleware.LoginRateLimitMiddleware
	bodyLimit       *middleware.BodyLimitMiddleware
	securityHeaders *middleware.SecurityHeadersMiddleware

	accounts    *handler.AccountHandler
	authn       *handler.AuthHandler
	documents   *handler.DocumentHandler
	attachments *handler.AttachmentHandler
	familySleep *handler.FamilySleepHandler
}

// newRouter assembles the full HTTP surface. Handlers register their
// routes directly on the shared tree; each group only adds middleware.
func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(d.securityHeaders.Handler)
	r.Use(d.bodyLimit.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	// Provisioning surface; operates only through the privileged
	// capability, no session required.
	d.accounts.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(d.loginLimit.Handler)
		d.authn.RegisterRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.auth.Handler)
		r.Get("/authenticated", d.authn.Authenticated)
		d.documents.RegisterRoutes(r)
		d.attachments.RegisterRoutes(r)
		d.familySleep.RegisterRoutes(r)
	})

	return r
}

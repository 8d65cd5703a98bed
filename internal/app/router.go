package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arcadia-sms/arcadia/internal/auth"
	"github.com/arcadia-sms/arcadia/internal/observability"
	"github.com/arcadia-sms/arcadia/internal/ratelimit"
	"github.com/arcadia-sms/arcadia/internal/staff"
	"github.com/arcadia-sms/arcadia/internal/students"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	TokenStore      *auth.TokenStore
	AuthHandler     *auth.Handler
	StudentsHandler *students.Handler
	StaffHandler    *staff.Handler
	RateLimit       *ratelimit.Middleware
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with the standard stack: base
// middleware, per-class rate limits, then bearer authentication for
// everything under /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Login sits outside authentication under the strictest limiter class.
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(params.RateLimit.Limit(ratelimit.ClassAuth))
			params.AuthHandler.MountPublicRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.RateLimit.Limit(ratelimit.ClassDefault))
			r.Use(auth.RequireAuth(params.TokenStore, params.Logger))
			params.AuthHandler.MountProtectedRoutes(r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(params.TokenStore, params.Logger))

		r.Group(func(r chi.Router) {
			r.Use(params.RateLimit.Limit(ratelimit.ClassDefault))
			r.Route("/students", params.StudentsHandler.MountRoutes)
			r.Route("/staff", params.StaffHandler.MountRoutes)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.RateLimit.Limit(ratelimit.ClassBulk))
			r.Route("/students/import", params.StudentsHandler.MountImportRoutes)
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

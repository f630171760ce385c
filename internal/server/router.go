// Package server assembles the HTTP routes of the archiver.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/archiver/service/internal/archive"
	"github.com/archiver/service/internal/auth"
	"github.com/archiver/service/internal/metrics"
	appMiddleware "github.com/archiver/service/internal/middleware"
	"github.com/archiver/service/internal/tracing"

	_ "github.com/archiver/service/docs/swagger"
)

// Deps are the long-lived collaborators shared by every request.
type Deps struct {
	Archive  *archive.Handler
	Verifier auth.Verifier
	Metrics  *metrics.Metrics
	Tracer   trace.TracerProvider // optional
	Log      *zap.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if d.Tracer != nil {
		r.Use(tracing.Middleware(d.Tracer))
	}
	r.Use(appMiddleware.Logger(d.Log))
	r.Use(chiMiddleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", d.Archive.Index)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// The guard runs before the body is read, so unauthenticated callers
	// never cause egress to their source URL.
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireBearer(d.Verifier, d.Log))
		r.Post("/archive", d.Archive.Archive)
		r.Get("/archives", d.Archive.List)
	})

	return r
}

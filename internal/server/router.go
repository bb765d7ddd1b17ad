package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/enzyme/peek/internal/handler"
	"github.com/enzyme/peek/internal/ratelimit"
	"github.com/enzyme/peek/internal/sse"
)

// NewRouter creates a new HTTP router with all routes registered.
// limiter may be nil to disable rate limiting.
func NewRouter(h *handler.Handler, sseHandler *sse.Handler, limiter *ratelimit.Limiter, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			MaxAge:         86400,
		}))
	}

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Get("/{id}", h.GetEntry)
			r.Put("/{id}", h.PutEntry)
			r.Delete("/{id}", h.DeleteEntry)
			r.Get("/{id}/urls", h.EntryURLs)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(ratelimit.Middleware(limiter, ratelimit.RuleOpenSession)).Post("/", h.CreateSession)
			r.Get("/{sid}", h.GetSession)
			r.Delete("/{sid}", h.DeleteSession)
			r.Put("/{sid}/content", h.PutContent)
			r.With(ratelimit.Middleware(limiter, ratelimit.RuleRefresh)).Post("/{sid}/refresh", h.Refresh)
			r.Post("/{sid}/clear-error", h.ClearError)

			// Streaming, not JSON
			r.Get("/{sid}/events", sseHandler.Events)
		})
	})

	return otelhttp.NewHandler(r, "peek",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

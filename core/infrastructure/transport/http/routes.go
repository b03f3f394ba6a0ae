package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/falkordb/falkordb-mcp/core/application/events"
	"github.com/falkordb/falkordb-mcp/core/application/services"
	httpmiddleware "github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/middleware"
	"github.com/falkordb/falkordb-mcp/core/logger"
)

const (
	APIPrefix             = "/api/mcp"
	DefaultRequestTimeout = 60 * time.Second
)

// ServerInfo is reported by GET /.
type ServerInfo struct {
	Name        string
	Version     string
	Environment string
	Started     time.Time
}

// Deps are the collaborators the routes serve.
type Deps struct {
	Queries *services.ContextService
	MCP     *services.MCPService
	Hub     *events.Hub
	Auth    httpmiddleware.Authenticator
	Info    ServerInfo

	// ShutdownCtx ends open streams when cancelled.
	ShutdownCtx context.Context

	// RateLimiter is optional; with RateLimit <= 0 no limit is applied.
	RateLimiter     httpmiddleware.RateLimiter
	RateLimit       int
	RateLimitWindow time.Duration

	RequestTimeout time.Duration
	MaxBodyBytes   int64
	BaseURL        string
}

// RegisterRoutes registers all HTTP routes
func RegisterRoutes(r chi.Router, deps Deps) {
	log := logger.New("routes")
	log.Infof("Registering HTTP routes")

	if deps.ShutdownCtx == nil {
		deps.ShutdownCtx = context.Background()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = DefaultRequestTimeout
	}

	h := newMCPHandler(deps)

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/docs", h.docs)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(httpmiddleware.Authenticate(deps.Auth, APIPrefix+"/health"))
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil && deps.RateLimit > 0 {
				r.Use(httpmiddleware.RateLimitByIP(deps.RateLimiter, deps.RateLimit, deps.RateLimitWindow))
			}

			// Streams are long-lived and must not inherit the request timeout.
			r.Get("/stream", h.stream)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(deps.RequestTimeout))
				r.Use(httpmiddleware.LimitBody(deps.MaxBodyBytes))

				r.Get("/ready", h.ready)
				r.Get("/capabilities", h.capabilities)
				r.Get("/tools", h.tools)
				r.Get("/metadata", h.metadata)
				r.Get("/graphs", h.graphs)
				r.Get("/resources", h.resources)
				r.Post("/context", h.context)
				r.Post("/query", h.query)
				r.Post("/rpc", h.rpc)
			})
		})
	})

	count := 0
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		count++
		log.Debugf("  %s %s", method, route)
		return nil
	})
	log.Infof("Routes registered: %d", count)
}

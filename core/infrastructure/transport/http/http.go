package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpmiddleware "github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/middleware"
	"github.com/falkordb/falkordb-mcp/core/logger"
)

const (
	DefaultPort            = "3000"
	DefaultShutdownTimeout = 15 * time.Second
)

// Options configures the HTTP server.
type Options struct {
	Port string
	// CORSOrigin is "*" or a comma-separated list of allowed origins.
	CORSOrigin string
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable it only behind a
	// proxy that overwrites those headers, otherwise clients choose their own
	// address and with it their rate limit key.
	TrustProxy bool
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
	port     string
	shutdown context.CancelFunc
	log      logger.Logger
}

// NewServer creates a new HTTP server
func NewServer(opts Options) *Server {
	port := opts.Port
	if port == "" {
		port = DefaultPort
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(httpmiddleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.Metrics)
	r.Use(httpmiddleware.Tracing)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(opts.CORSOrigin),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "MCP-Protocol-Version", "Mcp-Session-Id", "Last-Event-ID"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	return &Server{
		router: r,
		port:   port,
		log:    logger.New("http"),
	}
}

func corsOrigins(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || value == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the bound address once the server has started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serves until the server is stopped.
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	return s.serve()
}

// StartAsync binds the port and serves in the background. Bind errors are
// returned to the caller.
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}
	go func() {
		if err := s.serve(); err != nil {
			s.log.Errorf("HTTP server error: %v", err)
		}
	}()
	return nil
}

func (s *Server) listen() error {
	s.log.Infof("Starting HTTP server on port %s", s.port)

	listener, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // Disable write timeout for SSE connections
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

func (s *Server) serve() error {
	s.log.Successf("HTTP server listening on http://127.0.0.1:%s", s.port)
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop ends open streams, then shuts the server down gracefully. ctx bounds
// the wait for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Infof("Shutting down HTTP server")

	if s.shutdown != nil {
		s.shutdown()
	}

	if s.server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Errorf("Error shutting down HTTP server: %v", err)
		if closeErr := s.server.Close(); closeErr != nil {
			s.log.Errorf("Error force closing HTTP server: %v", closeErr)
		}
		return err
	}

	s.log.Infof("HTTP server stopped")
	return nil
}

// SetShutdownFunc sets the function that ends open streams on Stop.
func (s *Server) SetShutdownFunc(fn context.CancelFunc) {
	s.shutdown = fn
}

package runtime

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/falkordb/falkordb-mcp/core/application/auth"
	"github.com/falkordb/falkordb-mcp/core/application/events"
	"github.com/falkordb/falkordb-mcp/core/application/services"
	"github.com/falkordb/falkordb-mcp/core/config"
	"github.com/falkordb/falkordb-mcp/core/infrastructure/falkordb"
	transporthttp "github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http"
	httpmiddleware "github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/middleware"
	"github.com/falkordb/falkordb-mcp/core/logger"
	"github.com/falkordb/falkordb-mcp/core/observability"
)

const (
	ServiceName     = "falkordb-mcp"
	shutdownTimeout = 15 * time.Second
)

// Runtime owns every long-lived component of the gateway and tears them down
// in dependency order.
type Runtime struct {
	cfg       *config.Config
	log       logger.Logger
	providers *observability.Providers
	store     *falkordb.Store
	hub       *events.Hub
	limiter   *redis.Client
	server    *transporthttp.Server

	// cancelStreams ends every open SSE stream.
	cancelStreams context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// NewRuntime wires the gateway from cfg. Nothing listens until Start or
// StartAsync.
func NewRuntime(ctx context.Context, cfg *config.Config, version string) (*Runtime, error) {
	log := logger.New("runtime")

	otelCfg := observability.DefaultConfig()
	otelCfg.ServiceName = ServiceName
	otelCfg.ServiceVersion = version
	otelCfg.Environment = cfg.Server.Environment
	providers, err := observability.Setup(ctx, observability.ResolveConfig(otelCfg))
	if err != nil {
		return nil, logger.WithTag("observability", err)
	}

	store := falkordb.NewStore(falkordb.Options{
		Host:        cfg.FalkorDB.Host,
		Port:        cfg.FalkorDB.Port,
		Username:    cfg.FalkorDB.Username,
		Password:    cfg.FalkorDB.Password,
		DialTimeout: cfg.FalkorDB.DialTimeout,
	})

	hub := events.NewHub(events.Options{
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		MaxSubscribers:    cfg.Stream.MaxSubscribers,
		EnforceLimit:      cfg.Stream.EnforceLimit,
		SendTimeout:       cfg.Stream.SendTimeout,
	})

	queries := services.NewContextService(store, hub, cfg.FalkorDB.DefaultGraph)
	gate := auth.NewGate(cfg.Auth.APIKey, cfg.Development())
	if gate.Open() {
		log.Warnf("No API key configured in development mode, authentication is disabled")
	} else if cfg.Auth.APIKey == "" {
		log.Warnf("No API key configured, every authenticated request will be rejected")
	}

	streamCtx, cancelStreams := context.WithCancel(context.Background())

	server := transporthttp.NewServer(transporthttp.Options{
		Port:       strconv.Itoa(cfg.Server.Port),
		CORSOrigin: cfg.CORS.Origin,
		TrustProxy: cfg.Server.TrustProxy,
	})
	server.SetShutdownFunc(cancelStreams)

	rt := &Runtime{
		cfg:           cfg,
		log:           log,
		providers:     providers,
		store:         store,
		hub:           hub,
		server:        server,
		cancelStreams: cancelStreams,
	}

	deps := transporthttp.Deps{
		Queries: queries,
		MCP:     services.NewMCPService(queries),
		Hub:     hub,
		Auth:    gate,
		Info: transporthttp.ServerInfo{
			Name:        ServiceName,
			Version:     version,
			Environment: cfg.Server.Environment,
			Started:     time.Now(),
		},
		ShutdownCtx:    streamCtx,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		BaseURL:        cfg.Server.BaseURL,
	}

	if cfg.RateLimit.Requests > 0 {
		rt.limiter = redis.NewClient(&redis.Options{
			Addr:     falkordb.Options{Host: cfg.FalkorDB.Host, Port: cfg.FalkorDB.Port}.Addr(),
			Username: cfg.FalkorDB.Username,
			Password: cfg.FalkorDB.Password,
			Protocol: 2,
		})
		deps.RateLimiter = httpmiddleware.NewRedisRateLimiter(rt.limiter, "falkordb-mcp:ratelimit:")
		deps.RateLimit = cfg.RateLimit.Requests
		deps.RateLimitWindow = cfg.RateLimit.Window
		log.Infof("Rate limiting to %d requests per %s", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	transporthttp.RegisterRoutes(server.Router(), deps)
	return rt, nil
}

// Start serves until SIGINT or SIGTERM, then stops gracefully.
func (r *Runtime) Start() error {
	if err := r.StartAsync(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	sig := <-quit
	r.log.Infof("Received %s", sig)

	return r.Stop()
}

// StartAsync binds the HTTP port and serves in the background. The database
// connection is opened lazily, a failed probe here is only logged.
func (r *Runtime) StartAsync() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Ping(ctx); err != nil {
		r.log.Warnf("FalkorDB at %s:%d is not reachable yet: %v", r.cfg.FalkorDB.Host, r.cfg.FalkorDB.Port, err)
	}

	if err := r.server.StartAsync(); err != nil {
		return logger.WithTag("http", err)
	}
	return nil
}

// Addr is the bound HTTP address once started.
func (r *Runtime) Addr() string {
	return r.server.Addr()
}

// Stop ends open streams, drains HTTP, closes the hub, then releases the
// database connections and telemetry exporters. It runs once.
func (r *Runtime) Stop() error {
	r.stopOnce.Do(func() {
		r.log.Infof("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		r.cancelStreams()
		if err := r.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		r.hub.Close()
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
		if r.limiter != nil {
			if err := r.limiter.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := r.providers.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		r.stopErr = errors.Join(errs...)
		if r.stopErr != nil {
			r.log.Errorf("Shutdown finished with errors: %v", r.stopErr)
			return
		}
		r.log.Infof("Shutdown complete")
	})
	return r.stopErr
}

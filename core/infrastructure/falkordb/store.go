package falkordb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/falkordb/falkordb-mcp/core/domain"
	"github.com/falkordb/falkordb-mcp/core/logger"
	"github.com/falkordb/falkordb-mcp/core/observability"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

const (
	ProviderName = "FalkorDB"
	unknown      = "unknown"

	nodeCountQuery         = "MATCH (n) RETURN count(n) as count"
	relationshipCountQuery = "MATCH ()-[r]->() RETURN count(r) as count"
)

var (
	capabilities   = []string{"graph.query", "graph.list", "node.properties", "relationship.properties"}
	graphTypes     = []string{"property", "directed"}
	queryLanguages = []string{"cypher"}
)

// commander is the subset of the go-redis client the store needs.
type commander interface {
	Do(ctx context.Context, args ...any) *redis.Cmd
	Info(ctx context.Context, section ...string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Options locates the FalkorDB server.
type Options struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
}

// Addr returns host:port.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Store talks to FalkorDB over the Redis protocol. The connection is opened on
// first use and shared by all callers.
type Store struct {
	opts Options
	dial func(Options) commander
	log  logger.Logger

	mu     sync.Mutex
	client commander
}

// NewStore creates a store. No connection is made until the first call.
func NewStore(opts Options) *Store {
	return &Store{
		opts: opts,
		dial: dialRedis,
		log:  logger.New("falkordb"),
	}
}

func dialRedis(opts Options) commander {
	return redis.NewClient(&redis.Options{
		Addr:        opts.Addr(),
		Username:    opts.Username,
		Password:    opts.Password,
		DialTimeout: opts.DialTimeout,
		// GRAPH.QUERY replies are parsed as RESP2 arrays.
		Protocol: 2,
	})
}

// connect returns the shared client, opening it if needed. Concurrent first
// calls result in a single connection.
func (s *Store) connect(ctx context.Context) (commander, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	s.log.Debugf("Connecting to FalkorDB at %s", s.opts.Addr())
	client := s.dial(s.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		s.log.Errorf("FalkorDB connection failed: %v", err)
		return nil, apperrors.Unavailable(fmt.Errorf("connect to falkordb at %s: %w", s.opts.Addr(), err))
	}
	s.client = client
	s.log.Infof("Connected to FalkorDB at %s", s.opts.Addr())
	return client, nil
}

// Close releases the connection if one is open. Safe to call repeatedly.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		s.log.Errorf("Error closing FalkorDB connection: %v", err)
		return err
	}
	s.log.Debugf("FalkorDB connection closed")
	return nil
}

// Execute runs query against graph. Every failure is reported as a backend
// error.
func (s *Store) Execute(ctx context.Context, query string, params map[string]any, graph string) (*domain.GraphQueryResult, error) {
	ctx, span := startSpan(ctx, "falkordb.Execute", "GRAPH.QUERY", attribute.String(observability.AttrGraphName, graph))
	start := time.Now()

	result, err := s.execute(ctx, query, params, graph)

	finish(ctx, span, "GRAPH.QUERY", start, err)
	if err != nil {
		s.log.Errorf("Error executing query on graph %s: %v", graph, err)
		return nil, apperrors.Backend(err)
	}
	return result, nil
}

func (s *Store) execute(ctx context.Context, query string, params map[string]any, graph string) (*domain.GraphQueryResult, error) {
	command, err := BuildQuery(query, params)
	if err != nil {
		return nil, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := client.Do(ctx, "GRAPH.QUERY", graph, command).Result()
	if err != nil {
		return nil, err
	}
	return parseQueryReply(reply)
}

// ListGraphs enumerates graph names. The store does not expose graph typing,
// so every descriptor is property/directed.
func (s *Store) ListGraphs(ctx context.Context) ([]domain.GraphDescriptor, error) {
	ctx, span := startSpan(ctx, "falkordb.ListGraphs", "GRAPH.LIST")
	start := time.Now()

	graphs, err := s.listGraphs(ctx)

	finish(ctx, span, "GRAPH.LIST", start, err)
	if err != nil {
		s.log.Errorf("Error listing graphs: %v", err)
		return nil, apperrors.Backend(err)
	}
	return graphs, nil
}

func (s *Store) listGraphs(ctx context.Context) ([]domain.GraphDescriptor, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := client.Do(ctx, "GRAPH.LIST").Result()
	if err != nil {
		return nil, err
	}
	names, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected GRAPH.LIST reply type %T", reply)
	}
	graphs := make([]domain.GraphDescriptor, 0, len(names))
	for _, name := range names {
		graphs = append(graphs, domain.NewGraphDescriptor(toString(name)))
	}
	return graphs, nil
}

// Resources gathers the graph list and the node and relationship counts of
// graph concurrently. Any failure fails the whole call.
func (s *Store) Resources(ctx context.Context, graph string) (*domain.GraphResources, error) {
	var (
		graphs        []domain.GraphDescriptor
		nodes         int64
		relationships int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		graphs, err = s.ListGraphs(gctx)
		return err
	})
	g.Go(func() error {
		result, err := s.Execute(gctx, nodeCountQuery, nil, graph)
		nodes = countValue(result)
		return err
	})
	g.Go(func() error {
		result, err := s.Execute(gctx, relationshipCountQuery, nil, graph)
		relationships = countValue(result)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Backend(err)
	}

	return &domain.GraphResources{
		Graphs:        graphs,
		Nodes:         nodes,
		Relationships: relationships,
	}, nil
}

// Metadata describes the provider. Version and mode come from INFO server and
// fall back to "unknown" when the server cannot be asked.
func (s *Store) Metadata(ctx context.Context) domain.ProviderMetadata {
	meta := domain.ProviderMetadata{
		Provider:       ProviderName,
		Version:        unknown,
		Capabilities:   append([]string(nil), capabilities...),
		GraphTypes:     append([]string(nil), graphTypes...),
		QueryLanguages: append([]string(nil), queryLanguages...),
		RedisMode:      unknown,
	}

	ctx, span := startSpan(ctx, "falkordb.Metadata", "INFO")
	start := time.Now()

	info, err := s.info(ctx)

	finish(ctx, span, "INFO", start, err)
	if err != nil {
		s.log.Warnf("Error getting metadata: %v", err)
		return meta
	}

	if v := info["redis_version"]; v != "" {
		meta.Version = v
	}
	meta.RedisMode = "standalone"
	if v := info["redis_mode"]; v != "" {
		meta.RedisMode = v
	}
	return meta
}

func (s *Store) info(ctx context.Context) (map[string]string, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := client.Info(ctx, "server").Result()
	if err != nil {
		return nil, err
	}
	return parseInfo(raw), nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := startSpan(ctx, "falkordb.Ping", "PING")
	start := time.Now()

	err := s.ping(ctx)

	finish(ctx, span, "PING", start, err)
	if err != nil {
		return apperrors.Backend(err)
	}
	return nil
}

func (s *Store) ping(ctx context.Context) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// parseInfo reads "key:value" lines of an INFO reply, skipping section
// headers.
func parseInfo(raw string) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if ok {
			out[key] = value
		}
	}
	return out
}

func startSpan(ctx context.Context, name, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String(observability.AttrDBSystem, "falkordb"),
		attribute.String(observability.AttrDBOperation, operation),
	)
	return observability.Tracer().Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	durationMS := float64(time.Since(start).Microseconds()) / 1000
	observability.RecordStoreOperation(ctx, operation, err == nil, durationMS)
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

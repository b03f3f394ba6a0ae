package services

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/falkordb/falkordb-mcp/core/domain"
	"github.com/falkordb/falkordb-mcp/core/domain/interfaces"
	"github.com/falkordb/falkordb-mcp/core/logger"
	"github.com/falkordb/falkordb-mcp/core/observability"
	sharedctx "github.com/falkordb/falkordb-mcp/core/shared/context"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

// ContextService runs graph queries on behalf of every transport and reports
// their lifecycle to stream subscribers.
type ContextService struct {
	store        interfaces.GraphStore
	events       interfaces.EventPublisher
	defaultGraph string
	validate     *validator.Validate
	log          logger.Logger
}

// NewContextService creates a ContextService. Requests without a graph name
// run against defaultGraph.
func NewContextService(store interfaces.GraphStore, events interfaces.EventPublisher, defaultGraph string) *ContextService {
	return &ContextService{
		store:        store,
		events:       events,
		defaultGraph: defaultGraph,
		validate:     newValidator(),
		log:          logger.New("context"),
	}
}

// DefaultGraph is the graph used when a request names none.
func (s *ContextService) DefaultGraph() string { return s.defaultGraph }

// Submit validates req and executes it, publishing processing before the
// store is called and exactly one terminal event afterwards. Invalid requests
// publish nothing.
func (s *ContextService) Submit(ctx context.Context, req domain.QueryRequest) (*domain.GraphQueryResult, error) {
	req, err := normalizeRequest(s.validate, req, s.defaultGraph)
	if err != nil {
		return nil, err
	}

	s.events.Publish(domain.ProcessingEvent(req.Query, req.GraphName))

	result, err := s.run(ctx, req)
	if err != nil {
		s.events.Publish(domain.ErrorEvent(req.GraphName, apperrors.MessageOf(err)))
		return nil, err
	}

	s.events.Publish(domain.SuccessEvent(req.GraphName, result))
	return result, nil
}

// Execute validates and runs req without notifying subscribers.
func (s *ContextService) Execute(ctx context.Context, req domain.QueryRequest) (*domain.GraphQueryResult, error) {
	req, err := normalizeRequest(s.validate, req, s.defaultGraph)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, req)
}

func (s *ContextService) run(ctx context.Context, req domain.QueryRequest) (*domain.GraphQueryResult, error) {
	log := s.log
	if id := sharedctx.GetRequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}
	log.Debugf("Executing query on graph %s", req.GraphName)
	start := time.Now()

	result, err := s.store.Execute(ctx, req.Query, req.Parameters, req.GraphName)

	durationMS := float64(time.Since(start).Microseconds()) / 1000
	observability.RecordQueryExecution(ctx, req.GraphName, err == nil, durationMS)
	if err != nil {
		log.Warnf("Query on graph %s failed: %v", req.GraphName, err)
		return nil, apperrors.Backend(err)
	}
	if result == nil {
		result = domain.NewGraphQueryResult()
	}
	log.Debugf("Query on graph %s returned %d row(s) in %.1fms", req.GraphName, len(result.Data), durationMS)
	return result, nil
}

func (s *ContextService) ListGraphs(ctx context.Context) ([]domain.GraphDescriptor, error) {
	graphs, err := s.store.ListGraphs(ctx)
	if err != nil {
		return nil, apperrors.Backend(err)
	}
	return graphs, nil
}

// Resources summarizes graph, or the default graph when graph is empty.
func (s *ContextService) Resources(ctx context.Context, graph string) (*domain.GraphResources, error) {
	if graph == "" {
		graph = s.defaultGraph
	}
	res, err := s.store.Resources(ctx, graph)
	if err != nil {
		return nil, apperrors.Backend(err)
	}
	return res, nil
}

func (s *ContextService) Metadata(ctx context.Context) domain.ProviderMetadata {
	return s.store.Metadata(ctx)
}

// Ready reports whether the store answers.
func (s *ContextService) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return apperrors.Backend(err)
	}
	return nil
}

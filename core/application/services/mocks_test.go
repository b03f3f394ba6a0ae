package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/falkordb/falkordb-mcp/core/domain"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Execute(ctx context.Context, query string, params map[string]any, graph string) (*domain.GraphQueryResult, error) {
	args := m.Called(ctx, query, params, graph)
	result, _ := args.Get(0).(*domain.GraphQueryResult)
	return result, args.Error(1)
}

func (m *mockStore) ListGraphs(ctx context.Context) ([]domain.GraphDescriptor, error) {
	args := m.Called(ctx)
	graphs, _ := args.Get(0).([]domain.GraphDescriptor)
	return graphs, args.Error(1)
}

func (m *mockStore) Resources(ctx context.Context, graph string) (*domain.GraphResources, error) {
	args := m.Called(ctx, graph)
	res, _ := args.Get(0).(*domain.GraphResources)
	return res, args.Error(1)
}

func (m *mockStore) Metadata(ctx context.Context) domain.ProviderMetadata {
	return m.Called(ctx).Get(0).(domain.ProviderMetadata)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (p *recordingPublisher) Publish(event domain.LifecycleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []domain.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LifecycleEvent(nil), p.events...)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/falkordb/falkordb-mcp/core/domain"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

func newTestService(t *testing.T) (*ContextService, *mockStore, *recordingPublisher) {
	t.Helper()
	store := &mockStore{}
	events := &recordingPublisher{}
	t.Cleanup(func() { store.AssertExpectations(t) })
	return NewContextService(store, events, "default"), store, events
}

func TestSubmit_SuccessPublishesProcessingThenSuccess(t *testing.T) {
	svc, store, events := newTestService(t)
	result := &domain.GraphQueryResult{
		Headers:  []string{"n"},
		Data:     [][]any{{int64(1)}},
		Metadata: []string{"Cached execution: 0"},
	}
	store.On("Execute", mock.Anything, "RETURN $x", map[string]any{"x": 1.0}, "social").Return(result, nil)

	got, err := svc.Submit(context.Background(), domain.QueryRequest{
		Query:      "  RETURN $x  ",
		Parameters: map[string]any{"x": 1.0},
		GraphName:  "social",
	})
	require.NoError(t, err)
	assert.Equal(t, result, got)

	published := events.Events()
	require.Len(t, published, 2)
	assert.Equal(t, domain.ProcessingEvent("RETURN $x", "social"), published[0])
	assert.Equal(t, domain.SuccessEvent("social", result), published[1])
	assert.Same(t, got, published[1].Data)
}

func TestSubmit_DefaultsGraphAndParameters(t *testing.T) {
	svc, store, events := newTestService(t)
	store.On("Execute", mock.Anything, "RETURN 1", map[string]any{}, "default").Return(domain.NewGraphQueryResult(), nil)

	_, err := svc.Submit(context.Background(), domain.QueryRequest{Query: "RETURN 1"})
	require.NoError(t, err)
	assert.Equal(t, "default", events.Events()[0].GraphName)
}

func TestSubmit_BackendFailurePublishesError(t *testing.T) {
	svc, store, events := newTestService(t)
	store.On("Execute", mock.Anything, "MATCH (", mock.Anything, "default").
		Return(nil, errors.New("errMsg: Invalid input"))

	_, err := svc.Submit(context.Background(), domain.QueryRequest{Query: "MATCH ("})
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendError(err))

	published := events.Events()
	require.Len(t, published, 2)
	assert.Equal(t, domain.StatusProcessing, published[0].Status)
	assert.Equal(t, domain.EventQueryError, published[1].Type)
	assert.Equal(t, "errMsg: Invalid input", published[1].Error)
	assert.True(t, published[1].IsTerminal())
}

func TestSubmit_InvalidRequestPublishesNothing(t *testing.T) {
	tests := []struct {
		name     string
		req      domain.QueryRequest
		wantCode apperrors.ErrorCode
		wantMsg  string
	}{
		{name: "empty body", req: domain.QueryRequest{}, wantCode: apperrors.ErrCodeMissingQuery, wantMsg: "required"},
		{name: "whitespace query", req: domain.QueryRequest{Query: " \n\t "}, wantCode: apperrors.ErrCodeMissingQuery, wantMsg: "required"},
		{
			name:     "bad parameter name",
			req:      domain.QueryRequest{Query: "RETURN 1", Parameters: map[string]any{"no-dash": 1}},
			wantCode: apperrors.ErrCodeValidationError,
			wantMsg:  "identifiers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, events := newTestService(t)

			_, err := svc.Submit(context.Background(), tt.req)

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, 400, appErr.Status)
			assert.Contains(t, appErr.Message, tt.wantMsg)
			assert.Empty(t, events.Events())
		})
	}
}

func TestExecute_DoesNotPublish(t *testing.T) {
	svc, store, events := newTestService(t)
	store.On("Execute", mock.Anything, "RETURN 1", map[string]any{}, "g").Return(nil, nil)

	got, err := svc.Execute(context.Background(), domain.QueryRequest{Query: "RETURN 1", GraphName: "g"})
	require.NoError(t, err)
	assert.NotNil(t, got.Headers)
	assert.Empty(t, events.Events())
}

func TestDescriptorPassthroughs(t *testing.T) {
	svc, store, _ := newTestService(t)
	graphs := []domain.GraphDescriptor{domain.NewGraphDescriptor("social")}
	store.On("ListGraphs", mock.Anything).Return(graphs, nil)
	store.On("Resources", mock.Anything, "default").Return(&domain.GraphResources{Graphs: graphs, Nodes: 3}, nil)
	store.On("Metadata", mock.Anything).Return(domain.ProviderMetadata{Provider: "FalkorDB"})
	store.On("Ping", mock.Anything).Return(errors.New("refused"))

	got, err := svc.ListGraphs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, graphs, got)

	res, err := svc.Resources(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Nodes)

	assert.Equal(t, "FalkorDB", svc.Metadata(context.Background()).Provider)
	assert.True(t, apperrors.IsBackendError(svc.Ready(context.Background())))
}

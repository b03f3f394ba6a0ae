package interfaces

import (
	"context"

	"github.com/falkordb/falkordb-mcp/core/domain"
)

// GraphStore is the backing graph-query executor as seen by the gateway.
// Implementations normalize every failure into a single backend error kind.
type GraphStore interface {
	// Execute runs query with parameters against graph.
	Execute(ctx context.Context, query string, params map[string]any, graph string) (*domain.GraphQueryResult, error)

	// ListGraphs enumerates the graphs known to the store.
	ListGraphs(ctx context.Context) ([]domain.GraphDescriptor, error)

	// Resources returns the graph list plus node and relationship counts for graph.
	Resources(ctx context.Context, graph string) (*domain.GraphResources, error)

	// Metadata describes the provider. It never fails; unknown fields are
	// reported as "unknown".
	Metadata(ctx context.Context) domain.ProviderMetadata

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing connection. Safe to call when not connected.
	Close() error
}

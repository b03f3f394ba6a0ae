package domain

// QueryRequest is a single inbound query submission.
type QueryRequest struct {
	Query      string         `json:"query" validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty" validate:"omitempty,cypher_params"`
	GraphName  string         `json:"graphName,omitempty"`
}

// GraphQueryResult is the normalized result of a graph query. Rows are
// row-major and aligned with Headers.
type GraphQueryResult struct {
	Headers  []string `json:"headers"`
	Data     [][]any  `json:"data"`
	Metadata []string `json:"metadata"`
}

// NewGraphQueryResult returns an empty result with non-nil slices so that it
// always serializes as arrays.
func NewGraphQueryResult() *GraphQueryResult {
	return &GraphQueryResult{
		Headers:  []string{},
		Data:     [][]any{},
		Metadata: []string{},
	}
}

// GraphDescriptor describes one graph in the store. The store does not report
// type or directedness, so these are fixed defaults.
type GraphDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Directed bool   `json:"directed"`
}

const (
	DefaultGraphType     = "property"
	DefaultGraphDirected = true
)

// NewGraphDescriptor builds a descriptor with the fixed property/directed typing.
func NewGraphDescriptor(name string) GraphDescriptor {
	return GraphDescriptor{Name: name, Type: DefaultGraphType, Directed: DefaultGraphDirected}
}

// GraphResources summarizes a graph.
type GraphResources struct {
	Graphs        []GraphDescriptor `json:"graphs"`
	Nodes         int64             `json:"nodes"`
	Relationships int64             `json:"relationships"`
}

// ProviderMetadata describes the backing store.
type ProviderMetadata struct {
	Provider       string   `json:"provider"`
	Version        string   `json:"version"`
	Capabilities   []string `json:"capabilities"`
	GraphTypes     []string `json:"graphTypes"`
	QueryLanguages []string `json:"queryLanguages"`
	RedisMode      string   `json:"redisMode"`
}

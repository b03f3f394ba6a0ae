package dto

import (
	"github.com/falkordb/falkordb-mcp/core/domain"
)

// ContextRequest is the body of POST /context and POST /query. Older clients
// send parameters under "context"; "parameters" wins when both are present.
type ContextRequest struct {
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	GraphName  string         `json:"graphName,omitempty"`
}

// ToDomain converts the body into a domain request.
func (r ContextRequest) ToDomain() domain.QueryRequest {
	params := r.Parameters
	if params == nil {
		params = r.Context
	}
	return domain.QueryRequest{
		Query:      r.Query,
		Parameters: params,
		GraphName:  r.GraphName,
	}
}

// Envelope is the success body shared by the descriptor and query routes.
type Envelope struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// NewEnvelope wraps data in a success envelope of kind typ.
func NewEnvelope(typ string, data any) Envelope {
	return Envelope{Type: typ, Status: StatusSuccess, Data: data}
}

// CapabilitiesResponse advertises the gateway's protocol and features.
type CapabilitiesResponse struct {
	Status       string              `json:"status"`
	Version      string              `json:"version"`
	Protocol     string              `json:"protocol"`
	Capabilities domain.Capabilities `json:"capabilities"`
}

// ToolsResponse lists the MCP tools.
type ToolsResponse struct {
	Status string        `json:"status"`
	Tools  []domain.Tool `json:"tools"`
}

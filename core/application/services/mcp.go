package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/falkordb/falkordb-mcp/core/domain"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

const (
	ProtocolVersion = "1.0.0"
	ProtocolName    = "StreamableHTTP"

	ToolExecuteQuery = "executeQuery"
	ToolGetMetadata  = "getMetadata"
	ToolListGraphs   = "listGraphs"
	ToolGetResources = "getResources"
)

// MCPService exposes the gateway's operations as MCP tools.
type MCPService struct {
	queries *ContextService
}

// NewMCPService creates an MCPService backed by queries.
func NewMCPService(queries *ContextService) *MCPService {
	return &MCPService{queries: queries}
}

// Capabilities returns the advertised feature set. Every feature is on.
func (s *MCPService) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Context:   true,
		Metadata:  true,
		Tools:     true,
		Resources: true,
		Streaming: true,
		Graphs:    true,
	}
}

// ListTools returns the fixed tool table.
func (s *MCPService) ListTools() []domain.Tool {
	graphHelp := fmt.Sprintf("Name of the graph (default: %q)", s.queries.DefaultGraph())
	return []domain.Tool{
		{
			Name:        ToolExecuteQuery,
			Description: "Execute a Cypher query against FalkorDB",
			Parameters: domain.ToolSchema{
				Type: "object",
				Properties: map[string]domain.ToolProperty{
					"query":      {Type: "string", Description: "The Cypher query to execute"},
					"parameters": {Type: "object", Description: "Query parameters"},
					"graphName":  {Type: "string", Description: graphHelp},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolGetMetadata,
			Description: "Get metadata about the FalkorDB instance",
			Parameters:  domain.ToolSchema{Type: "object", Properties: map[string]domain.ToolProperty{}},
		},
		{
			Name:        ToolListGraphs,
			Description: "List all available graphs",
			Parameters:  domain.ToolSchema{Type: "object", Properties: map[string]domain.ToolProperty{}},
		},
		{
			Name:        ToolGetResources,
			Description: "Get resources for a specific graph",
			Parameters: domain.ToolSchema{
				Type: "object",
				Properties: map[string]domain.ToolProperty{
					"graphName": {Type: "string", Description: graphHelp},
				},
			},
		},
	}
}

// CallTool runs the named tool with JSON-encoded arguments. executeQuery goes
// through Submit, so open streams observe it like a POST to /context.
func (s *MCPService) CallTool(ctx context.Context, name string, arguments json.RawMessage) (any, error) {
	switch name {
	case ToolExecuteQuery:
		var req domain.QueryRequest
		if err := decodeArguments(arguments, &req); err != nil {
			return nil, err
		}
		return s.queries.Submit(ctx, req)
	case ToolGetMetadata:
		return s.queries.Metadata(ctx), nil
	case ToolListGraphs:
		return s.queries.ListGraphs(ctx)
	case ToolGetResources:
		var args struct {
			GraphName string `json:"graphName"`
		}
		if err := decodeArguments(arguments, &args); err != nil {
			return nil, err
		}
		return s.queries.Resources(ctx, args.GraphName)
	default:
		return nil, apperrors.Validation(fmt.Sprintf("Unknown tool: %s", name))
	}
}

func decodeArguments(raw json.RawMessage, target any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return apperrors.Validation(fmt.Sprintf("Invalid tool arguments: %v", err))
	}
	return nil
}

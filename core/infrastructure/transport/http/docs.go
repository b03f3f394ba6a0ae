package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pb33f/libopenapi"

	"github.com/falkordb/falkordb-mcp/core/application/services"
)

func (h *mcpHandler) docs(w http.ResponseWriter, r *http.Request) {
	h.docsOnce.Do(func() {
		h.docsBody, h.docsErr = GenerateOpenAPISpec(h.deps.BaseURL)
	})
	if h.docsErr != nil {
		h.WriteError(w, h.docsErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.docsBody)
}

// GenerateOpenAPISpec describes the gateway's HTTP surface as an OpenAPI 3
// document and validates it with libopenapi before returning it.
func GenerateOpenAPISpec(baseURL string) ([]byte, error) {
	if baseURL == "" {
		baseURL = "http://localhost:" + DefaultPort
	}

	errorResponse := map[string]any{
		"description": "Error",
		"content":     jsonContent(ref("ErrorResponse")),
	}
	ok := func(description string, schema map[string]any) map[string]any {
		return map[string]any{"description": description, "content": jsonContent(schema)}
	}
	secured := []map[string]any{{"bearerAuth": []string{}}}

	envelope := func(typ string, data map[string]any) map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type":   map[string]any{"type": "string", "example": typ},
				"status": map[string]any{"type": "string", "example": "success"},
				"data":   data,
			},
		}
	}
	get := func(summary string, response map[string]any) map[string]any {
		return map[string]any{
			"get": map[string]any{
				"summary":  summary,
				"security": secured,
				"responses": map[string]any{
					"200": response,
					"401": errorResponse,
					"500": errorResponse,
				},
			},
		}
	}
	post := func(summary string, typ string) map[string]any {
		return map[string]any{
			"post": map[string]any{
				"summary":  summary,
				"security": secured,
				"requestBody": map[string]any{
					"required": true,
					"content":  jsonContent(ref("QueryRequest")),
				},
				"responses": map[string]any{
					"200": ok("Query result", envelope(typ, ref("GraphQueryResult"))),
					"400": errorResponse,
					"401": errorResponse,
					"500": errorResponse,
				},
			},
		}
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "FalkorDB MCP Server",
			"version":     services.ProtocolVersion,
			"description": "Query FalkorDB over HTTP and follow query lifecycles as server-sent events.",
		},
		"servers": []map[string]any{{"url": baseURL}},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer"},
			},
			"schemas": map[string]any{
				"ErrorResponse": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status": map[string]any{"type": "string", "example": "error"},
						"error":  map[string]any{"type": "string"},
					},
				},
				"QueryRequest": map[string]any{
					"type":     "object",
					"required": []string{"query"},
					"properties": map[string]any{
						"query":      map[string]any{"type": "string", "example": "MATCH (n) RETURN n LIMIT 10"},
						"parameters": map[string]any{"type": "object", "additionalProperties": true},
						"graphName":  map[string]any{"type": "string"},
					},
				},
				"GraphQueryResult": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"headers":  stringArray(),
						"data":     map[string]any{"type": "array", "items": map[string]any{"type": "array", "items": map[string]any{}}},
						"metadata": stringArray(),
					},
				},
				"GraphDescriptor": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":     map[string]any{"type": "string"},
						"type":     map[string]any{"type": "string", "example": "property"},
						"directed": map[string]any{"type": "boolean"},
					},
				},
			},
		},
		"paths": map[string]any{
			"/health": map[string]any{
				"get": map[string]any{
					"summary":   "Liveness probe",
					"responses": map[string]any{"200": ok("Alive", map[string]any{"type": "object"})},
				},
			},
			APIPrefix + "/ready":        get("Readiness probe; checks the database", ok("Ready", map[string]any{"type": "object"})),
			APIPrefix + "/capabilities": get("Protocol capabilities", ok("Capabilities", map[string]any{"type": "object"})),
			APIPrefix + "/tools":        get("Available MCP tools", ok("Tools", map[string]any{"type": "object"})),
			APIPrefix + "/metadata":     get("Database metadata", ok("Metadata", envelope("metadata", map[string]any{"type": "object"}))),
			APIPrefix + "/graphs":       get("List graphs", ok("Graphs", envelope("graphs", map[string]any{"type": "array", "items": ref("GraphDescriptor")}))),
			APIPrefix + "/resources": func() map[string]any {
				op := get("Graph resources", ok("Resources", envelope("resources", map[string]any{"type": "object"})))
				op["get"].(map[string]any)["parameters"] = []map[string]any{{
					"name":   "graphName",
					"in":     "query",
					"schema": map[string]any{"type": "string"},
				}}
				return op
			}(),
			APIPrefix + "/context": post("Execute a query and broadcast its lifecycle", "context"),
			APIPrefix + "/query":   post("Execute a query without broadcasting", "query"),
			APIPrefix + "/stream": map[string]any{
				"get": map[string]any{
					"summary":  "Lifecycle event stream",
					"security": secured,
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Server-sent events, one JSON object per data line",
							"content":     map[string]any{"text/event-stream": map[string]any{"schema": map[string]any{"type": "string"}}},
						},
						"401": errorResponse,
						"503": errorResponse,
					},
				},
			},
		},
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI spec: %w", err)
	}

	document, err := libopenapi.NewDocument(specJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create libopenapi document: %w", err)
	}
	if _, err = document.BuildV3Model(); err != nil {
		return nil, fmt.Errorf("failed to build v3 model (validation error): %w", err)
	}

	return specJSON, nil
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

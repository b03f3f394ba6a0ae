package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/falkordb/falkordb-mcp/core/application/services"
	"github.com/falkordb/falkordb-mcp/core/logger"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      any           `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC 2.0 error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2024-11-05": true,
}

const latestProtocolVersion = "2025-03-26"

// rpc serves JSON-RPC 2.0 over POST. Notifications are acknowledged with 202.
func (h *mcpHandler) rpc(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.WriteError(w, apperrors.Validation("Failed to read request body"))
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.WriteJSON(w, http.StatusBadRequest, JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &JSONRPCError{Code: JSONRPCParseError, Message: "Parse error"},
		})
		return
	}

	if req.Method == "initialize" {
		w.Header().Set("Mcp-Session-Id", generateSessionID())
	}

	response := handleJSONRPC(r.Context(), h.deps.MCP, req)
	if req.ID == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	h.WriteSuccess(w, response)
}

// handleJSONRPC dispatches one request to the MCP service.
func handleJSONRPC(ctx context.Context, mcp *services.MCPService, req JSONRPCRequest) JSONRPCResponse {
	log := logger.New("rpc")
	log.Debugf("JSON-RPC method: %s", req.Method)

	response := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}

	if req.JSONRPC != "2.0" {
		log.Warnf("Invalid JSON-RPC version: %s", req.JSONRPC)
		response.Error = &JSONRPCError{
			Code:    JSONRPCInvalidRequest,
			Message: "Invalid Request: jsonrpc must be '2.0'",
		}
		return response
	}

	switch req.Method {
	case "initialize":
		var params struct {
			ProtocolVersion string `json:"protocolVersion"`
			ClientInfo      struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"clientInfo"`
		}
		if hasParams(req.Params) {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				response.Error = invalidParams(err)
				return response
			}
			log.Debugf("Client info: %s %s", params.ClientInfo.Name, params.ClientInfo.Version)
		}

		protocolVersion := params.ProtocolVersion
		if !supportedProtocolVersions[protocolVersion] {
			if protocolVersion != "" {
				log.Warnf("Unsupported protocol version requested: %s, using %s", protocolVersion, latestProtocolVersion)
			}
			protocolVersion = latestProtocolVersion
		}

		response.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "falkordb-mcp",
				"version": services.ProtocolVersion,
			},
		}
		log.Infof("MCP session initialized")

	case "initialized", "notifications/initialized", "ping":
		response.Result = map[string]any{}

	case "tools/list":
		tools := mcp.ListTools()
		out := make([]map[string]any, len(tools))
		for i, tool := range tools {
			out[i] = map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"inputSchema": tool.Parameters,
			}
		}
		response.Result = map[string]any{"tools": out}

	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			response.Error = invalidParams(err)
			return response
		}
		if params.Name == "" {
			response.Error = &JSONRPCError{
				Code:    JSONRPCInvalidParams,
				Message: "Invalid params: 'name' is required",
			}
			return response
		}

		log.Infof("Calling MCP tool: %s", params.Name)
		response.Result = callTool(ctx, mcp, params.Name, params.Arguments)

	default:
		log.Warnf("Method not found: %s", req.Method)
		response.Error = &JSONRPCError{
			Code:    JSONRPCMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return response
}

// callTool reports tool failures in the result with isError set, so the
// client sees them as tool output rather than protocol errors.
func callTool(ctx context.Context, mcp *services.MCPService, name string, arguments json.RawMessage) map[string]any {
	text := func(s string) []map[string]any {
		return []map[string]any{{"type": "text", "text": s}}
	}

	out, err := mcp.CallTool(ctx, name, arguments)
	if err != nil {
		errorJSON, _ := json.Marshal(map[string]string{"error": apperrors.MessageOf(err)})
		return map[string]any{"content": text(string(errorJSON)), "isError": true}
	}

	resultJSON, err := json.Marshal(out)
	if err != nil {
		return map[string]any{"content": text(`{"error":"failed to serialize results"}`), "isError": true}
	}
	return map[string]any{"content": text(string(resultJSON)), "isError": false}
}

func hasParams(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func invalidParams(err error) *JSONRPCError {
	return &JSONRPCError{Code: JSONRPCInvalidParams, Message: "Invalid params", Data: err.Error()}
}

func generateSessionID() string {
	return uuid.NewString()
}

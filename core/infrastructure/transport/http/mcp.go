package http

import (
	"net/http"
	"sync"

	"github.com/falkordb/falkordb-mcp/core/application/services"
	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/dto"
	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/handlers"
)

type mcpHandler struct {
	*handlers.BaseHandler
	deps Deps

	docsOnce sync.Once
	docsBody []byte
	docsErr  error
}

func newMCPHandler(deps Deps) *mcpHandler {
	return &mcpHandler{
		BaseHandler: handlers.NewBaseHandler("mcp"),
		deps:        deps,
	}
}

func (h *mcpHandler) root(w http.ResponseWriter, r *http.Request) {
	info := h.deps.Info
	h.WriteSuccess(w, dto.NewServerInfo(info.Name, info.Version, info.Environment, info.Started))
}

// health is liveness only; it never touches the store.
func (h *mcpHandler) health(w http.ResponseWriter, r *http.Request) {
	h.WriteSuccess(w, dto.HealthResponse{Status: "ok"})
}

func (h *mcpHandler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Queries.Ready(r.Context()); err != nil {
		h.Logger().Warnf("Readiness check failed: %v", err)
		h.WriteJSON(w, http.StatusServiceUnavailable, dto.ReadyResponse{Status: "unhealthy", Database: "disconnected"})
		return
	}
	h.WriteSuccess(w, dto.ReadyResponse{Status: "healthy", Database: "connected"})
}

func (h *mcpHandler) capabilities(w http.ResponseWriter, r *http.Request) {
	h.WriteSuccess(w, dto.CapabilitiesResponse{
		Status:       dto.StatusSuccess,
		Version:      services.ProtocolVersion,
		Protocol:     services.ProtocolName,
		Capabilities: h.deps.MCP.Capabilities(),
	})
}

func (h *mcpHandler) tools(w http.ResponseWriter, r *http.Request) {
	h.WriteSuccess(w, dto.ToolsResponse{Status: dto.StatusSuccess, Tools: h.deps.MCP.ListTools()})
}

func (h *mcpHandler) metadata(w http.ResponseWriter, r *http.Request) {
	h.WriteSuccess(w, dto.NewEnvelope("metadata", h.deps.Queries.Metadata(r.Context())))
}

func (h *mcpHandler) graphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.deps.Queries.ListGraphs(r.Context())
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, dto.NewEnvelope("graphs", graphs))
}

func (h *mcpHandler) resources(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Queries.Resources(r.Context(), r.URL.Query().Get("graphName"))
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, dto.NewEnvelope("resources", res))
}

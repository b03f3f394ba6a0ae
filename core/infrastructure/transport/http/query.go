package http

import (
	"net/http"

	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/dto"
)

// context runs a query and broadcasts its lifecycle to open streams. The
// response body carries the same result as the terminal event.
func (h *mcpHandler) context(w http.ResponseWriter, r *http.Request) {
	var req dto.ContextRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, err)
		return
	}

	result, err := h.deps.Queries.Submit(r.Context(), req.ToDomain())
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, dto.NewEnvelope("context", result))
}

// query runs a query without notifying stream subscribers.
func (h *mcpHandler) query(w http.ResponseWriter, r *http.Request) {
	var req dto.ContextRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, err)
		return
	}

	result, err := h.deps.Queries.Execute(r.Context(), req.ToDomain())
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, dto.NewEnvelope("query", result))
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/falkordb/falkordb-mcp/core/application/events"
	"github.com/falkordb/falkordb-mcp/core/domain"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

// stream relays hub events to the client as server-sent events until the
// client leaves, a write fails, the hub drops the subscriber or the server
// shuts down. The subscription is released exactly once on every path.
func (h *mcpHandler) stream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.deps.Hub.Subscribe()
	if err != nil {
		if errors.Is(err, events.ErrSubscriberLimit) {
			h.WriteError(w, apperrors.NewAppError(apperrors.ErrCodeSubscriberLimit, "Too many stream subscribers", err))
			return
		}
		h.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": "Server is shutting down"})
		return
	}
	defer sub.Close()

	log := h.Logger().With("subscriber", sub.ID())
	log.Infof("Stream opened")
	defer log.Infof("Stream closed")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		log.Errorf("Streaming unsupported: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.deps.ShutdownCtx.Done():
			return
		case <-sub.Done():
			return
		case event := <-sub.Events():
			if err := writeEvent(w, rc, event); err != nil {
				log.Debugf("%v", apperrors.NewAppError(apperrors.ErrCodeStreamWriteError, "write failed", err))
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event domain.LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return rc.Flush()
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/dto"
	"github.com/falkordb/falkordb-mcp/core/logger"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	logger logger.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(tag string) *BaseHandler {
	return &BaseHandler{
		logger: logger.New(tag),
	}
}

// Logger returns the handler's logger.
func (h *BaseHandler) Logger() logger.Logger {
	return h.logger
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, data)
}

// WriteError writes {status:"error", error} with the status mapped from err.
// Unknown errors become 500s.
func (h *BaseHandler) WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewAppError(apperrors.ErrCodeInternalError, err.Error(), err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Errorf("%v", appErr)
	} else {
		h.logger.Debugf("Request rejected: %v", appErr)
	}
	WriteJSON(w, appErr.Status, dto.NewErrorResponse(appErr.Message))
}

// WriteSuccess writes a success response
func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// DecodeJSON reads a JSON body into target. An empty body leaves target
// untouched.
func (h *BaseHandler) DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.Validation("Request body too large")
		}
		return apperrors.Validation("Invalid JSON body")
	}
	return nil
}

// WriteJSON encodes data as the response body.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.New("http").Errorf("Failed to encode JSON response: %v", err)
	}
}

package web

// errors.go provides unified error response handling for the API.
// Every error is logged with full technical detail server-side and
// returned to the client as a user-facing message with a support code.

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/registry"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError maps err to a user-facing message, logs the technical
// detail with the request id, and writes the JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := importer.MapError(err)

	s.logger.Error("request error",
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("code", userMsg.Code),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	respondErrorJSON(w, userMsg, statusCode)
}

func respondErrorJSON(w http.ResponseWriter, msg importer.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for a pipeline error.
func statusFor(err error) int {
	var (
		unknownEntity *registry.UnknownEntityTypeError
		parseErr      *importer.FileParseError
		missingCols   *importer.MissingColumnsError
	)
	switch {
	case errors.As(err, &unknownEntity):
		return http.StatusNotFound
	case errors.As(err, &parseErr), errors.As(err, &missingCols):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it to w. Encoding errors are
// logged since headers are already sent.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json encode error", slog.String("error", err.Error()))
	}
}

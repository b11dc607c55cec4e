package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// RespondJSON writes v as a JSON response body.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", slog.Any("error", err))
	}
}

// RespondError translates err into a JSON error body. Unexpected errors are
// logged and masked as 500s.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if logger != nil {
			logger.Error("unexpected error", slog.Any("error", err))
		}
		apiErr = ServerError()
	}
	RespondJSON(w, apiErr.Status, apiErr)
}

// Message is a trivial JSON body for success responses without a payload.
type Message struct {
	Message string `json:"message"`
}

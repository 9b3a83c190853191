package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/goactivity/activity"
)

// ErrorResponse is returned when a request is rejected.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeError maps store rejections and malformed bodies to 400 responses.
// Anything else is an internal failure.
func writeError(w http.ResponseWriter, err error) {
	var storeErr *activity.Error
	if errors.As(err, &storeErr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: storeErr.Message,
			Kind:  string(storeErr.Kind),
		})
		return
	}
	var bodyErr *bodyError
	if errors.As(err, &bodyErr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: bodyErr.msg,
			Kind:  kindInvalidBody,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

// resultLabel is the metric label for the outcome of an operation.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var storeErr *activity.Error
	if errors.As(err, &storeErr) {
		return string(storeErr.Kind)
	}
	var bodyErr *bodyError
	if errors.As(err, &bodyErr) {
		return kindInvalidBody
	}
	return "error"
}

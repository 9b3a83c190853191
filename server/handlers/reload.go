package handlers

import (
	"log/slog"
	"net/http"
)

// ReloadResponse reports the settings applied by a reload.
type ReloadResponse struct {
	LogLevel string `json:"log_level"`
}

// ReloadHandler handles requests to reload configuration from disk.
type ReloadHandler struct {
	logger   *slog.Logger
	reloader Reloader
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(logger *slog.Logger, reloader Reloader) *ReloadHandler {
	return &ReloadHandler{
		logger:   logger,
		reloader: reloader,
	}
}

// ServeHTTP implements http.Handler.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("reloading configuration")

	if err := h.reloader.Reload(); err != nil {
		h.logger.Error("failed to reload configuration", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to reload configuration: " + err.Error(),
		})
		return
	}

	level := h.reloader.LogLevel()
	h.logger.Info("configuration reloaded successfully", "log_level", level)
	writeJSON(w, http.StatusOK, ReloadResponse{LogLevel: level})
}

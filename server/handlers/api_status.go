package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/goactivity/buildinfo"
)

// ServerProperties holds metadata about the running server instance.
type ServerProperties struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
}

// ActivityCounts summarises the store.
type ActivityCounts struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	NextID     int            `json:"next_id"`
}

// NextPushResponse describes the metrics push schedule.
type NextPushResponse struct {
	Scheduled bool       `json:"scheduled"`
	NextPush  *time.Time `json:"next_push,omitempty"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server     ServerProperties `json:"server"`
	Activities ActivityCounts   `json:"activities"`
	Metrics    NextPushResponse `json:"metrics"`
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider StatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider StatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats := h.provider.Stats()
	byCategory := make(map[string]int, len(stats.ByCategory))
	for c, n := range stats.ByCategory {
		byCategory[c.String()] = n
	}

	nextPush := h.provider.NextPush()
	resp := APIStatusResponse{
		Server: h.provider.Properties(),
		Activities: ActivityCounts{
			Total:      stats.Total,
			ByCategory: byCategory,
			NextID:     stats.NextID,
		},
		Metrics: NextPushResponse{
			Scheduled: nextPush != nil,
			NextPush:  nextPush,
		},
	}

	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"net/http"
	"time"
)

// StatsProvider exposes a point-in-time view of the service's pipeline.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a stats handler backed by provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, now: time.Now}
}

// HandleStats writes the provider's snapshot stamped with the time it was taken.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.provider.GetStats()
	out := make(map[string]interface{}, len(snapshot)+1)
	for k, v := range snapshot {
		out[k] = v
	}
	out["collectedAt"] = h.now().UTC()
	writeJSON(w, http.StatusOK, out)
}

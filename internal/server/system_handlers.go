package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/adbudget/internal/cache"
)

// SystemHandlers serves system-wide monitoring endpoints.
type SystemHandlers struct {
	resultCache *cache.Cache
	startupTime time.Time
	log         zerolog.Logger
}

// NewSystemHandlers creates the system monitoring handlers.
func NewSystemHandlers(resultCache *cache.Cache, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		resultCache: resultCache,
		startupTime: time.Now(),
		log:         log.With().Str("component", "system_handlers").Logger(),
	}
}

// HandleHealth handles GET /api/system/health - uptime plus host resource
// usage and cache occupancy.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startupTime).Round(time.Second).String(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response["cpu_percent"] = percents[0]
	}
	if h.resultCache != nil {
		response["cache_entries"] = h.resultCache.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}

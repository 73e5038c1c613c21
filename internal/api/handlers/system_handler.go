package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a snapshot of the host the service runs on.
type SystemStats struct {
	CPUCount      int     `json:"cpu_count"`
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

// SystemHandler reports host resource usage to operators.
type SystemHandler struct{}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// GetStats samples host memory, CPU count and uptime.
func (h *SystemHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	stats, err := sampleSystem(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sample host stats")
		http.Error(w, "Failed to read system stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func sampleSystem(ctx context.Context) (SystemStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return SystemStats{}, err
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	return SystemStats{
		CPUCount:      cpus,
		MemoryTotal:   vm.Total,
		MemoryUsed:    vm.Used,
		MemoryPercent: vm.UsedPercent,
		UptimeSeconds: uptime,
	}, nil
}

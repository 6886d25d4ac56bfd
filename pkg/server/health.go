package server

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"
)

// ServiceName is reported by the health endpoint
const ServiceName = "multi-shot-scanner"

// Health is the body of the health endpoint
type Health struct {
	Status    string        `json:"status"`
	Timestamp float64       `json:"timestamp"`
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Memory    *MemoryStats  `json:"memory,omitempty"`
	Backend   *BackendState `json:"backend,omitempty"`
}

// MemoryStats summarizes host memory
type MemoryStats struct {
	Total       string  `json:"total"`
	Available   string  `json:"available"`
	UsedPercent float64 `json:"usedPercent"`
}

// BackendState reports whether the vision backend answered a ping
type BackendState struct {
	Name      string `json:"name"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	h := Health{
		Status:    "healthy",
		Timestamp: unixSeconds(s.now()),
		Service:   ServiceName,
		Version:   s.version,
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.Memory = &MemoryStats{
			Total:       humanize.Bytes(vm.Total),
			Available:   humanize.Bytes(vm.Available),
			UsedPercent: vm.UsedPercent,
		}
	} else {
		s.logger.Debug("memory stats unavailable", "error", err)
	}

	if s.analysis != nil {
		state := &BackendState{Name: s.analysis.Backend(), Reachable: true}
		if err := s.analysis.Ping(ctx); err != nil {
			state.Reachable = false
			state.Error = err.Error()
			h.Status = "degraded"
		}
		h.Backend = state
	}

	writeJSON(w, http.StatusOK, h)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

package http

import (
	"context"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks storage and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not_checked"
	}

	stats := s.dashboards.Stats()
	checks["cache"] = map[string]any{
		"entries": stats.Size,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.activeClients(),
		"rejected":       s.rateLimiter.rejected(),
	}
	checks["security"] = map[string]any{
		"suspicious_requests": s.suspicious.Load(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

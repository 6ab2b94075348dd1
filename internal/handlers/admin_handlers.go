package handlers

import (
	"net/http"

	"fernpost/internal/engine/actors"
	"fernpost/internal/utils"
)

// HandleHealth reports liveness plus basic content counts, which doubles as
// a storage reachability check.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.ask(s.Engine.GetPostActor(), &actors.GetCountsMsg{})
		if err != nil {
			s.renderContext(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  utils.NewActorTimeoutError("PostActor").Message,
			})
			return
		}
		if appErr, ok := result.(*utils.AppError); ok {
			s.renderContext(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  appErr.Message,
			})
			return
		}
		counts := result.(*actors.Counts)

		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"posts":  counts.Posts,
			"groups": counts.Groups,
		})
	}
}

// HandleMetrics exposes the latency histograms and request counters.
func (s *Server) HandleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operations, requests, errors, uptime := s.Metrics.Snapshot()
		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"operations":    operations,
			"requests":      requests,
			"errors":        errors,
			"uptimeSeconds": int64(uptime.Seconds()),
		})
	}
}

// HandleCacheClear drops every cached index page so edits show up
// immediately instead of waiting out the TTL.
func (s *Server) HandleCacheClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.IndexCache.Clear()
		s.renderContext(w, http.StatusOK, map[string]interface{}{
			"cleared": true,
		})
	}
}

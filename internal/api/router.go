package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{id}", s.handleGetDevice)
		})

		r.Post("/refresh", s.handleRefresh)
		r.Get("/commands", s.handleListCommands)
	})

	return r
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth returns the bridge health status. It answers 200 while
// degraded; only the body distinguishes the states.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, reason := s.bridge.Status()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(status),
		Reason:        reason,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// handleRefresh requests an immediate poll cycle.
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.bridge.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

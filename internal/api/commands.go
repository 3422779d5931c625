package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/cast-bridge/internal/audit"
)

// handleListCommands returns paginated command log entries with optional filters.
//
// Query parameters:
//   - route: refresh, assistant, siren or media
//   - device_id: filter by device
//   - failed: "true" for failed commands only
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeUnavailable(w, "command audit not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Route:    q.Get("route"),
		DeviceID: q.Get("device_id"),
	}

	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "failed must be a boolean")
			return
		}
		filter.Failed = failed
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command logs", "error", err)
		writeInternalError(w, "failed to list command logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

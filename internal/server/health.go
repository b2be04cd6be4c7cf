package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth reports dashboard health as JSON: local database state,
// applied migration count, and the last backend probe result. Unauthenticated
// so load balancers and uptime checks can hit it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbState := "ok"
	if err := s.db.Conn.PingContext(r.Context()); err != nil {
		status = "degraded"
		dbState = err.Error()
	}

	migrations, err := s.db.MigrationCount()
	if err != nil {
		status = "degraded"
	}

	backend := s.upstream.Get()
	if backend.State == "error" {
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"db":         dbState,
		"migrations": migrations,
		"backend":    backend,
	})
}

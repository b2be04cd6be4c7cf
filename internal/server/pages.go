package server

import (
	"net/http"

	"github.com/jameshendricken/iot-dashboard/internal/session"
)

type notFoundData struct {
	Nav  string
	User *session.Session
	Path string
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	s.render.render(w, "not_found.html", notFoundData{
		Nav:  "",
		User: sessionFromContext(r.Context()),
		Path: r.URL.Path,
	})
}

type consoleData struct {
	Nav      string
	User     *session.Session
	Backend  BackendStatus
	Activity []ActivityEvent
	Sessions int
}

// handleConsole renders the operations console: backend reachability,
// the recent activity feed, and the active session count.
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	count, err := s.sessions.Count()
	if err != nil {
		count = -1
	}

	s.render.render(w, "console.html", consoleData{
		Nav:      "console",
		User:     sessionFromContext(r.Context()),
		Backend:  s.upstream.Get(),
		Activity: s.activity.Recent(50),
		Sessions: count,
	})
}

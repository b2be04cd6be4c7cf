package server

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/jameshendricken/iot-dashboard/internal/aggregate"
	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/config"
	"github.com/jameshendricken/iot-dashboard/internal/db"
	"github.com/jameshendricken/iot-dashboard/internal/obs"
	"github.com/jameshendricken/iot-dashboard/internal/session"
	"github.com/jameshendricken/iot-dashboard/web"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	cfg      config.Config
	db       *db.DB
	sessions *session.Store
	backend  *api.Client
	devices  *aggregate.Pipeline // device telemetry, raw-reading strategy
	units    *aggregate.Pipeline // unit telemetry via the raw unit endpoint
	render   *renderer
	router   *http.ServeMux
	http     *http.Server
	upstream *backendMonitor
	activity *activityLog
	stopPoll chan struct{} // signals the backend poller to stop
}

// New creates a Server wired to the given database and backend client. It
// sets up routes and middleware but does not start listening.
func New(cfg config.Config, database *db.DB, backend *api.Client) (*Server, error) {
	mux := http.NewServeMux()

	rn, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		db:       database,
		sessions: session.NewStore(database.Conn, cfg.SessionTTL),
		backend:  backend,
		devices:  aggregate.New(&aggregate.RawSource{Client: backend}),
		units:    aggregate.New(&aggregate.UnitSource{Client: backend}),
		render:   rn,
		router:   mux,
		upstream: newBackendMonitor(),
		activity: newActivityLog(200),
		stopPoll: make(chan struct{}),
		http: &http.Server{
			Addr:         cfg.ListenAddr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second, // aggregations over "all data" can be slow
			IdleTimeout:  60 * time.Second,
		},
	}

	s.routes()
	s.staticFiles()

	// Custom 404 handler for unmatched routes.
	notFoundHandler := http.HandlerFunc(s.handleNotFound)
	handler := notFound(mux, notFoundHandler)

	// Wrap with middleware (outermost runs first). CORS covers the JSON
	// API consumed by external tooling; page routes are unaffected.
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.http.Handler = logging(recovery(obs.Instrument(c.Handler(handler))))

	return s, nil
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	log.Printf("dashboard listening on %s (backend %s)", s.http.Addr, s.cfg.APIBaseURL)
	return s.http.ListenAndServe()
}

// StartBackgroundJobs launches the backend poller. Call before Start().
func (s *Server) StartBackgroundJobs() {
	go s.backendPoller()
	s.activity.Logf("backend", "info", "Dashboard started, backend reachability checks active")
}

// Shutdown gracefully stops the HTTP server and background jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopPoll)
	return s.http.Shutdown(ctx)
}

// staticFiles registers the handler for serving embedded static assets.
func (s *Server) staticFiles() {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Fatalf("static fs: %v", err)
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
}

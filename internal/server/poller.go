package server

import (
	"context"
	"log"
	"time"
)

const backendProbeTimeout = 15 * time.Second

// backendPoller runs in a goroutine and periodically probes the remote
// backend, updating the monitor and the activity feed. It also purges
// expired sessions on each tick.
func (s *Server) backendPoller() {
	// Probe once right after startup.
	s.probeBackend()

	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPoll:
			log.Println("[health] backend poller stopped")
			return
		case <-ticker.C:
			s.probeBackend()
			if n, err := s.sessions.PurgeExpired(); err == nil && n > 0 {
				log.Printf("[sessions] purged %d expired", n)
			}
		}
	}
}

// probeBackend performs one reachability check against the backend.
func (s *Server) probeBackend() {
	prev := s.upstream.Get()
	s.upstream.Set(BackendStatus{State: "checking", CheckedAt: time.Now().UTC(), ConsecFails: prev.ConsecFails})

	ctx, cancel := context.WithTimeout(context.Background(), backendProbeTimeout)
	defer cancel()

	start := time.Now()
	err := s.backend.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		s.upstream.Set(BackendStatus{
			State:       "error",
			Error:       err.Error(),
			CheckedAt:   time.Now().UTC(),
			Latency:     latency,
			ConsecFails: prev.ConsecFails + 1,
		})
		s.activity.Logf("backend", "error", "Backend unreachable (%s): %s", latency.Round(time.Millisecond), err)
		log.Printf("[health] backend: FAIL (%s): %v", latency.Round(time.Millisecond), err)
		return
	}

	s.upstream.Set(BackendStatus{
		State:     "connected",
		CheckedAt: time.Now().UTC(),
		Latency:   latency,
	})
	if prev.State != "connected" {
		s.activity.Logf("backend", "success", "Backend connected (%s)", latency.Round(time.Millisecond))
	}
	log.Printf("[health] backend: OK (%s)", latency.Round(time.Millisecond))
}

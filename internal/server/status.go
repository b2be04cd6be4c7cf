package server

import (
	"fmt"
	"sync"
	"time"
)

// BackendStatus is the dashboard's view of the remote backend's
// reachability.
type BackendStatus struct {
	State       string        `json:"state"` // "connected", "error", "unchecked", "checking"
	Error       string        `json:"error,omitempty"`
	CheckedAt   time.Time     `json:"checked_at"`
	Latency     time.Duration `json:"latency"`
	ConsecFails int           `json:"consec_fails"`
}

// backendMonitor holds the latest BackendStatus, safe for concurrent use.
type backendMonitor struct {
	mu     sync.RWMutex
	status BackendStatus
}

func newBackendMonitor() *backendMonitor {
	return &backendMonitor{status: BackendStatus{State: "unchecked"}}
}

func (m *backendMonitor) Set(s BackendStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

func (m *backendMonitor) Get() BackendStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// ── Activity Log ────────────────────────────────────────────────────────

// ActivityEvent is a single entry in the activity feed: logins, fetches,
// saves, backend probes.
type ActivityEvent struct {
	Time    time.Time `json:"time"`
	Area    string    `json:"area"` // "auth", "telemetry", "admin", "backend"
	Type    string    `json:"type"` // "info", "success", "error", "warning"
	Message string    `json:"message"`
}

// activityLog is a thread-safe ring buffer of recent events.
type activityLog struct {
	mu     sync.RWMutex
	events []ActivityEvent
	cap    int
	seq    int64 // monotonic, for cheap change detection in polling views
}

func newActivityLog(capacity int) *activityLog {
	return &activityLog{
		events: make([]ActivityEvent, 0, capacity),
		cap:    capacity,
	}
}

// Add appends an event, evicting the oldest once at capacity.
func (al *activityLog) Add(e ActivityEvent) {
	al.mu.Lock()
	defer al.mu.Unlock()
	if len(al.events) >= al.cap {
		al.events = al.events[1:]
	}
	al.events = append(al.events, e)
	al.seq++
}

// Recent returns up to n most recent events, newest first.
func (al *activityLog) Recent(n int) []ActivityEvent {
	al.mu.RLock()
	defer al.mu.RUnlock()

	total := len(al.events)
	if n > total {
		n = total
	}
	out := make([]ActivityEvent, n)
	for i := 0; i < n; i++ {
		out[i] = al.events[total-1-i]
	}
	return out
}

// Seq returns the current sequence number.
func (al *activityLog) Seq() int64 {
	al.mu.RLock()
	defer al.mu.RUnlock()
	return al.seq
}

// Logf creates and adds an event.
func (al *activityLog) Logf(area, eventType, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	al.Add(ActivityEvent{
		Time:    time.Now().UTC(),
		Area:    area,
		Type:    eventType,
		Message: msg,
	})
}

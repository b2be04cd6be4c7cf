package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/aggregate"
	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/session"
)

// telemetryFilters are the query parameters shared by the device and unit
// dashboards and their CSV exports.
type telemetryFilters struct {
	Selection string
	Preset    aggregate.RangePreset
	StartRaw  string
	EndRaw    string
	Start     *time.Time
	End       *time.Time
}

func parseTelemetryFilters(r *http.Request) telemetryFilters {
	q := r.URL.Query()
	f := telemetryFilters{
		Selection: q.Get("entity"),
		Preset:    aggregate.RangePreset(q.Get("range")),
		StartRaw:  q.Get("start"),
		EndRaw:    q.Get("end"),
	}
	if f.Selection == "" {
		f.Selection = aggregate.SelectionAll
	}
	if f.Preset == "" {
		f.Preset = aggregate.RangeAll
	}
	if t, err := time.ParseInLocation("2006-01-02", f.StartRaw, time.UTC); err == nil {
		f.Start = &t
	}
	if t, err := time.ParseInLocation("2006-01-02", f.EndRaw, time.UTC); err == nil {
		f.End = &t
	}
	return f
}

// Is reports whether the active preset matches, for template selection
// state.
func (f telemetryFilters) Is(preset string) bool {
	return string(f.Preset) == preset
}

// IsSelected reports whether the given entity ID is the active selection.
func (f telemetryFilters) IsSelected(id string) bool {
	return f.Selection == id
}

// telemetryData is the template data for both telemetry dashboards.
type telemetryData struct {
	Nav       string
	User      *session.Session
	Title     string
	ExportURL string
	Entities  []aggregate.Entity
	AllLabel  string
	Filters   telemetryFilters
	Result    *aggregate.Result
	Recent    []api.Reading // newest first, capped for display
	MaxBucket float64
	Error     string
}

const recentReadingsShown = 100

// handleDashboard renders the device telemetry dashboard: catalog fetch,
// aggregation over the selected range, KPI cards, and the daily histogram.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := telemetryData{
		Nav:       "dashboard",
		User:      sessionFromContext(r.Context()),
		Title:     "Device Data Dashboard",
		ExportURL: "/dashboard/export.csv",
		AllLabel:  "All Devices",
		Filters:   parseTelemetryFilters(r),
		Result:    s.devices.Latest(),
	}

	devices, err := s.backend.Devices(r.Context())
	if err != nil {
		data.Error = "Failed to fetch device list."
		s.activity.Logf("telemetry", "error", "Device list fetch failed: %s", err)
		s.finishTelemetry(w, &data)
		return
	}
	for _, d := range devices {
		data.Entities = append(data.Entities, aggregate.Entity{ID: d.DeviceID, Name: d.Name})
	}

	s.runTelemetry(w, r, &data, s.devices, "Failed to fetch device data.")
}

// runTelemetry resolves the date range and executes one aggregation,
// filling in the template data. A custom range with a missing bound skips
// the fetch entirely; a failed invocation keeps the previously committed
// result and shows a banner.
func (s *Server) runTelemetry(w http.ResponseWriter, r *http.Request, data *telemetryData, pipe *aggregate.Pipeline, fetchErrMsg string) {
	start, end, err := aggregate.ResolveRange(data.Filters.Preset, time.Now(), data.Filters.Start, data.Filters.End)
	if err != nil {
		// Incomplete custom range: not an error, just nothing to do yet.
		s.finishTelemetry(w, data)
		return
	}

	res, err := pipe.Run(r.Context(), data.Filters.Selection, data.Entities, start, end)
	if err != nil {
		if !errors.Is(err, aggregate.ErrStale) {
			data.Error = fetchErrMsg
			s.activity.Logf("telemetry", "error", "Aggregation failed for %s: %s", data.Filters.Selection, err)
		}
		data.Result = pipe.Latest()
		s.finishTelemetry(w, data)
		return
	}

	data.Result = res
	s.finishTelemetry(w, data)
}

func (s *Server) finishTelemetry(w http.ResponseWriter, data *telemetryData) {
	if data.Result != nil {
		for _, b := range data.Result.Histogram {
			if b.TotalVolumeML > data.MaxBucket {
				data.MaxBucket = b.TotalVolumeML
			}
		}
		readings := data.Result.Readings
		for i := len(readings) - 1; i >= 0 && len(data.Recent) < recentReadingsShown; i-- {
			data.Recent = append(data.Recent, readings[i])
		}
	}
	s.render.render(w, "telemetry.html", data)
}

package server

import (
	"net/http"
	"strconv"

	"github.com/jameshendricken/iot-dashboard/internal/aggregate"
)

// handleUnits renders the unit telemetry dashboard. It is the same screen
// as the device dashboard backed by the unit raw-data endpoint; unit IDs
// are numeric on the wire.
func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	data := telemetryData{
		Nav:       "units",
		User:      sessionFromContext(r.Context()),
		Title:     "Unit Data Dashboard",
		ExportURL: "/units/export.csv",
		AllLabel:  "All Units",
		Filters:   parseTelemetryFilters(r),
		Result:    s.units.Latest(),
	}

	units, err := s.backend.Units(r.Context())
	if err != nil {
		data.Error = "Failed to fetch unit list."
		s.activity.Logf("telemetry", "error", "Unit list fetch failed: %s", err)
		s.finishTelemetry(w, &data)
		return
	}
	for _, u := range units {
		data.Entities = append(data.Entities, aggregate.Entity{ID: strconv.FormatInt(u.ID, 10), Name: u.Name})
	}

	s.runTelemetry(w, r, &data, s.units, "Failed to fetch unit data.")
}

package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/aggregate"
	"github.com/jameshendricken/iot-dashboard/internal/api"
)

// handleDashboardExport streams the current device selection's readings as
// CSV. Fields are properly quoted, so names or notes containing commas
// survive the round trip.
func (s *Server) handleDashboardExport(w http.ResponseWriter, r *http.Request) {
	filters := parseTelemetryFilters(r)

	devices, err := s.backend.Devices(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch device list.", http.StatusBadGateway)
		return
	}
	entities := make([]aggregate.Entity, 0, len(devices))
	for _, d := range devices {
		entities = append(entities, aggregate.Entity{ID: d.DeviceID, Name: d.Name})
	}

	res, ok := s.exportAggregation(w, r, filters, entities, s.devices)
	if !ok {
		return
	}

	writeReadingsCSV(w, filters.Selection, res.Readings, false)
}

// handleUnitsExport streams the unit selection's readings, including the
// per-reading device columns the unit endpoint supplies.
func (s *Server) handleUnitsExport(w http.ResponseWriter, r *http.Request) {
	filters := parseTelemetryFilters(r)

	units, err := s.backend.Units(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch unit list.", http.StatusBadGateway)
		return
	}
	entities := make([]aggregate.Entity, 0, len(units))
	for _, u := range units {
		entities = append(entities, aggregate.Entity{ID: strconv.FormatInt(u.ID, 10), Name: u.Name})
	}

	res, ok := s.exportAggregation(w, r, filters, entities, s.units)
	if !ok {
		return
	}

	writeReadingsCSV(w, filters.Selection, res.Readings, true)
}

// exportAggregation runs a fresh aggregation for a CSV download, writing
// the HTTP error itself when the invocation cannot run or fails.
func (s *Server) exportAggregation(w http.ResponseWriter, r *http.Request, filters telemetryFilters, entities []aggregate.Entity, pipe *aggregate.Pipeline) (*aggregate.Result, bool) {
	start, end, err := aggregate.ResolveRange(filters.Preset, time.Now(), filters.Start, filters.End)
	if err != nil {
		http.Error(w, "Custom range requires both start and end dates.", http.StatusBadRequest)
		return nil, false
	}
	res, err := pipe.Run(r.Context(), filters.Selection, entities, start, end)
	if err != nil {
		http.Error(w, "Failed to fetch data.", http.StatusBadGateway)
		return nil, false
	}
	return res, true
}

func writeReadingsCSV(w http.ResponseWriter, selection string, readings []api.Reading, unitColumns bool) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_data.csv"`, selection))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if unitColumns {
		cw.Write([]string{"timestamp", "volume_ml", "device_id", "device_pk"})
		for _, rd := range readings {
			cw.Write([]string{
				rd.Timestamp.UTC().Format(time.RFC3339),
				strconv.FormatFloat(rd.VolumeML, 'f', -1, 64),
				rd.DeviceID,
				strconv.FormatInt(rd.DevicePK, 10),
			})
		}
		return
	}

	cw.Write([]string{"Timestamp", "Volume (mL)"})
	for _, rd := range readings {
		cw.Write([]string{
			rd.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rd.VolumeML, 'f', -1, 64),
		})
	}
}

// ── Admin list exports ──────────────────────────────────────────────────
// Each admin screen exports its current table, honouring the same search
// filter the screen applies, with the record's own column set.

func (s *Server) handleAdminDevicesExport(w http.ResponseWriter, r *http.Request) {
	devices, err := s.backend.AdminDevices(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch devices.", http.StatusBadGateway)
		return
	}

	needle := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	cw := beginCSVExport(w, "devices_export.csv")
	defer cw.Flush()

	cw.Write([]string{"device_id", "name", "organisation_id"})
	for _, d := range devices {
		org := ""
		if d.OrganisationID != nil {
			org = strconv.FormatInt(*d.OrganisationID, 10)
		}
		if needle != "" && !matchesAny(needle, d.Name, d.DeviceID, org) {
			continue
		}
		cw.Write([]string{d.DeviceID, d.Name, org})
	}
}

func (s *Server) handleAdminUsersExport(w http.ResponseWriter, r *http.Request) {
	users, err := s.backend.Users(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch users.", http.StatusBadGateway)
		return
	}

	needle := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	cw := beginCSVExport(w, "users_export.csv")
	defer cw.Flush()

	cw.Write([]string{"id", "email", "name", "organisation_id", "roles_id"})
	for _, u := range users {
		org, role := "", ""
		if u.OrganisationID != nil {
			org = strconv.FormatInt(*u.OrganisationID, 10)
		}
		if u.RolesID != nil {
			role = strconv.FormatInt(*u.RolesID, 10)
		}
		if needle != "" && !matchesAny(needle, u.Name, u.Email) {
			continue
		}
		cw.Write([]string{strconv.FormatInt(u.ID, 10), u.Email, u.Name, org, role})
	}
}

func (s *Server) handleAdminOrgsExport(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.backend.Organisations(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch organisations.", http.StatusBadGateway)
		return
	}

	needle := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	cw := beginCSVExport(w, "organisations_export.csv")
	defer cw.Flush()

	cw.Write([]string{"id", "name", "notes"})
	for _, o := range orgs {
		notes := ""
		if o.Notes != nil {
			notes = *o.Notes
		}
		if needle != "" && !matchesAny(needle, o.Name, notes, strconv.FormatInt(o.ID, 10)) {
			continue
		}
		cw.Write([]string{strconv.FormatInt(o.ID, 10), o.Name, notes})
	}
}

func beginCSVExport(w http.ResponseWriter, filename string) *csv.Writer {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	return csv.NewWriter(w)
}

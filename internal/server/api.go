package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/aggregate"
)

// apiResponse is the envelope for all JSON API responses.
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiResponse{OK: true, Data: data})
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{OK: false, Error: msg})
}

// apiAggregate runs an aggregation for the requested entity and range and
// returns the full result: readings, daily histogram, and derived metrics.
// Query parameters match the dashboard screens (entity, range, start, end)
// plus kind=units to target the unit pipeline.
func (s *Server) apiAggregate(w http.ResponseWriter, r *http.Request) {
	filters := parseTelemetryFilters(r)

	pipe := s.devices
	entities, err := s.deviceEntities(r)
	if r.URL.Query().Get("kind") == "units" {
		pipe = s.units
		entities, err = s.unitEntities(r)
	}
	if err != nil {
		jsonError(w, http.StatusBadGateway, "Failed to fetch entity list.")
		return
	}

	start, end, err := aggregate.ResolveRange(filters.Preset, time.Now(), filters.Start, filters.End)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Custom range requires both start and end dates.")
		return
	}

	res, err := pipe.Run(r.Context(), filters.Selection, entities, start, end)
	if err != nil {
		if errors.Is(err, aggregate.ErrStale) {
			jsonError(w, http.StatusConflict, "Superseded by a newer request.")
			return
		}
		jsonError(w, http.StatusBadGateway, "Failed to fetch data.")
		return
	}

	jsonOK(w, res)
}

// apiStatus reports backend reachability and recent activity.
func (s *Server) apiStatus(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{
		"backend":  s.upstream.Get(),
		"activity": s.activity.Recent(50),
		"seq":      s.activity.Seq(),
	})
}

func (s *Server) deviceEntities(r *http.Request) ([]aggregate.Entity, error) {
	devices, err := s.backend.Devices(r.Context())
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.Entity, 0, len(devices))
	for _, d := range devices {
		out = append(out, aggregate.Entity{ID: d.DeviceID, Name: d.Name})
	}
	return out, nil
}

func (s *Server) unitEntities(r *http.Request) ([]aggregate.Entity, error) {
	units, err := s.backend.Units(r.Context())
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.Entity, 0, len(units))
	for _, u := range units {
		out = append(out, aggregate.Entity{ID: strconv.FormatInt(u.ID, 10), Name: u.Name})
	}
	return out, nil
}

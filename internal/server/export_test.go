package server

import (
	"encoding/csv"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/api"
)

func TestWriteReadingsCSVDeviceColumns(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeReadingsCSV(rec, "dev-a", []api.Reading{
		{Timestamp: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC), VolumeML: 123.5},
		{Timestamp: time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC), VolumeML: 50},
	}, false)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="dev-a_data.csv"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "Timestamp" || rows[0][1] != "Volume (mL)" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "2024-05-01T10:00:00Z" || rows[1][1] != "123.5" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestWriteReadingsCSVUnitColumnsQuoted(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeReadingsCSV(rec, "ALL", []api.Reading{
		{
			Timestamp: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC),
			VolumeML:  10,
			DeviceID:  `tap "A", floor 2`, // commas and quotes must survive
			DevicePK:  7,
		},
	}, true)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][2] != "device_id" || rows[0][3] != "device_pk" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != `tap "A", floor 2` {
		t.Errorf("device_id = %q, quoting broken", rows[1][2])
	}
	if rows[1][3] != "7" {
		t.Errorf("device_pk = %q", rows[1][3])
	}
}

func TestParseTelemetryFiltersDefaults(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/dashboard", nil)
	f := parseTelemetryFilters(req)

	if f.Selection != "ALL" {
		t.Errorf("Selection = %q, want ALL", f.Selection)
	}
	if string(f.Preset) != "all" {
		t.Errorf("Preset = %q, want all", f.Preset)
	}
	if f.Start != nil || f.End != nil {
		t.Error("custom bounds should be nil by default")
	}
}

func TestParseTelemetryFiltersCustom(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/dashboard?entity=dev-a&range=custom&start=2024-03-01&end=2024-03-15", nil)
	f := parseTelemetryFilters(req)

	if f.Selection != "dev-a" {
		t.Errorf("Selection = %q", f.Selection)
	}
	if f.Start == nil || !f.Start.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", f.Start)
	}
	if f.End == nil || !f.End.Equal(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v", f.End)
	}
}

func TestParseTelemetryFiltersBadDatesIgnored(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/dashboard?range=custom&start=garbage&end=2024-13-99", nil)
	f := parseTelemetryFilters(req)

	if f.Start != nil || f.End != nil {
		t.Errorf("unparseable dates must stay nil, got %v %v", f.Start, f.End)
	}
}

func TestMatchesAny(t *testing.T) {
	t.Parallel()

	if !matchesAny("gym", "Lobby Tap", "GYM-01", "Acme") {
		t.Error("case-insensitive match failed")
	}
	if matchesAny("pool", "Lobby Tap", "GYM-01", "Acme") {
		t.Error("unexpected match")
	}
}

package aggregate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/api"
)

func newBackend(t *testing.T, mux *http.ServeMux) *api.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.New(srv.URL, 5*time.Second)
}

func TestRawSourceTalliesClientSide(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/dev-a", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "" || r.URL.Query().Get("end") == "" {
			t.Error("missing start/end query params")
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"timestamp": "2024-05-01T10:00:00Z", "volume_ml": 100.0, "device_id": "dev-a"},
			{"timestamp": "2024-05-01T12:00:00Z", "volume_ml": 25.0, "device_id": "dev-a"},
			{"timestamp": "2024-05-02T09:00:00Z", "volume_ml": 75.0, "device_id": "dev-a"},
		})
	})

	src := &RawSource{Client: newBackend(t, mux)}
	c, err := src.Fetch(context.Background(), "dev-a",
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if c.Total != 200 {
		t.Errorf("Total = %v, want 200", c.Total)
	}
	if len(c.Readings) != 3 {
		t.Errorf("len(Readings) = %d, want 3", len(c.Readings))
	}
	if c.Buckets["2024-05-01"] != 125 || c.Buckets["2024-05-02"] != 75 {
		t.Errorf("Buckets = %v", c.Buckets)
	}
}

func TestSummarySourceUsesServerFigures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/dev-a", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"timestamp": "2024-05-01T10:00:00Z", "volume_ml": 1.0, "device_id": "dev-a"},
		})
	})
	mux.HandleFunc("GET /data/dev-a/summary", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total_volume": 999.0})
	})
	mux.HandleFunc("GET /data/dev-a/histogram", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "day" {
			t.Errorf("interval = %q, want day", r.URL.Query().Get("interval"))
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"timestamp": "2024-05-01T00:00:00Z", "total_volume": 999.0},
		})
	})

	src := &SummarySource{Client: newBackend(t, mux)}
	c, err := src.Fetch(context.Background(), "dev-a",
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	// Server-computed total wins over the raw readings' own sum.
	if c.Total != 999 {
		t.Errorf("Total = %v, want 999", c.Total)
	}
	if c.Buckets["2024-05-01"] != 999 {
		t.Errorf("Buckets = %v", c.Buckets)
	}
	if len(c.Readings) != 1 {
		t.Errorf("len(Readings) = %d, want 1", len(c.Readings))
	}
}

func TestUnitSourceEnvelopeAndParams(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /unit/data/raw", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("unitId") != "42" {
			t.Errorf("unitId = %q, want 42", q.Get("unitId"))
		}
		if q.Get("limit") != "500000" {
			t.Errorf("limit = %q, want 500000", q.Get("limit"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"timestamp": "2024-05-01T10:00:00Z", "volume_ml": 10.0, "device_id": "d1", "device_pk": 7},
			},
		})
	})

	src := &UnitSource{Client: newBackend(t, mux)}
	c, err := src.Fetch(context.Background(), "42",
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if c.Total != 10 {
		t.Errorf("Total = %v, want 10", c.Total)
	}
	if c.Readings[0].DevicePK != 7 {
		t.Errorf("DevicePK = %d, want 7", c.Readings[0].DevicePK)
	}
}

func TestUnitSourceRejectsNonNumericID(t *testing.T) {
	t.Parallel()

	src := &UnitSource{Client: newBackend(t, http.NewServeMux())}
	if _, err := src.Fetch(context.Background(), "not-a-number", time.Now().Add(-time.Hour), time.Now()); err == nil {
		t.Fatal("expected error for non-numeric unit id")
	}
}

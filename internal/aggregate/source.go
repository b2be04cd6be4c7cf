package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jameshendricken/iot-dashboard/internal/api"
)

// Entity is one selectable device or unit from the catalog.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SelectionAll is the sentinel selection meaning "every entity in the
// catalog".
const SelectionAll = "ALL"

// Contribution is one entity's share of an aggregation: its raw readings,
// its summed volume, and its per-day totals keyed by UTC calendar day
// ("2006-01-02").
type Contribution struct {
	Readings []api.Reading
	Total    float64
	Buckets  map[string]float64
}

// Source fetches one entity's Contribution. The two implementations answer
// the same contract: RawSource recomputes totals and buckets client-side
// from raw readings, SummarySource trusts the backend's per-entity summary
// and histogram. The dashboards wire RawSource; the day-bucket boundaries
// it derives are guaranteed to match across entities, which the backend's
// buckets are not.
type Source interface {
	Fetch(ctx context.Context, entityID string, start, end time.Time) (Contribution, error)
}

// dayKey truncates a timestamp to its UTC calendar day.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// tally computes the total and day buckets for a reading list.
func tally(readings []api.Reading) (float64, map[string]float64) {
	var total float64
	buckets := make(map[string]float64)
	for _, r := range readings {
		total += r.VolumeML
		buckets[dayKey(r.Timestamp)] += r.VolumeML
	}
	return total, buckets
}

// ── Raw readings (canonical) ────────────────────────────────────────────

// RawSource aggregates from the per-device raw readings endpoint.
type RawSource struct {
	Client *api.Client
}

func (s *RawSource) Fetch(ctx context.Context, entityID string, start, end time.Time) (Contribution, error) {
	readings, err := s.Client.Readings(ctx, entityID, start, end)
	if err != nil {
		return Contribution{}, err
	}
	total, buckets := tally(readings)
	return Contribution{Readings: readings, Total: total, Buckets: buckets}, nil
}

// ── Server-assisted (alternate) ─────────────────────────────────────────

// SummarySource aggregates from the backend's precomputed per-device
// summary and daily histogram, fetching raw readings only for the table and
// CSV views. All three calls for an entity run concurrently.
type SummarySource struct {
	Client *api.Client
}

func (s *SummarySource) Fetch(ctx context.Context, entityID string, start, end time.Time) (Contribution, error) {
	var (
		readings []api.Reading
		total    float64
		points   []api.HistogramPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		readings, err = s.Client.Readings(gctx, entityID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.Client.Summary(gctx, entityID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.Client.Histogram(gctx, entityID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return Contribution{}, err
	}

	buckets := make(map[string]float64, len(points))
	for _, p := range points {
		buckets[dayKey(p.Timestamp)] += p.TotalVolume
	}
	return Contribution{Readings: readings, Total: total, Buckets: buckets}, nil
}

// ── Units ───────────────────────────────────────────────────────────────

// unitFetchLimit caps one unit's readings per invocation, matching the
// backend's raw endpoint contract.
const unitFetchLimit = 500000

// UnitSource aggregates from the unit raw-data endpoint. Unit IDs are
// numeric on the wire.
type UnitSource struct {
	Client *api.Client
}

func (s *UnitSource) Fetch(ctx context.Context, entityID string, start, end time.Time) (Contribution, error) {
	id, err := strconv.ParseInt(entityID, 10, 64)
	if err != nil {
		return Contribution{}, fmt.Errorf("unit id %q: %w", entityID, err)
	}
	readings, err := s.Client.UnitReadings(ctx, id, start, end, unitFetchLimit)
	if err != nil {
		return Contribution{}, err
	}
	total, buckets := tally(readings)
	return Contribution{Readings: readings, Total: total, Buckets: buckets}, nil
}

package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/obs"
)

// ErrStale means an invocation finished after a newer one had already been
// started; its result was discarded without being committed.
var ErrStale = errors.New("aggregation superseded by a newer invocation")

// Bucket is one day of aggregated volume across the whole selection.
type Bucket struct {
	Day           string  `json:"day"` // UTC calendar day, "2006-01-02"
	TotalVolumeML float64 `json:"total_volume_ml"`
}

// Result is one completed aggregation invocation.
type Result struct {
	Selection string        `json:"selection"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Readings  []api.Reading `json:"readings"` // ascending by timestamp
	Histogram []Bucket      `json:"histogram"`
	Metrics   Metrics       `json:"metrics"`
}

// Pipeline runs aggregations against a Source. Every Run is stamped with a
// sequence number; starting a new invocation cancels the previous one, and
// a result is committed only while its invocation is still the newest, so a
// slow response can never clobber a fresher one.
type Pipeline struct {
	source Source

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	result *Result
}

// New creates a Pipeline over the given source.
func New(source Source) *Pipeline {
	return &Pipeline{source: source}
}

// Latest returns the most recently committed result, or nil if no
// invocation has succeeded yet.
func (p *Pipeline) Latest() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Run executes one aggregation over the given selection and resolved range.
// SelectionAll expands to every catalog entity; all per-entity fetches run
// concurrently and the invocation succeeds only once every one of them has.
// On any failure the previous committed result is left untouched and no
// partial merge is kept.
func (p *Pipeline) Run(ctx context.Context, selection string, catalog []Entity, start, end time.Time) (*Result, error) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	if p.cancel != nil {
		p.cancel() // supersede whatever is still in flight
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	began := time.Now()
	ids := expandSelection(selection, catalog)

	contribs := make([]Contribution, len(ids))
	g, gctx := errgroup.WithContext(runCtx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			c, err := p.source.Fetch(gctx, id, start, end)
			if err != nil {
				return fmt.Errorf("entity %s: %w", id, err)
			}
			contribs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := mergeContributions(selection, start, end, contribs)
	obs.ObserveAggregation(time.Since(began))

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return nil, ErrStale
	}
	p.result = res
	return res, nil
}

// expandSelection resolves the ALL sentinel against the catalog.
func expandSelection(selection string, catalog []Entity) []string {
	if selection != SelectionAll {
		return []string{selection}
	}
	ids := make([]string, 0, len(catalog))
	for _, e := range catalog {
		ids = append(ids, e.ID)
	}
	return ids
}

// mergeContributions flattens per-entity results into one Result. Readings
// are sorted ascending by timestamp for deterministic table and CSV output;
// histogram buckets are sorted by day for the same reason (the chart
// re-derives axis order from the key either way).
func mergeContributions(selection string, start, end time.Time, contribs []Contribution) *Result {
	var readings []api.Reading
	var total float64
	days := make(map[string]float64)

	for _, c := range contribs {
		readings = append(readings, c.Readings...)
		total += c.Total
		for day, v := range c.Buckets {
			days[day] += v
		}
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	histogram := make([]Bucket, 0, len(days))
	for day, v := range days {
		histogram = append(histogram, Bucket{Day: day, TotalVolumeML: v})
	}
	sort.Slice(histogram, func(i, j int) bool {
		return histogram[i].Day < histogram[j].Day
	})

	return &Result{
		Selection: selection,
		Start:     start,
		End:       end,
		Readings:  readings,
		Histogram: histogram,
		Metrics:   DeriveMetrics(total),
	}
}

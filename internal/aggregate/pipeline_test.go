package aggregate

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/api"
)

// fakeSource serves canned contributions per entity, with optional per-entity
// failures and a hook called on every fetch.
type fakeSource struct {
	readings map[string][]api.Reading
	fail     map[string]error
	onFetch  func(entityID string)
}

func (f *fakeSource) Fetch(ctx context.Context, entityID string, start, end time.Time) (Contribution, error) {
	if f.onFetch != nil {
		f.onFetch(entityID)
	}
	if err := f.fail[entityID]; err != nil {
		return Contribution{}, err
	}
	select {
	case <-ctx.Done():
		return Contribution{}, ctx.Err()
	default:
	}
	rs := f.readings[entityID]
	total, buckets := tally(rs)
	return Contribution{Readings: rs, Total: total, Buckets: buckets}, nil
}

func reading(ts time.Time, ml float64, device string) api.Reading {
	return api.Reading{Timestamp: ts, VolumeML: ml, DeviceID: device}
}

var testCatalog = []Entity{
	{ID: "dev-a", Name: "Lobby"},
	{ID: "dev-b", Name: "Gym"},
}

func testReadings() map[string][]api.Reading {
	day1 := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, time.May, 2, 11, 0, 0, 0, time.UTC)
	return map[string][]api.Reading{
		"dev-a": {
			reading(day2, 200, "dev-a"),
			reading(day1, 100, "dev-a"),
		},
		"dev-b": {
			reading(day1, 50, "dev-b"),
		},
	}
}

func TestPipelineRunSingleEntity(t *testing.T) {
	t.Parallel()

	p := New(&fakeSource{readings: testReadings()})
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	res, err := p.Run(context.Background(), "dev-a", testCatalog, start, end)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Selection != "dev-a" {
		t.Errorf("Selection = %q, want dev-a", res.Selection)
	}
	if got := res.Metrics.TotalVolumeML; got != 300 {
		t.Errorf("total = %v, want 300", got)
	}
	if len(res.Readings) != 2 {
		t.Fatalf("len(Readings) = %d, want 2", len(res.Readings))
	}
	if !sort.SliceIsSorted(res.Readings, func(i, j int) bool {
		return res.Readings[i].Timestamp.Before(res.Readings[j].Timestamp)
	}) {
		t.Error("readings not sorted ascending by timestamp")
	}
	if len(res.Histogram) != 2 {
		t.Fatalf("len(Histogram) = %d, want 2", len(res.Histogram))
	}
	if res.Histogram[0].Day != "2024-05-01" || res.Histogram[0].TotalVolumeML != 100 {
		t.Errorf("bucket[0] = %+v, want 2024-05-01/100", res.Histogram[0])
	}
}

func TestPipelineRunAllEqualsSumOfEntities(t *testing.T) {
	t.Parallel()

	p := New(&fakeSource{readings: testReadings()})
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	res, err := p.Run(context.Background(), SelectionAll, testCatalog, start, end)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if got := res.Metrics.TotalVolumeML; got != 350 {
		t.Errorf("ALL total = %v, want 350 (sum of both entities)", got)
	}
	if len(res.Readings) != 3 {
		t.Errorf("len(Readings) = %d, want 3", len(res.Readings))
	}

	// Day buckets merge across entities.
	want := map[string]float64{"2024-05-01": 150, "2024-05-02": 200}
	for _, b := range res.Histogram {
		if want[b.Day] != b.TotalVolumeML {
			t.Errorf("bucket %s = %v, want %v", b.Day, b.TotalVolumeML, want[b.Day])
		}
	}
}

func TestPipelineFailureKeepsLatest(t *testing.T) {
	t.Parallel()

	src := &fakeSource{readings: testReadings(), fail: map[string]error{}}
	p := New(src)
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	first, err := p.Run(context.Background(), SelectionAll, testCatalog, start, end)
	if err != nil {
		t.Fatalf("first Run error: %v", err)
	}

	// One entity failing fails the whole invocation, with no partial commit.
	src.fail["dev-b"] = errors.New("backend down")
	if _, err := p.Run(context.Background(), SelectionAll, testCatalog, start, end); err == nil {
		t.Fatal("expected error when one entity fails")
	}

	if got := p.Latest(); got != first {
		t.Errorf("Latest() = %p, want previous committed result %p", got, first)
	}
}

func TestPipelineStaleInvocationDiscarded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	src := &fakeSource{readings: testReadings()}
	src.onFetch = func(entityID string) {
		started <- struct{}{}
		if entityID == "dev-a" {
			<-release // hold the first invocation until superseded
		}
	}

	p := New(src)
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), "dev-a", testCatalog, start, end)
		errCh <- err
	}()
	<-started

	src.onFetch = func(string) {}
	newer, err := p.Run(context.Background(), "dev-b", testCatalog, start, end)
	if err != nil {
		t.Fatalf("newer Run error: %v", err)
	}
	close(release)

	// The superseded invocation must not commit; cancellation and ErrStale
	// are both acceptable shapes of "discarded".
	if err := <-errCh; err == nil {
		t.Fatal("superseded Run returned nil, want error")
	} else if !errors.Is(err, ErrStale) && !errors.Is(err, context.Canceled) {
		t.Fatalf("superseded Run error = %v, want ErrStale or context.Canceled", err)
	}

	if got := p.Latest(); got != newer {
		t.Errorf("Latest() = %+v, want the newer invocation's result", got)
	}
}

func TestExpandSelection(t *testing.T) {
	t.Parallel()

	if got := expandSelection("dev-a", testCatalog); len(got) != 1 || got[0] != "dev-a" {
		t.Errorf("expandSelection(dev-a) = %v", got)
	}
	if got := expandSelection(SelectionAll, testCatalog); len(got) != 2 {
		t.Errorf("expandSelection(ALL) = %v, want both catalog IDs", got)
	}
}

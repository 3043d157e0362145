package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MacroLens/internal/model"
)

type fakeResolver struct {
	mu       sync.Mutex
	seen     []string
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     map[string]bool
	delay    time.Duration
}

func (f *fakeResolver) Resolve(_ context.Context, req model.SeriesRequest) (*model.NormalizedSeries, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.seen = append(f.seen, req.EntityCode)
	f.mu.Unlock()
	if f.fail[req.EntityCode] {
		return nil, errors.New("boom")
	}
	return &model.NormalizedSeries{Request: req}, nil
}

type fakeGC struct{ calls atomic.Int32 }

func (g *fakeGC) CollectGarbage() error {
	g.calls.Add(1)
	return nil
}

func watchlist(entities ...string) []model.SeriesRequest {
	out := make([]model.SeriesRequest, len(entities))
	for i, e := range entities {
		out[i] = model.SeriesRequest{Source: model.SourceStatic, EntityCode: e, IndicatorCode: "I", Frequency: model.Annual}
	}
	return out
}

func TestWarm_CountsAndContinuesPastFailures(t *testing.T) {
	res := &fakeResolver{fail: map[string]bool{"B": true, "D": true}}
	s := NewScheduler(context.Background(), res, watchlist("A", "B", "C", "D", "E"), 2, nil)

	got := s.RunNow()
	if got.Total != 5 || got.OK != 3 || got.Failed != 2 {
		t.Errorf("result = %+v", got)
	}
	if len(res.seen) != 5 {
		t.Errorf("resolved %d entries, want 5", len(res.seen))
	}
}

func TestWarm_BoundedConcurrency(t *testing.T) {
	res := &fakeResolver{delay: 20 * time.Millisecond}
	s := NewScheduler(context.Background(), res, watchlist("A", "B", "C", "D", "E", "F", "G", "H"), 3, nil)

	s.Warm(context.Background())
	if peak := res.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestWarm_SkipsOverlappingRuns(t *testing.T) {
	res := &fakeResolver{delay: 100 * time.Millisecond}
	s := NewScheduler(context.Background(), res, watchlist("A"), 1, nil)

	done := make(chan WarmResult)
	go func() { done <- s.Warm(context.Background()) }()
	time.Sleep(30 * time.Millisecond)

	if second := s.Warm(context.Background()); second.Total != 0 {
		t.Errorf("overlapping run should be skipped, got %+v", second)
	}
	if first := <-done; first.OK != 1 {
		t.Errorf("first run = %+v", first)
	}
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeResolver{}, nil, 0, nil)
	if err := s.RegisterAll("not a cron"); err == nil {
		t.Error("expected error for invalid cron spec")
	}

	s = NewScheduler(context.Background(), &fakeResolver{}, nil, 0, nil)
	gc := &fakeGC{}
	s.GC = gc
	if err := s.RegisterAll("0 0 6 * * *"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
	s.gcTask()
	if gc.calls.Load() != 1 {
		t.Error("gc task did not call CollectGarbage")
	}
}

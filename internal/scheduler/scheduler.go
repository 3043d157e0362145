package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"MacroLens/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver is the part of resolver.Resolver the scheduler needs.
type Resolver interface {
	Resolve(ctx context.Context, req model.SeriesRequest) (*model.NormalizedSeries, error)
}

// GarbageCollector reclaims space in a cache tier.
type GarbageCollector interface {
	CollectGarbage() error
}

// GCSpec runs cache garbage collection every hour.
const GCSpec = "0 30 * * * *"

// WarmResult summarizes one warm-up run.
type WarmResult struct {
	Total    int
	OK       int
	Failed   int
	Duration time.Duration
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Resolver    Resolver
	Watchlist   []model.SeriesRequest
	Concurrency int
	GC          GarbageCollector
	Ctx         context.Context

	logger  *zap.Logger
	running atomic.Bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, res Resolver, watchlist []model.SeriesRequest, concurrency int, logger *zap.Logger) *Scheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Resolver:    res,
		Watchlist:   watchlist,
		Concurrency: concurrency,
		Ctx:         ctx,
		logger:      logger,
	}
}

// RegisterAll registers the warm-up task and, when a collector is set, cache GC.
func (s *Scheduler) RegisterAll(warmCron string) error {
	if _, err := s.Cron.AddFunc(warmCron, s.warmTask); err != nil {
		return fmt.Errorf("register warm task: %w", err)
	}
	if s.GC != nil {
		if _, err := s.Cron.AddFunc(GCSpec, s.gcTask); err != nil {
			return fmt.Errorf("register gc task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("watchlist", len(s.Watchlist)))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the warm-up immediately (RUN_ON_START, manual trigger).
func (s *Scheduler) RunNow() WarmResult {
	return s.Warm(s.Ctx)
}

func (s *Scheduler) warmTask() {
	s.Warm(s.Ctx)
}

// Warm resolves every watchlist entry with bounded concurrency. Failures are
// logged and counted; one failing series never stops the others. Overlapping
// runs are skipped.
func (s *Scheduler) Warm(ctx context.Context) WarmResult {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("warm-up already running, skipping")
		return WarmResult{}
	}
	defer s.running.Store(false)

	start := time.Now()
	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, req := range s.Watchlist {
		req := req
		g.Go(func() error {
			series, err := s.Resolver.Resolve(gctx, req)
			if err != nil {
				failed.Add(1)
				s.logger.Warn("warm-up failed", zap.String("series", req.String()), zap.Error(err))
				return nil
			}
			ok.Add(1)
			s.logger.Debug("warmed", zap.String("series", req.String()), zap.Int("points", series.Len()))
			return nil
		})
	}
	_ = g.Wait()

	res := WarmResult{
		Total:    len(s.Watchlist),
		OK:       int(ok.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	s.logger.Info("warm-up finished",
		zap.Int("total", res.Total), zap.Int("ok", res.OK), zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration))
	return res
}

func (s *Scheduler) gcTask() {
	if err := s.GC.CollectGarbage(); err != nil {
		s.logger.Error("cache gc", zap.Error(err))
	}
}

package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"MacroLens/internal/collector"
	"MacroLens/internal/model"
	"MacroLens/internal/recorder"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolver turns a SeriesRequest into a NormalizedSeries. It holds no
// per-request state and is safe for concurrent use.
type Resolver struct {
	registry *collector.Registry
	recorder recorder.Recorder
	logger   *zap.Logger
}

// New creates a Resolver. A nil recorder disables history.
func New(registry *collector.Registry, rec recorder.Recorder, logger *zap.Logger) *Resolver {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, recorder: rec, logger: logger}
}

// Resolve fetches and normalizes one series. At most two fetches are made:
// the primary entity form and, when that yields no usable data, the
// fetcher's alternate form.
func (r *Resolver) Resolve(ctx context.Context, req model.SeriesRequest) (*model.NormalizedSeries, error) {
	start := time.Now()
	series, err := r.resolve(ctx, req)
	r.record(req, series, err, time.Since(start))
	return series, err
}

func (r *Resolver) resolve(ctx context.Context, req model.SeriesRequest) (*model.NormalizedSeries, error) {
	fetcher, err := r.validate(req)
	if err != nil {
		return nil, err
	}
	log := r.logger.With(
		zap.String("source", string(req.Source)),
		zap.String("entity", req.EntityCode),
		zap.String("indicator", req.IndicatorCode),
		zap.String("frequency", string(req.Frequency)),
	)

	primary, alternate := fetcher.EntityForms(strings.TrimSpace(req.EntityCode))
	query := collector.Query{
		Entity:    primary,
		Indicator: strings.TrimSpace(req.IndicatorCode),
		Frequency: req.Frequency,
		Period:    req.Frequency.PeriodToken(),
		Range:     req.DateRange,
	}

	raw, err := fetcher.Fetch(ctx, query)
	if err != nil {
		return nil, r.fetchError(req, primary, err)
	}
	used := primary
	if !HasUsableData(raw) {
		log.Info("no data for primary entity form, trying fallback",
			zap.String("primary", primary), zap.String("alternate", alternate))
		query.Entity = alternate
		raw, err = fetcher.Fetch(ctx, query)
		if err != nil {
			return nil, r.fetchError(req, alternate, err)
		}
		if !HasUsableData(raw) {
			return nil, &NotFoundError{
				Source:    req.Source,
				Entity:    req.EntityCode,
				Indicator: req.IndicatorCode,
				Tried:     []string{primary, alternate},
			}
		}
		used = alternate
	}

	res := decode(raw)
	if res.skipped > 0 {
		log.Debug("skipped unrecognized entries",
			zap.String("shape", res.shape.String()),
			zap.Int("skipped", res.skipped),
			zap.Strings("examples", res.skippedKeys))
	}
	if len(res.points) == 0 {
		return nil, &MalformedResponseError{
			Source:    req.Source,
			Entity:    used,
			Indicator: req.IndicatorCode,
			Shape:     res.shape.String(),
			Skipped:   res.skipped,
		}
	}

	points := finalize(res.points)
	if req.DateRange != nil {
		points = filterRange(points, *req.DateRange)
		if len(points) == 0 {
			return nil, &NotFoundError{
				Source:    req.Source,
				Entity:    req.EntityCode,
				Indicator: req.IndicatorCode,
				Tried:     []string{used},
			}
		}
	}

	log.Debug("series resolved", zap.String("entity_used", used), zap.Int("points", len(points)))
	return &model.NormalizedSeries{
		Request:    req,
		EntityUsed: used,
		Points:     points,
		Skipped:    res.skipped,
	}, nil
}

func (r *Resolver) validate(req model.SeriesRequest) (collector.Fetcher, error) {
	if strings.TrimSpace(req.EntityCode) == "" {
		return nil, &ValidationError{Field: "entity_code", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.IndicatorCode) == "" {
		return nil, &ValidationError{Field: "indicator_code", Reason: "must not be empty"}
	}
	if !req.Frequency.Valid() {
		return nil, &ValidationError{Field: "frequency", Reason: "must be one of A, Q, M, D"}
	}
	if req.DateRange != nil && !req.DateRange.Start.IsZero() && !req.DateRange.End.IsZero() &&
		req.DateRange.End.Before(req.DateRange.Start) {
		return nil, &ValidationError{Field: "date_range", Reason: "end is before start"}
	}
	fetcher, ok := r.registry.Get(req.Source)
	if !ok {
		return nil, &ValidationError{Field: "source", Reason: "is not configured: " + string(req.Source)}
	}
	if !fetcher.Supports(req.Frequency) {
		return nil, &ValidationError{Field: "frequency", Reason: req.Frequency.Name() + " is not offered by " + fetcher.Name()}
	}
	return fetcher, nil
}

func (r *Resolver) fetchError(req model.SeriesRequest, entity string, err error) error {
	if errors.Is(err, collector.ErrMalformedPayload) {
		return &MalformedResponseError{
			Source:    req.Source,
			Entity:    entity,
			Indicator: req.IndicatorCode,
			Shape:     "undecodable",
			Err:       err,
		}
	}
	r.logger.Warn("provider fetch failed",
		zap.String("source", string(req.Source)),
		zap.String("entity", entity),
		zap.String("indicator", req.IndicatorCode),
		zap.Error(err))
	return &ProviderUnavailableError{Source: req.Source, Err: err}
}

func (r *Resolver) record(req model.SeriesRequest, series *model.NormalizedSeries, err error, elapsed time.Duration) {
	rec := &recorder.Resolution{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    string(req.Source),
		Entity:    req.EntityCode,
		Indicator: req.IndicatorCode,
		Frequency: string(req.Frequency),
		Outcome:   Outcome(err),
		Duration:  elapsed,
	}
	if series != nil {
		rec.EntityUsed = series.EntityUsed
		rec.Points = len(series.Points)
		rec.Skipped = series.Skipped
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if recErr := r.recorder.RecordResolution(rec); recErr != nil {
		r.logger.Error("record resolution", zap.Error(recErr))
	}
}

func filterRange(points []model.ObservationPoint, rng model.DateRange) []model.ObservationPoint {
	out := make([]model.ObservationPoint, 0, len(points))
	for _, p := range points {
		if rng.Contains(p.Time) {
			out = append(out, p)
		}
	}
	return out
}

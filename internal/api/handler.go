package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"MacroLens/internal/calculator"
	"MacroLens/internal/catalog"
	"MacroLens/internal/export"
	"MacroLens/internal/model"
	"MacroLens/internal/recorder"
	"MacroLens/internal/resolver"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SeriesResolver resolves one series request.
type SeriesResolver interface {
	Resolve(ctx context.Context, req model.SeriesRequest) (*model.NormalizedSeries, error)
}

const (
	defaultHistoryLimit = 50
	batchConcurrency    = 4
)

// Handler serves the series, catalog, metadata and history endpoints.
type Handler struct {
	// Overviews and Snapshots back the metadata endpoints; nil answers 503.
	Overviews OverviewSource
	Snapshots SnapshotSource

	resolver SeriesResolver
	history  recorder.Recorder
	sources  []model.Source
	maxBatch int
	logger   *zap.Logger
}

// NewHandler creates a new Handler. sources lists the configured providers.
func NewHandler(res SeriesResolver, history recorder.Recorder, sources []model.Source, maxBatch int, logger *zap.Logger) *Handler {
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	if maxBatch <= 0 {
		maxBatch = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resolver: res, history: history, sources: sources, maxBatch: maxBatch, logger: logger}
}

// SeriesQuery is the query string (or batch item) describing one series.
type SeriesQuery struct {
	Source    string `form:"source" json:"source" binding:"required"`
	Entity    string `form:"entity" json:"entity" binding:"required"`
	Indicator string `form:"indicator" json:"indicator" binding:"required"`
	Frequency string `form:"frequency" json:"frequency" binding:"required"`
	Start     string `form:"start" json:"start"`
	End       string `form:"end" json:"end"`
	Format    string `form:"format" json:"format"`
}

// Request converts the query to a SeriesRequest.
func (q SeriesQuery) Request() (model.SeriesRequest, error) {
	src, err := model.ParseSource(q.Source)
	if err != nil {
		return model.SeriesRequest{}, &resolver.ValidationError{Field: "source", Reason: err.Error()}
	}
	freq, err := model.ParseFrequency(q.Frequency)
	if err != nil {
		return model.SeriesRequest{}, &resolver.ValidationError{Field: "frequency", Reason: err.Error()}
	}
	rng, err := model.ParseRange(q.Start, q.End)
	if err != nil {
		return model.SeriesRequest{}, &resolver.ValidationError{Field: "date_range", Reason: err.Error()}
	}
	return model.SeriesRequest{
		Source:        src,
		EntityCode:    q.Entity,
		IndicatorCode: q.Indicator,
		Frequency:     freq,
		DateRange:     rng,
	}, nil
}

// SeriesBody is the JSON shape of a resolved series.
type SeriesBody struct {
	Source     model.Source             `json:"source"`
	Entity     string                   `json:"entity"`
	EntityUsed string                   `json:"entity_used"`
	Indicator  string                   `json:"indicator"`
	Frequency  model.Frequency          `json:"frequency"`
	Skipped    int                      `json:"skipped"`
	Points     []model.ObservationPoint `json:"points"`
}

// SeriesResponse pairs a series with its summary.
type SeriesResponse struct {
	Series  SeriesBody          `json:"series"`
	Summary *calculator.Summary `json:"summary"`
}

func newSeriesResponse(s *model.NormalizedSeries) SeriesResponse {
	sum, _ := calculator.Summarize(s, 0)
	return SeriesResponse{
		Series: SeriesBody{
			Source:     s.Request.Source,
			Entity:     s.Request.EntityCode,
			EntityUsed: s.EntityUsed,
			Indicator:  s.Request.IndicatorCode,
			Frequency:  s.Request.Frequency,
			Skipped:    s.Skipped,
			Points:     s.Points,
		},
		Summary: sum,
	}
}

// StatusFor maps resolution errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, resolver.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, resolver.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) sendError(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// Health reports liveness and the configured sources.
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sources": h.sources})
}

// GetSeries resolves one series.
// GET /api/v1/series
func (h *Handler) GetSeries(c *gin.Context) {
	var q SeriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format := export.JSON
	if q.Format != "" {
		f, err := export.ParseFormat(q.Format)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		format = f
	}
	req, err := q.Request()
	if err != nil {
		h.sendError(c, err)
		return
	}

	series, err := h.resolver.Resolve(c.Request.Context(), req)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if format == export.JSON {
		c.JSON(http.StatusOK, newSeriesResponse(series))
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, series); err != nil {
		h.logger.Error("export series", zap.String("format", string(format)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export series"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(req, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// BatchRequest is the body of the batch endpoint.
type BatchRequest struct {
	Requests []SeriesQuery `json:"requests" binding:"required,min=1,dive"`
}

// BatchItem is one result of a batch; exactly one of Result and Error is set.
type BatchItem struct {
	Status int             `json:"status"`
	Result *SeriesResponse `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchSeries resolves several series concurrently. Results keep request order.
// POST /api/v1/series/batch
func (h *Handler) BatchSeries(c *gin.Context) {
	var body BatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body.Requests) > h.maxBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d requests per batch", h.maxBatch)})
		return
	}

	items := make([]BatchItem, len(body.Requests))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(batchConcurrency)
	for i, q := range body.Requests {
		i, q := i, q
		g.Go(func() error {
			req, err := q.Request()
			if err == nil {
				var series *model.NormalizedSeries
				series, err = h.resolver.Resolve(ctx, req)
				if err == nil {
					resp := newSeriesResponse(series)
					items[i] = BatchItem{Status: http.StatusOK, Result: &resp}
					return nil
				}
			}
			items[i] = BatchItem{Status: StatusFor(err), Error: err.Error()}
			return nil
		})
	}
	_ = g.Wait()
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// Countries lists selectable countries.
// GET /api/v1/catalog/countries
func (h *Handler) Countries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": catalog.Countries()})
}

// Indicators lists a source's indicator categories and codes.
// GET /api/v1/catalog/indicators
func (h *Handler) Indicators(c *gin.Context) {
	src, err := model.ParseSource(c.Query("source"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category := c.Query("category")
	c.JSON(http.StatusOK, gin.H{
		"source":     src,
		"category":   category,
		"categories": catalog.Categories(src),
		"indicators": catalog.Indicators(src, category),
	})
}

// History lists recent resolutions, newest first.
// GET /api/v1/history
func (h *Handler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	rows, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("load history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if rows == nil {
		rows = []recorder.Resolution{}
	}
	c.JSON(http.StatusOK, gin.H{"resolutions": rows})
}

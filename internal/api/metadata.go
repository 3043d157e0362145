package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"MacroLens/internal/catalog"
	"MacroLens/internal/collector"
	"MacroLens/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultSnapshotIndicator is GDP in current US dollars (billions).
const DefaultSnapshotIndicator = "NGDPD"

// OverviewSource looks up company profiles.
type OverviewSource interface {
	Overview(ctx context.Context, symbol string) (*collector.CompanyOverview, error)
}

// SnapshotSource reads one year of an indicator for several entities.
type SnapshotSource interface {
	Snapshot(ctx context.Context, indicator string, entities []string, year int) ([]collector.SnapshotValue, error)
}

// MetadataStatus maps metadata lookup errors to HTTP status codes.
func MetadataStatus(err error) int {
	switch {
	case errors.Is(err, collector.ErrNotListed):
		return http.StatusNotFound
	case errors.Is(err, collector.ErrMalformedPayload):
		return http.StatusBadGateway
	}
	return http.StatusServiceUnavailable
}

// SnapshotRow is one entity of a snapshot response.
type SnapshotRow struct {
	Entity string  `json:"entity"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
}

// SnapshotQuery is the query string of the snapshot endpoint. Empty fields
// take the popular-economies GDP defaults.
type SnapshotQuery struct {
	Indicator string `form:"indicator"`
	Year      int    `form:"year" binding:"omitempty,gte=1980,lte=2100"`
	Entities  string `form:"entities"`
}

// Normalize fills defaults and splits the entity list.
func (q SnapshotQuery) Normalize(now time.Time) (indicator string, year int, entities []string) {
	indicator = strings.TrimSpace(q.Indicator)
	if indicator == "" {
		indicator = DefaultSnapshotIndicator
	}
	year = q.Year
	if year == 0 {
		year = now.Year()
	}
	for _, e := range strings.Split(q.Entities, ",") {
		if e = strings.TrimSpace(e); e != "" {
			entities = append(entities, e)
		}
	}
	if len(entities) == 0 {
		entities = catalog.Popular()
	}
	return indicator, year, entities
}

// Overview returns a company profile.
// GET /api/v1/companies/:symbol
func (h *Handler) Overview(c *gin.Context) {
	if h.Overviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "company overviews need the alphavantage source"})
		return
	}
	o, err := h.Overviews.Overview(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.logger.Warn("company overview", zap.String("symbol", c.Param("symbol")), zap.Error(err))
		c.JSON(MetadataStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// Snapshot compares one year of an indicator across economies.
// GET /api/v1/snapshot
func (h *Handler) Snapshot(c *gin.Context) {
	if h.Snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshots need the imf_datamapper source"})
		return
	}
	var q SnapshotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	indicator, year, entities := q.Normalize(time.Now())
	values, err := h.Snapshots.Snapshot(c.Request.Context(), indicator, entities, year)
	if err != nil {
		h.logger.Warn("snapshot", zap.String("indicator", indicator), zap.Int("year", year), zap.Error(err))
		c.JSON(MetadataStatus(err), gin.H{"error": err.Error()})
		return
	}
	rows := make([]SnapshotRow, len(values))
	for i, v := range values {
		rows[i] = SnapshotRow{Entity: v.Entity, Name: catalog.Name(v.Entity), Value: v.Value}
	}
	c.JSON(http.StatusOK, gin.H{
		"indicator": indicator,
		"label":     catalog.Label(model.SourceIMFDataMapper, indicator),
		"year":      year,
		"values":    rows,
	})
}

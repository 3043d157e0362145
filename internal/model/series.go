package model

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies an upstream statistics provider.
type Source string

const (
	SourceIMFSDMX       Source = "imf_sdmx"
	SourceIMFREST       Source = "imf_rest"
	SourceDataCommons   Source = "datacommons"
	SourceAlphaVantage  Source = "alphavantage"
	SourceYahoo         Source = "yahoo"
	SourceIMFDataMapper Source = "imf_datamapper"
	SourceStatic        Source = "static"
)

// Sources lists the public providers in display order.
var Sources = []Source{
	SourceDataCommons,
	SourceIMFDataMapper,
	SourceIMFSDMX,
	SourceIMFREST,
	SourceAlphaVantage,
	SourceYahoo,
}

// ParseSource accepts the canonical names plus a few common spellings.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "imf_sdmx", "imf-sdmx", "sdmx":
		return SourceIMFSDMX, nil
	case "imf_rest", "imf-rest":
		return SourceIMFREST, nil
	case "datacommons", "data_commons", "dc":
		return SourceDataCommons, nil
	case "alphavantage", "alpha_vantage", "av":
		return SourceAlphaVantage, nil
	case "yahoo", "yfinance":
		return SourceYahoo, nil
	case "imf_datamapper", "datamapper", "imf-datamapper":
		return SourceIMFDataMapper, nil
	case "static":
		return SourceStatic, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// DateRange bounds a request. Both ends are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// SeriesRequest is one user query. It is built once and never mutated.
type SeriesRequest struct {
	Source        Source
	EntityCode    string
	IndicatorCode string
	Frequency     Frequency
	DateRange     *DateRange
}

func (r SeriesRequest) String() string {
	return fmt.Sprintf("%s:%s/%s@%s", r.Source, r.EntityCode, r.IndicatorCode, r.Frequency)
}

// ObservationPoint is a single dated value. Date is the canonical rendering
// at the precision the provider used; Time is the start of that period.
type ObservationPoint struct {
	Date  string    `json:"date"`
	Time  time.Time `json:"-"`
	Value float64   `json:"value"`
}

// NormalizedSeries is sorted ascending by Time with unique Date values.
type NormalizedSeries struct {
	Request    SeriesRequest
	EntityUsed string
	Points     []ObservationPoint
	Skipped    int
}

// Len returns the number of points.
func (s *NormalizedSeries) Len() int { return len(s.Points) }

// Values returns the point values in order.
func (s *NormalizedSeries) Values() []float64 {
	vals := make([]float64, len(s.Points))
	for i, p := range s.Points {
		vals[i] = p.Value
	}
	return vals
}

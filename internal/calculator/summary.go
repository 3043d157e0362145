// Package calculator derives descriptive statistics from normalized series.
package calculator

import (
	"errors"
	"math"

	"MacroLens/internal/model"
)

// RSIPeriod is the look-back used for market series.
const RSIPeriod = 14

// Summary describes a series at a glance. Optional figures are nil when
// they cannot be computed.
type Summary struct {
	Count     int      `json:"count"`
	FirstDate string   `json:"first_date"`
	First     float64  `json:"first"`
	LastDate  string   `json:"last_date"`
	Last      float64  `json:"last"`
	MinDate   string   `json:"min_date"`
	Min       float64  `json:"min"`
	MaxDate   string   `json:"max_date"`
	Max       float64  `json:"max"`
	Mean      float64  `json:"mean"`
	Change    float64  `json:"change"`
	PctChange *float64 `json:"pct_change,omitempty"`
	CAGR      *float64 `json:"cagr,omitempty"`
	SMAWindow int      `json:"sma_window"`
	SMA       *float64 `json:"sma,omitempty"`
	RSI       *float64 `json:"rsi,omitempty"`
	// Position is where the last value sits between Min and Max.
	Position float64 `json:"position"`
}

// Summarize computes a Summary. window <= 0 selects DefaultWindow.
func Summarize(series *model.NormalizedSeries, window int) (*Summary, error) {
	if series == nil || len(series.Points) == 0 {
		return nil, errors.New("empty series")
	}
	points := series.Points
	values := series.Values()
	freq := series.Request.Frequency
	if window <= 0 {
		window = DefaultWindow(freq)
	}

	first, last := points[0], points[len(points)-1]
	low, high, _ := Extremes(points)
	s := &Summary{
		Count:     len(points),
		FirstDate: first.Date,
		First:     first.Value,
		LastDate:  last.Date,
		Last:      last.Value,
		MinDate:   low.Date,
		Min:       low.Value,
		MaxDate:   high.Date,
		Max:       high.Value,
		Change:    last.Value - first.Value,
		SMAWindow: window,
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	s.Mean = sum / float64(len(values))

	if first.Value != 0 {
		pct := (last.Value - first.Value) / math.Abs(first.Value) * 100
		s.PctChange = &pct
	}
	if freq == model.Annual {
		years := last.Time.Year() - first.Time.Year()
		if years > 0 && first.Value > 0 && last.Value > 0 {
			cagr := (math.Pow(last.Value/first.Value, 1/float64(years)) - 1) * 100
			s.CAGR = &cagr
		}
	}
	if sma, err := CalculateSMA(values, window); err == nil {
		s.SMA = &sma
	}
	if freq == model.Daily && len(values) > RSIPeriod {
		if rsi, err := CalculateRSI(values, RSIPeriod); err == nil {
			s.RSI = &rsi
		}
	}
	s.Position, _ = RangePosition(last.Value, low.Value, high.Value)
	return s, nil
}

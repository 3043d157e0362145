package calculator

import (
	"errors"

	"MacroLens/internal/model"
)

// Extremes returns the lowest and highest points of a series.
// Ties keep the earliest point.
func Extremes(points []model.ObservationPoint) (low, high model.ObservationPoint, err error) {
	if len(points) == 0 {
		return low, high, errors.New("no points provided")
	}
	low, high = points[0], points[0]
	for _, p := range points[1:] {
		if p.Value > high.Value {
			high = p
		}
		if p.Value < low.Value {
			low = p
		}
	}
	return low, high, nil
}

// RangePosition returns where value sits within [low, high] (0.0~1.0).
func RangePosition(value, low, high float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (value - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

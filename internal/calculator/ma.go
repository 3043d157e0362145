package calculator

import (
	"errors"

	"MacroLens/internal/model"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// DefaultWindow is the SMA window used for a frequency: five years, four
// quarters, twelve months or twenty trading days.
func DefaultWindow(freq model.Frequency) int {
	switch freq {
	case model.Annual:
		return 5
	case model.Quarterly:
		return 4
	case model.Monthly:
		return 12
	default:
		return 20
	}
}

// RollingSMA returns the SMA ending at each point; the first period-1
// entries have no average and are omitted.
func RollingSMA(points []model.ObservationPoint, period int) ([]model.ObservationPoint, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(points) < period {
		return nil, errors.New("not enough data for SMA calculation")
	}
	out := make([]model.ObservationPoint, 0, len(points)-period+1)
	sum := 0.0
	for i, p := range points {
		sum += p.Value
		if i >= period {
			sum -= points[i-period].Value
		}
		if i >= period-1 {
			out = append(out, model.ObservationPoint{Date: p.Date, Time: p.Time, Value: sum / float64(period)})
		}
	}
	return out, nil
}

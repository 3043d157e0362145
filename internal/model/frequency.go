package model

import (
	"fmt"
	"strings"
)

// Frequency is the sampling interval of a series.
type Frequency string

const (
	Annual    Frequency = "A"
	Quarterly Frequency = "Q"
	Monthly   Frequency = "M"
	Daily     Frequency = "D"
)

// Frequencies lists all recognized frequencies.
var Frequencies = []Frequency{Annual, Quarterly, Monthly, Daily}

// ParseFrequency accepts single-letter codes and full names, case-insensitive.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "annual", "yearly", "y":
		return Annual, nil
	case "q", "quarterly":
		return Quarterly, nil
	case "m", "monthly":
		return Monthly, nil
	case "d", "daily":
		return Daily, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// Valid reports whether f is one of the recognized values.
func (f Frequency) Valid() bool {
	switch f {
	case Annual, Quarterly, Monthly, Daily:
		return true
	}
	return false
}

// PeriodToken is the ISO-8601 period length sent to providers.
func (f Frequency) PeriodToken() string {
	switch f {
	case Annual:
		return "P1Y"
	case Quarterly:
		return "P3M"
	case Monthly:
		return "P1M"
	case Daily:
		return "P1D"
	}
	return ""
}

// Describe returns the period length in words.
func (f Frequency) Describe() string {
	switch f {
	case Annual:
		return "1 year"
	case Quarterly:
		return "3 months"
	case Monthly:
		return "1 month"
	case Daily:
		return "1 day"
	}
	return "unknown"
}

// Name is the lower-case display name.
func (f Frequency) Name() string {
	switch f {
	case Annual:
		return "annual"
	case Quarterly:
		return "quarterly"
	case Monthly:
		return "monthly"
	case Daily:
		return "daily"
	}
	return string(f)
}

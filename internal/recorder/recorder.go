package recorder

import (
	"context"
	"time"
)

// Resolution is one attempt to resolve a series, successful or not.
type Resolution struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Source     string        `json:"source"`
	Entity     string        `json:"entity"`
	Indicator  string        `json:"indicator"`
	Frequency  string        `json:"frequency"`
	EntityUsed string        `json:"entity_used,omitempty"`
	Points     int           `json:"points"`
	Skipped    int           `json:"skipped"`
	Outcome    string        `json:"outcome"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// Recorder persists resolution history for later inspection.
type Recorder interface {
	RecordResolution(r *Resolution) error
	// Recent returns up to limit resolutions, newest first.
	Recent(ctx context.Context, limit int) ([]Resolution, error)
	Close() error
}

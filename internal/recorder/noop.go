package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordResolution(_ *Resolution) error { return nil }
func (n *NoopRecorder) Recent(_ context.Context, _ int) ([]Resolution, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }

package collector

import (
	"context"
	"strings"
	"sync"

	"MacroLens/internal/model"
)

// StaticFetcher returns controllable fixed payloads keyed by entity form.
// It backs offline runs and tests.
type StaticFetcher struct {
	// SourceName overrides the reported source; defaults to "static".
	SourceName model.Source
	// Payloads maps an entity form to its raw payload.
	Payloads map[string]any
	// Alternates maps an entity code to its alternate form.
	Alternates map[string]string
	// Frequencies limits Supports; empty means every frequency.
	Frequencies []model.Frequency
	// Err, when set, is returned by every Fetch.
	Err error

	mu    sync.Mutex
	calls []Query
}

// NewStaticFetcher creates a fetcher serving the given payloads.
func NewStaticFetcher(payloads map[string]any) *StaticFetcher {
	return &StaticFetcher{Payloads: payloads}
}

func (f *StaticFetcher) Name() string { return "static" }

func (f *StaticFetcher) Source() model.Source {
	if f.SourceName != "" {
		return f.SourceName
	}
	return model.SourceStatic
}

func (f *StaticFetcher) Supports(freq model.Frequency) bool {
	if len(f.Frequencies) == 0 {
		return freq.Valid()
	}
	for _, fr := range f.Frequencies {
		if fr == freq {
			return true
		}
	}
	return false
}

func (f *StaticFetcher) EntityForms(code string) (string, string) {
	if alt, ok := f.Alternates[code]; ok {
		return code, alt
	}
	return code, strings.ToLower(stripNamespace(code))
}

func (f *StaticFetcher) Fetch(_ context.Context, q Query) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Payloads[q.Entity], nil
}

// Calls returns a copy of the queries seen so far.
func (f *StaticFetcher) Calls() []Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Query, len(f.calls))
	copy(out, f.calls)
	return out
}

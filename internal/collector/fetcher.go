package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"MacroLens/internal/cache"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

// ErrMalformedPayload marks a provider body that could not be decoded at all.
var ErrMalformedPayload = errors.New("malformed provider payload")

// Query is one provider call. Entity is already in the provider's form.
type Query struct {
	Entity    string
	Indicator string
	Frequency model.Frequency
	Period    string
	Range     *model.DateRange
}

// Fetcher retrieves raw series payloads from one upstream provider.
//
// Fetch returns the provider's payload narrowed to the part holding the
// observations: a list of records or a mapping. (nil, nil) means the
// provider answered but had nothing for the query.
type Fetcher interface {
	Name() string
	Source() model.Source
	Supports(freq model.Frequency) bool
	// EntityForms returns the primary entity form and the alternate form
	// tried once when the primary yields no data.
	EntityForms(code string) (primary, alternate string)
	Fetch(ctx context.Context, q Query) (any, error)
}

// Registry maps sources to fetchers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[model.Source]Fetcher
}

// NewRegistry creates a registry holding the given fetchers.
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{fetchers: make(map[model.Source]Fetcher)}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds or replaces the fetcher for f.Source().
func (r *Registry) Register(f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[f.Source()] = f
}

func (r *Registry) Get(source model.Source) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[source]
	return f, ok
}

// Sources lists the registered sources in sorted order.
func (r *Registry) Sources() []model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Source, 0, len(r.fetchers))
	for s := range r.fetchers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// splitIndicator splits "DATASET/INDICATOR" codes; bare codes get def.
func splitIndicator(code, def string) (dataset, indicator string) {
	code = strings.TrimSpace(code)
	if i := strings.Index(code, "/"); i > 0 {
		return code[:i], code[i+1:]
	}
	return def, code
}

// stripNamespace drops a "ns/" prefix from an entity code.
func stripNamespace(code string) string {
	if i := strings.LastIndex(code, "/"); i >= 0 {
		return code[i+1:]
	}
	return code
}

// errNoData marks a well-formed body without observations. Such bodies
// are never cached, so a later call asks the provider again.
var errNoData = errors.New("no data")

// getJSON fetches and decodes a JSON body into a generic value. validate
// inspects the decoded body before it may be cached; errNoData from it, or
// a 404, means "no data". An undecodable body is malformed.
func getJSON(ctx context.Context, client *httpx.Client, rawURL string, class cache.Class, validate func(body any) error) (any, bool, error) {
	var out any
	err := client.GetJSON(ctx, rawURL, class, &out, func() error {
		if validate == nil {
			return nil
		}
		return validate(out)
	})
	if err != nil {
		if errors.Is(err, errNoData) || httpx.IsStatus(err, http.StatusNotFound) {
			return nil, false, nil
		}
		if errors.Is(err, httpx.ErrNotJSON) {
			return nil, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return nil, false, err
	}
	return out, true, nil
}

// yearBounds returns the first and last year of a range, 0 when open.
func yearBounds(rng *model.DateRange) (from, to int) {
	if rng == nil {
		return 0, 0
	}
	if !rng.Start.IsZero() {
		from = rng.Start.Year()
	}
	if !rng.End.IsZero() {
		to = rng.End.Year()
	}
	return from, to
}

package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"MacroLens/internal/cache"
	"MacroLens/internal/catalog"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

const (
	defaultSDMXURL     = "http://dataservices.imf.org/REST/SDMX_JSON.svc"
	defaultSDMXDataset = "IFS"
)

// SDMXFetcher reads the IMF CompactData endpoint. Indicator codes take the
// form "DATASET/INDICATOR"; a bare indicator belongs to IFS.
type SDMXFetcher struct {
	BaseURL string
	Client  *httpx.Client
}

func NewSDMXFetcher(baseURL string, client *httpx.Client) *SDMXFetcher {
	if baseURL == "" {
		baseURL = defaultSDMXURL
	}
	return &SDMXFetcher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (f *SDMXFetcher) Name() string         { return "imf_sdmx" }
func (f *SDMXFetcher) Source() model.Source { return model.SourceIMFSDMX }

func (f *SDMXFetcher) Supports(freq model.Frequency) bool {
	return freq == model.Annual || freq == model.Quarterly || freq == model.Monthly
}

// EntityForms tries the ISO2 reference area first, then the code as given.
func (f *SDMXFetcher) EntityForms(code string) (string, string) {
	code = strings.TrimSpace(code)
	return catalog.ISO2(code), code
}

func (f *SDMXFetcher) Fetch(ctx context.Context, q Query) (any, error) {
	dataset, indicator := splitIndicator(q.Indicator, defaultSDMXDataset)
	key := fmt.Sprintf("%s.%s.%s", q.Frequency, q.Entity, indicator)
	u := fmt.Sprintf("%s/CompactData/%s/%s", f.BaseURL, url.PathEscape(dataset), url.PathEscape(key))
	if params := periodParams(q.Range); len(params) > 0 {
		u += "?" + params.Encode()
	}

	var obs any
	_, ok, err := getJSON(ctx, f.Client, u, cache.Data, func(body any) error {
		root, isMap := body.(map[string]any)
		if !isMap {
			return fmt.Errorf("%w: sdmx: unexpected %T body", ErrMalformedPayload, body)
		}
		compact, _ := root["CompactData"].(map[string]any)
		dataSet, _ := compact["DataSet"].(map[string]any)
		if obs = seriesObservations(dataSet["Series"]); obs == nil {
			return errNoData
		}
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return obs, nil
}

// seriesObservations returns the Obs list of the first series carrying
// one. Single observations arrive as a bare object and are wrapped.
func seriesObservations(series any) any {
	var candidates []any
	switch s := series.(type) {
	case map[string]any:
		candidates = []any{s}
	case []any:
		candidates = s
	default:
		return nil
	}
	for _, c := range candidates {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		switch obs := m["Obs"].(type) {
		case []any:
			if len(obs) > 0 {
				return obs
			}
		case map[string]any:
			return []any{obs}
		}
	}
	return nil
}

func periodParams(rng *model.DateRange) url.Values {
	params := url.Values{}
	from, to := yearBounds(rng)
	if from > 0 {
		params.Set("startPeriod", strconv.Itoa(from))
	}
	if to > 0 {
		params.Set("endPeriod", strconv.Itoa(to))
	}
	return params
}

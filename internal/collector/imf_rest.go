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

const defaultRESTURL = "https://api.imf.org/external/sdmx/2.1"

// RESTFetcher reads SDMX-JSON data messages. Observations are keyed by
// index into the TIME_PERIOD dimension; Fetch translates them to periods.
type RESTFetcher struct {
	BaseURL string
	Client  *httpx.Client
}

func NewRESTFetcher(baseURL string, client *httpx.Client) *RESTFetcher {
	if baseURL == "" {
		baseURL = defaultRESTURL
	}
	return &RESTFetcher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (f *RESTFetcher) Name() string         { return "imf_rest" }
func (f *RESTFetcher) Source() model.Source { return model.SourceIMFREST }

func (f *RESTFetcher) Supports(freq model.Frequency) bool { return freq.Valid() }

// EntityForms tries ISO3 first, then ISO2.
func (f *RESTFetcher) EntityForms(code string) (string, string) {
	return catalog.ISO3(code), catalog.ISO2(code)
}

func (f *RESTFetcher) Fetch(ctx context.Context, q Query) (any, error) {
	flow, indicator := splitIndicator(q.Indicator, defaultSDMXDataset)
	key := fmt.Sprintf("%s.%s.%s", q.Frequency, q.Entity, indicator)
	params := periodParams(q.Range)
	params.Set("format", "jsondata")
	u := fmt.Sprintf("%s/data/%s/%s?%s", f.BaseURL, url.PathEscape(flow), url.PathEscape(key), params.Encode())

	var obs any
	_, ok, err := getJSON(ctx, f.Client, u, cache.Data, func(body any) error {
		root, isMap := body.(map[string]any)
		if !isMap {
			return fmt.Errorf("%w: sdmx-json: unexpected %T body", ErrMalformedPayload, body)
		}
		// SDMX-JSON 2.0 wraps the message in "data".
		if data, ok := root["data"].(map[string]any); ok {
			root = data
		}
		if obs = translateObservations(root); obs == nil {
			return errNoData
		}
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return obs, nil
}

// translateObservations flattens the first series of the first data set
// into a period -> value mapping. Indices without a known period are kept
// under an "obs:" key so the normalizer counts them as skipped.
func translateObservations(msg map[string]any) any {
	periods := timePeriods(msg)
	dataSets, _ := msg["dataSets"].([]any)
	if len(dataSets) == 0 {
		return nil
	}
	ds, _ := dataSets[0].(map[string]any)
	series, _ := ds["series"].(map[string]any)

	var observations map[string]any
	for _, k := range sortedKeys(series) {
		sm, _ := series[k].(map[string]any)
		if obs, ok := sm["observations"].(map[string]any); ok && len(obs) > 0 {
			observations = obs
			break
		}
	}
	if observations == nil {
		// flat data sets carry observations at the top level
		observations, _ = ds["observations"].(map[string]any)
	}
	if len(observations) == 0 {
		return nil
	}

	out := make(map[string]any, len(observations))
	for idx, v := range observations {
		var value any
		if arr, ok := v.([]any); ok && len(arr) > 0 {
			value = arr[0]
		}
		key := "obs:" + idx
		// flat keys look like "0:0:0:5"; the period is the last index
		last := idx
		if i := strings.LastIndex(idx, ":"); i >= 0 {
			last = idx[i+1:]
		}
		if n, err := strconv.Atoi(last); err == nil && n >= 0 && n < len(periods) {
			key = periods[n]
		}
		out[key] = value
	}
	return out
}

func timePeriods(msg map[string]any) []string {
	structure, _ := msg["structure"].(map[string]any)
	if structure == nil {
		// 2.0 messages list structures
		if list, ok := msg["structures"].([]any); ok && len(list) > 0 {
			structure, _ = list[0].(map[string]any)
		}
	}
	dims, _ := structure["dimensions"].(map[string]any)
	obsDims, _ := dims["observation"].([]any)
	for _, d := range obsDims {
		dm, _ := d.(map[string]any)
		if id, _ := dm["id"].(string); id != "TIME_PERIOD" && len(obsDims) > 1 {
			continue
		}
		values, _ := dm["values"].([]any)
		out := make([]string, 0, len(values))
		for _, v := range values {
			vm, _ := v.(map[string]any)
			id, _ := vm["id"].(string)
			if id == "" {
				id, _ = vm["value"].(string)
			}
			out = append(out, id)
		}
		return out
	}
	return nil
}

package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"MacroLens/internal/cache"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

const defaultDataCommonsURL = "https://api.datacommons.org"

// DataCommonsFetcher reads statistical variables from the Data Commons
// stat/series endpoint. Entities are place DCIDs such as "country/USA".
type DataCommonsFetcher struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

func NewDataCommonsFetcher(baseURL, apiKey string, client *httpx.Client) *DataCommonsFetcher {
	if baseURL == "" {
		baseURL = defaultDataCommonsURL
	}
	return &DataCommonsFetcher{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Client: client}
}

func (f *DataCommonsFetcher) Name() string         { return "datacommons" }
func (f *DataCommonsFetcher) Source() model.Source { return model.SourceDataCommons }

func (f *DataCommonsFetcher) Supports(freq model.Frequency) bool { return freq.Valid() }

// EntityForms prefers the namespaced DCID and falls back to the bare code.
func (f *DataCommonsFetcher) EntityForms(code string) (string, string) {
	if strings.Contains(code, "/") {
		return code, stripNamespace(code)
	}
	return "country/" + strings.ToUpper(code), code
}

func (f *DataCommonsFetcher) Fetch(ctx context.Context, q Query) (any, error) {
	params := url.Values{}
	params.Set("place", q.Entity)
	params.Set("stat_var", q.Indicator)
	if q.Period != "" {
		params.Set("observation_period", q.Period)
	}
	if f.APIKey != "" {
		params.Set("key", f.APIKey)
	}
	u := fmt.Sprintf("%s/stat/series?%s", f.BaseURL, params.Encode())

	var series map[string]any
	_, ok, err := getJSON(ctx, f.Client, u, cache.Data, func(body any) error {
		obj, isMap := body.(map[string]any)
		if !isMap {
			return fmt.Errorf("%w: datacommons: unexpected %T body", ErrMalformedPayload, body)
		}
		series, _ = obj["series"].(map[string]any)
		if len(series) == 0 {
			return errNoData
		}
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return series, nil
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"MacroLens/internal/cache"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

const defaultDataMapperURL = "https://www.imf.org/external/datamapper"

// maxPeriods bounds the explicit year list sent to the DataMapper.
const maxPeriods = 100

// DataMapperFetcher reads annual WEO indicators from the IMF DataMapper.
type DataMapperFetcher struct {
	BaseURL string
	Client  *httpx.Client
}

func NewDataMapperFetcher(baseURL string, client *httpx.Client) *DataMapperFetcher {
	if baseURL == "" {
		baseURL = defaultDataMapperURL
	}
	return &DataMapperFetcher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (f *DataMapperFetcher) Name() string         { return "imf_datamapper" }
func (f *DataMapperFetcher) Source() model.Source { return model.SourceIMFDataMapper }

func (f *DataMapperFetcher) Supports(freq model.Frequency) bool {
	return freq == model.Annual
}

func (f *DataMapperFetcher) EntityForms(code string) (string, string) {
	return strings.ToUpper(stripNamespace(code)), strings.TrimSpace(code)
}

func (f *DataMapperFetcher) Fetch(ctx context.Context, q Query) (any, error) {
	_, indicator := splitIndicator(q.Indicator, "")
	u := fmt.Sprintf("%s/api/v1/%s/%s", f.BaseURL, url.PathEscape(indicator), url.PathEscape(q.Entity))
	if from, to := yearBounds(q.Range); from > 0 && to >= from && to-from < maxPeriods {
		years := make([]string, 0, to-from+1)
		for y := from; y <= to; y++ {
			years = append(years, strconv.Itoa(y))
		}
		u += "?periods=" + strings.Join(years, ",")
	}

	var series map[string]any
	_, ok, err := getJSON(ctx, f.Client, u, cache.Data, func(body any) error {
		byEntity, err := dataMapperValues(body, indicator)
		if err != nil {
			return err
		}
		series, _ = lookupKey(byEntity, q.Entity).(map[string]any)
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

// Snapshot reads one year of an indicator for several entities in a single
// call. Entities without a value for that year are left out; the rest keep
// the order of entities. Snapshots are cached with the metadata TTL.
func (f *DataMapperFetcher) Snapshot(ctx context.Context, indicator string, entities []string, year int) ([]SnapshotValue, error) {
	_, indicator = splitIndicator(indicator, "")
	codes := make([]string, 0, len(entities))
	for _, e := range entities {
		if code := strings.ToUpper(stripNamespace(strings.TrimSpace(e))); code != "" {
			codes = append(codes, code)
		}
	}
	if indicator == "" || len(codes) == 0 {
		return nil, errors.New("datamapper: snapshot needs an indicator and at least one entity")
	}
	escaped := make([]string, len(codes))
	for i, code := range codes {
		escaped[i] = url.PathEscape(code)
	}
	u := fmt.Sprintf("%s/api/v1/%s/%s?periods=%d", f.BaseURL, url.PathEscape(indicator), strings.Join(escaped, ","), year)

	var out []SnapshotValue
	_, ok, err := getJSON(ctx, f.Client, u, cache.Metadata, func(body any) error {
		byEntity, err := dataMapperValues(body, indicator)
		if err != nil {
			return err
		}
		out = out[:0]
		period := strconv.Itoa(year)
		for _, code := range codes {
			series, _ := lookupKey(byEntity, code).(map[string]any)
			if v, ok := floatOf(series[period]); ok {
				out = append(out, SnapshotValue{Entity: code, Value: v})
			}
		}
		if len(out) == 0 {
			return errNoData
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: datamapper has no %s values for %d", ErrNotListed, indicator, year)
	}
	return out, nil
}

// dataMapperValues narrows a DataMapper body to values[indicator], keyed by entity.
func dataMapperValues(body any, indicator string) (map[string]any, error) {
	obj, isMap := body.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("%w: datamapper: unexpected %T body", ErrMalformedPayload, body)
	}
	values, _ := obj["values"].(map[string]any)
	byEntity, _ := lookupKey(values, indicator).(map[string]any)
	return byEntity, nil
}

// lookupKey matches exactly, then case-insensitively in sorted key order.
func lookupKey(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for _, k := range sortedKeys(m) {
		if strings.EqualFold(k, key) {
			return m[k]
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

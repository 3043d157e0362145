package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"MacroLens/internal/cache"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

const defaultAlphaVantageURL = "https://www.alphavantage.co"

// ErrRateLimited is returned when Alpha Vantage answers with a throttling
// note instead of data.
var ErrRateLimited = errors.New("alphavantage: rate limited")

// AlphaVantageFetcher reads daily and monthly closes for a ticker.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

func NewAlphaVantageFetcher(baseURL, apiKey string, client *httpx.Client) *AlphaVantageFetcher {
	if baseURL == "" {
		baseURL = defaultAlphaVantageURL
	}
	return &AlphaVantageFetcher{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Client: client}
}

func (f *AlphaVantageFetcher) Name() string         { return "alphavantage" }
func (f *AlphaVantageFetcher) Source() model.Source { return model.SourceAlphaVantage }

func (f *AlphaVantageFetcher) Supports(freq model.Frequency) bool {
	return freq == model.Daily || freq == model.Monthly
}

func (f *AlphaVantageFetcher) EntityForms(code string) (string, string) {
	code = strings.TrimSpace(code)
	return code, strings.ToUpper(code)
}

func (f *AlphaVantageFetcher) Fetch(ctx context.Context, q Query) (any, error) {
	function := "TIME_SERIES_DAILY"
	if q.Frequency == model.Monthly {
		function = "TIME_SERIES_MONTHLY"
	}
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", q.Entity)
	if q.Frequency == model.Daily {
		params.Set("outputsize", "full")
	}
	params.Set("apikey", f.APIKey)
	u := fmt.Sprintf("%s/query?%s", f.BaseURL, params.Encode())

	var series map[string]any
	_, ok, err := getJSON(ctx, f.Client, u, cache.Data, func(body any) error {
		obj, err := alphaVantageBody(body)
		if err != nil {
			return err
		}
		for _, k := range sortedKeys(obj) {
			if strings.Contains(k, "Time Series") {
				series, _ = obj[k].(map[string]any)
				break
			}
		}
		if len(series) == 0 {
			return errNoData
		}
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return projectClose(series), nil
}

// alphaVantageBody checks the envelope every function shares. Throttle
// notices arrive with status 200 and must never be cached as data.
func alphaVantageBody(body any) (map[string]any, error) {
	obj, isMap := body.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("%w: alphavantage: unexpected %T body", ErrMalformedPayload, body)
	}
	if _, bad := obj["Error Message"]; bad {
		// unknown symbol
		return nil, errNoData
	}
	for _, k := range []string{"Note", "Information"} {
		if msg, ok := obj[k].(string); ok {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, msg)
		}
	}
	return obj, nil
}

// Overview returns the company profile for a ticker. Profiles change
// rarely and are cached with the metadata TTL.
func (f *AlphaVantageFetcher) Overview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	params.Set("apikey", f.APIKey)
	u := fmt.Sprintf("%s/query?%s", f.BaseURL, params.Encode())

	var fields map[string]any
	_, ok, err := getJSON(ctx, f.Client, u, cache.Metadata, func(body any) error {
		obj, err := alphaVantageBody(body)
		if err != nil {
			return err
		}
		// unknown tickers get an empty object
		if name, _ := obj["Name"].(string); name == "" {
			return errNoData
		}
		fields = obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: alphavantage has no overview for %s", ErrNotListed, symbol)
	}

	text := func(k string) string {
		s, _ := fields[k].(string)
		return s
	}
	num := func(k string) *float64 {
		v, ok := floatOf(fields[k])
		if !ok {
			return nil
		}
		return &v
	}
	o := &CompanyOverview{
		Symbol:    symbol,
		Name:      text("Name"),
		Exchange:  text("Exchange"),
		Currency:  text("Currency"),
		Sector:    text("Sector"),
		Industry:  text("Industry"),
		MarketCap: num("MarketCapitalization"),
		Beta:      num("Beta"),
		High52:    num("52WeekHigh"),
		Low52:     num("52WeekLow"),
		ForwardPE: num("ForwardPE"),
	}
	if y := num("DividendYield"); y != nil {
		pct := *y * 100
		o.DividendYield = &pct
	}
	return o, nil
}

// projectClose maps each date to its closing price. Bars without a close
// are passed through so the normalizer can count them.
func projectClose(series map[string]any) map[string]any {
	out := make(map[string]any, len(series))
	for date, bar := range series {
		fields, ok := bar.(map[string]any)
		if !ok {
			out[date] = bar
			continue
		}
		if c, ok := fields["4. close"]; ok {
			out[date] = c
		} else if c, ok := fields["5. adjusted close"]; ok {
			out[date] = c
		} else {
			out[date] = bar
		}
	}
	return out
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MacroLens/internal/cache"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
)

const defaultYahooURL = "https://query1.finance.yahoo.com"

// YahooFetcher reads closing prices from the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *httpx.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL string, client *httpx.Client) *YahooFetcher {
	if baseURL == "" {
		baseURL = defaultYahooURL
	}
	return &YahooFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"NDX":    "^NDX",
			"DJI":    "^DJI",
			"VIX":    "^VIX",
		},
	}
}

func (f *YahooFetcher) Name() string         { return "yahoo" }
func (f *YahooFetcher) Source() model.Source { return model.SourceYahoo }

func (f *YahooFetcher) Supports(freq model.Frequency) bool {
	_, ok := yahooInterval(freq)
	return ok
}

// EntityForms tries the mapped ticker first, then the upper-cased symbol.
func (f *YahooFetcher) EntityForms(code string) (string, string) {
	code = strings.TrimSpace(code)
	if mapped, ok := f.SymbolMap[strings.ToUpper(code)]; ok {
		return mapped, strings.ToUpper(code)
	}
	return code, strings.ToUpper(code)
}

func yahooInterval(freq model.Frequency) (string, bool) {
	switch freq {
	case model.Daily:
		return "1d", true
	case model.Monthly:
		return "1mo", true
	case model.Quarterly:
		return "3mo", true
	}
	return "", false
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []any `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) Fetch(ctx context.Context, q Query) (any, error) {
	interval, ok := yahooInterval(q.Frequency)
	if !ok {
		return nil, fmt.Errorf("yahoo: unsupported frequency %s", q.Frequency)
	}
	params := url.Values{}
	params.Set("interval", interval)
	if q.Range != nil && (!q.Range.Start.IsZero() || !q.Range.End.IsZero()) {
		var start int64
		if !q.Range.Start.IsZero() {
			start = q.Range.Start.Unix()
		}
		end := q.Range.End
		if end.IsZero() {
			end = time.Now()
		}
		params.Set("period1", strconv.FormatInt(start, 10))
		params.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	} else {
		params.Set("range", "max")
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(q.Entity), params.Encode())

	var chart yahooChart
	_, err := f.Client.Get(ctx, u, cache.Data, func(body []byte) error {
		chart = yahooChart{}
		if err := httpx.DecodeJSON(body, &chart); err != nil {
			return fmt.Errorf("%w: yahoo decode: %v", ErrMalformedPayload, err)
		}
		if e := chart.Chart.Error; e != nil {
			if e.Code == "Not Found" {
				return errNoData
			}
			return fmt.Errorf("yahoo api error: %s", e.Description)
		}
		if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
			return errNoData
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoData) || httpx.IsStatus(err, 404) {
			return nil, nil
		}
		return nil, err
	}

	result := chart.Chart.Result[0]
	var closes []any
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	records := make([]any, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		var c any
		if i < len(closes) {
			c = closes[i]
		}
		records = append(records, map[string]any{
			"date":  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			"value": c,
		})
	}
	return records, nil
}

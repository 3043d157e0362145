package collector

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrNotListed is returned by metadata lookups the provider has no answer for.
var ErrNotListed = errors.New("not listed")

// CompanyOverview is the profile kept for a listed company. Numeric fields
// are nil when the provider reports none.
type CompanyOverview struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Exchange      string   `json:"exchange,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Sector        string   `json:"sector,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	MarketCap     *float64 `json:"market_cap"`
	Beta          *float64 `json:"beta"`
	High52        *float64 `json:"high_52_week"`
	Low52         *float64 `json:"low_52_week"`
	ForwardPE     *float64 `json:"forward_pe"`
	DividendYield *float64 `json:"dividend_yield_pct"`
}

// SnapshotValue is one entity's value in a cross-country snapshot.
type SnapshotValue struct {
	Entity string  `json:"entity"`
	Value  float64 `json:"value"`
}

// floatOf reads numbers that arrive as JSON numbers or numeric strings.
// Placeholders such as "None" or "-" are not numbers.
func floatOf(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

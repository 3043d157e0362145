package resolver

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"MacroLens/internal/model"
)

// shape is the structural class of a raw provider response.
type shape int

const (
	shapeEmpty shape = iota
	shapeRecords
	shapeMapping
	shapeUnknown
)

func (s shape) String() string {
	switch s {
	case shapeEmpty:
		return "empty"
	case shapeRecords:
		return "record-list"
	case shapeMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Field aliases accepted for record-style entries, in lookup order.
var (
	dateFields  = []string{"date", "period", "time", "TIME_PERIOD", "@TIME_PERIOD", "datetime", "timestamp"}
	valueFields = []string{"value", "OBS_VALUE", "@OBS_VALUE", "close", "val"}
)

var missingTokens = map[string]bool{
	"": true, ".": true, "-": true, "--": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true,
}

// HasUsableData is false for nil, empty sequences and empty mappings.
func HasUsableData(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case []any:
		return len(v) > 0
	case []map[string]any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case map[string]float64:
		return len(v) > 0
	case string:
		return strings.TrimSpace(v) != ""
	}
	return true
}

func classify(raw any) (shape, []any, map[string]any) {
	switch v := raw.(type) {
	case nil:
		return shapeEmpty, nil, nil
	case []any:
		if len(v) == 0 {
			return shapeEmpty, nil, nil
		}
		return shapeRecords, v, nil
	case []map[string]any:
		if len(v) == 0 {
			return shapeEmpty, nil, nil
		}
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		return shapeRecords, list, nil
	case map[string]any:
		if len(v) == 0 {
			return shapeEmpty, nil, nil
		}
		return shapeMapping, nil, v
	case map[string]float64:
		if len(v) == 0 {
			return shapeEmpty, nil, nil
		}
		m := make(map[string]any, len(v))
		for k, f := range v {
			m[k] = f
		}
		return shapeMapping, nil, m
	}
	return shapeUnknown, nil, nil
}

// entryRule interprets one key/value pair of a mapping response.
type entryRule struct {
	name  string
	apply func(key string, value any) (model.ObservationPoint, bool)
}

// mappingRules run in priority order; the first rule that accepts an entry wins.
// A key that is both numeric and a valid date ("2020") is taken by dateKeyRule.
var mappingRules = []entryRule{
	{name: "date-key", apply: dateKeyRule},
	{name: "nested-record", apply: nestedRecordRule},
	{name: "numeric-key", apply: numericKeyRule},
}

func dateKeyRule(key string, value any) (model.ObservationPoint, bool) {
	date, t, ok := model.ParseDate(key)
	if !ok {
		return model.ObservationPoint{}, false
	}
	v, ok := valueOf(value)
	if !ok {
		return model.ObservationPoint{}, false
	}
	return model.ObservationPoint{Date: date, Time: t, Value: v}, true
}

func nestedRecordRule(_ string, value any) (model.ObservationPoint, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return model.ObservationPoint{}, false
	}
	return recordFromMap(m)
}

func numericKeyRule(key string, value any) (model.ObservationPoint, bool) {
	date, t, ok := model.ParseNumericKey(key)
	if !ok {
		return model.ObservationPoint{}, false
	}
	v, ok := numberOf(value)
	if !ok {
		return model.ObservationPoint{}, false
	}
	return model.ObservationPoint{Date: date, Time: t, Value: v}, true
}

// decodeResult is the outcome of running the cascade over one raw response.
type decodeResult struct {
	shape   shape
	points  []model.ObservationPoint
	skipped int
	// skippedKeys keeps a few examples for logging.
	skippedKeys []string
}

func (d *decodeResult) skip(key string) {
	d.skipped++
	if len(d.skippedKeys) < 5 {
		d.skippedKeys = append(d.skippedKeys, key)
	}
}

func decode(raw any) decodeResult {
	s, list, mapping := classify(raw)
	res := decodeResult{shape: s}
	switch s {
	case shapeRecords:
		for i, elem := range list {
			p, ok := recordPoint(elem)
			if !ok {
				res.skip(strconv.Itoa(i))
				continue
			}
			res.points = append(res.points, p)
		}
	case shapeMapping:
		keys := make([]string, 0, len(mapping))
		for k := range mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			matched := false
			for _, rule := range mappingRules {
				if p, ok := rule.apply(k, mapping[k]); ok {
					res.points = append(res.points, p)
					matched = true
					break
				}
			}
			if !matched {
				res.skip(k)
			}
		}
	}
	return res
}

func recordPoint(elem any) (model.ObservationPoint, bool) {
	switch v := elem.(type) {
	case map[string]any:
		return recordFromMap(v)
	case []any:
		if len(v) != 2 {
			return model.ObservationPoint{}, false
		}
		date, t, ok := dateOf(v[0])
		if !ok {
			return model.ObservationPoint{}, false
		}
		f, ok := numberOf(v[1])
		if !ok {
			return model.ObservationPoint{}, false
		}
		return model.ObservationPoint{Date: date, Time: t, Value: f}, true
	}
	return model.ObservationPoint{}, false
}

func recordFromMap(m map[string]any) (model.ObservationPoint, bool) {
	rawDate, ok := lookupField(m, dateFields)
	if !ok {
		return model.ObservationPoint{}, false
	}
	rawValue, ok := lookupField(m, valueFields)
	if !ok {
		return model.ObservationPoint{}, false
	}
	date, t, ok := dateOf(rawDate)
	if !ok {
		return model.ObservationPoint{}, false
	}
	v, ok := numberOf(rawValue)
	if !ok {
		return model.ObservationPoint{}, false
	}
	return model.ObservationPoint{Date: date, Time: t, Value: v}, true
}

// lookupField returns the first alias present, exact spellings first. The
// case-insensitive pass walks keys in sorted order so "DATE" and "Date" in
// one record always resolve the same way.
func lookupField(m map[string]any, aliases []string) (any, bool) {
	for _, name := range aliases {
		if v, ok := m[name]; ok {
			return v, true
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range aliases {
		for _, k := range keys {
			if strings.EqualFold(k, name) {
				return m[k], true
			}
		}
	}
	return nil, false
}

func dateOf(v any) (string, time.Time, bool) {
	switch d := v.(type) {
	case string:
		if date, t, ok := model.ParseDate(d); ok {
			return date, t, true
		}
		return model.ParseNumericKey(d)
	case float64:
		if d != math.Trunc(d) {
			return "", time.Time{}, false
		}
		return model.ParseNumericDate(int64(d))
	case json.Number:
		n, err := d.Int64()
		if err != nil {
			return "", time.Time{}, false
		}
		return model.ParseNumericDate(n)
	case int:
		return model.ParseNumericDate(int64(d))
	case int64:
		return model.ParseNumericDate(d)
	}
	return "", time.Time{}, false
}

// valueOf is numberOf that also unwraps a mapping carrying a value field.
func valueOf(v any) (float64, bool) {
	if m, ok := v.(map[string]any); ok {
		inner, ok := lookupField(m, valueFields)
		if !ok {
			return 0, false
		}
		return numberOf(inner)
	}
	return numberOf(v)
}

func numberOf(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if missingTokens[strings.ToLower(s)] {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// finalize dedupes by canonical date (last occurrence wins) and sorts
// ascending by period start, breaking ties on the date string.
func finalize(points []model.ObservationPoint) []model.ObservationPoint {
	index := make(map[string]int, len(points))
	out := make([]model.ObservationPoint, 0, len(points))
	for _, p := range points {
		if i, ok := index[p.Date]; ok {
			out[i] = p
			continue
		}
		index[p.Date] = len(out)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Date < out[j].Date
	})
	return out
}

// Package export writes normalized series to CSV, JSON and Excel and reads
// them back.
package export

import (
	"fmt"
	"io"
	"strings"

	"MacroLens/internal/model"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case CSV, JSON, XLSX:
		return f, nil
	case "excel", "xls":
		return XLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json; charset=utf-8"
	}
}

// Filename suggests a download name for a series.
func Filename(req model.SeriesRequest, f Format) string {
	name := fmt.Sprintf("%s_%s_%s_%s", req.Source, req.EntityCode, req.IndicatorCode, req.Frequency)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '^':
			return '-'
		}
		return r
	}, name)
	return name + "." + string(f)
}

// Write serializes the series in the given format.
func Write(w io.Writer, f Format, series *model.NormalizedSeries) error {
	switch f {
	case CSV:
		return WriteCSV(w, series.Points)
	case JSON:
		return WriteJSON(w, series)
	case XLSX:
		return WriteXLSX(w, series.Points)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// Read parses points written by Write. Dates are re-parsed so Time is set.
func Read(r io.Reader, f Format) ([]model.ObservationPoint, error) {
	switch f {
	case CSV:
		return ReadCSV(r)
	case JSON:
		doc, err := ReadJSON(r)
		if err != nil {
			return nil, err
		}
		return doc.Points, nil
	case XLSX:
		return ReadXLSX(r)
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// point rebuilds an observation from its exported date and value.
func point(date string, value float64) (model.ObservationPoint, error) {
	canonical, t, ok := model.ParseDate(date)
	if !ok {
		return model.ObservationPoint{}, fmt.Errorf("unrecognized date %q", date)
	}
	return model.ObservationPoint{Date: canonical, Time: t, Value: value}, nil
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"MacroLens/internal/model"
)

var csvHeader = []string{"date", "value"}

// WriteCSV writes a date,value header followed by one row per point.
func WriteCSV(w io.Writer, points []model.ObservationPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Date, strconv.FormatFloat(p.Value, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads the output of WriteCSV.
func ReadCSV(r io.Reader) ([]model.ObservationPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 || !strings.EqualFold(rows[0][0], "date") {
		return nil, fmt.Errorf("read csv: missing date,value header")
	}
	points := make([]model.ObservationPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i+2, err)
		}
		p, err := point(row[0], v)
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i+2, err)
		}
		points = append(points, p)
	}
	return points, nil
}

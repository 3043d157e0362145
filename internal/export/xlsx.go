package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"MacroLens/internal/model"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding exported points.
const SheetName = "Series"

// WriteXLSX writes a workbook with one sheet: a header row, then dates as
// text and values as numbers.
func WriteXLSX(w io.Writer, points []model.ObservationPoint) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &[]any{"date", "value"}); err != nil {
		return err
	}
	for i, p := range points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]any{p.Date, p.Value}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "A", "B", 14); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

// ReadXLSX reads the Series sheet written by WriteXLSX.
func ReadXLSX(r io.Reader) ([]model.ObservationPoint, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 || !strings.EqualFold(rows[0][0], "date") {
		return nil, fmt.Errorf("read xlsx: missing date,value header")
	}
	points := make([]model.ObservationPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("read xlsx: row %d: expected 2 cells, got %d", i+2, len(row))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("read xlsx: row %d: %w", i+2, err)
		}
		p, err := point(row[0], v)
		if err != nil {
			return nil, fmt.Errorf("read xlsx: row %d: %w", i+2, err)
		}
		points = append(points, p)
	}
	return points, nil
}

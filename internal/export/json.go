package export

import (
	"encoding/json"
	"fmt"
	"io"

	"MacroLens/internal/model"
)

// Document is the JSON export layout.
type Document struct {
	Source    model.Source             `json:"source"`
	Entity    string                   `json:"entity"`
	Indicator string                   `json:"indicator"`
	Frequency model.Frequency          `json:"frequency"`
	Points    []model.ObservationPoint `json:"points"`
}

func WriteJSON(w io.Writer, series *model.NormalizedSeries) error {
	points := series.Points
	if points == nil {
		points = []model.ObservationPoint{}
	}
	entity := series.EntityUsed
	if entity == "" {
		entity = series.Request.EntityCode
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{
		Source:    series.Request.Source,
		Entity:    entity,
		Indicator: series.Request.IndicatorCode,
		Frequency: series.Request.Frequency,
		Points:    points,
	})
}

// ReadJSON decodes a Document and restores each point's Time.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	for i, p := range doc.Points {
		restored, err := point(p.Date, p.Value)
		if err != nil {
			return nil, fmt.Errorf("read json: point %d: %w", i, err)
		}
		doc.Points[i] = restored
	}
	return &doc, nil
}

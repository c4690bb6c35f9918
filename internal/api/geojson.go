package api

import (
	"github.com/alindq/go-road-disruptions/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders marker-eligible records. Callers pass pre-filtered
// records; every record here is expected to carry coordinates.
func toGeoJSON(records []*models.DisruptionRecord) FeatureCollection {
	features := make([]Feature, 0, len(records))

	for _, d := range records {
		if !d.HasCoordinates() {
			continue
		}
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{d.Coordinates.Lon, d.Coordinates.Lat},
			},
			Properties: map[string]any{
				"id":          d.ID,
				"location":    d.Location,
				"severity":    d.Severity,
				"description": d.Description,
				"statusNote":  d.StatusNote,
				"status":      d.Status,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

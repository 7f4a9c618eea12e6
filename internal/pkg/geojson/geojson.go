// Package geojson builds the GeoJSON payloads handed to map renderer
// sources. Only the small subset this service emits is modeled.
package geojson

import (
	"encoding/json"

	"github.com/imartinezl/patitas/internal/core/domain"
)

// FeatureCollection is the root GeoJSON container.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single geographic feature with geometry and properties.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Geometry holds a Point or Polygon geometry.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// NewCollection wraps features in a FeatureCollection.
func NewCollection(features ...Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

// PointFeature builds a Point feature at the given coordinate.
func PointFeature(p domain.LngLat, props map[string]any) Feature {
	return Feature{
		Type:       "Feature",
		Geometry:   Geometry{Type: "Point", Coordinates: p},
		Properties: props,
	}
}

// PolygonFeature builds a Polygon feature from an open ring. The ring is
// closed for rendering by repeating the first point; the input is not
// mutated.
func PolygonFeature(ring []domain.LngLat, props map[string]any) Feature {
	closed := CloseRing(ring)
	return Feature{
		Type:       "Feature",
		Geometry:   Geometry{Type: "Polygon", Coordinates: [][]domain.LngLat{closed}},
		Properties: props,
	}
}

// CloseRing returns a copy of ring with the first point repeated as the
// last, unless it already is.
func CloseRing(ring []domain.LngLat) []domain.LngLat {
	out := append([]domain.LngLat(nil), ring...)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// Marshal renders the collection as the raw message renderer sources take.
func Marshal(fc FeatureCollection) json.RawMessage {
	data, err := json.Marshal(fc)
	if err != nil {
		// The types above cannot fail to marshal; keep the signature easy
		// for callers feeding renderer sources.
		return json.RawMessage(`{"type":"FeatureCollection","features":[]}`)
	}
	return data
}

package mapsync

import (
	"fmt"
	"math"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/pkg/geojson"
)

const (
	overlaySourceID = "patitas-radius"
	overlayLayerID  = "patitas-radius-circle"

	// Reference zoom anchoring the exponential radius interpolation.
	overlayReferenceZoom = 20.0
)

// RadiusOverlay draws the distance-filter circle centered on the user's
// location. The circle keeps its real-world size across zoom levels via
// an exponential stops interpolation anchored at the reference zoom, not
// a fixed pixel radius.
type RadiusOverlay struct {
	renderer   ports.MapRenderer
	visible    bool
	lastCenter domain.GeoPoint
	lastRadius float64
}

// NewRadiusOverlay creates a hidden overlay.
func NewRadiusOverlay(renderer ports.MapRenderer) *RadiusOverlay {
	return &RadiusOverlay{renderer: renderer}
}

// Visible reports whether the circle is currently drawn.
func (o *RadiusOverlay) Visible() bool {
	return o.visible
}

// Update redraws the circle for the given location and radius, or removes
// it when either is absent. Unchanged inputs are a no-op.
func (o *RadiusOverlay) Update(location *domain.GeoPoint, radiusKm float64) error {
	if location == nil || radiusKm <= 0 {
		return o.remove()
	}
	if o.visible && *location == o.lastCenter && radiusKm == o.lastRadius {
		return nil
	}

	data := geojson.Marshal(geojson.NewCollection(
		geojson.PointFeature(location.LngLat(), nil),
	))

	if !o.renderer.HasSource(overlaySourceID) {
		if err := o.renderer.AddSource(overlaySourceID, ports.SourceSpec{}, data); err != nil {
			return fmt.Errorf("add radius source: %w", err)
		}
	} else if err := o.renderer.SetSourceData(overlaySourceID, data); err != nil {
		return fmt.Errorf("update radius source: %w", err)
	}

	// The pixel radius is baked into the layer paint, so a radius or
	// latitude change means replacing the layer.
	if o.renderer.HasLayer(overlayLayerID) {
		if err := o.renderer.RemoveLayer(overlayLayerID); err != nil {
			return fmt.Errorf("replace radius layer: %w", err)
		}
	}
	err := o.renderer.AddLayer(ports.LayerSpec{
		ID:     overlayLayerID,
		Type:   "circle",
		Source: overlaySourceID,
		Paint: map[string]any{
			"circle-radius": []any{
				"interpolate", []any{"exponential", 2}, []any{"zoom"},
				0, 0,
				overlayReferenceZoom, pixelsAtReferenceZoom(radiusKm*1000, location.Lat),
			},
			"circle-color":        "#4DABF7",
			"circle-opacity":      0.15,
			"circle-stroke-width": 1.5,
			"circle-stroke-color": "#1C7ED6",
		},
	})
	if err != nil {
		return fmt.Errorf("add radius layer: %w", err)
	}

	o.visible = true
	o.lastCenter = *location
	o.lastRadius = radiusKm
	return nil
}

// Teardown removes the overlay unconditionally.
func (o *RadiusOverlay) Teardown() error {
	return o.remove()
}

func (o *RadiusOverlay) remove() error {
	if !o.visible {
		return nil
	}
	if o.renderer.HasLayer(overlayLayerID) {
		if err := o.renderer.RemoveLayer(overlayLayerID); err != nil {
			return fmt.Errorf("remove radius layer: %w", err)
		}
	}
	if o.renderer.HasSource(overlaySourceID) {
		if err := o.renderer.RemoveSource(overlaySourceID); err != nil {
			return fmt.Errorf("remove radius source: %w", err)
		}
	}
	o.visible = false
	return nil
}

// pixelsAtReferenceZoom converts a ground distance to screen pixels at
// the reference zoom for the given latitude (web mercator meters per
// pixel: 156543.03392 * cos(lat) / 2^zoom).
func pixelsAtReferenceZoom(meters, lat float64) float64 {
	metersPerPixel := 156543.03392 * math.Cos(lat*math.Pi/180) / math.Pow(2, overlayReferenceZoom)
	return meters / metersPerPixel
}

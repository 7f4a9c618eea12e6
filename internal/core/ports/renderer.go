package ports

import (
	"context"
	"encoding/json"
	"time"
)

// SourceSpec describes a named GeoJSON source on the map renderer.
type SourceSpec struct {
	Cluster        bool `json:"cluster,omitempty"`
	ClusterMaxZoom int  `json:"cluster_max_zoom,omitempty"`
	ClusterRadius  int  `json:"cluster_radius,omitempty"`
}

// LayerSpec describes a styled layer bound to a source.
type LayerSpec struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"` // "circle" | "fill" | "line" | "symbol"
	Source string         `json:"source"`
	Filter []any          `json:"filter,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

// MarkerSpec describes a single point marker with its visual encoding.
type MarkerSpec struct {
	ID    string  `json:"id"`
	Lng   float64 `json:"lng"`
	Lat   float64 `json:"lat"`
	Color string  `json:"color"`
	Icon  string  `json:"icon"`
}

// MapRenderer is the capability contract for the externally-owned map
// surface. The core never touches the rendering engine directly; every
// mutation of the map goes through this port. Implementations must reject
// duplicate source and layer ids, which is why callers are expected to
// check Has* before adding.
type MapRenderer interface {
	// Sources and layers.
	AddSource(id string, spec SourceSpec, data json.RawMessage) error
	SetSourceData(id string, data json.RawMessage) error
	RemoveSource(id string) error
	HasSource(id string) bool
	AddLayer(spec LayerSpec) error
	RemoveLayer(id string) error
	HasLayer(id string) bool

	// Point markers. Marker clicks are reported back through the session
	// event stream keyed by marker id.
	AddMarker(spec MarkerSpec) error
	MoveMarker(id string, lng, lat float64) error
	RemoveMarker(id string) error

	// Camera.
	FlyTo(lng, lat, zoom float64, duration time.Duration) error

	// ClusterExpansionZoom asks the clustering primitive at which zoom the
	// given cluster fully expands.
	ClusterExpansionZoom(ctx context.Context, sourceID string, clusterID int64) (float64, error)
}

// Geolocator is the device-position capability. Fixes are delivered
// asynchronously through the session event stream; Locate only requests
// them. A watch keeps delivering fixes until StopWatch.
type Geolocator interface {
	Locate(watch bool) error
	StopWatch() error
}

// Notifier presents transient user-visible notifications. Presentation
// itself is out of scope; the core only emits them.
type Notifier interface {
	Notify(level, message string) error
}

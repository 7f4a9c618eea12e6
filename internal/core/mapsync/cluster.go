package mapsync

import (
	"context"
	"fmt"
	"time"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/pkg/geojson"
)

// Renderer ids owned by the clustering subsystem. They are unique within
// the renderer so activation can guard against double-registration.
const (
	ClusterSourceID = "patitas-sightings"
	clusterLayerID  = "patitas-clusters"
	pointLayerID    = "patitas-cluster-points"
)

// ClusterConfig tunes the renderer's spatial clustering primitive.
type ClusterConfig struct {
	Radius      int           // cluster pixel radius
	MaxZoom     int           // zoom above which points stay unclustered
	FlyDuration time.Duration // camera animation on cluster expansion
}

// ClusterController is the alternate render mode: the visible set is
// handed to the renderer's clustering source instead of per-entity
// markers. Mutually exclusive with the Synchronizer; the session enforces
// that one is torn down before the other activates.
type ClusterController struct {
	renderer ports.MapRenderer
	cfg      ClusterConfig
	active   bool
}

// NewClusterController creates an inactive controller.
func NewClusterController(renderer ports.MapRenderer, cfg ClusterConfig) *ClusterController {
	return &ClusterController{renderer: renderer, cfg: cfg}
}

// Active reports whether the cluster source and layers are registered.
func (c *ClusterController) Active() bool {
	return c.active
}

// Activate registers the cluster source and its two layers, seeding them
// with the visible set. Safe to call when already active: the data is
// refreshed instead (the renderer errors on duplicate ids, so sources
// and layers are checked before adding).
func (c *ClusterController) Activate(visible []domain.Animal) error {
	if c.active {
		return c.SetData(visible)
	}

	if !c.renderer.HasSource(ClusterSourceID) {
		spec := ports.SourceSpec{
			Cluster:        true,
			ClusterMaxZoom: c.cfg.MaxZoom,
			ClusterRadius:  c.cfg.Radius,
		}
		if err := c.renderer.AddSource(ClusterSourceID, spec, collectionFor(visible)); err != nil {
			return fmt.Errorf("add cluster source: %w", err)
		}
	}

	// Cluster bubbles, sized and colored by contained-point count.
	if !c.renderer.HasLayer(clusterLayerID) {
		err := c.renderer.AddLayer(ports.LayerSpec{
			ID:     clusterLayerID,
			Type:   "circle",
			Source: ClusterSourceID,
			Filter: []any{"has", "point_count"},
			Paint: map[string]any{
				"circle-color": []any{
					"step", []any{"get", "point_count"},
					"#74C0FC", 10, "#4DABF7", 25, "#1C7ED6",
				},
				"circle-radius": []any{
					"step", []any{"get", "point_count"},
					16, 10, 22, 25, 28,
				},
				"circle-stroke-width": 2,
				"circle-stroke-color": "#FFFFFF",
			},
		})
		if err != nil {
			return fmt.Errorf("add cluster layer: %w", err)
		}
	}

	// Unclustered points, colored by the shared status table.
	if !c.renderer.HasLayer(pointLayerID) {
		err := c.renderer.AddLayer(ports.LayerSpec{
			ID:     pointLayerID,
			Type:   "circle",
			Source: ClusterSourceID,
			Filter: []any{"!", []any{"has", "point_count"}},
			Paint: map[string]any{
				"circle-color":        statusColorExpression(),
				"circle-radius":       7,
				"circle-stroke-width": 1,
				"circle-stroke-color": "#FFFFFF",
			},
		})
		if err != nil {
			return fmt.Errorf("add cluster point layer: %w", err)
		}
	}

	c.active = true
	return nil
}

// SetData refreshes the cluster source with the current visible set.
func (c *ClusterController) SetData(visible []domain.Animal) error {
	if !c.active {
		return nil
	}
	return c.renderer.SetSourceData(ClusterSourceID, collectionFor(visible))
}

// Deactivate removes the layers and source. Layers go first: renderers
// reject removing a source that still has layers bound.
func (c *ClusterController) Deactivate() error {
	if !c.active {
		return nil
	}
	for _, layer := range []string{clusterLayerID, pointLayerID} {
		if c.renderer.HasLayer(layer) {
			if err := c.renderer.RemoveLayer(layer); err != nil {
				return fmt.Errorf("remove layer %s: %w", layer, err)
			}
		}
	}
	if c.renderer.HasSource(ClusterSourceID) {
		if err := c.renderer.RemoveSource(ClusterSourceID); err != nil {
			return fmt.Errorf("remove cluster source: %w", err)
		}
	}
	c.active = false
	return nil
}

// ExpandCluster queries the zoom at which the clicked cluster fully
// expands and flies the camera there.
func (c *ClusterController) ExpandCluster(ctx context.Context, clusterID int64, lng, lat float64) error {
	zoom, err := c.renderer.ClusterExpansionZoom(ctx, ClusterSourceID, clusterID)
	if err != nil {
		return fmt.Errorf("cluster expansion zoom: %w", err)
	}
	return c.renderer.FlyTo(lng, lat, zoom, c.cfg.FlyDuration)
}

func collectionFor(visible []domain.Animal) []byte {
	features := make([]geojson.Feature, 0, len(visible))
	for _, a := range visible {
		features = append(features, geojson.PointFeature(a.Location.LngLat(), map[string]any{
			"id":     a.ID,
			"type":   string(a.Type),
			"status": string(a.Status),
			"name":   a.Name,
		}))
	}
	return geojson.Marshal(geojson.NewCollection(features...))
}

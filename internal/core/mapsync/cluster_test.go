package mapsync_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/mapsync"
)

func clusterCfg() mapsync.ClusterConfig {
	return mapsync.ClusterConfig{Radius: 50, MaxZoom: 14, FlyDuration: 500 * time.Millisecond}
}

func TestClusterActivate_RegistersSourceAndLayers(t *testing.T) {
	r := newFakeRenderer()
	c := mapsync.NewClusterController(r, clusterCfg())

	visible := []domain.Animal{
		animal("a", domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93),
		animal("b", domain.TypeDog, domain.StatusAdopted, 43.27, -2.94),
	}
	if err := c.Activate(visible); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !r.HasSource(mapsync.ClusterSourceID) {
		t.Fatal("expected cluster source registered")
	}
	spec := r.sources[mapsync.ClusterSourceID]
	if !spec.Cluster || spec.ClusterRadius != 50 || spec.ClusterMaxZoom != 14 {
		t.Errorf("cluster source misconfigured: %+v", spec)
	}
	if len(r.layers) != 2 {
		t.Errorf("expected 2 layers, got %d", len(r.layers))
	}

	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(r.sourceData[mapsync.ClusterSourceID], &fc); err != nil {
		t.Fatalf("source data is not valid GeoJSON: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["status"] != "needs_help" {
		t.Errorf("expected status property, got %v", fc.Features[0].Properties)
	}
}

func TestClusterActivate_WhenActiveRefreshesData(t *testing.T) {
	r := newFakeRenderer()
	c := mapsync.NewClusterController(r, clusterCfg())

	if err := c.Activate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(r.ops)

	if err := c.Activate([]domain.Animal{animal("a", domain.TypeCat, domain.StatusReported, 43.26, -2.93)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only a data refresh, never a duplicate source/layer registration.
	for _, op := range r.ops[before:] {
		if strings.HasPrefix(op, "add_source") || strings.HasPrefix(op, "add_layer") {
			t.Errorf("unexpected re-registration: %s", op)
		}
	}
}

func TestClusterDeactivate_TearsDownLayersBeforeSource(t *testing.T) {
	r := newFakeRenderer()
	c := mapsync.NewClusterController(r, clusterCfg())
	if err := c.Activate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Deactivate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.layers) != 0 || len(r.sources) != 0 {
		t.Error("expected all cluster layers and sources removed")
	}

	var sawSourceRemoval bool
	for _, op := range r.ops {
		if strings.HasPrefix(op, "remove_layer") && sawSourceRemoval {
			t.Error("layers must be removed before the source")
		}
		if op == "remove_source:"+mapsync.ClusterSourceID {
			sawSourceRemoval = true
		}
	}
	if !sawSourceRemoval {
		t.Error("source was never removed")
	}

	// Deactivating twice is a no-op.
	if err := c.Deactivate(); err != nil {
		t.Errorf("second deactivate should be a no-op, got %v", err)
	}
}

func TestExpandCluster_FliesToExpansionZoom(t *testing.T) {
	r := newFakeRenderer()
	r.expansionZoom = 13.5
	c := mapsync.NewClusterController(r, clusterCfg())
	if err := c.Activate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.ExpandCluster(context.Background(), 42, -2.93, 43.26); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.flights) != 1 {
		t.Fatalf("expected one camera move, got %d", len(r.flights))
	}
	f := r.flights[0]
	if f.zoom != 13.5 || f.lng != -2.93 || f.lat != 43.26 {
		t.Errorf("camera flew to wrong place: %+v", f)
	}
	if f.duration != 500*time.Millisecond {
		t.Errorf("expected bounded fixed duration, got %v", f.duration)
	}
}

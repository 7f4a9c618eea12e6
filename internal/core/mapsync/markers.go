// Package mapsync keeps the externally-owned map surface consistent with
// the filtered sighting set. It owns the registry of rendered handles;
// no other code mutates the renderer for sightings.
package mapsync

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/ports"
)

// Synchronizer reconciles the visible sighting set against per-entity map
// markers. The registry is the single source of truth for what is
// currently rendered; after every Reconcile its key set equals the
// visible id set exactly.
type Synchronizer struct {
	renderer ports.MapRenderer
	registry map[string]domain.GeoPoint // id -> last rendered position
}

// NewSynchronizer creates a synchronizer with an empty registry.
func NewSynchronizer(renderer ports.MapRenderer) *Synchronizer {
	return &Synchronizer{
		renderer: renderer,
		registry: make(map[string]domain.GeoPoint),
	}
}

// Reconcile applies the minimal create/remove/move set so the rendered
// markers match visible. It is idempotent: a second pass with unchanged
// input performs no renderer calls. A failure on one entity is logged and
// does not stop the pass; the aggregate error is returned for callers
// that want it.
func (s *Synchronizer) Reconcile(visible []domain.Animal) error {
	want := make(map[string]domain.Animal, len(visible))
	for _, a := range visible {
		want[a.ID] = a
	}

	var errs []error

	// 1. Drop markers whose entity left the visible set. A renderer
	// error here means the handle is already gone; treat it as benign
	// and forget the registry entry either way so the next pass
	// self-heals.
	for id := range s.registry {
		if _, ok := want[id]; ok {
			continue
		}
		if err := s.renderer.RemoveMarker(id); err != nil {
			slog.Debug("marker already detached", "id", id, "error", err)
		}
		delete(s.registry, id)
	}

	// 2. Create missing markers, reposition moved ones.
	for _, a := range visible {
		pos, rendered := s.registry[a.ID]
		if !rendered {
			spec := ports.MarkerSpec{
				ID:    a.ID,
				Lng:   a.Location.Lng,
				Lat:   a.Location.Lat,
				Color: StatusColor(a.Status),
				Icon:  TypeIcon(a.Type),
			}
			if err := s.renderer.AddMarker(spec); err != nil {
				errs = append(errs, fmt.Errorf("add marker %s: %w", a.ID, err))
				continue
			}
			s.registry[a.ID] = a.Location
			continue
		}
		if pos != a.Location {
			if err := s.renderer.MoveMarker(a.ID, a.Location.Lng, a.Location.Lat); err != nil {
				errs = append(errs, fmt.Errorf("move marker %s: %w", a.ID, err))
				continue
			}
			s.registry[a.ID] = a.Location
		}
	}

	return errors.Join(errs...)
}

// Has reports whether the entity id is currently rendered.
func (s *Synchronizer) Has(id string) bool {
	_, ok := s.registry[id]
	return ok
}

// Size returns how many markers are currently rendered.
func (s *Synchronizer) Size() int {
	return len(s.registry)
}

// Teardown removes every rendered marker and empties the registry.
func (s *Synchronizer) Teardown() {
	for id := range s.registry {
		if err := s.renderer.RemoveMarker(id); err != nil {
			slog.Debug("marker already detached", "id", id, "error", err)
		}
		delete(s.registry, id)
	}
}

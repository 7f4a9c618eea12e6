package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/draw"
	"github.com/imartinezl/patitas/internal/core/filter"
	"github.com/imartinezl/patitas/internal/core/mapsync"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/core/store"
)

// RenderMode selects how the visible set reaches the map. The modes are
// mutually exclusive: the session tears one down before activating the
// other.
type RenderMode int

const (
	// ModeMarkers renders one individually-managed marker per sighting.
	ModeMarkers RenderMode = iota
	// ModeCluster hands the visible set to the renderer's clustering
	// source.
	ModeCluster
)

func (m RenderMode) String() string {
	if m == ModeCluster {
		return "cluster"
	}
	return "markers"
}

// SessionConfig tunes per-session map behavior.
type SessionConfig struct {
	Cluster    mapsync.ClusterConfig
	SelectZoom float64       // camera zoom when a marker is selected
	FlyTime    time.Duration // camera animation on selection
}

// MapSession owns everything one connected map client sees: filter
// criteria, render mode, selection, the drawing machine, and the user's
// location. All entry points serialize on one mutex, so every refresh
// works from a consistent view. Store changes arrive on a coalesced
// trigger channel drained by a background worker; a burst of mutations
// collapses into one reconciliation against the latest snapshot.
type MapSession struct {
	mu sync.Mutex

	store      *store.Store
	renderer   ports.MapRenderer
	geolocator ports.Geolocator
	notifier   ports.Notifier
	logger     *slog.Logger
	cfg        SessionConfig

	markers *mapsync.Synchronizer
	cluster *mapsync.ClusterController
	overlay *mapsync.RadiusOverlay
	drawer  *draw.Machine

	criteria filter.Criteria
	location *domain.GeoPoint
	tracking bool
	mode     RenderMode
	selected *domain.Animal

	trigger     chan struct{}
	unsubscribe func()
	done        chan struct{}
	closed      bool
	closeOnce   sync.Once
}

// NewMapSession creates a session bound to one renderer and starts its
// refresh worker. The caller must Close it when the client disconnects.
func NewMapSession(st *store.Store, renderer ports.MapRenderer, areas *AreaService, geolocator ports.Geolocator, notifier ports.Notifier, cfg SessionConfig, logger *slog.Logger) *MapSession {
	s := &MapSession{
		store:      st,
		renderer:   renderer,
		geolocator: geolocator,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
		markers:    mapsync.NewSynchronizer(renderer),
		cluster:    mapsync.NewClusterController(renderer, cfg.Cluster),
		overlay:    mapsync.NewRadiusOverlay(renderer),
		drawer:     draw.NewMachine(renderer, areas),
		criteria:   filter.Criteria{Type: filter.TypeAll},
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.unsubscribe = st.Subscribe(s.trigger)
	go s.worker()
	return s
}

func (s *MapSession) worker() {
	for {
		select {
		case <-s.done:
			return
		case <-s.trigger:
			if err := s.Refresh(); err != nil {
				s.logger.Warn("map refresh failed", "error", err)
			}
		}
	}
}

// Criteria returns the active filter criteria.
func (s *MapSession) Criteria() filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Mode returns the active render mode.
func (s *MapSession) Mode() RenderMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Selected returns the selected sighting's cached copy, or nil.
func (s *MapSession) Selected() *domain.Animal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	a := *s.selected
	return &a
}

// Drawer exposes the drawing machine's state for the client UI.
func (s *MapSession) Drawer() draw.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawer.State()
}

// SetCriteria replaces the filter criteria and refreshes the map.
func (s *MapSession) SetCriteria(c filter.Criteria) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c = c.Normalize()
	if !c.Type.Valid() {
		c.Type = filter.TypeAll
	}
	s.criteria = c
	return s.refresh()
}

// SetRenderMode switches between markers and clustering. The outgoing
// mode is fully torn down before the incoming one activates, so the two
// never overlap on the renderer.
func (s *MapSession) SetRenderMode(mode RenderMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.mode {
		return nil
	}
	switch mode {
	case ModeCluster:
		s.markers.Teardown()
	case ModeMarkers:
		if err := s.cluster.Deactivate(); err != nil {
			return err
		}
	}
	s.mode = mode
	return s.refresh()
}

// SetLocation records a location fix and refreshes, moving the distance
// filter and its overlay with the user.
func (s *MapSession) SetLocation(p *domain.GeoPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = p
	return s.refresh()
}

// EnableTracking asks the geolocator for a continuous watch. Fixes come
// back through SetLocation.
func (s *MapSession) EnableTracking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracking {
		return nil
	}
	if err := s.geolocator.Locate(true); err != nil {
		return err
	}
	s.tracking = true
	return nil
}

// DisableTracking stops the watch and drops the last fix, so the
// distance filter falls open again.
func (s *MapSession) DisableTracking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracking {
		return nil
	}
	if err := s.geolocator.StopWatch(); err != nil {
		return err
	}
	s.tracking = false
	s.location = nil
	return s.refresh()
}

// HandleMapClick routes a map click. While a drawing is active the click
// becomes a vertex and nothing else sees it; otherwise it clears the
// selection.
func (s *MapSession) HandleMapClick(lng, lat float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawer.Active() {
		return s.drawer.AddPoint(domain.LngLat{lng, lat})
	}
	s.selected = nil
	return nil
}

// HandleMarkerClick selects the sighting and flies the camera to it.
// Ignored while drawing.
func (s *MapSession) HandleMarkerClick(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawer.Active() {
		return nil
	}
	a, ok := s.store.Animal(id)
	if !ok {
		s.selected = nil
		return nil
	}
	s.selected = &a
	return s.renderer.FlyTo(a.Location.Lng, a.Location.Lat, s.cfg.SelectZoom, s.cfg.FlyTime)
}

// HandleClusterClick expands the clicked cluster. Ignored outside
// cluster mode.
func (s *MapSession) HandleClusterClick(ctx context.Context, clusterID int64, lng, lat float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCluster {
		return nil
	}
	return s.cluster.ExpandCluster(ctx, clusterID, lng, lat)
}

// ToggleDraw starts or finishes an area drawing. A drawing finished with
// too few points is reported to the user and discarded.
func (s *MapSession) ToggleDraw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.drawer.Toggle(); err != nil {
		s.notify("warning", "An area needs at least three points.")
		return err
	}
	return nil
}

// CommitArea labels the pending polygon.
func (s *MapSession) CommitArea(label, description string) (domain.AreaLabel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	area, err := s.drawer.Commit(label, description)
	if err != nil {
		return domain.AreaLabel{}, err
	}
	s.notify("info", "Area \""+area.Label+"\" saved.")
	return area, nil
}

// DiscardArea drops the pending polygon.
func (s *MapSession) DiscardArea() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawer.Discard()
}

// Refresh recomputes the visible set and reconciles the renderer. Called
// by the worker on store changes; exported so transports can force a
// first paint right after the session is created.
func (s *MapSession) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh()
}

// refresh runs under s.mu.
func (s *MapSession) refresh() error {
	if s.closed {
		return nil
	}
	visible := filter.Visible(s.store.Animals(), s.criteria, s.location)

	// The selection mirrors the store, within the same pass that redraws
	// the map.
	if s.selected != nil {
		if a, ok := s.store.Animal(s.selected.ID); ok {
			s.selected = &a
		} else {
			s.selected = nil
		}
	}

	if err := s.overlay.Update(s.location, s.criteria.RadiusKm); err != nil {
		return err
	}

	switch s.mode {
	case ModeCluster:
		return s.cluster.Activate(visible)
	default:
		return s.markers.Reconcile(visible)
	}
}

// Close stops the worker, detaches from the store, and removes
// everything the session put on the renderer.
func (s *MapSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.unsubscribe()
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if s.tracking {
			if werr := s.geolocator.StopWatch(); werr != nil {
				s.logger.Warn("stop location watch", "error", werr)
			}
			s.tracking = false
		}
		if cerr := s.drawer.Cancel(); cerr != nil && err == nil {
			err = cerr
		}
		if oerr := s.overlay.Teardown(); oerr != nil && err == nil {
			err = oerr
		}
		if cerr := s.cluster.Deactivate(); cerr != nil && err == nil {
			err = cerr
		}
		s.markers.Teardown()
	})
	return err
}

func (s *MapSession) notify(level, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(level, message)
}

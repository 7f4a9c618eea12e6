package usecases_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/filter"
	"github.com/imartinezl/patitas/internal/core/mapsync"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/core/store"
	"github.com/imartinezl/patitas/internal/core/usecases"
)

// --- Mocks ---

// mockRenderer is locked because the session's refresh worker drives it
// concurrently with the test's assertions.
type mockRenderer struct {
	mu         sync.Mutex
	markers    map[string][2]float64
	sources    map[string]ports.SourceSpec
	sourceData map[string][]byte
	layers     map[string]ports.LayerSpec
	flights    []float64 // zoom of each camera move
}

func newMockRenderer() *mockRenderer {
	return &mockRenderer{
		markers:    make(map[string][2]float64),
		sources:    make(map[string]ports.SourceSpec),
		sourceData: make(map[string][]byte),
		layers:     make(map[string]ports.LayerSpec),
	}
}

func (m *mockRenderer) AddSource(id string, spec ports.SourceSpec, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; ok {
		return fmt.Errorf("source %s already exists", id)
	}
	m.sources[id] = spec
	m.sourceData[id] = data
	return nil
}

func (m *mockRenderer) SetSourceData(id string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return fmt.Errorf("source %s not found", id)
	}
	m.sourceData[id] = data
	return nil
}

func (m *mockRenderer) RemoveSource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
	delete(m.sourceData, id)
	return nil
}

func (m *mockRenderer) HasSource(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sources[id]
	return ok
}

func (m *mockRenderer) AddLayer(spec ports.LayerSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[spec.ID]; ok {
		return fmt.Errorf("layer %s already exists", spec.ID)
	}
	m.layers[spec.ID] = spec
	return nil
}

func (m *mockRenderer) RemoveLayer(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.layers, id)
	return nil
}

func (m *mockRenderer) HasLayer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.layers[id]
	return ok
}

func (m *mockRenderer) AddMarker(spec ports.MarkerSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markers[spec.ID]; ok {
		return fmt.Errorf("marker %s already exists", spec.ID)
	}
	m.markers[spec.ID] = [2]float64{spec.Lng, spec.Lat}
	return nil
}

func (m *mockRenderer) MoveMarker(id string, lng, lat float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markers[id]; !ok {
		return fmt.Errorf("marker %s not found", id)
	}
	m.markers[id] = [2]float64{lng, lat}
	return nil
}

func (m *mockRenderer) RemoveMarker(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markers[id]; !ok {
		return fmt.Errorf("marker %s not found", id)
	}
	delete(m.markers, id)
	return nil
}

func (m *mockRenderer) FlyTo(lng, lat, zoom float64, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flights = append(m.flights, zoom)
	return nil
}

func (m *mockRenderer) ClusterExpansionZoom(ctx context.Context, sourceID string, clusterID int64) (float64, error) {
	return 12, nil
}

func (m *mockRenderer) markerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

func (m *mockRenderer) hasMarker(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.markers[id]
	return ok
}

func (m *mockRenderer) sourceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

func (m *mockRenderer) layerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layers)
}

func (m *mockRenderer) flightZooms() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.flights...)
}

type mockGeolocator struct {
	mu       sync.Mutex
	watching bool
}

func (g *mockGeolocator) Locate(watch bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.watching = watch
	return nil
}

func (g *mockGeolocator) StopWatch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.watching = false
	return nil
}

func (g *mockGeolocator) isWatching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.watching
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *mockNotifier) Notify(level, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, level+": "+message)
	return nil
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionConfig() usecases.SessionConfig {
	return usecases.SessionConfig{
		Cluster:    mapsync.ClusterConfig{Radius: 50, MaxZoom: 14, FlyDuration: time.Second},
		SelectZoom: 16,
		FlyTime:    800 * time.Millisecond,
	}
}

func newSession(t *testing.T, st *store.Store, r ports.MapRenderer) (*usecases.MapSession, *mockGeolocator, *mockNotifier) {
	t.Helper()
	geo := &mockGeolocator{}
	notifier := &mockNotifier{}
	areas := usecases.NewAreaService(st, nil, testLogger())
	s := usecases.NewMapSession(st, r, areas, geo, notifier, sessionConfig(), testLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s, geo, notifier
}

func report(t *testing.T, st *store.Store, typ domain.AnimalType, status domain.AnimalStatus, lat, lng float64) domain.Animal {
	t.Helper()
	a, err := st.AddAnimal(domain.Animal{
		Type:     typ,
		Status:   status,
		Location: domain.GeoPoint{Lat: lat, Lng: lng},
	})
	if err != nil {
		t.Fatalf("add animal: %v", err)
	}
	return a
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// --- Tests ---

func TestSession_ReportsAppearAsMarkers(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	if s.Mode() != usecases.ModeMarkers {
		t.Fatal("sessions start in marker mode")
	}
	report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	report(t, st, domain.TypeDog, domain.StatusReported, 43.27, -2.94)

	waitFor(t, func() bool { return r.markerCount() == 2 })
}

func TestSession_FilterChangeNarrowsMarkers(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	cat := report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	report(t, st, domain.TypeDog, domain.StatusReported, 43.27, -2.94)
	waitFor(t, func() bool { return r.markerCount() == 2 })

	if err := s.SetCriteria(filter.Criteria{Type: filter.TypeCats}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return r.markerCount() == 1 && r.hasMarker(cat.ID) })
}

func TestSession_ClusterToggleRoundTrip(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	report(t, st, domain.TypeDog, domain.StatusReported, 43.27, -2.94)
	waitFor(t, func() bool { return r.markerCount() == 2 })

	if err := s.SetRenderMode(usecases.ModeCluster); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.markerCount() != 0 {
		t.Error("cluster mode must remove every individual marker")
	}
	if !r.HasSource(mapsync.ClusterSourceID) {
		t.Error("cluster mode must register the cluster source")
	}

	if err := s.SetRenderMode(usecases.ModeMarkers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.HasSource(mapsync.ClusterSourceID) || r.layerCount() != 0 {
		t.Error("marker mode must tear the cluster source and layers down")
	}
	waitFor(t, func() bool { return r.markerCount() == 2 })
}

func TestSession_SelectionFollowsStore(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	a := report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	waitFor(t, func() bool { return r.markerCount() == 1 })

	if err := s.HandleMarkerClick(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel := s.Selected(); sel == nil || sel.ID != a.ID {
		t.Fatal("expected the clicked sighting selected")
	}
	if zooms := r.flightZooms(); len(zooms) != 1 || zooms[0] != 16 {
		t.Errorf("expected camera fly to select zoom, got %v", zooms)
	}

	st.UpdateStatus(a.ID, domain.StatusAdopted)
	waitFor(t, func() bool {
		sel := s.Selected()
		return sel != nil && sel.Status == domain.StatusAdopted
	})

	// A plain map click clears the selection.
	if err := s.HandleMapClick(-2.90, 43.20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Selected() != nil {
		t.Error("map click should clear the selection")
	}
}

func TestSession_DrawingCapturesClicks(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	a := report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	waitFor(t, func() bool { return r.markerCount() == 1 })
	if err := s.HandleMarkerClick(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.ToggleDraw(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range [][2]float64{{-2.93, 43.26}, {-2.94, 43.27}, {-2.92, 43.27}} {
		if err := s.HandleMapClick(p[0], p[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Clicks went to the drawing, not the selection.
	if sel := s.Selected(); sel == nil {
		t.Error("selection must survive drawing-mode clicks")
	}
	if err := s.HandleMarkerClick(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.flightZooms()) != 1 {
		t.Error("marker clicks must be ignored while drawing")
	}

	if err := s.ToggleDraw(); err != nil {
		t.Fatalf("finishing a triangle should succeed: %v", err)
	}
	area, err := s.CommitArea("colony", "feeding corner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if area.Label != "colony" {
		t.Errorf("unexpected area: %+v", area)
	}
	if got := st.Areas(); len(got) != 1 || len(got[0].Coordinates) != 3 {
		t.Errorf("expected the polygon persisted, got %+v", got)
	}
}

func TestSession_TooFewPointsNotifiesAndResets(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, notifier := newSession(t, st, r)

	if err := s.ToggleDraw(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.HandleMapClick(-2.93, 43.26); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.ToggleDraw(); err == nil {
		t.Fatal("finishing a one-point drawing must fail")
	}
	if notifier.count() == 0 {
		t.Error("the user should be told why the drawing was dropped")
	}
	if len(st.Areas()) != 0 {
		t.Error("nothing must be persisted")
	}
}

func TestSession_DistanceFilterFailsOpenWithoutLocation(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	report(t, st, domain.TypeDog, domain.StatusReported, 40.42, -3.70) // Madrid, far away
	waitFor(t, func() bool { return r.markerCount() == 2 })

	// Radius active but no location: everything stays visible, no circle.
	if err := s.SetCriteria(filter.Criteria{Type: filter.TypeAll, RadiusKm: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.markerCount() != 2 {
		t.Error("distance filter must fail open without a location")
	}
	if r.HasSource("patitas-radius") {
		t.Error("radius overlay needs a location to draw")
	}

	// A fix arrives: the far sighting drops and the circle appears.
	if err := s.SetLocation(&domain.GeoPoint{Lat: 43.263, Lng: -2.935}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return r.markerCount() == 1 })
	if !r.HasSource("patitas-radius") {
		t.Error("radius overlay should be drawn with location and radius set")
	}
}

func TestSession_DisableTrackingDropsLocation(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, geo, _ := newSession(t, st, r)

	if err := s.EnableTracking(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !geo.isWatching() {
		t.Fatal("expected a continuous watch requested")
	}

	report(t, st, domain.TypeDog, domain.StatusReported, 40.42, -3.70)
	waitFor(t, func() bool { return r.markerCount() == 1 })
	if err := s.SetCriteria(filter.Criteria{Type: filter.TypeAll, RadiusKm: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetLocation(&domain.GeoPoint{Lat: 43.263, Lng: -2.935}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return r.markerCount() == 0 })

	if err := s.DisableTracking(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geo.isWatching() {
		t.Error("watch must stop")
	}
	waitFor(t, func() bool { return r.markerCount() == 1 })
}

func TestSession_CloseTearsEverythingDown(t *testing.T) {
	st := store.New()
	r := newMockRenderer()
	s, _, _ := newSession(t, st, r)

	report(t, st, domain.TypeCat, domain.StatusNeedsHelp, 43.26, -2.93)
	waitFor(t, func() bool { return r.markerCount() == 1 })
	if err := s.SetCriteria(filter.Criteria{Type: filter.TypeAll, RadiusKm: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetLocation(&domain.GeoPoint{Lat: 43.263, Lng: -2.935}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ToggleDraw(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.HandleMapClick(-2.93, 43.26); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.markerCount() != 0 || r.sourceCount() != 0 || r.layerCount() != 0 {
		t.Error("close must remove everything the session rendered")
	}

	// Mutations after close must not reach the renderer.
	report(t, st, domain.TypeDog, domain.StatusReported, 43.27, -2.94)
	time.Sleep(50 * time.Millisecond)
	if r.markerCount() != 0 {
		t.Error("a closed session must be detached from the store")
	}
}

package draw

import (
	"errors"
	"fmt"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/pkg/geojson"
)

// ErrTooFewPoints is returned when a drawing is finished with fewer than
// three vertices, which cannot form a polygon.
var ErrTooFewPoints = errors.New("draw: polygon needs at least 3 points")

// ErrNoPendingPolygon is returned when a commit or discard arrives while
// no finished polygon is awaiting its label.
var ErrNoPendingPolygon = errors.New("draw: no polygon pending a label")

const (
	previewSourceID = "patitas-draw-preview"
	previewLayerID  = "patitas-draw-preview-fill"
	outlineLayerID  = "patitas-draw-preview-line"
)

// State is the drawing machine's position in its lifecycle.
type State int

const (
	// StateIdle: not drawing, map clicks go to the regular handlers.
	StateIdle State = iota
	// StateDrawing: clicks append vertices and refresh the preview.
	StateDrawing
	// StatePendingLabel: geometry is frozen, waiting for label text.
	StatePendingLabel
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StatePendingLabel:
		return "pending_label"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AreaCommitter persists a finished, labeled polygon.
type AreaCommitter interface {
	AddAreaLabel(label, description string, coords []domain.LngLat) (domain.AreaLabel, error)
}

// Machine is the area-drawing state machine. While it is in StateDrawing
// it owns all map clicks; the session routes them here instead of the
// selection handlers. Not safe for concurrent use; the owning session
// serializes access.
type Machine struct {
	renderer  ports.MapRenderer
	committer AreaCommitter

	state  State
	points []domain.LngLat
}

// NewMachine creates an idle drawing machine.
func NewMachine(renderer ports.MapRenderer, committer AreaCommitter) *Machine {
	return &Machine{renderer: renderer, committer: committer}
}

// State returns the machine's current state.
func (m *Machine) State() State {
	return m.state
}

// Active reports whether the machine is capturing map clicks.
func (m *Machine) Active() bool {
	return m.state == StateDrawing
}

// Points returns a copy of the vertices collected so far.
func (m *Machine) Points() []domain.LngLat {
	out := make([]domain.LngLat, len(m.points))
	copy(out, m.points)
	return out
}

// Toggle starts a drawing when idle and finishes it when active. This is
// the single entry point behind the draw control, so starting and
// finishing cannot race each other.
func (m *Machine) Toggle() error {
	switch m.state {
	case StateIdle:
		m.state = StateDrawing
		m.points = m.points[:0]
		return nil
	case StateDrawing:
		return m.finish()
	default:
		return nil
	}
}

// AddPoint appends a vertex and refreshes the preview. Ignored outside
// StateDrawing.
func (m *Machine) AddPoint(p domain.LngLat) error {
	if m.state != StateDrawing {
		return nil
	}
	m.points = append(m.points, p)
	return m.refreshPreview()
}

// finish validates the collected geometry. Too few vertices abort the
// drawing entirely: preview cleared, state back to idle, partial points
// dropped.
func (m *Machine) finish() error {
	if len(m.points) < 3 {
		m.reset()
		return ErrTooFewPoints
	}
	m.state = StatePendingLabel
	return nil
}

// Commit labels the pending polygon and persists it through the
// committer. The preview is cleared and the machine returns to idle.
func (m *Machine) Commit(label, description string) (domain.AreaLabel, error) {
	if m.state != StatePendingLabel {
		return domain.AreaLabel{}, ErrNoPendingPolygon
	}
	area, err := m.committer.AddAreaLabel(label, description, m.Points())
	if err != nil {
		return domain.AreaLabel{}, fmt.Errorf("commit area: %w", err)
	}
	if err := m.reset(); err != nil {
		return area, err
	}
	return area, nil
}

// Discard throws away the pending polygon without persisting it.
func (m *Machine) Discard() error {
	if m.state != StatePendingLabel {
		return ErrNoPendingPolygon
	}
	return m.reset()
}

// Cancel aborts whatever is in progress and returns the machine to idle.
// Safe to call in any state.
func (m *Machine) Cancel() error {
	return m.reset()
}

func (m *Machine) reset() error {
	m.state = StateIdle
	m.points = m.points[:0]
	return m.clearPreview()
}

// refreshPreview pushes the in-progress geometry to the renderer. A
// single vertex renders as a point, two as a degenerate polygon; the
// ring is auto-closed either way so the preview always shows the shape
// the commit would produce.
func (m *Machine) refreshPreview() error {
	data := geojson.Marshal(geojson.NewCollection(
		geojson.PolygonFeature(m.points, nil),
	))

	if !m.renderer.HasSource(previewSourceID) {
		if err := m.renderer.AddSource(previewSourceID, ports.SourceSpec{}, data); err != nil {
			return fmt.Errorf("add preview source: %w", err)
		}
	} else if err := m.renderer.SetSourceData(previewSourceID, data); err != nil {
		return fmt.Errorf("update preview source: %w", err)
	}

	if !m.renderer.HasLayer(previewLayerID) {
		err := m.renderer.AddLayer(ports.LayerSpec{
			ID:     previewLayerID,
			Type:   "fill",
			Source: previewSourceID,
			Paint: map[string]any{
				"fill-color":   "#9370DB",
				"fill-opacity": 0.25,
			},
		})
		if err != nil {
			return fmt.Errorf("add preview fill: %w", err)
		}
	}
	if !m.renderer.HasLayer(outlineLayerID) {
		err := m.renderer.AddLayer(ports.LayerSpec{
			ID:     outlineLayerID,
			Type:   "line",
			Source: previewSourceID,
			Paint: map[string]any{
				"line-color": "#9370DB",
				"line-width": 2,
			},
		})
		if err != nil {
			return fmt.Errorf("add preview outline: %w", err)
		}
	}
	return nil
}

func (m *Machine) clearPreview() error {
	for _, layer := range []string{previewLayerID, outlineLayerID} {
		if m.renderer.HasLayer(layer) {
			if err := m.renderer.RemoveLayer(layer); err != nil {
				return fmt.Errorf("remove preview layer %s: %w", layer, err)
			}
		}
	}
	if m.renderer.HasSource(previewSourceID) {
		if err := m.renderer.RemoveSource(previewSourceID); err != nil {
			return fmt.Errorf("remove preview source: %w", err)
		}
	}
	return nil
}

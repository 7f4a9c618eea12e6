package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/pkg/metrics"
)

// wireConn is the slice of *websocket.Conn the bridge writes through.
type wireConn interface {
	WriteMessage(messageType int, data []byte) error
}

// Bridge implements ports.MapRenderer, ports.Geolocator, and
// ports.Notifier over one WebSocket connection. Render commands flow to
// the client shim; the shim applies them to the map engine verbatim.
//
// The bridge mirrors the registered source, layer, and marker ids so the
// port's Has* queries and duplicate-id rejection are answered without a
// round trip.
type Bridge struct {
	mu      sync.Mutex
	conn    wireConn
	sources map[string]struct{}
	layers  map[string]struct{}
	markers map[string]struct{}

	pendingMu sync.Mutex
	pending   map[string]chan clusterZoomResult

	queryTimeout time.Duration
}

// NewBridge wraps a connection. queryTimeout bounds request/response
// round trips like the cluster-zoom query.
func NewBridge(conn wireConn, queryTimeout time.Duration) *Bridge {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Bridge{
		conn:         conn,
		sources:      make(map[string]struct{}),
		layers:       make(map[string]struct{}),
		markers:      make(map[string]struct{}),
		pending:      make(map[string]chan clusterZoomResult),
		queryTimeout: queryTimeout,
	}
}

func (b *Bridge) send(cmdType, reqID string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", cmdType, err)
		}
		raw = data
	}
	data, err := json.Marshal(command{Type: cmdType, ReqID: reqID, Payload: raw})
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// --- ports.MapRenderer ---

func (b *Bridge) AddSource(id string, spec ports.SourceSpec, data json.RawMessage) error {
	b.mu.Lock()
	if _, ok := b.sources[id]; ok {
		b.mu.Unlock()
		return fmt.Errorf("source %s already exists", id)
	}
	b.sources[id] = struct{}{}
	b.mu.Unlock()

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	return b.send(cmdAddSource, "", addSourcePayload{ID: id, Spec: specJSON, Data: data})
}

func (b *Bridge) SetSourceData(id string, data json.RawMessage) error {
	b.mu.Lock()
	if _, ok := b.sources[id]; !ok {
		b.mu.Unlock()
		return fmt.Errorf("source %s not found", id)
	}
	b.mu.Unlock()
	return b.send(cmdSetSourceData, "", sourceDataPayload{ID: id, Data: data})
}

func (b *Bridge) RemoveSource(id string) error {
	b.mu.Lock()
	if _, ok := b.sources[id]; !ok {
		b.mu.Unlock()
		return fmt.Errorf("source %s not found", id)
	}
	delete(b.sources, id)
	b.mu.Unlock()
	return b.send(cmdRemoveSource, "", idPayload{ID: id})
}

func (b *Bridge) HasSource(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sources[id]
	return ok
}

func (b *Bridge) AddLayer(spec ports.LayerSpec) error {
	b.mu.Lock()
	if _, ok := b.layers[spec.ID]; ok {
		b.mu.Unlock()
		return fmt.Errorf("layer %s already exists", spec.ID)
	}
	b.layers[spec.ID] = struct{}{}
	b.mu.Unlock()
	return b.send(cmdAddLayer, "", spec)
}

func (b *Bridge) RemoveLayer(id string) error {
	b.mu.Lock()
	if _, ok := b.layers[id]; !ok {
		b.mu.Unlock()
		return fmt.Errorf("layer %s not found", id)
	}
	delete(b.layers, id)
	b.mu.Unlock()
	return b.send(cmdRemoveLayer, "", idPayload{ID: id})
}

func (b *Bridge) HasLayer(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.layers[id]
	return ok
}

func (b *Bridge) AddMarker(spec ports.MarkerSpec) error {
	b.mu.Lock()
	if _, ok := b.markers[spec.ID]; ok {
		b.mu.Unlock()
		return fmt.Errorf("marker %s already exists", spec.ID)
	}
	b.markers[spec.ID] = struct{}{}
	b.mu.Unlock()
	return b.send(cmdAddMarker, "", spec)
}

func (b *Bridge) MoveMarker(id string, lng, lat float64) error {
	b.mu.Lock()
	if _, ok := b.markers[id]; !ok {
		b.mu.Unlock()
		return fmt.Errorf("marker %s not found", id)
	}
	b.mu.Unlock()
	return b.send(cmdMoveMarker, "", movePayload{ID: id, Lng: lng, Lat: lat})
}

func (b *Bridge) RemoveMarker(id string) error {
	b.mu.Lock()
	if _, ok := b.markers[id]; !ok {
		b.mu.Unlock()
		return fmt.Errorf("marker %s not found", id)
	}
	delete(b.markers, id)
	b.mu.Unlock()
	return b.send(cmdRemoveMarker, "", idPayload{ID: id})
}

func (b *Bridge) FlyTo(lng, lat, zoom float64, duration time.Duration) error {
	return b.send(cmdFlyTo, "", flyToPayload{
		Lng: lng, Lat: lat, Zoom: zoom,
		DurationMs: duration.Milliseconds(),
	})
}

// ClusterExpansionZoom round-trips to the client, which is the only
// place the clustering index lives. Correlated by request id; bounded by
// the query timeout and the caller's context.
func (b *Bridge) ClusterExpansionZoom(ctx context.Context, sourceID string, clusterID int64) (float64, error) {
	reqID := uuid.NewString()
	ch := make(chan clusterZoomResult, 1)

	b.pendingMu.Lock()
	b.pending[reqID] = ch
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, reqID)
		b.pendingMu.Unlock()
	}()

	if err := b.send(cmdClusterZoom, reqID, clusterZoomQuery{SourceID: sourceID, ClusterID: clusterID}); err != nil {
		return 0, err
	}

	timer := time.NewTimer(b.queryTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.Err != "" {
			return 0, fmt.Errorf("cluster zoom query: %s", res.Err)
		}
		return res.Zoom, nil
	case <-timer.C:
		metrics.ClusterZoomTimeouts.Inc()
		return 0, fmt.Errorf("cluster zoom query: timeout after %s", b.queryTimeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// resolveQuery delivers a client response to the waiting query, if any.
// Late or unknown responses are dropped.
func (b *Bridge) resolveQuery(reqID string, res clusterZoomResult) {
	b.pendingMu.Lock()
	ch, ok := b.pending[reqID]
	b.pendingMu.Unlock()
	if ok {
		ch <- res
	}
}

// --- ports.Geolocator ---

func (b *Bridge) Locate(watch bool) error {
	return b.send(cmdLocate, "", locatePayload{Watch: watch})
}

func (b *Bridge) StopWatch() error {
	return b.send(cmdStopWatch, "", nil)
}

// --- ports.Notifier ---

func (b *Bridge) Notify(level, message string) error {
	return b.send(cmdNotify, "", notifyPayload{Level: level, Message: message})
}

func (b *Bridge) sendError(message string) {
	_ = b.send(cmdError, "", map[string]string{"message": message})
}

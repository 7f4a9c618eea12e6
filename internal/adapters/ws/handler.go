package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/filter"
	"github.com/imartinezl/patitas/internal/core/store"
	"github.com/imartinezl/patitas/internal/core/usecases"
	"github.com/imartinezl/patitas/internal/pkg/metrics"
)

// Hub tracks live bridges so broker broadcasts can reach every connected
// client.
type Hub struct {
	mu      sync.Mutex
	bridges map[*Bridge]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{bridges: make(map[*Bridge]struct{})}
}

func (h *Hub) add(b *Bridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridges[b] = struct{}{}
}

func (h *Hub) remove(b *Bridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bridges, b)
}

// Broadcast notifies every connected client. Write failures are the read
// loop's problem; the disconnect cleans the bridge up.
func (h *Hub) Broadcast(level, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for b := range h.bridges {
		_ = b.Notify(level, message)
	}
}

// SessionHandler upgrades map clients and runs one MapSession per
// connection.
type SessionHandler struct {
	store        *store.Store
	areas        *usecases.AreaService
	hub          *Hub
	cfg          usecases.SessionConfig
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewSessionHandler creates a handler sharing the process-wide store and
// area service across sessions.
func NewSessionHandler(st *store.Store, areas *usecases.AreaService, hub *Hub, cfg usecases.SessionConfig, queryTimeout time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		store:        st,
		areas:        areas,
		hub:          hub,
		cfg:          cfg,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Serve is the websocket.New callback. It blocks until the client
// disconnects.
func (h *SessionHandler) Serve(c *websocket.Conn) {
	defer c.Close()

	remoteAddr := c.RemoteAddr().String()
	logger := h.logger.With("remote", remoteAddr)
	logger.Info("map client connected")

	bridge := NewBridge(c, h.queryTimeout)
	session := usecases.NewMapSession(h.store, bridge, h.areas, bridge, bridge, h.cfg, logger)
	h.hub.add(bridge)
	metrics.ActiveSessions.Inc()
	defer func() {
		metrics.ActiveSessions.Dec()
		h.hub.remove(bridge)
		if err := session.Close(); err != nil {
			logger.Warn("session close", "error", err)
		}
		logger.Info("map client disconnected")
	}()

	// First paint before any store change arrives.
	if err := session.Refresh(); err != nil {
		logger.Warn("initial paint failed", "error", err)
	}

	// Keep-alive ping
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bridge.mu.Lock()
				err := c.WriteMessage(websocket.PingMessage, nil)
				bridge.mu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		var e event
		if err := json.Unmarshal(msg, &e); err != nil {
			bridge.sendError("invalid JSON")
			continue
		}
		h.dispatch(session, bridge, logger, e)
	}
}

func (h *SessionHandler) dispatch(session *usecases.MapSession, bridge *Bridge, logger *slog.Logger, e event) {
	metrics.SessionEvents.WithLabelValues(e.Type).Inc()

	var err error
	switch e.Type {
	case evtMapClick:
		var p clickPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			err = session.HandleMapClick(p.Lng, p.Lat)
		}

	case evtMarkerClick:
		var p markerClickPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			err = session.HandleMarkerClick(p.ID)
		}

	case evtClusterClick:
		var p clusterClickPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			// Runs off the read loop: the expansion query's response
			// arrives on this very loop and would deadlock it.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), h.queryTimeout)
				defer cancel()
				if err := session.HandleClusterClick(ctx, p.ClusterID, p.Lng, p.Lat); err != nil {
					logger.Warn("cluster click", "error", err)
				}
			}()
		}

	case evtLocationFix:
		var p locationFixPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			err = session.SetLocation(&domain.GeoPoint{Lat: p.Lat, Lng: p.Lng})
		}

	case evtLocationError:
		var p locationErrorPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			logger.Info("geolocation unavailable", "reason", p.Message)
			err = session.SetLocation(nil)
		}

	case evtSetFilter:
		var p setFilterPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			err = session.SetCriteria(criteriaFrom(p))
		}

	case evtSetMode:
		var p setModePayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			mode := usecases.ModeMarkers
			if p.Mode == "cluster" {
				mode = usecases.ModeCluster
			}
			err = session.SetRenderMode(mode)
		}

	case evtToggleDraw:
		err = session.ToggleDraw()

	case evtCommitArea:
		var p commitAreaPayload
		if err = json.Unmarshal(e.Payload, &p); err == nil {
			if _, err = session.CommitArea(p.Label, p.Description); err == nil {
				metrics.AreasLabeled.Inc()
			}
		}

	case evtDiscardArea:
		err = session.DiscardArea()

	case evtEnableTracking:
		err = session.EnableTracking()

	case evtDisableTracking:
		err = session.DisableTracking()

	case evtClusterZoomResult:
		var res clusterZoomResult
		if err = json.Unmarshal(e.Payload, &res); err == nil {
			bridge.resolveQuery(e.ReqID, res)
		}

	default:
		bridge.sendError("unknown event: " + e.Type)
		return
	}

	if err != nil {
		logger.Warn("event handling failed", "event", e.Type, "error", err)
		bridge.sendError(err.Error())
	}
}

func criteriaFrom(p setFilterPayload) filter.Criteria {
	c := filter.Criteria{
		Type:     filter.TypeFilter(p.Type),
		RadiusKm: p.RadiusKm,
	}
	if p.Status != "" {
		status := domain.AnimalStatus(p.Status)
		if status.Valid() {
			c.Status = &status
		}
	}
	return c
}

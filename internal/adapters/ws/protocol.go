// Package ws bridges map sessions to browser clients over WebSocket.
// The server owns all map state; the client is a thin shim that applies
// render commands to the map engine and reports interaction events back.
package ws

import "encoding/json"

// Server-to-client command types.
const (
	cmdAddSource     = "add_source"
	cmdSetSourceData = "set_source_data"
	cmdRemoveSource  = "remove_source"
	cmdAddLayer      = "add_layer"
	cmdRemoveLayer   = "remove_layer"
	cmdAddMarker     = "add_marker"
	cmdMoveMarker    = "move_marker"
	cmdRemoveMarker  = "remove_marker"
	cmdFlyTo         = "fly_to"
	cmdNotify        = "notify"
	cmdLocate        = "locate"
	cmdStopWatch     = "stop_watch"
	cmdClusterZoom   = "cluster_zoom"
	cmdError         = "error"
)

// Client-to-server event types.
const (
	evtMapClick          = "map_click"
	evtMarkerClick       = "marker_click"
	evtClusterClick      = "cluster_click"
	evtLocationFix       = "location_fix"
	evtLocationError     = "location_error"
	evtSetFilter         = "set_filter"
	evtSetMode           = "set_mode"
	evtToggleDraw        = "toggle_draw"
	evtCommitArea        = "commit_area"
	evtDiscardArea       = "discard_area"
	evtEnableTracking    = "enable_tracking"
	evtDisableTracking   = "disable_tracking"
	evtClusterZoomResult = "cluster_zoom_result"
)

// command is a server-to-client render instruction. Payload shape is
// keyed by Type; ReqID correlates request/response pairs like the
// cluster-zoom query.
type command struct {
	Type    string          `json:"type"`
	ReqID   string          `json:"req_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// event is a client-to-server interaction report.
type event struct {
	Type    string          `json:"type"`
	ReqID   string          `json:"req_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type clickPayload struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type markerClickPayload struct {
	ID string `json:"id"`
}

type clusterClickPayload struct {
	ClusterID int64   `json:"cluster_id"`
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
}

type locationFixPayload struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type locationErrorPayload struct {
	Message string `json:"message"`
}

type setFilterPayload struct {
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	RadiusKm float64 `json:"radius_km"`
}

type setModePayload struct {
	Mode string `json:"mode"` // "markers" | "cluster"
}

type commitAreaPayload struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

type clusterZoomQuery struct {
	SourceID  string `json:"source_id"`
	ClusterID int64  `json:"cluster_id"`
}

type clusterZoomResult struct {
	Zoom float64 `json:"zoom"`
	Err  string  `json:"error,omitempty"`
}

type notifyPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type locatePayload struct {
	Watch bool `json:"watch"`
}

type flyToPayload struct {
	Lng        float64 `json:"lng"`
	Lat        float64 `json:"lat"`
	Zoom       float64 `json:"zoom"`
	DurationMs int64   `json:"duration_ms"`
}

type addSourcePayload struct {
	ID   string          `json:"id"`
	Spec json.RawMessage `json:"spec"`
	Data json.RawMessage `json:"data"`
}

type sourceDataPayload struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type idPayload struct {
	ID string `json:"id"`
}

type movePayload struct {
	ID  string  `json:"id"`
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

package http

import (
	"github.com/nats-io/nats.go"

	"github.com/imartinezl/patitas/internal/adapters/ws"
	"github.com/imartinezl/patitas/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sightings *usecases.SightingService
	Areas     *usecases.AreaService
	Stats     *usecases.StatsService
	Sessions  *ws.SessionHandler
	Hub       *ws.Hub
	NATS      *nats.Conn
}

package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/imartinezl/patitas/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream. The
// notification and reward collaborators consume these subjects; nothing
// in the core waits on them.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the sighting and area
// streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "PATITAS_SIGHTINGS",
			Subjects:  []string{"patitas.sighting.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "PATITAS_AREAS",
			Subjects:  []string{"patitas.area.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishSightingReported(ctx context.Context, a *domain.Animal) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("patitas.sighting.reported."+a.ID, data)
	return err
}

// statusChangedEvent carries the transition, not just the new state, so
// consumers can react to specific edges (e.g. reward on adoption).
type statusChangedEvent struct {
	Animal    *domain.Animal      `json:"animal"`
	OldStatus domain.AnimalStatus `json:"old_status"`
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, a *domain.Animal, old domain.AnimalStatus) error {
	data, err := json.Marshal(statusChangedEvent{Animal: a, OldStatus: old})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("patitas.sighting.status."+a.ID, data)
	return err
}

func (p *Publisher) PublishGuardianAssigned(ctx context.Context, a *domain.Animal) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("patitas.sighting.guardian."+a.ID, data)
	return err
}

func (p *Publisher) PublishAreaLabeled(ctx context.Context, area *domain.AreaLabel) error {
	data, err := json.Marshal(area)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("patitas.area.labeled."+area.ID, data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("patitas.updates.broadcast", data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

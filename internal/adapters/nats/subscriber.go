package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/imartinezl/patitas/internal/core/domain"
)

// Subscriber consumes the sighting streams. The API process uses it to
// relay broadcasts to connected map clients; external collaborators run
// their own durable consumers.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeSightingReported delivers every new sighting to the handler.
func (s *Subscriber) SubscribeSightingReported(ctx context.Context, durable string, handler func(ctx context.Context, a *domain.Animal) error) error {
	sub, err := s.js.Subscribe("patitas.sighting.reported.>", func(msg *nats.Msg) {
		var a domain.Animal
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &a); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeStatusChanged delivers lifecycle transitions to the handler.
func (s *Subscriber) SubscribeStatusChanged(ctx context.Context, durable string, handler func(ctx context.Context, a *domain.Animal, old domain.AnimalStatus) error) error {
	sub, err := s.js.Subscribe("patitas.sighting.status.>", func(msg *nats.Msg) {
		var event statusChangedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, event.Animal, event.OldStatus); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeBroadcast delivers fire-and-forget broadcast payloads. Plain
// core NATS, no redelivery.
func (s *Subscriber) SubscribeBroadcast(handler func(data []byte)) error {
	sub, err := s.conn.Subscribe("patitas.updates.broadcast", func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

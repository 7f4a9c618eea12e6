package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/core/store"
)

// ErrNotFound is returned when the referenced sighting does not exist.
var ErrNotFound = errors.New("sighting not found")

// ErrGuardianAtCapacity is returned when a guardian already cares for the
// maximum number of animals.
var ErrGuardianAtCapacity = errors.New("guardian at capacity")

// ReportInput is the report form's payload.
type ReportInput struct {
	Type        domain.AnimalType
	Name        string
	Description string
	Location    domain.GeoPoint
	ReportedBy  string
}

// SightingService handles sighting-related business logic: validation,
// store mutations, and event publication. Events are best-effort; the
// store is the source of truth and a broker outage never rejects a
// report.
type SightingService struct {
	store     *store.Store
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// NewSightingService creates a new SightingService.
func NewSightingService(st *store.Store, publisher ports.EventPublisher, logger *slog.Logger) *SightingService {
	return &SightingService{store: st, publisher: publisher, logger: logger}
}

// Report validates and records a new sighting.
func (s *SightingService) Report(ctx context.Context, in ReportInput) (domain.Animal, error) {
	if !in.Type.Valid() {
		return domain.Animal{}, fmt.Errorf("invalid animal type %q", in.Type)
	}
	if in.Location.Lat < -90 || in.Location.Lat > 90 || in.Location.Lng < -180 || in.Location.Lng > 180 {
		return domain.Animal{}, fmt.Errorf("coordinates out of range: %.4f, %.4f", in.Location.Lat, in.Location.Lng)
	}

	animal, err := s.store.AddAnimal(domain.Animal{
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		ReportedBy:  in.ReportedBy,
	})
	if err != nil {
		return domain.Animal{}, err
	}

	s.publish(ctx, "sighting.reported", func(ctx context.Context) error {
		return s.publisher.PublishSightingReported(ctx, &animal)
	})
	return animal, nil
}

// Get returns a single sighting.
func (s *SightingService) Get(ctx context.Context, id string) (domain.Animal, error) {
	a, ok := s.store.Animal(id)
	if !ok {
		return domain.Animal{}, ErrNotFound
	}
	return a, nil
}

// List returns all sightings in report order.
func (s *SightingService) List(ctx context.Context) ([]domain.Animal, error) {
	return s.store.Animals(), nil
}

// UpdateStatus moves a sighting through its lifecycle.
func (s *SightingService) UpdateStatus(ctx context.Context, id string, status domain.AnimalStatus) (domain.Animal, error) {
	if !status.Valid() {
		return domain.Animal{}, fmt.Errorf("invalid status %q", status)
	}
	animal, old, ok := s.store.UpdateStatus(id, status)
	if !ok {
		return domain.Animal{}, ErrNotFound
	}
	if old != status {
		s.publish(ctx, "sighting.status_changed", func(ctx context.Context) error {
			return s.publisher.PublishStatusChanged(ctx, &animal, old)
		})
	}
	return animal, nil
}

// AssignGuardian stamps a sighting with a caretaker. Guardians carry at
// most domain.MaxGuardianAnimals animals at once.
func (s *SightingService) AssignGuardian(ctx context.Context, id, name, contact string) (domain.Animal, error) {
	if name == "" {
		return domain.Animal{}, fmt.Errorf("guardian name must not be empty")
	}
	if _, ok := s.store.Animal(id); !ok {
		return domain.Animal{}, ErrNotFound
	}
	animal, ok := s.store.AssignGuardian(id, name, contact)
	if !ok {
		return domain.Animal{}, ErrGuardianAtCapacity
	}
	s.publish(ctx, "sighting.guardian_assigned", func(ctx context.Context) error {
		return s.publisher.PublishGuardianAssigned(ctx, &animal)
	})
	return animal, nil
}

// RemoveGuardian releases a sighting's caretaker.
func (s *SightingService) RemoveGuardian(ctx context.Context, id string) error {
	if _, ok := s.store.Animal(id); !ok {
		return ErrNotFound
	}
	s.store.RemoveGuardian(id)
	return nil
}

func (s *SightingService) publish(ctx context.Context, event string, fn func(context.Context) error) {
	if s.publisher == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("event publish failed", "event", event, "error", err)
	}
}

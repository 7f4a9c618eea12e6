package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/core/store"
)

// AreaService handles area-label business logic. It satisfies the draw
// machine's committer, so finished polygons flow through the same
// validation and event path as areas created over the API.
type AreaService struct {
	store     *store.Store
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// NewAreaService creates a new AreaService.
func NewAreaService(st *store.Store, publisher ports.EventPublisher, logger *slog.Logger) *AreaService {
	return &AreaService{store: st, publisher: publisher, logger: logger}
}

// AddAreaLabel validates and records a labeled polygon.
func (s *AreaService) AddAreaLabel(label, description string, coords []domain.LngLat) (domain.AreaLabel, error) {
	if label == "" {
		return domain.AreaLabel{}, fmt.Errorf("area label must not be empty")
	}
	if len(coords) < 3 {
		return domain.AreaLabel{}, fmt.Errorf("area polygon needs at least 3 points, got %d", len(coords))
	}

	area := s.store.AddAreaLabel(label, description, coords)
	if s.publisher != nil {
		if err := s.publisher.PublishAreaLabeled(context.Background(), &area); err != nil {
			s.logger.Warn("event publish failed", "event", "area.labeled", "error", err)
		}
	}
	return area, nil
}

// List returns all area labels in creation order.
func (s *AreaService) List(ctx context.Context) ([]domain.AreaLabel, error) {
	return s.store.Areas(), nil
}

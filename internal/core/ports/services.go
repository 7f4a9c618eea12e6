package ports

import (
	"context"

	"github.com/imartinezl/patitas/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker. The
// notification and reward collaborators consume these; the core never
// computes token amounts itself.
type EventPublisher interface {
	PublishSightingReported(ctx context.Context, a *domain.Animal) error
	PublishStatusChanged(ctx context.Context, a *domain.Animal, old domain.AnimalStatus) error
	PublishGuardianAssigned(ctx context.Context, a *domain.Animal) error
	PublishAreaLabeled(ctx context.Context, area *domain.AreaLabel) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

package usecases

import (
	"context"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/store"
)

// Stats is a point-in-time tally over the store.
type Stats struct {
	Total    int                         `json:"total"`
	ByStatus map[domain.AnimalStatus]int `json:"by_status"`
	ByType   map[domain.AnimalType]int   `json:"by_type"`
	Guarded  int                         `json:"guarded"`
	Areas    int                         `json:"areas"`
}

// StatsService aggregates counts for the dashboard endpoint.
type StatsService struct {
	store *store.Store
}

// NewStatsService creates a new StatsService.
func NewStatsService(st *store.Store) *StatsService {
	return &StatsService{store: st}
}

// Summary computes the tallies from a consistent snapshot.
func (s *StatsService) Summary(ctx context.Context) (Stats, error) {
	animals := s.store.Animals()
	stats := Stats{
		Total:    len(animals),
		ByStatus: make(map[domain.AnimalStatus]int),
		ByType:   make(map[domain.AnimalType]int),
		Areas:    len(s.store.Areas()),
	}
	for _, a := range animals {
		stats.ByStatus[a.Status]++
		stats.ByType[a.Type]++
		if a.Guardian != nil {
			stats.Guarded++
		}
	}
	return stats, nil
}

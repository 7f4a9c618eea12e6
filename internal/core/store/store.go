// Package store holds the session-scoped, in-memory collection of animal
// sightings and area labels. It is the single source of truth the filter
// engine and map sessions derive from. Mutations are applied in the order
// received; readers always get a consistent snapshot.
package store

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imartinezl/patitas/internal/core/domain"
)

// ErrDuplicateID is returned when an externally supplied sighting id
// already exists in the store.
var ErrDuplicateID = errors.New("store: duplicate sighting id")

// Store is a reactive in-memory collection of sightings and area labels.
// All methods are safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	animals      []domain.Animal
	index        map[string]int // id -> position in animals
	areas        []domain.AreaLabel
	guardianLoad map[string]int // guardian name -> assigned animals
	lastAreaID   int64

	subMu   sync.Mutex
	subs    map[int]chan<- struct{}
	nextSub int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		index:        make(map[string]int),
		guardianLoad: make(map[string]int),
		subs:         make(map[int]chan<- struct{}),
	}
}

// Subscribe registers a change channel. Notifications are coalesced: a
// send is dropped when the channel is full, so subscribers always observe
// the latest state when they next read a snapshot. The returned function
// unsubscribes.
func (s *Store) Subscribe(ch chan<- struct{}) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// AddAnimal appends a new sighting, assigning a fresh id and ReportedAt
// timestamp. A pre-set id is honored unless it already exists, in which
// case ErrDuplicateID is returned and nothing is mutated. Coordinate
// ranges are not validated here; that is the report form's job.
func (s *Store) AddAnimal(a domain.Animal) (domain.Animal, error) {
	s.mu.Lock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if _, exists := s.index[a.ID]; exists {
		s.mu.Unlock()
		return domain.Animal{}, ErrDuplicateID
	}
	if a.Status == "" {
		a.Status = domain.StatusReported
	}
	a.ReportedAt = time.Now().UTC()

	s.index[a.ID] = len(s.animals)
	s.animals = append(s.animals, a)
	s.mu.Unlock()

	s.notify()
	return a, nil
}

// UpdateStatus replaces the status of the matching sighting. A missing id
// is a no-op, not an error. Returns the updated sighting, the previous
// status, and whether anything changed.
func (s *Store) UpdateStatus(id string, status domain.AnimalStatus) (domain.Animal, domain.AnimalStatus, bool) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return domain.Animal{}, "", false
	}
	old := s.animals[i].Status
	s.animals[i].Status = status
	updated := cloneAnimal(s.animals[i])
	s.mu.Unlock()

	s.notify()
	return updated, old, true
}

// AssignGuardian stamps the sighting with a guardian unless that guardian
// already has domain.MaxGuardianAnimals animals assigned. Returns false
// with no mutation when the capacity is reached or the sighting is
// unknown. Reassigning releases the previous guardian's slot first.
func (s *Store) AssignGuardian(animalID, name, contact string) (domain.Animal, bool) {
	s.mu.Lock()
	i, ok := s.index[animalID]
	if !ok {
		s.mu.Unlock()
		return domain.Animal{}, false
	}
	if s.guardianLoad[name] >= domain.MaxGuardianAnimals {
		s.mu.Unlock()
		return domain.Animal{}, false
	}
	if g := s.animals[i].Guardian; g != nil {
		s.decrementGuardian(g.Name)
	}
	s.animals[i].Guardian = &domain.Guardian{
		Name:       name,
		Contact:    contact,
		AssignedAt: time.Now().UTC(),
	}
	s.guardianLoad[name]++
	updated := cloneAnimal(s.animals[i])
	s.mu.Unlock()

	s.notify()
	return updated, true
}

// RemoveGuardian clears the sighting's guardian and releases the
// guardian's slot. A sighting without a guardian is a no-op.
func (s *Store) RemoveGuardian(animalID string) bool {
	s.mu.Lock()
	i, ok := s.index[animalID]
	if !ok || s.animals[i].Guardian == nil {
		s.mu.Unlock()
		return false
	}
	s.decrementGuardian(s.animals[i].Guardian.Name)
	s.animals[i].Guardian = nil
	s.mu.Unlock()

	s.notify()
	return true
}

// decrementGuardian floors the load at zero. Caller holds s.mu.
func (s *Store) decrementGuardian(name string) {
	if s.guardianLoad[name] > 0 {
		s.guardianLoad[name]--
	}
}

// AddAreaLabel appends a drawn polygon with a monotonically distinct
// time-based id.
func (s *Store) AddAreaLabel(label, description string, coords []domain.LngLat) domain.AreaLabel {
	s.mu.Lock()
	id := time.Now().UnixNano()
	if id <= s.lastAreaID {
		id = s.lastAreaID + 1
	}
	s.lastAreaID = id

	area := domain.AreaLabel{
		ID:          strconv.FormatInt(id, 10),
		Label:       label,
		Description: description,
		Coordinates: append([]domain.LngLat(nil), coords...),
		CreatedAt:   time.Now().UTC(),
	}
	s.areas = append(s.areas, area)
	s.mu.Unlock()

	s.notify()
	return area
}

// Animals returns a snapshot of all sightings in insertion order.
func (s *Store) Animals() []domain.Animal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Animal, len(s.animals))
	for i, a := range s.animals {
		out[i] = cloneAnimal(a)
	}
	return out
}

// Animal returns a snapshot of a single sighting.
func (s *Store) Animal(id string) (domain.Animal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Animal{}, false
	}
	return cloneAnimal(s.animals[i]), true
}

// Areas returns a snapshot of all area labels in insertion order.
func (s *Store) Areas() []domain.AreaLabel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AreaLabel, len(s.areas))
	for i, a := range s.areas {
		a.Coordinates = append([]domain.LngLat(nil), a.Coordinates...)
		out[i] = a
	}
	return out
}

// GuardianLoad returns how many animals the named guardian has assigned.
func (s *Store) GuardianLoad(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guardianLoad[name]
}

func cloneAnimal(a domain.Animal) domain.Animal {
	if a.Guardian != nil {
		g := *a.Guardian
		a.Guardian = &g
	}
	return a
}

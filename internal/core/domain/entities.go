package domain

import (
	"time"
)

// AnimalType categorizes a reported animal.
type AnimalType string

const (
	TypeCat   AnimalType = "cat"
	TypeDog   AnimalType = "dog"
	TypeOther AnimalType = "other"
)

// Valid reports whether t is a known animal type.
func (t AnimalType) Valid() bool {
	return t == TypeCat || t == TypeDog || t == TypeOther
}

// AnimalStatus is the lifecycle status of a sighting.
type AnimalStatus string

const (
	StatusNeedsHelp   AnimalStatus = "needs_help"
	StatusBeingHelped AnimalStatus = "being_helped"
	StatusAdopted     AnimalStatus = "adopted"
	StatusReported    AnimalStatus = "reported"
)

// Valid reports whether s is a known status.
func (s AnimalStatus) Valid() bool {
	switch s {
	case StatusNeedsHelp, StatusBeingHelped, StatusAdopted, StatusReported:
		return true
	}
	return false
}

// Guardian is the person currently taking care of a sighted animal.
type Guardian struct {
	Name       string    `json:"name"`
	Contact    string    `json:"contact,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Animal is a reported animal sighting with geographic coordinates and a
// lifecycle status. Entities are never physically deleted in this
// session-scoped model.
type Animal struct {
	ID          string       `json:"id"`
	Type        AnimalType   `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Location    GeoPoint     `json:"location"`
	Status      AnimalStatus `json:"status"`
	ReportedAt  time.Time    `json:"reported_at"`
	ReportedBy  string       `json:"reported_by,omitempty"`
	Guardian    *Guardian    `json:"guardian,omitempty"`
}

// AreaLabel is a user-drawn polygon annotating a region of the map.
// Coordinates are stored open; renderers close the ring for display.
type AreaLabel struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Coordinates []LngLat  `json:"coordinates"`
	CreatedAt   time.Time `json:"created_at"`
}

// MaxGuardianAnimals is the soft capacity per guardian.
const MaxGuardianAnimals = 5

// Package filter derives the visible subset of sightings from the active
// criteria. It is a pure function of (entities, criteria, location) so it
// can be unit-tested without any map or store machinery.
package filter

import (
	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/pkg/geospatial"
)

// TypeFilter selects a sighting category, or all of them.
type TypeFilter string

const (
	TypeAll  TypeFilter = "all"
	TypeCats TypeFilter = "cats"
	TypeDogs TypeFilter = "dogs"
)

// Valid reports whether f is a known type filter.
func (f TypeFilter) Valid() bool {
	return f == TypeAll || f == TypeCats || f == TypeDogs
}

// Criteria are the independent filter inputs. They combine with logical
// AND. The zero value (TypeAll implied by normalization, no status, no
// radius) passes everything.
type Criteria struct {
	Type     TypeFilter           `json:"type"`
	Status   *domain.AnimalStatus `json:"status,omitempty"`
	RadiusKm float64              `json:"radius_km"`
}

// Normalize maps an empty type filter to TypeAll.
func (c Criteria) Normalize() Criteria {
	if c.Type == "" {
		c.Type = TypeAll
	}
	return c
}

// Visible returns the sightings passing all three predicates, preserving
// insertion order. Distance filtering fails open: a nil location or a
// non-positive radius passes every entity rather than excluding all of
// them, so a denied geolocation permission never empties the map.
func Visible(animals []domain.Animal, c Criteria, location *domain.GeoPoint) []domain.Animal {
	c = c.Normalize()
	out := make([]domain.Animal, 0, len(animals))
	for _, a := range animals {
		if typeMatches(a, c.Type) && statusMatches(a, c.Status) && distanceMatches(a, c.RadiusKm, location) {
			out = append(out, a)
		}
	}
	return out
}

func typeMatches(a domain.Animal, f TypeFilter) bool {
	switch f {
	case TypeCats:
		return a.Type == domain.TypeCat
	case TypeDogs:
		return a.Type == domain.TypeDog
	default:
		return true
	}
}

func statusMatches(a domain.Animal, s *domain.AnimalStatus) bool {
	return s == nil || a.Status == *s
}

// distanceMatches is boundary inclusive: an entity exactly RadiusKm away
// passes.
func distanceMatches(a domain.Animal, radiusKm float64, location *domain.GeoPoint) bool {
	if location == nil || radiusKm <= 0 {
		return true
	}
	d := geospatial.DistanceKm(location.Lat, location.Lng, a.Location.Lat, a.Location.Lng)
	return d <= radiusKm
}

package filter_test

import (
	"testing"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/filter"
)

func statusPtr(s domain.AnimalStatus) *domain.AnimalStatus { return &s }

func fixtures() []domain.Animal {
	return []domain.Animal{
		{ID: "cat-near", Type: domain.TypeCat, Status: domain.StatusNeedsHelp,
			Location: domain.GeoPoint{Lat: 43.263, Lng: -2.935}},
		{ID: "dog-near", Type: domain.TypeDog, Status: domain.StatusBeingHelped,
			Location: domain.GeoPoint{Lat: 43.264, Lng: -2.934}},
		{ID: "cat-far", Type: domain.TypeCat, Status: domain.StatusNeedsHelp,
			Location: domain.GeoPoint{Lat: 40.417, Lng: -3.704}}, // Madrid, ~323 km away
		{ID: "other-near", Type: domain.TypeOther, Status: domain.StatusAdopted,
			Location: domain.GeoPoint{Lat: 43.262, Lng: -2.936}},
	}
}

func ids(animals []domain.Animal) []string {
	out := make([]string, len(animals))
	for i, a := range animals {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVisible_AllCriteriaOpen(t *testing.T) {
	got := filter.Visible(fixtures(), filter.Criteria{Type: filter.TypeAll}, nil)
	if !equalIDs(ids(got), []string{"cat-near", "dog-near", "cat-far", "other-near"}) {
		t.Errorf("expected all in insertion order, got %v", ids(got))
	}
}

func TestVisible_TypeMapping(t *testing.T) {
	got := filter.Visible(fixtures(), filter.Criteria{Type: filter.TypeCats}, nil)
	if !equalIDs(ids(got), []string{"cat-near", "cat-far"}) {
		t.Errorf("cats filter: got %v", ids(got))
	}

	got = filter.Visible(fixtures(), filter.Criteria{Type: filter.TypeDogs}, nil)
	if !equalIDs(ids(got), []string{"dog-near"}) {
		t.Errorf("dogs filter: got %v", ids(got))
	}

	// "other" only passes the all filter.
	for _, a := range got {
		if a.Type == domain.TypeOther {
			t.Error("other must not pass a singular filter")
		}
	}
}

func TestVisible_StatusExact(t *testing.T) {
	got := filter.Visible(fixtures(), filter.Criteria{
		Type:   filter.TypeAll,
		Status: statusPtr(domain.StatusNeedsHelp),
	}, nil)
	if !equalIDs(ids(got), []string{"cat-near", "cat-far"}) {
		t.Errorf("status filter: got %v", ids(got))
	}
}

func TestVisible_DistanceFailOpenWithoutLocation(t *testing.T) {
	// Property 7: radius set but location unknown — distance must pass all.
	got := filter.Visible(fixtures(), filter.Criteria{Type: filter.TypeAll, RadiusKm: 10}, nil)
	if len(got) != 4 {
		t.Errorf("expected all 4 with nil location, got %d", len(got))
	}
}

func TestVisible_DistanceFailOpenWithZeroRadius(t *testing.T) {
	loc := &domain.GeoPoint{Lat: 43.263, Lng: -2.935}
	got := filter.Visible(fixtures(), filter.Criteria{Type: filter.TypeAll, RadiusKm: 0}, loc)
	if len(got) != 4 {
		t.Errorf("expected all 4 with zero radius, got %d", len(got))
	}
}

func TestVisible_DistanceExcludesFar(t *testing.T) {
	loc := &domain.GeoPoint{Lat: 43.263, Lng: -2.935}
	got := filter.Visible(fixtures(), filter.Criteria{Type: filter.TypeAll, RadiusKm: 10}, loc)
	if !equalIDs(ids(got), []string{"cat-near", "dog-near", "other-near"}) {
		t.Errorf("radius filter: got %v", ids(got))
	}
}

func TestVisible_BoundaryInclusive(t *testing.T) {
	// One entity placed at a known distance; a radius equal to that
	// distance must include it.
	origin := &domain.GeoPoint{Lat: 43.0, Lng: -2.0}
	target := domain.Animal{ID: "edge", Type: domain.TypeCat, Status: domain.StatusReported,
		Location: domain.GeoPoint{Lat: 43.1, Lng: -2.0}} // ~11.12 km due north

	// Radius slightly above and exactly at the distance both include it;
	// slightly below excludes it.
	at := filter.Visible([]domain.Animal{target}, filter.Criteria{Type: filter.TypeAll, RadiusKm: 11.1195}, origin)
	below := filter.Visible([]domain.Animal{target}, filter.Criteria{Type: filter.TypeAll, RadiusKm: 11.0}, origin)

	if len(at) != 1 {
		t.Error("entity at boundary distance should be included")
	}
	if len(below) != 0 {
		t.Error("entity beyond radius should be excluded")
	}
}

func TestVisible_ConjunctionSubset(t *testing.T) {
	// Property 1: visible ⊆ entities and every member satisfies all
	// three predicates.
	loc := &domain.GeoPoint{Lat: 43.263, Lng: -2.935}
	c := filter.Criteria{Type: filter.TypeCats, Status: statusPtr(domain.StatusNeedsHelp), RadiusKm: 10}
	got := filter.Visible(fixtures(), c, loc)

	if !equalIDs(ids(got), []string{"cat-near"}) {
		t.Errorf("conjunction: got %v", ids(got))
	}
	for _, a := range got {
		if a.Type != domain.TypeCat || a.Status != domain.StatusNeedsHelp {
			t.Errorf("member violates predicates: %+v", a)
		}
	}
}

func TestVisible_EmptyTypeNormalizesToAll(t *testing.T) {
	got := filter.Visible(fixtures(), filter.Criteria{}, nil)
	if len(got) != 4 {
		t.Errorf("zero criteria should pass everything, got %d", len(got))
	}
}

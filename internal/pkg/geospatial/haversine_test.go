package geospatial_test

import (
	"math"
	"testing"

	"github.com/imartinezl/patitas/internal/pkg/geospatial"
)

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	if d := geospatial.DistanceKm(43.263, -2.935, 43.263, -2.935); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := geospatial.DistanceKm(43.263, -2.935, 40.417, -3.704)
	b := geospatial.DistanceKm(40.417, -3.704, 43.263, -2.935)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f and %f", a, b)
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Bilbao to Madrid is roughly 323 km great-circle.
	d := geospatial.DistanceKm(43.263, -2.935, 40.417, -3.704)
	if d < 310 || d > 340 {
		t.Errorf("Bilbao-Madrid distance out of range: %f km", d)
	}
}

func TestDistanceKm_TriangleInequality(t *testing.T) {
	bilbao := [2]float64{43.263, -2.935}
	madrid := [2]float64{40.417, -3.704}
	paris := [2]float64{48.857, 2.352}

	ab := geospatial.DistanceKm(bilbao[0], bilbao[1], madrid[0], madrid[1])
	bc := geospatial.DistanceKm(madrid[0], madrid[1], paris[0], paris[1])
	ac := geospatial.DistanceKm(bilbao[0], bilbao[1], paris[0], paris[1])

	if ac > ab+bc+1e-9 {
		t.Errorf("triangle inequality violated: %f > %f + %f", ac, ab, bc)
	}
}

func TestDistanceMeters(t *testing.T) {
	km := geospatial.DistanceKm(43.263, -2.935, 43.3, -2.9)
	m := geospatial.DistanceMeters(43.263, -2.935, 43.3, -2.9)
	if math.Abs(m-km*1000) > 1e-6 {
		t.Errorf("expected meters to be km*1000, got %f vs %f", m, km*1000)
	}
}

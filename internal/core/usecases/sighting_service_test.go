package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/store"
	"github.com/imartinezl/patitas/internal/core/usecases"
)

type mockPublisher struct {
	reported        []string
	statusChanges   []string
	guardians       []string
	areas           []string
	publishErr      error
	broadcastBodies [][]byte
}

func (p *mockPublisher) PublishSightingReported(ctx context.Context, a *domain.Animal) error {
	p.reported = append(p.reported, a.ID)
	return p.publishErr
}

func (p *mockPublisher) PublishStatusChanged(ctx context.Context, a *domain.Animal, old domain.AnimalStatus) error {
	p.statusChanges = append(p.statusChanges, string(old)+"->"+string(a.Status))
	return p.publishErr
}

func (p *mockPublisher) PublishGuardianAssigned(ctx context.Context, a *domain.Animal) error {
	p.guardians = append(p.guardians, a.ID)
	return p.publishErr
}

func (p *mockPublisher) PublishAreaLabeled(ctx context.Context, area *domain.AreaLabel) error {
	p.areas = append(p.areas, area.ID)
	return p.publishErr
}

func (p *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error {
	p.broadcastBodies = append(p.broadcastBodies, data)
	return p.publishErr
}

func TestReport_ValidatesAndPublishes(t *testing.T) {
	st := store.New()
	pub := &mockPublisher{}
	svc := usecases.NewSightingService(st, pub, testLogger())
	ctx := context.Background()

	a, err := svc.Report(ctx, usecases.ReportInput{
		Type:     domain.TypeCat,
		Name:     "Michi",
		Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == "" || a.Status != domain.StatusReported {
		t.Errorf("report not normalized: %+v", a)
	}
	if len(pub.reported) != 1 || pub.reported[0] != a.ID {
		t.Errorf("expected one reported event, got %v", pub.reported)
	}

	if _, err := svc.Report(ctx, usecases.ReportInput{Type: "hamster", Location: domain.GeoPoint{Lat: 1, Lng: 1}}); err == nil {
		t.Error("unknown animal type must be rejected")
	}
	if _, err := svc.Report(ctx, usecases.ReportInput{Type: domain.TypeDog, Location: domain.GeoPoint{Lat: 91, Lng: 0}}); err == nil {
		t.Error("out-of-range coordinates must be rejected")
	}
}

func TestReport_PublishFailureDoesNotRejectTheSighting(t *testing.T) {
	st := store.New()
	pub := &mockPublisher{publishErr: errors.New("broker down")}
	svc := usecases.NewSightingService(st, pub, testLogger())

	a, err := svc.Report(context.Background(), usecases.ReportInput{
		Type:     domain.TypeDog,
		Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93},
	})
	if err != nil {
		t.Fatalf("a broker outage must not reject a report: %v", err)
	}
	if _, ok := st.Animal(a.ID); !ok {
		t.Error("sighting must still be stored")
	}
}

func TestUpdateStatus_PublishesOnlyRealTransitions(t *testing.T) {
	st := store.New()
	pub := &mockPublisher{}
	svc := usecases.NewSightingService(st, pub, testLogger())
	ctx := context.Background()

	a, err := svc.Report(ctx, usecases.ReportInput{Type: domain.TypeCat, Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, a.ID, domain.StatusBeingHelped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusBeingHelped {
		t.Errorf("status not updated: %+v", updated)
	}
	if len(pub.statusChanges) != 1 || pub.statusChanges[0] != "reported->being_helped" {
		t.Errorf("unexpected status events: %v", pub.statusChanges)
	}

	// Setting the same status again changes nothing worth announcing.
	if _, err := svc.UpdateStatus(ctx, a.ID, domain.StatusBeingHelped); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.statusChanges) != 1 {
		t.Errorf("no-op transition must not publish, got %v", pub.statusChanges)
	}

	if _, err := svc.UpdateStatus(ctx, "missing", domain.StatusAdopted); !errors.Is(err, usecases.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, a.ID, "lost"); err == nil {
		t.Error("unknown status must be rejected")
	}
}

func TestAssignGuardian_CapacityAndEvents(t *testing.T) {
	st := store.New()
	pub := &mockPublisher{}
	svc := usecases.NewSightingService(st, pub, testLogger())
	ctx := context.Background()

	ids := make([]string, 0, domain.MaxGuardianAnimals+1)
	for i := 0; i <= domain.MaxGuardianAnimals; i++ {
		a, err := svc.Report(ctx, usecases.ReportInput{Type: domain.TypeCat, Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, a.ID)
	}

	for i := 0; i < domain.MaxGuardianAnimals; i++ {
		if _, err := svc.AssignGuardian(ctx, ids[i], "June", "june@example.org"); err != nil {
			t.Fatalf("assignment %d should succeed: %v", i+1, err)
		}
	}
	if _, err := svc.AssignGuardian(ctx, ids[domain.MaxGuardianAnimals], "June", "june@example.org"); !errors.Is(err, usecases.ErrGuardianAtCapacity) {
		t.Fatalf("expected ErrGuardianAtCapacity, got %v", err)
	}
	if len(pub.guardians) != domain.MaxGuardianAnimals {
		t.Errorf("expected %d guardian events, got %d", domain.MaxGuardianAnimals, len(pub.guardians))
	}

	if err := svc.RemoveGuardian(ctx, ids[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AssignGuardian(ctx, ids[domain.MaxGuardianAnimals], "June", "june@example.org"); err != nil {
		t.Errorf("released slot should be assignable again: %v", err)
	}

	if _, err := svc.AssignGuardian(ctx, "missing", "June", ""); !errors.Is(err, usecases.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AssignGuardian(ctx, ids[0], "", ""); err == nil {
		t.Error("empty guardian name must be rejected")
	}
}

func TestAreaService_ValidatesAndPublishes(t *testing.T) {
	st := store.New()
	pub := &mockPublisher{}
	svc := usecases.NewAreaService(st, pub, testLogger())

	coords := []domain.LngLat{{-2.93, 43.26}, {-2.94, 43.27}, {-2.92, 43.27}}
	area, err := svc.AddAreaLabel("colony", "feeding corner", coords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if area.ID == "" || area.Label != "colony" {
		t.Errorf("unexpected area: %+v", area)
	}
	if len(pub.areas) != 1 {
		t.Errorf("expected one labeled event, got %v", pub.areas)
	}

	if _, err := svc.AddAreaLabel("", "", coords); err == nil {
		t.Error("empty label must be rejected")
	}
	if _, err := svc.AddAreaLabel("x", "", coords[:2]); err == nil {
		t.Error("degenerate polygon must be rejected")
	}
}

func TestStatsSummary(t *testing.T) {
	st := store.New()
	svc := usecases.NewSightingService(st, &mockPublisher{}, testLogger())
	stats := usecases.NewStatsService(st)
	ctx := context.Background()

	cat, _ := svc.Report(ctx, usecases.ReportInput{Type: domain.TypeCat, Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93}})
	svc.Report(ctx, usecases.ReportInput{Type: domain.TypeCat, Location: domain.GeoPoint{Lat: 43.27, Lng: -2.94}})
	svc.Report(ctx, usecases.ReportInput{Type: domain.TypeDog, Location: domain.GeoPoint{Lat: 43.28, Lng: -2.95}})
	if _, err := svc.UpdateStatus(ctx, cat.ID, domain.StatusNeedsHelp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AssignGuardian(ctx, cat.ID, "June", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st.AddAreaLabel("colony", "", []domain.LngLat{{0, 0}, {1, 0}, {0, 1}})

	got, err := stats.Summary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Total != 3 || got.Guarded != 1 || got.Areas != 1 {
		t.Errorf("unexpected totals: %+v", got)
	}
	if got.ByType[domain.TypeCat] != 2 || got.ByType[domain.TypeDog] != 1 {
		t.Errorf("unexpected type tally: %+v", got.ByType)
	}
	if got.ByStatus[domain.StatusNeedsHelp] != 1 || got.ByStatus[domain.StatusReported] != 2 {
		t.Errorf("unexpected status tally: %+v", got.ByStatus)
	}
}

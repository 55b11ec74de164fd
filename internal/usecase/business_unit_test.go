package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/repository"
)

func TestBusinessUnitServiceCreateDefaultsToActive(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockBusinessUnitRepo{
		CreateFn: func(_ context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
			if unit.Status != domain.StatusActive {
				t.Fatalf("expected status to default to ACTIVE, got %s", unit.Status)
			}
			unit.ID = 7
			return &unit, nil
		},
	}
	events := &mockPublisher{}
	svc := NewBusinessUnitService(repo, &mockChangelogRepo{}, events, zap.NewNop())

	created, err := svc.Create(context.Background(), CreateBusinessUnitInput{Name: "Growth", EffectiveDate: now})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 7 {
		t.Fatalf("expected id 7, got %d", created.ID)
	}

	if len(events.statusEvents) != 1 {
		t.Fatalf("expected one status event, got %d", len(events.statusEvents))
	}
	event := events.statusEvents[0]
	if event.Previous != "" || event.Status != domain.StatusActive {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestBusinessUnitServiceCreateRequiresName(t *testing.T) {
	svc := NewBusinessUnitService(&mockBusinessUnitRepo{}, &mockChangelogRepo{}, &mockPublisher{}, zap.NewNop())

	if _, err := svc.Create(context.Background(), CreateBusinessUnitInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBusinessUnitServiceCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewBusinessUnitService(&mockBusinessUnitRepo{}, &mockChangelogRepo{}, &mockPublisher{}, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateBusinessUnitInput{Name: "Growth", Status: domain.Status("ARCHIVED")})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestBusinessUnitServiceUpdateWithoutStatusChangePublishesNothing(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockBusinessUnitRepo{
		GetFn: func(_ context.Context, id int64) (*domain.BusinessUnit, error) {
			return &domain.BusinessUnit{ID: id, Name: "Growth", Status: domain.StatusActive}, nil
		},
		UpdateFn: func(_ context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
			return &unit, nil
		},
	}
	events := &mockPublisher{}
	svc := NewBusinessUnitService(repo, &mockChangelogRepo{}, events, zap.NewNop())

	if _, err := svc.Update(context.Background(), UpdateBusinessUnitInput{
		ID:            7,
		Name:          "Growth Renamed",
		Status:        domain.StatusActive,
		EffectiveDate: now,
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(events.statusEvents) != 0 {
		t.Fatalf("expected no events for a rename, got %d", len(events.statusEvents))
	}
}

func TestBusinessUnitServiceDeleteTransitionsToDeleted(t *testing.T) {
	repo := &mockBusinessUnitRepo{
		GetFn: func(_ context.Context, id int64) (*domain.BusinessUnit, error) {
			return &domain.BusinessUnit{ID: id, Name: "Growth", Status: domain.StatusPaused}, nil
		},
		UpdateFn: func(_ context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
			return &unit, nil
		},
	}
	events := &mockPublisher{}
	svc := NewBusinessUnitService(repo, &mockChangelogRepo{}, events, zap.NewNop())

	if err := svc.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if len(repo.updates) != 1 || repo.updates[0].Status != domain.StatusDeleted {
		t.Fatalf("expected one update to DELETED, got %+v", repo.updates)
	}
	if len(events.statusEvents) != 1 || events.statusEvents[0].Status != domain.StatusDeleted {
		t.Fatalf("expected DELETED status event, got %+v", events.statusEvents)
	}
	if events.statusEvents[0].Previous != domain.StatusPaused {
		t.Fatalf("expected previous status PAUSED, got %s", events.statusEvents[0].Previous)
	}
}

func TestBusinessUnitServiceDeleteIsIdempotent(t *testing.T) {
	repo := &mockBusinessUnitRepo{
		GetFn: func(_ context.Context, id int64) (*domain.BusinessUnit, error) {
			return &domain.BusinessUnit{ID: id, Name: "Growth", Status: domain.StatusDeleted}, nil
		},
	}
	events := &mockPublisher{}
	svc := NewBusinessUnitService(repo, &mockChangelogRepo{}, events, zap.NewNop())

	if err := svc.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("expected no update for an already deleted unit, got %d", len(repo.updates))
	}
	if len(events.statusEvents) != 0 {
		t.Fatalf("expected no events, got %d", len(events.statusEvents))
	}
}

func TestBusinessUnitServiceCreateSurvivesPublishFailure(t *testing.T) {
	repo := &mockBusinessUnitRepo{
		CreateFn: func(_ context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
			unit.ID = 7
			return &unit, nil
		},
	}
	events := &mockPublisher{publishErr: errors.New("broker down")}
	svc := NewBusinessUnitService(repo, &mockChangelogRepo{}, events, zap.NewNop())

	if _, err := svc.Create(context.Background(), CreateBusinessUnitInput{Name: "Growth"}); err != nil {
		t.Fatalf("expected create to succeed despite publish failure, got %v", err)
	}
}

func TestBusinessUnitServiceCheckConsistency(t *testing.T) {
	repo := &mockBusinessUnitRepo{
		GetFn: func(_ context.Context, id int64) (*domain.BusinessUnit, error) {
			return &domain.BusinessUnit{ID: id, Name: "Growth", Status: domain.StatusActive}, nil
		},
	}

	changelogs := &mockChangelogRepo{
		ResolveFn: func(_ context.Context, _ domain.EntityKey, _ time.Time) (*domain.ChangeLogEntry, error) {
			return &domain.ChangeLogEntry{Status: domain.StatusActive, EffectiveDate: time.Now().UTC(), Sequence: 1}, nil
		},
	}
	svc := NewBusinessUnitService(repo, changelogs, &mockPublisher{}, zap.NewNop())
	if err := svc.CheckConsistency(context.Background(), 7); err != nil {
		t.Fatalf("expected consistent state, got %v", err)
	}

	changelogs.ResolveFn = func(_ context.Context, _ domain.EntityKey, _ time.Time) (*domain.ChangeLogEntry, error) {
		return &domain.ChangeLogEntry{Status: domain.StatusPaused, EffectiveDate: time.Now().UTC(), Sequence: 2}, nil
	}
	if err := svc.CheckConsistency(context.Background(), 7); !errors.Is(err, repository.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
}

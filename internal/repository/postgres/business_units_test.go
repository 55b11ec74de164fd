package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/repository"
)

func TestBusinessUnitRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBusinessUnitRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO meta\.business_unit`).
		WithArgs("Growth", (*string)(nil), "ACTIVE", now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "status", "status_updated"}).
			AddRow(int64(7), "Growth", nil, "ACTIVE", now))
	mock.ExpectExec(`INSERT INTO logs\.account_status_changelog`).
		WithArgs(int64(7), "ACTIVE", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := repo.Create(context.Background(), domain.BusinessUnit{
		Name:          "Growth",
		Status:        domain.StatusActive,
		StatusUpdated: now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 7 {
		t.Fatalf("expected assigned id 7, got %d", created.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBusinessUnitRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBusinessUnitRepository(mock)

	mock.ExpectQuery(`SELECT id, name, description, status, status_updated FROM meta\.business_unit`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Get(context.Background(), 42); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBusinessUnitRepository_UpdateAppendsChangelogOnStatusChange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBusinessUnitRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM meta\.business_unit`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectQuery(`UPDATE meta\.business_unit`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "status", "status_updated"}).
			AddRow(int64(7), "Growth", nil, "PAUSED", now))
	mock.ExpectExec(`INSERT INTO logs\.account_status_changelog`).
		WithArgs(int64(7), "PAUSED", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	updated, err := repo.Update(context.Background(), domain.BusinessUnit{
		ID:            7,
		Name:          "Growth",
		Status:        domain.StatusPaused,
		StatusUpdated: now,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != domain.StatusPaused {
		t.Fatalf("expected PAUSED, got %s", updated.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBusinessUnitRepository_UpdateSkipsChangelogWhenStatusUnchanged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBusinessUnitRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM meta\.business_unit`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectQuery(`UPDATE meta\.business_unit`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "status", "status_updated"}).
			AddRow(int64(7), "Growth Renamed", nil, "ACTIVE", now))
	mock.ExpectCommit()

	if _, err := repo.Update(context.Background(), domain.BusinessUnit{
		ID:            7,
		Name:          "Growth Renamed",
		Status:        domain.StatusActive,
		StatusUpdated: now,
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBusinessUnitRepository_ListInRetrospect(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBusinessUnitRepository(mock)
	asOf := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`rank\(\) OVER \(PARTITION BY account`).
		WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "status", "status_updated"}).
			AddRow(int64(1), "Growth", nil, "ACTIVE", asOf).
			AddRow(int64(2), "Retention", nil, "PAUSED", asOf))

	units, err := repo.ListInRetrospect(context.Background(), asOf)
	if err != nil {
		t.Fatalf("ListInRetrospect returned error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[1].Status != domain.StatusPaused {
		t.Fatalf("expected resolved status PAUSED, got %s", units[1].Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/repository"
)

func TestTagRepository_CreateGroup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectQuery(`INSERT INTO meta\.tag_group`).
		WithArgs(true, []string{"CAMPAIGN"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_mutex", "applicable_to"}).
			AddRow(int64(1), true, []string{"CAMPAIGN"}))

	group, err := repo.CreateGroup(context.Background(), domain.TagGroup{
		Mutex:        true,
		ApplicableTo: []domain.TagType{domain.TagTypeCampaign},
	})
	if err != nil {
		t.Fatalf("CreateGroup returned error: %v", err)
	}
	if group.ID != 1 || !group.Mutex {
		t.Fatalf("unexpected group: %+v", group)
	}
	if len(group.ApplicableTo) != 1 || group.ApplicableTo[0] != domain.TagTypeCampaign {
		t.Fatalf("unexpected applicability: %v", group.ApplicableTo)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTagRepository_GetGroupNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectQuery(`SELECT id, is_mutex, applicable_to::text\[\] FROM meta\.tag_group WHERE id`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetGroup(context.Background(), 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTagRepository_ListApplicable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectQuery(`ANY\(applicable_to::text\[\]\)`).
		WithArgs("PRODUCT").
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_mutex", "applicable_to"}).
			AddRow(int64(2), false, []string{"PRODUCT", "CAMPAIGN"}))

	groups, err := repo.ListApplicable(context.Background(), domain.TagTypeProduct)
	if err != nil {
		t.Fatalf("ListApplicable returned error: %v", err)
	}
	if len(groups) != 1 || len(groups[0].ApplicableTo) != 2 {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestTagRepository_CreateTagDuplicateValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectQuery(`INSERT INTO meta\.tag`).
		WithArgs(int64(1), "seasonal").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	if _, err := repo.CreateTag(context.Background(), domain.Tag{GroupID: 1, Value: "seasonal"}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate value, got %v", err)
	}
}

func TestTagRepository_CreateTagUnknownGroup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectQuery(`INSERT INTO meta\.tag`).
		WithArgs(int64(99), "seasonal").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	if _, err := repo.CreateTag(context.Background(), domain.Tag{GroupID: 99, Value: "seasonal"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown group, got %v", err)
	}
}

func TestTagRepository_TagsOfDecodesExclusions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectQuery(`FROM meta\.campaign_tags a`).
		WithArgs("TRK-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "group", "value", "exclusions"}).
			AddRow(int64(10), int64(1), "summer", []byte(`[{"id":11,"group":1,"value":"winter"}]`)).
			AddRow(int64(20), int64(2), "priority", []byte(`[]`)))

	applied, err := repo.TagsOf(context.Background(), domain.CampaignKey("TRK-1"))
	if err != nil {
		t.Fatalf("TagsOf returned error: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied tags, got %d", len(applied))
	}
	if len(applied[0].Exclusions) != 1 || applied[0].Exclusions[0].Value != "winter" {
		t.Fatalf("expected mutex sibling in exclusion set, got %+v", applied[0].Exclusions)
	}
	if len(applied[1].Exclusions) != 0 {
		t.Fatalf("expected empty exclusion set for non-mutex tag, got %+v", applied[1].Exclusions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTagRepository_ApplyAlreadyApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectExec(`INSERT INTO meta\.product_tags`).
		WithArgs("SKU-1", int64(10)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	if err := repo.Apply(context.Background(), domain.ProductKey("SKU-1"), 10); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict for repeated apply, got %v", err)
	}
}

func TestTagRepository_ApplyUnknownTag(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectExec(`INSERT INTO meta\.account_tags`).
		WithArgs(int64(7), int64(404)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	if err := repo.Apply(context.Background(), domain.BusinessUnitKey(7), 404); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown tag, got %v", err)
	}
}

func TestTagRepository_RemoveIsIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTagRepository(mock)

	mock.ExpectExec(`DELETE FROM meta\.marketplace_tags`).
		WithArgs(int64(3), int64(10)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Remove(context.Background(), domain.MarketplaceKey(3), 10); err != nil {
		t.Fatalf("expected removing an absent association to succeed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/repository"
)

const businessUnitColumns = "id, name, description, status, status_updated"

// BusinessUnitRepository implements business unit persistence.
type BusinessUnitRepository struct {
	db      pgPool
	builder squirrel.StatementBuilderType
}

// NewBusinessUnitRepository constructs a PostgreSQL-backed business unit repository.
func NewBusinessUnitRepository(db pgPool) *BusinessUnitRepository {
	return &BusinessUnitRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the row and the first changelog entry in one transaction.
func (r *BusinessUnitRepository) Create(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
	if unit.StatusUpdated.IsZero() {
		unit.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("meta.business_unit").
		Columns("name", "description", "status", "status_updated").
		Values(unit.Name, unit.Description, squirrel.Expr("?::meta.account_status", string(unit.Status)), unit.StatusUpdated).
		Suffix("RETURNING " + businessUnitColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert business unit sql: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create business unit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanBusinessUnit(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert business unit: %w", err)
	}

	if err := appendStatusChange(ctx, tx, created.Key(), created.Status, created.StatusUpdated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create business unit: %w", err)
	}

	return created, nil
}

// Get retrieves a business unit by id.
func (r *BusinessUnitRepository) Get(ctx context.Context, id int64) (*domain.BusinessUnit, error) {
	stmt, args, err := r.builder.Select(businessUnitColumns).
		From("meta.business_unit").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select business unit sql: %w", err)
	}

	unit, err := scanBusinessUnit(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select business unit: %w", err)
	}

	return unit, nil
}

// Update rewrites the mutable columns. A changelog entry is appended only
// when the status differs from the stored row.
func (r *BusinessUnitRepository) Update(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update business unit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, "SELECT status FROM meta.business_unit WHERE id = $1", unit.ID).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select current business unit status: %w", err)
	}

	if unit.StatusUpdated.IsZero() {
		unit.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Update("meta.business_unit").
		Set("name", unit.Name).
		Set("description", unit.Description).
		Set("status", squirrel.Expr("?::meta.account_status", string(unit.Status))).
		Set("status_updated", unit.StatusUpdated).
		Where(squirrel.Eq{"id": unit.ID}).
		Suffix("RETURNING " + businessUnitColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update business unit sql: %w", err)
	}

	updated, err := scanBusinessUnit(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("update business unit: %w", err)
	}

	if domain.Status(current) != unit.Status {
		if err := appendStatusChange(ctx, tx, updated.Key(), updated.Status, updated.StatusUpdated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update business unit: %w", err)
	}

	return updated, nil
}

// List returns live business units that are not DELETED.
func (r *BusinessUnitRepository) List(ctx context.Context) ([]domain.BusinessUnit, error) {
	stmt, args, err := r.builder.Select(businessUnitColumns).
		From("meta.business_unit").
		Where("status <> 'DELETED'::meta.account_status").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list business units sql: %w", err)
	}

	return r.queryBusinessUnits(ctx, stmt, args...)
}

// ListInRetrospect returns business units as the changelog resolved them at
// asOf, DELETED excluded.
func (r *BusinessUnitRepository) ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.BusinessUnit, error) {
	const stmt = `SELECT b.id, b.name, b.description, l.status, l.status_updated
FROM meta.business_unit b JOIN (
    SELECT account AS id, status, effective_date AS status_updated,
           rank() OVER (PARTITION BY account ORDER BY effective_date DESC, change_number DESC) AS rank
    FROM logs.account_status_changelog
    WHERE effective_date <= $1
) l ON b.id = l.id
WHERE rank = 1 AND l.status <> 'DELETED'::meta.account_status
ORDER BY b.id ASC`

	return r.queryBusinessUnits(ctx, stmt, asOf)
}

func (r *BusinessUnitRepository) queryBusinessUnits(ctx context.Context, stmt string, args ...any) ([]domain.BusinessUnit, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query business units: %w", err)
	}
	defer rows.Close()

	var units []domain.BusinessUnit
	for rows.Next() {
		var (
			unit        domain.BusinessUnit
			description sql.NullString
			status      string
		)
		if err := rows.Scan(&unit.ID, &unit.Name, &description, &status, &unit.StatusUpdated); err != nil {
			return nil, fmt.Errorf("scan business unit: %w", err)
		}
		unit.Description = optionalString(description)
		unit.Status = domain.Status(status)
		units = append(units, unit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate business units: %w", err)
	}

	return units, nil
}

func scanBusinessUnit(row pgx.Row) (*domain.BusinessUnit, error) {
	var (
		unit        domain.BusinessUnit
		description sql.NullString
		status      string
	)
	if err := row.Scan(&unit.ID, &unit.Name, &description, &status, &unit.StatusUpdated); err != nil {
		return nil, err
	}
	unit.Description = optionalString(description)
	unit.Status = domain.Status(status)
	return &unit, nil
}

var _ port.BusinessUnitRepository = (*BusinessUnitRepository)(nil)

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

const marketplaceColumns = "id, name, description, contact_email, contact_name, status, status_updated"

// MarketplaceRepository implements marketplace persistence.
type MarketplaceRepository struct {
	db      pgPool
	builder squirrel.StatementBuilderType
}

// NewMarketplaceRepository constructs a PostgreSQL-backed marketplace repository.
func NewMarketplaceRepository(db pgPool) *MarketplaceRepository {
	return &MarketplaceRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the row and the first changelog entry in one transaction.
func (r *MarketplaceRepository) Create(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error) {
	if marketplace.StatusUpdated.IsZero() {
		marketplace.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("meta.marketplace").
		Columns("name", "description", "contact_email", "contact_name", "status", "status_updated").
		Values(
			marketplace.Name,
			marketplace.Description,
			marketplace.ContactEmail,
			marketplace.ContactName,
			squirrel.Expr("?::meta.marketplace_status", string(marketplace.Status)),
			marketplace.StatusUpdated,
		).
		Suffix("RETURNING " + marketplaceColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert marketplace sql: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create marketplace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanMarketplace(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert marketplace: %w", err)
	}

	if err := appendStatusChange(ctx, tx, created.Key(), created.Status, created.StatusUpdated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create marketplace: %w", err)
	}

	return created, nil
}

// Get retrieves a marketplace by id.
func (r *MarketplaceRepository) Get(ctx context.Context, id int64) (*domain.Marketplace, error) {
	stmt, args, err := r.builder.Select(marketplaceColumns).
		From("meta.marketplace").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select marketplace sql: %w", err)
	}

	marketplace, err := scanMarketplace(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select marketplace: %w", err)
	}

	return marketplace, nil
}

// Update rewrites the mutable columns, appending a changelog entry only when
// the status changed.
func (r *MarketplaceRepository) Update(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update marketplace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, "SELECT status FROM meta.marketplace WHERE id = $1", marketplace.ID).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select current marketplace status: %w", err)
	}

	if marketplace.StatusUpdated.IsZero() {
		marketplace.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Update("meta.marketplace").
		Set("name", marketplace.Name).
		Set("description", marketplace.Description).
		Set("contact_email", marketplace.ContactEmail).
		Set("contact_name", marketplace.ContactName).
		Set("status", squirrel.Expr("?::meta.marketplace_status", string(marketplace.Status))).
		Set("status_updated", marketplace.StatusUpdated).
		Where(squirrel.Eq{"id": marketplace.ID}).
		Suffix("RETURNING " + marketplaceColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update marketplace sql: %w", err)
	}

	updated, err := scanMarketplace(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("update marketplace: %w", err)
	}

	if domain.Status(current) != marketplace.Status {
		if err := appendStatusChange(ctx, tx, updated.Key(), updated.Status, updated.StatusUpdated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update marketplace: %w", err)
	}

	return updated, nil
}

// List returns live marketplaces that are not DELETED.
func (r *MarketplaceRepository) List(ctx context.Context) ([]domain.Marketplace, error) {
	stmt, args, err := r.builder.Select(marketplaceColumns).
		From("meta.marketplace").
		Where("status <> 'DELETED'::meta.marketplace_status").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list marketplaces sql: %w", err)
	}

	return r.queryMarketplaces(ctx, stmt, args...)
}

// ListInRetrospect returns marketplaces as the changelog resolved them at
// asOf, DELETED excluded.
func (r *MarketplaceRepository) ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.Marketplace, error) {
	const stmt = `SELECT m.id, m.name, m.description, m.contact_email, m.contact_name, l.status, l.status_updated
FROM meta.marketplace m JOIN (
    SELECT marketplace AS id, status, effective_date AS status_updated,
           rank() OVER (PARTITION BY marketplace ORDER BY effective_date DESC, change_number DESC) AS rank
    FROM logs.marketplace_status_changelog
    WHERE effective_date <= $1
) l ON m.id = l.id
WHERE rank = 1 AND l.status <> 'DELETED'::meta.marketplace_status
ORDER BY m.id ASC`

	return r.queryMarketplaces(ctx, stmt, asOf)
}

func (r *MarketplaceRepository) queryMarketplaces(ctx context.Context, stmt string, args ...any) ([]domain.Marketplace, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query marketplaces: %w", err)
	}
	defer rows.Close()

	var marketplaces []domain.Marketplace
	for rows.Next() {
		var (
			marketplace  domain.Marketplace
			description  sql.NullString
			contactEmail sql.NullString
			contactName  sql.NullString
			status       string
		)
		if err := rows.Scan(&marketplace.ID, &marketplace.Name, &description, &contactEmail, &contactName, &status, &marketplace.StatusUpdated); err != nil {
			return nil, fmt.Errorf("scan marketplace: %w", err)
		}
		marketplace.Description = optionalString(description)
		marketplace.ContactEmail = optionalString(contactEmail)
		marketplace.ContactName = optionalString(contactName)
		marketplace.Status = domain.Status(status)
		marketplaces = append(marketplaces, marketplace)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marketplaces: %w", err)
	}

	return marketplaces, nil
}

func scanMarketplace(row pgx.Row) (*domain.Marketplace, error) {
	var (
		marketplace  domain.Marketplace
		description  sql.NullString
		contactEmail sql.NullString
		contactName  sql.NullString
		status       string
	)
	if err := row.Scan(&marketplace.ID, &marketplace.Name, &description, &contactEmail, &contactName, &status, &marketplace.StatusUpdated); err != nil {
		return nil, err
	}
	marketplace.Description = optionalString(description)
	marketplace.ContactEmail = optionalString(contactEmail)
	marketplace.ContactName = optionalString(contactName)
	marketplace.Status = domain.Status(status)
	return &marketplace, nil
}

var _ port.MarketplaceRepository = (*MarketplaceRepository)(nil)

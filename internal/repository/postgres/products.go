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

const productColumns = "code, name, description, status, status_updated"

// ProductRepository implements product persistence. Products carry an
// externally assigned code as their key.
type ProductRepository struct {
	db      pgPool
	builder squirrel.StatementBuilderType
}

// NewProductRepository constructs a PostgreSQL-backed product repository.
func NewProductRepository(db pgPool) *ProductRepository {
	return &ProductRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the row and the first changelog entry in one transaction.
// A duplicate code fails with repository.ErrConflict.
func (r *ProductRepository) Create(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.StatusUpdated.IsZero() {
		product.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("meta.product").
		Columns("code", "name", "description", "status", "status_updated").
		Values(product.Code, product.Name, product.Description, squirrel.Expr("?::meta.product_status", string(product.Status)), product.StatusUpdated).
		Suffix("RETURNING " + productColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert product sql: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create product: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanProduct(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}

	if err := appendStatusChange(ctx, tx, created.Key(), created.Status, created.StatusUpdated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create product: %w", err)
	}

	return created, nil
}

// Get retrieves a product by code.
func (r *ProductRepository) Get(ctx context.Context, code string) (*domain.Product, error) {
	stmt, args, err := r.builder.Select(productColumns).
		From("meta.product").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select product sql: %w", err)
	}

	product, err := scanProduct(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

// Update rewrites the mutable columns, appending a changelog entry only when
// the status changed.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (*domain.Product, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update product: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, "SELECT status FROM meta.product WHERE code = $1", product.Code).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select current product status: %w", err)
	}

	if product.StatusUpdated.IsZero() {
		product.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Update("meta.product").
		Set("name", product.Name).
		Set("description", product.Description).
		Set("status", squirrel.Expr("?::meta.product_status", string(product.Status))).
		Set("status_updated", product.StatusUpdated).
		Where(squirrel.Eq{"code": product.Code}).
		Suffix("RETURNING " + productColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update product sql: %w", err)
	}

	updated, err := scanProduct(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if domain.Status(current) != product.Status {
		if err := appendStatusChange(ctx, tx, updated.Key(), updated.Status, updated.StatusUpdated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update product: %w", err)
	}

	return updated, nil
}

// List returns live products that are not DELETED.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	stmt, args, err := r.builder.Select(productColumns).
		From("meta.product").
		Where("status <> 'DELETED'::meta.product_status").
		OrderBy("code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list products sql: %w", err)
	}

	return r.queryProducts(ctx, stmt, args...)
}

// ListInRetrospect returns products as the changelog resolved them at asOf,
// DELETED excluded.
func (r *ProductRepository) ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.Product, error) {
	const stmt = `SELECT p.code, p.name, p.description, l.status, l.status_updated
FROM meta.product p JOIN (
    SELECT product AS code, status, effective_date AS status_updated,
           rank() OVER (PARTITION BY product ORDER BY effective_date DESC, change_number DESC) AS rank
    FROM logs.product_status_changelog
    WHERE effective_date <= $1
) l ON p.code = l.code
WHERE rank = 1 AND l.status <> 'DELETED'::meta.product_status
ORDER BY p.code ASC`

	return r.queryProducts(ctx, stmt, asOf)
}

func (r *ProductRepository) queryProducts(ctx context.Context, stmt string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			product     domain.Product
			description sql.NullString
			status      string
		)
		if err := rows.Scan(&product.Code, &product.Name, &description, &status, &product.StatusUpdated); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		product.Description = optionalString(description)
		product.Status = domain.Status(status)
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		product     domain.Product
		description sql.NullString
		status      string
	)
	if err := row.Scan(&product.Code, &product.Name, &description, &status, &product.StatusUpdated); err != nil {
		return nil, err
	}
	product.Description = optionalString(description)
	product.Status = domain.Status(status)
	return &product, nil
}

var _ port.ProductRepository = (*ProductRepository)(nil)

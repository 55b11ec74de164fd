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

const campaignColumns = "tracker, product, marketplace, type, name, description, status, status_updated, cost_cents"

// CampaignRepository implements campaign persistence, the campaign status
// changelog and the campaign to business-unit relationship log.
type CampaignRepository struct {
	db      pgPool
	builder squirrel.StatementBuilderType
}

// NewCampaignRepository constructs a PostgreSQL-backed campaign repository.
func NewCampaignRepository(db pgPool) *CampaignRepository {
	return &CampaignRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the campaign row, records the initial owner and appends the
// first changelog entry, all in one transaction. An unknown product or
// marketplace fails with repository.ErrNotFound, a duplicate tracker with
// repository.ErrConflict.
func (r *CampaignRepository) Create(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	if campaign.StatusUpdated.IsZero() {
		campaign.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("meta.campaign").
		Columns("tracker", "product", "marketplace", "type", "name", "description", "status", "status_updated", "cost_cents").
		Values(
			campaign.Tracker,
			campaign.ProductCode,
			campaign.MarketplaceID,
			squirrel.Expr("?::meta.campaign_type", string(campaign.Type)),
			campaign.Name,
			campaign.Description,
			squirrel.Expr("?::meta.campaign_status", string(campaign.Status)),
			campaign.StatusUpdated,
			campaign.CostCents,
		).
		Suffix("RETURNING " + campaignColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert campaign sql: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create campaign: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanCampaignRow(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	if err := assignOwner(ctx, tx, created.Tracker, campaign.BusinessUnitID, created.StatusUpdated); err != nil {
		return nil, err
	}
	created.BusinessUnitID = campaign.BusinessUnitID

	if err := appendStatusChange(ctx, tx, created.Key(), created.Status, created.StatusUpdated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create campaign: %w", err)
	}

	return created, nil
}

// Get retrieves a campaign by tracker together with its current owner.
func (r *CampaignRepository) Get(ctx context.Context, tracker string) (*domain.Campaign, error) {
	stmt, args, err := r.builder.Select(
		"c.tracker", "c.product", "c.marketplace", "ac.business_unit",
		"c.type", "c.name", "c.description", "c.status", "c.status_updated", "c.cost_cents").
		From("meta.campaign c").
		LeftJoin("meta.account_campaigns ac ON ac.tracker = c.tracker").
		Where(squirrel.Eq{"c.tracker": tracker}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select campaign sql: %w", err)
	}

	campaign, err := scanOwnedCampaignRow(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select campaign: %w", err)
	}

	return campaign, nil
}

// Update rewrites the mutable columns (name, description, marketplace,
// status). Tracker, product, type and cost are immutable. A changelog entry
// is appended only when the status changed.
func (r *CampaignRepository) Update(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update campaign: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, "SELECT status FROM meta.campaign WHERE tracker = $1", campaign.Tracker).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select current campaign status: %w", err)
	}

	if campaign.StatusUpdated.IsZero() {
		campaign.StatusUpdated = time.Now().UTC()
	}

	stmt, args, err := r.builder.Update("meta.campaign").
		Set("name", campaign.Name).
		Set("description", campaign.Description).
		Set("marketplace", campaign.MarketplaceID).
		Set("status", squirrel.Expr("?::meta.campaign_status", string(campaign.Status))).
		Set("status_updated", campaign.StatusUpdated).
		Where(squirrel.Eq{"tracker": campaign.Tracker}).
		Suffix("RETURNING " + campaignColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update campaign sql: %w", err)
	}

	updated, err := scanCampaignRow(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	var owner sql.NullInt64
	err = tx.QueryRow(ctx, "SELECT business_unit FROM meta.account_campaigns WHERE tracker = $1", campaign.Tracker).Scan(&owner)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("select campaign owner: %w", err)
	}
	updated.BusinessUnitID = owner.Int64

	if domain.Status(current) != campaign.Status {
		if err := appendStatusChange(ctx, tx, updated.Key(), updated.Status, updated.StatusUpdated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update campaign: %w", err)
	}

	return updated, nil
}

// List returns campaigns visible now: campaign, product and marketplace all
// not DELETED on the live rows, narrowed by scope.
func (r *CampaignRepository) List(ctx context.Context, scope domain.CampaignScope) ([]domain.Campaign, error) {
	query := r.builder.Select(
		"c.tracker", "c.product", "c.marketplace", "ac.business_unit",
		"c.type", "c.name", "c.description", "c.status", "c.status_updated", "c.cost_cents").
		From("meta.campaign c").
		Join("meta.product p ON p.code = c.product").
		Join("meta.marketplace m ON m.id = c.marketplace").
		LeftJoin("meta.account_campaigns ac ON ac.tracker = c.tracker").
		Where("c.status <> 'DELETED'::meta.campaign_status").
		Where("p.status <> 'DELETED'::meta.product_status").
		Where("m.status <> 'DELETED'::meta.marketplace_status")

	if scope.BusinessUnitID != nil {
		query = query.Where(squirrel.Eq{"ac.business_unit": *scope.BusinessUnitID})
	}
	if scope.MarketplaceID != nil {
		query = query.Where(squirrel.Eq{"c.marketplace": *scope.MarketplaceID})
	}
	if scope.ProductCode != nil {
		query = query.Where(squirrel.Eq{"c.product": *scope.ProductCode})
	}

	stmt, args, err := query.OrderBy("c.tracker ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list campaigns sql: %w", err)
	}

	return r.queryCampaigns(ctx, stmt, args...)
}

// ListInRetrospect resolves campaign, product and marketplace changelogs at
// asOf independently and composes them with the same visibility predicate.
// Deleting a referenced product or marketplace retroactively hides its
// campaigns without any campaign writes.
func (r *CampaignRepository) ListInRetrospect(ctx context.Context, asOf time.Time, scope domain.CampaignScope) ([]domain.Campaign, error) {
	stmt := `SELECT c.tracker, c.product, c.marketplace, ac.business_unit,
       c.type, c.name, c.description, ccl.status, ccl.status_updated, c.cost_cents
FROM meta.campaign c
JOIN meta.product p ON p.code = c.product
JOIN meta.marketplace m ON m.id = c.marketplace
LEFT JOIN meta.account_campaigns ac ON ac.tracker = c.tracker
JOIN (
    SELECT campaign, status, effective_date AS status_updated,
           rank() OVER (PARTITION BY campaign ORDER BY effective_date DESC, change_number DESC) AS rank
    FROM logs.campaign_status_changelog
    WHERE effective_date <= $1
) ccl ON ccl.campaign = c.tracker
JOIN (
    SELECT product, status,
           rank() OVER (PARTITION BY product ORDER BY effective_date DESC, change_number DESC) AS rank
    FROM logs.product_status_changelog
    WHERE effective_date <= $2
) pcl ON pcl.product = c.product
JOIN (
    SELECT marketplace, status,
           rank() OVER (PARTITION BY marketplace ORDER BY effective_date DESC, change_number DESC) AS rank
    FROM logs.marketplace_status_changelog
    WHERE effective_date <= $3
) mcl ON mcl.marketplace = c.marketplace
WHERE ccl.rank = 1 AND ccl.status <> 'DELETED'::meta.campaign_status
AND pcl.rank = 1 AND pcl.status <> 'DELETED'::meta.product_status
AND mcl.rank = 1 AND mcl.status <> 'DELETED'::meta.marketplace_status`

	args := []any{asOf, asOf, asOf}
	if scope.BusinessUnitID != nil {
		args = append(args, *scope.BusinessUnitID)
		stmt += fmt.Sprintf(" AND ac.business_unit = $%d", len(args))
	}
	if scope.MarketplaceID != nil {
		args = append(args, *scope.MarketplaceID)
		stmt += fmt.Sprintf(" AND c.marketplace = $%d", len(args))
	}
	if scope.ProductCode != nil {
		args = append(args, *scope.ProductCode)
		stmt += fmt.Sprintf(" AND c.product = $%d", len(args))
	}
	stmt += " ORDER BY c.tracker ASC"

	return r.queryCampaigns(ctx, stmt, args...)
}

// AssignOwner moves the campaign under a business unit: current-owner upsert
// plus an unconditional relationship log append, one transaction.
func (r *CampaignRepository) AssignOwner(ctx context.Context, tracker string, businessUnitID int64, effectiveDate time.Time) error {
	if effectiveDate.IsZero() {
		effectiveDate = time.Now().UTC()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin assign campaign owner: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := assignOwner(ctx, tx, tracker, businessUnitID, effectiveDate); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit assign campaign owner: %w", err)
	}

	return nil
}

func assignOwner(ctx context.Context, exec pgExecutor, tracker string, businessUnitID int64, effectiveDate time.Time) error {
	const upsert = `INSERT INTO meta.account_campaigns (tracker, business_unit, linked_date) VALUES ($1, $2, $3)
ON CONFLICT (tracker) DO UPDATE SET business_unit = EXCLUDED.business_unit, linked_date = EXCLUDED.linked_date`

	if _, err := exec.Exec(ctx, upsert, tracker, businessUnitID, effectiveDate); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("upsert campaign owner: %w", err)
	}

	const logInsert = "INSERT INTO logs.campaign_account_relationship_changelog (tracker, account, effective_date) VALUES ($1, $2, $3)"
	if _, err := exec.Exec(ctx, logInsert, tracker, businessUnitID, effectiveDate); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert relationship log entry: %w", err)
	}

	return nil
}

// OwnerAsOf resolves the owning business unit at asOf: the latest entry
// effective on or before asOf, ties broken by insertion order. When nothing
// qualifies the earliest logged entry wins, so any campaign with assignment
// history resolves deterministically.
func (r *CampaignRepository) OwnerAsOf(ctx context.Context, tracker string, asOf time.Time) (int64, error) {
	const resolve = `SELECT account FROM logs.campaign_account_relationship_changelog
WHERE tracker = $1 AND effective_date <= $2
ORDER BY effective_date DESC, change_number DESC LIMIT 1`

	var owner int64
	err := r.db.QueryRow(ctx, resolve, tracker, asOf).Scan(&owner)
	if err == nil {
		return owner, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("resolve campaign owner: %w", err)
	}

	const earliest = `SELECT account FROM logs.campaign_account_relationship_changelog
WHERE tracker = $1
ORDER BY effective_date ASC, change_number ASC LIMIT 1`

	err = r.db.QueryRow(ctx, earliest, tracker).Scan(&owner)
	if err == pgx.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve earliest campaign owner: %w", err)
	}

	return owner, nil
}

// OwnershipHistory returns the relationship log in insertion order.
func (r *CampaignRepository) OwnershipHistory(ctx context.Context, tracker string) ([]domain.OwnershipEntry, error) {
	const stmt = `SELECT tracker, account, effective_date, change_number
FROM logs.campaign_account_relationship_changelog
WHERE tracker = $1 ORDER BY change_number ASC`

	rows, err := r.db.Query(ctx, stmt, tracker)
	if err != nil {
		return nil, fmt.Errorf("query relationship log: %w", err)
	}
	defer rows.Close()

	var entries []domain.OwnershipEntry
	for rows.Next() {
		var entry domain.OwnershipEntry
		if err := rows.Scan(&entry.Tracker, &entry.BusinessUnitID, &entry.EffectiveDate, &entry.Sequence); err != nil {
			return nil, fmt.Errorf("scan relationship log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationship log: %w", err)
	}

	return entries, nil
}

func (r *CampaignRepository) queryCampaigns(ctx context.Context, stmt string, args ...any) ([]domain.Campaign, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var (
			campaign     domain.Campaign
			owner        sql.NullInt64
			campaignType string
			description  sql.NullString
			status       string
		)
		if err := rows.Scan(
			&campaign.Tracker, &campaign.ProductCode, &campaign.MarketplaceID, &owner,
			&campaignType, &campaign.Name, &description, &status, &campaign.StatusUpdated, &campaign.CostCents,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaign.BusinessUnitID = owner.Int64
		campaign.Type = domain.CampaignType(campaignType)
		campaign.Description = optionalString(description)
		campaign.Status = domain.Status(status)
		campaigns = append(campaigns, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}

	return campaigns, nil
}

func scanCampaignRow(row pgx.Row) (*domain.Campaign, error) {
	var (
		campaign     domain.Campaign
		campaignType string
		description  sql.NullString
		status       string
	)
	if err := row.Scan(
		&campaign.Tracker, &campaign.ProductCode, &campaign.MarketplaceID,
		&campaignType, &campaign.Name, &description, &status, &campaign.StatusUpdated, &campaign.CostCents,
	); err != nil {
		return nil, err
	}
	campaign.Type = domain.CampaignType(campaignType)
	campaign.Description = optionalString(description)
	campaign.Status = domain.Status(status)
	return &campaign, nil
}

func scanOwnedCampaignRow(row pgx.Row) (*domain.Campaign, error) {
	var (
		campaign     domain.Campaign
		owner        sql.NullInt64
		campaignType string
		description  sql.NullString
		status       string
	)
	if err := row.Scan(
		&campaign.Tracker, &campaign.ProductCode, &campaign.MarketplaceID, &owner,
		&campaignType, &campaign.Name, &description, &status, &campaign.StatusUpdated, &campaign.CostCents,
	); err != nil {
		return nil, err
	}
	campaign.BusinessUnitID = owner.Int64
	campaign.Type = domain.CampaignType(campaignType)
	campaign.Description = optionalString(description)
	campaign.Status = domain.Status(status)
	return &campaign, nil
}

var _ port.CampaignRepository = (*CampaignRepository)(nil)

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/repository"
)

// changelogSpec binds an entity kind to its changelog table, key column and
// status enum, plus the live table used to tell "unknown entity" apart from
// "no status yet".
type changelogSpec struct {
	table     string
	keyColumn string
	enum      string
	liveTable string
	liveKey   string
}

var changelogSpecs = map[domain.EntityKind]changelogSpec{
	domain.KindBusinessUnit: {
		table:     "logs.account_status_changelog",
		keyColumn: "account",
		enum:      "meta.account_status",
		liveTable: "meta.business_unit",
		liveKey:   "id",
	},
	domain.KindMarketplace: {
		table:     "logs.marketplace_status_changelog",
		keyColumn: "marketplace",
		enum:      "meta.marketplace_status",
		liveTable: "meta.marketplace",
		liveKey:   "id",
	},
	domain.KindProduct: {
		table:     "logs.product_status_changelog",
		keyColumn: "product",
		enum:      "meta.product_status",
		liveTable: "meta.product",
		liveKey:   "code",
	},
	domain.KindCampaign: {
		table:     "logs.campaign_status_changelog",
		keyColumn: "campaign",
		enum:      "meta.campaign_status",
		liveTable: "meta.campaign",
		liveKey:   "tracker",
	},
}

func specFor(kind domain.EntityKind) (changelogSpec, error) {
	spec, ok := changelogSpecs[kind]
	if !ok {
		return changelogSpec{}, fmt.Errorf("no changelog for entity kind %q", kind)
	}
	return spec, nil
}

// appendStatusChange writes one changelog entry using the supplied executor,
// so entity repositories can call it inside their own transactions.
func appendStatusChange(ctx context.Context, exec pgExecutor, key domain.EntityKey, status domain.Status, effectiveDate time.Time) error {
	spec, err := specFor(key.Kind)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s, status, effective_date) VALUES ($1, $2::%s, $3)",
		spec.table, spec.keyColumn, spec.enum,
	)

	if _, err := exec.Exec(ctx, stmt, key.Value(), string(status), effectiveDate); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert %s entry: %w", spec.table, err)
	}

	return nil
}

// ChangelogRepository implements the shared status history store.
type ChangelogRepository struct {
	db pgPool
}

// NewChangelogRepository constructs a PostgreSQL-backed changelog repository.
func NewChangelogRepository(db pgPool) *ChangelogRepository {
	return &ChangelogRepository{db: db}
}

// Append records one immutable status entry for the entity.
func (r *ChangelogRepository) Append(ctx context.Context, key domain.EntityKey, status domain.Status, effectiveDate time.Time) error {
	return appendStatusChange(ctx, r.db, key, status, effectiveDate)
}

// History returns every entry for the entity in insertion order.
func (r *ChangelogRepository) History(ctx context.Context, key domain.EntityKey) (domain.ChangeLog, error) {
	spec, err := specFor(key.Kind)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT status, effective_date, change_number FROM %s WHERE %s = $1 ORDER BY change_number ASC",
		spec.table, spec.keyColumn,
	)

	rows, err := r.db.Query(ctx, stmt, key.Value())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", spec.table, err)
	}
	defer rows.Close()

	log := domain.ChangeLog{}
	for rows.Next() {
		var (
			entry  domain.ChangeLogEntry
			status string
		)
		if err := rows.Scan(&status, &entry.EffectiveDate, &entry.Sequence); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", spec.table, err)
		}
		entry.Status = domain.Status(status)
		log = append(log, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", spec.table, err)
	}

	return log, nil
}

// Resolve returns the entry in force at asOf. A nil entry with a nil error
// means the entity exists but had no status yet at that instant.
func (r *ChangelogRepository) Resolve(ctx context.Context, key domain.EntityKey, asOf time.Time) (*domain.ChangeLogEntry, error) {
	spec, err := specFor(key.Kind)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT status, effective_date, change_number FROM %s WHERE %s = $1 AND effective_date <= $2 ORDER BY effective_date DESC, change_number DESC LIMIT 1",
		spec.table, spec.keyColumn,
	)

	var (
		entry  domain.ChangeLogEntry
		status string
	)
	err = r.db.QueryRow(ctx, stmt, key.Value(), asOf).Scan(&status, &entry.EffectiveDate, &entry.Sequence)
	if err == pgx.ErrNoRows {
		return nil, r.checkExists(ctx, spec, key)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", spec.table, err)
	}

	entry.Status = domain.Status(status)
	return &entry, nil
}

// checkExists distinguishes an unknown entity from one logged after asOf.
func (r *ChangelogRepository) checkExists(ctx context.Context, spec changelogSpec, key domain.EntityKey) error {
	stmt := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", spec.liveTable, spec.liveKey)

	var exists bool
	if err := r.db.QueryRow(ctx, stmt, key.Value()).Scan(&exists); err != nil {
		return fmt.Errorf("check %s existence: %w", spec.liveTable, err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return nil
}

// ResolveSet resolves every entity of a kind at asOf in one window pass,
// omitting DELETED resolutions.
func (r *ChangelogRepository) ResolveSet(ctx context.Context, kind domain.EntityKind, asOf time.Time) ([]domain.ResolvedStatus, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		"SELECT %[2]s, status, effective_date FROM ("+
			" SELECT %[2]s, status, effective_date,"+
			" rank() OVER (PARTITION BY %[2]s ORDER BY effective_date DESC, change_number DESC) AS rank"+
			" FROM %[1]s WHERE effective_date <= $1"+
			") ranked WHERE rank = 1 AND status <> 'DELETED'::%[3]s",
		spec.table, spec.keyColumn, spec.enum,
	)

	rows, err := r.db.Query(ctx, stmt, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve %s set: %w", spec.table, err)
	}
	defer rows.Close()

	var out []domain.ResolvedStatus
	for rows.Next() {
		var (
			resolved domain.ResolvedStatus
			status   string
		)
		if kind.Numeric() {
			var id int64
			if err := rows.Scan(&id, &status, &resolved.EffectiveDate); err != nil {
				return nil, fmt.Errorf("scan %s resolution: %w", spec.table, err)
			}
			resolved.Key = domain.EntityKey{Kind: kind, ID: id}
		} else {
			var code string
			if err := rows.Scan(&code, &status, &resolved.EffectiveDate); err != nil {
				return nil, fmt.Errorf("scan %s resolution: %w", spec.table, err)
			}
			resolved.Key = domain.EntityKey{Kind: kind, Code: code}
		}
		resolved.Status = domain.Status(status)
		out = append(out, resolved)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s resolutions: %w", spec.table, err)
	}

	return out, nil
}

var _ port.ChangelogRepository = (*ChangelogRepository)(nil)

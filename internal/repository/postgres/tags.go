package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/repository"
)

// tagAssociation binds an entity kind to its tag association table.
type tagAssociation struct {
	table     string
	keyColumn string
}

var tagAssociations = map[domain.EntityKind]tagAssociation{
	domain.KindBusinessUnit: {table: "meta.account_tags", keyColumn: "account"},
	domain.KindMarketplace:  {table: "meta.marketplace_tags", keyColumn: "marketplace"},
	domain.KindProduct:      {table: "meta.product_tags", keyColumn: "product"},
	domain.KindCampaign:     {table: "meta.campaign_tags", keyColumn: "campaign"},
}

func associationFor(kind domain.EntityKind) (tagAssociation, error) {
	assoc, ok := tagAssociations[kind]
	if !ok {
		return tagAssociation{}, fmt.Errorf("no tag association for entity kind %q", kind)
	}
	return assoc, nil
}

// TagRepository implements tag group, tag and association persistence.
// Mutex exclusivity is never enforced here; it is surfaced through the
// exclusion sets returned by TagsOf.
type TagRepository struct {
	db pgPool
}

// NewTagRepository constructs a PostgreSQL-backed tag repository.
func NewTagRepository(db pgPool) *TagRepository {
	return &TagRepository{db: db}
}

// CreateGroup inserts a tag group and returns it with the assigned id.
func (r *TagRepository) CreateGroup(ctx context.Context, group domain.TagGroup) (*domain.TagGroup, error) {
	const stmt = `INSERT INTO meta.tag_group (is_mutex, applicable_to) VALUES ($1, $2::meta.tag_type[])
RETURNING id, is_mutex, applicable_to::text[]`

	created, err := scanTagGroup(r.db.QueryRow(ctx, stmt, group.Mutex, tagTypeStrings(group.ApplicableTo)))
	if err != nil {
		return nil, fmt.Errorf("insert tag group: %w", err)
	}

	return created, nil
}

// GetGroup retrieves a tag group by id.
func (r *TagRepository) GetGroup(ctx context.Context, id int64) (*domain.TagGroup, error) {
	const stmt = "SELECT id, is_mutex, applicable_to::text[] FROM meta.tag_group WHERE id = $1"

	group, err := scanTagGroup(r.db.QueryRow(ctx, stmt, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select tag group: %w", err)
	}

	return group, nil
}

// ListGroups returns every tag group.
func (r *TagRepository) ListGroups(ctx context.Context) ([]domain.TagGroup, error) {
	const stmt = "SELECT id, is_mutex, applicable_to::text[] FROM meta.tag_group ORDER BY id ASC"
	return r.queryTagGroups(ctx, stmt)
}

// ListApplicable returns groups whose applicability includes tagType.
func (r *TagRepository) ListApplicable(ctx context.Context, tagType domain.TagType) ([]domain.TagGroup, error) {
	const stmt = "SELECT id, is_mutex, applicable_to::text[] FROM meta.tag_group WHERE $1 = ANY(applicable_to::text[]) ORDER BY id ASC"
	return r.queryTagGroups(ctx, stmt, string(tagType))
}

// CreateTag inserts a tag into a group. An unknown group fails with
// repository.ErrNotFound, a duplicate value within the group with
// repository.ErrConflict.
func (r *TagRepository) CreateTag(ctx context.Context, tag domain.Tag) (*domain.Tag, error) {
	const stmt = `INSERT INTO meta.tag ("group", value) VALUES ($1, $2) RETURNING id, "group", value`

	var created domain.Tag
	if err := r.db.QueryRow(ctx, stmt, tag.GroupID, tag.Value).Scan(&created.ID, &created.GroupID, &created.Value); err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	return &created, nil
}

// GroupTags returns the tags of one group ordered by value.
func (r *TagRepository) GroupTags(ctx context.Context, groupID int64) ([]domain.Tag, error) {
	const stmt = `SELECT id, "group", value FROM meta.tag WHERE "group" = $1 ORDER BY value ASC`

	rows, err := r.db.Query(ctx, stmt, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.GroupID, &tag.Value); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group tags: %w", err)
	}

	return tags, nil
}

// TagsOf returns the tags applied to an entity. Each tag carries the sibling
// tags of its mutex group as an exclusion set, aggregated as JSON in one
// pass. Non-mutex groups yield empty sets.
func (r *TagRepository) TagsOf(ctx context.Context, key domain.EntityKey) ([]domain.AppliedTag, error) {
	assoc, err := associationFor(key.Kind)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`SELECT t.id, t."group", t.value,
  COALESCE(json_agg(json_build_object('id', x.id, 'group', x."group", 'value', x.value) ORDER BY x.value) FILTER (WHERE x.id IS NOT NULL), '[]') AS exclusions
FROM %s a
JOIN meta.tag t ON a.tag = t.id
JOIN meta.tag_group g ON t."group" = g.id
LEFT OUTER JOIN meta.tag x ON g.id = x."group" AND g.is_mutex AND x.id <> t.id
WHERE a.%s = $1
GROUP BY t.id, t."group", t.value
ORDER BY t.value ASC`, assoc.table, assoc.keyColumn)

	rows, err := r.db.Query(ctx, stmt, key.Value())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", assoc.table, err)
	}
	defer rows.Close()

	var applied []domain.AppliedTag
	for rows.Next() {
		var (
			tag        domain.Tag
			exclusions []byte
		)
		if err := rows.Scan(&tag.ID, &tag.GroupID, &tag.Value, &exclusions); err != nil {
			return nil, fmt.Errorf("scan applied tag: %w", err)
		}

		var siblings []struct {
			ID    int64  `json:"id"`
			Group int64  `json:"group"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(exclusions, &siblings); err != nil {
			return nil, fmt.Errorf("decode exclusion set: %w", err)
		}

		entry := domain.AppliedTag{Tag: tag, Exclusions: []domain.Tag{}}
		for _, sibling := range siblings {
			entry.Exclusions = append(entry.Exclusions, domain.Tag{ID: sibling.ID, GroupID: sibling.Group, Value: sibling.Value})
		}
		applied = append(applied, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied tags: %w", err)
	}

	return applied, nil
}

// Apply attaches a tag to an entity. Unknown tags or entities fail with
// repository.ErrNotFound, an already applied tag with repository.ErrConflict.
// Mutex groups are not checked.
func (r *TagRepository) Apply(ctx context.Context, key domain.EntityKey, tagID int64) error {
	assoc, err := associationFor(key.Kind)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s, tag) VALUES ($1, $2)", assoc.table, assoc.keyColumn)
	if _, err := r.db.Exec(ctx, stmt, key.Value(), tagID); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert %s: %w", assoc.table, err)
	}

	return nil
}

// Remove detaches a tag from an entity. Removing an absent association is a
// no-op.
func (r *TagRepository) Remove(ctx context.Context, key domain.EntityKey, tagID int64) error {
	assoc, err := associationFor(key.Kind)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND tag = $2", assoc.table, assoc.keyColumn)
	if _, err := r.db.Exec(ctx, stmt, key.Value(), tagID); err != nil {
		return fmt.Errorf("delete %s: %w", assoc.table, err)
	}

	return nil
}

func (r *TagRepository) queryTagGroups(ctx context.Context, stmt string, args ...any) ([]domain.TagGroup, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query tag groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.TagGroup
	for rows.Next() {
		var (
			group      domain.TagGroup
			applicable []string
		)
		if err := rows.Scan(&group.ID, &group.Mutex, &applicable); err != nil {
			return nil, fmt.Errorf("scan tag group: %w", err)
		}
		group.ApplicableTo = tagTypesFromStrings(applicable)
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag groups: %w", err)
	}

	return groups, nil
}

func scanTagGroup(row pgx.Row) (*domain.TagGroup, error) {
	var (
		group      domain.TagGroup
		applicable []string
	)
	if err := row.Scan(&group.ID, &group.Mutex, &applicable); err != nil {
		return nil, err
	}
	group.ApplicableTo = tagTypesFromStrings(applicable)
	return &group, nil
}

func tagTypeStrings(types []domain.TagType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func tagTypesFromStrings(values []string) []domain.TagType {
	out := make([]domain.TagType, 0, len(values))
	for _, v := range values {
		out = append(out, domain.TagType(v))
	}
	return out
}

var _ port.TagRepository = (*TagRepository)(nil)

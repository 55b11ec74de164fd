package port

import (
	"context"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// TagRepository persists tag groups, tags and tag-to-entity associations.
// Mutex exclusivity is advisory: Apply never rejects a second tag from a
// mutex group, TagsOf reports the exclusion sets instead.
type TagRepository interface {
	CreateGroup(ctx context.Context, group domain.TagGroup) (*domain.TagGroup, error)
	GetGroup(ctx context.Context, id int64) (*domain.TagGroup, error)
	ListGroups(ctx context.Context) ([]domain.TagGroup, error)
	// ListApplicable returns groups whose applicability includes tagType.
	ListApplicable(ctx context.Context, tagType domain.TagType) ([]domain.TagGroup, error)

	CreateTag(ctx context.Context, tag domain.Tag) (*domain.Tag, error)
	GroupTags(ctx context.Context, groupID int64) ([]domain.Tag, error)

	// TagsOf returns the tags applied to an entity, each with the mutex
	// siblings it excludes.
	TagsOf(ctx context.Context, key domain.EntityKey) ([]domain.AppliedTag, error)
	Apply(ctx context.Context, key domain.EntityKey, tagID int64) error
	// Remove detaches a tag; removing an absent association is a no-op.
	Remove(ctx context.Context, key domain.EntityKey, tagID int64) error
}

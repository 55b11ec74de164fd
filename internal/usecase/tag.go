package usecase

import (
	"context"
	"fmt"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
)

// TagService manages tag groups, tags and their application to entities.
// Mutex groups are advisory: applying a second tag from a mutex group never
// fails, the returned tag set carries the exclusion information so callers
// can enforce their own policy.
type TagService struct {
	tags port.TagRepository
}

// NewTagService constructs a TagService.
func NewTagService(tags port.TagRepository) *TagService {
	return &TagService{tags: tags}
}

// CreateGroup stores a tag group.
func (s *TagService) CreateGroup(ctx context.Context, mutex bool, applicableTo []domain.TagType) (*domain.TagGroup, error) {
	if len(applicableTo) == 0 {
		return nil, fmt.Errorf("%w: applicability is required", ErrInvalidInput)
	}

	return s.tags.CreateGroup(ctx, domain.TagGroup{Mutex: mutex, ApplicableTo: applicableTo})
}

// GetGroup retrieves a tag group by id.
func (s *TagService) GetGroup(ctx context.Context, id int64) (*domain.TagGroup, error) {
	return s.tags.GetGroup(ctx, id)
}

// ListGroups returns every tag group.
func (s *TagService) ListGroups(ctx context.Context) ([]domain.TagGroup, error) {
	return s.tags.ListGroups(ctx)
}

// ListApplicableGroups returns the groups applicable to an entity kind.
// Applicability is informational; nothing prevents a caller from applying
// any tag anywhere.
func (s *TagService) ListApplicableGroups(ctx context.Context, kind domain.EntityKind) ([]domain.TagGroup, error) {
	return s.tags.ListApplicable(ctx, domain.TagTypeForKind(kind))
}

// CreateTag stores a tag value in a group.
func (s *TagService) CreateTag(ctx context.Context, groupID int64, value string) (*domain.Tag, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: value is required", ErrInvalidInput)
	}

	return s.tags.CreateTag(ctx, domain.Tag{GroupID: groupID, Value: value})
}

// GroupTags returns the tags of one group.
func (s *TagService) GroupTags(ctx context.Context, groupID int64) ([]domain.Tag, error) {
	return s.tags.GroupTags(ctx, groupID)
}

// TagsOf returns the tags applied to an entity with their exclusion sets.
func (s *TagService) TagsOf(ctx context.Context, key domain.EntityKey) ([]domain.AppliedTag, error) {
	return s.tags.TagsOf(ctx, key)
}

// Tag applies a tag to an entity and returns the resulting tag set with
// exclusions, so a caller that just violated a mutex group sees it
// immediately.
func (s *TagService) Tag(ctx context.Context, key domain.EntityKey, tagID int64) ([]domain.AppliedTag, error) {
	if err := s.tags.Apply(ctx, key, tagID); err != nil {
		return nil, fmt.Errorf("apply tag: %w", err)
	}

	return s.tags.TagsOf(ctx, key)
}

// Untag removes a tag from an entity and returns the remaining tag set.
// Removing an absent tag is a no-op.
func (s *TagService) Untag(ctx context.Context, key domain.EntityKey, tagID int64) ([]domain.AppliedTag, error) {
	if err := s.tags.Remove(ctx, key, tagID); err != nil {
		return nil, fmt.Errorf("remove tag: %w", err)
	}

	return s.tags.TagsOf(ctx, key)
}

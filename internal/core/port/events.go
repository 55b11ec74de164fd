package port

import (
	"context"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// EventPublisher emits domain events after state changes commit. Publishing
// is best effort; callers must not fail the originating operation on publish
// errors.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error
	PublishOwnerChanged(ctx context.Context, event domain.OwnerChangedEvent) error
}

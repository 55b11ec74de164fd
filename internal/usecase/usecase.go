package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
)

var (
	// ErrInvalidStatus indicates a lifecycle status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput indicates a missing or malformed required field.
	ErrInvalidInput = errors.New("invalid input")
)

// publishStatusChanged emits a status transition event. Publishing is best
// effort: failures are logged and never propagated to the caller, the store
// write has already committed.
func publishStatusChanged(ctx context.Context, events port.EventPublisher, log *zap.Logger, key domain.EntityKey, previous, next domain.Status, at time.Time) {
	if events == nil {
		return
	}

	event := domain.StatusChangedEvent{
		Key:           key,
		Previous:      previous,
		Status:        next,
		EffectiveDate: at,
	}

	if err := events.PublishStatusChanged(ctx, event); err != nil && log != nil {
		log.Warn("publish status change failed",
			zap.String("entity", key.String()),
			zap.Error(err),
		)
	}
}

// consistentAt reports whether the live status agrees with the changelog
// resolution at the given instant.
func consistentAt(live domain.Status, resolved *domain.ChangeLogEntry) bool {
	return resolved != nil && resolved.Status == live
}

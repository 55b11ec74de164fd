package port

import (
	"context"
	"time"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// ChangelogRepository is the append-only status history store shared by all
// entity kinds.
type ChangelogRepository interface {
	// Append records one immutable status entry. Appending against an
	// unknown entity fails with repository.ErrNotFound. Out-of-order
	// effective dates are accepted; the store assigns the sequence number.
	Append(ctx context.Context, key domain.EntityKey, status domain.Status, effectiveDate time.Time) error

	// History returns every entry for the entity in store order. An entity
	// with no entries yields an empty log.
	History(ctx context.Context, key domain.EntityKey) (domain.ChangeLog, error)

	// Resolve returns the entry in force at asOf, or nil when the entity
	// existed but had no status yet at that instant. Unknown entities fail
	// with repository.ErrNotFound.
	Resolve(ctx context.Context, key domain.EntityKey, asOf time.Time) (*domain.ChangeLogEntry, error)

	// ResolveSet resolves every entity of one kind at asOf in a single
	// pass, omitting entities resolved to DELETED or with no entry yet.
	ResolveSet(ctx context.Context, kind domain.EntityKind, asOf time.Time) ([]domain.ResolvedStatus, error)
}

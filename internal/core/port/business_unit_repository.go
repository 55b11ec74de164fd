package port

import (
	"context"
	"time"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// BusinessUnitRepository persists business units and their status history.
type BusinessUnitRepository interface {
	// Create inserts the row and its first changelog entry in one
	// transaction, returning the stored value with the assigned id.
	Create(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error)
	Get(ctx context.Context, id int64) (*domain.BusinessUnit, error)
	// Update rewrites the mutable columns and appends a changelog entry
	// only when the status changed.
	Update(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error)
	// List returns live rows that are not DELETED.
	List(ctx context.Context) ([]domain.BusinessUnit, error)
	// ListInRetrospect returns the units as they stood at asOf, resolved
	// from the changelog, DELETED excluded.
	ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.BusinessUnit, error)
}

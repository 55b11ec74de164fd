package port

import (
	"context"
	"time"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// CampaignRepository persists campaigns, their status history and the
// campaign to business-unit relationship log.
type CampaignRepository interface {
	// Create inserts the row, assigns the initial owner and writes the
	// first changelog entry in one transaction.
	Create(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error)
	Get(ctx context.Context, tracker string) (*domain.Campaign, error)
	// Update rewrites the mutable columns (name, description, marketplace,
	// status) and appends a changelog entry only when the status changed.
	Update(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error)

	// List returns campaigns visible now: campaign, product and
	// marketplace all not DELETED on the live rows, narrowed by scope.
	List(ctx context.Context, scope domain.CampaignScope) ([]domain.Campaign, error)
	// ListInRetrospect applies the same visibility predicate over
	// changelog resolution at asOf, narrowed by scope.
	ListInRetrospect(ctx context.Context, asOf time.Time, scope domain.CampaignScope) ([]domain.Campaign, error)

	// AssignOwner moves the campaign under a business unit: current-owner
	// upsert plus an unconditional relationship log append, one
	// transaction.
	AssignOwner(ctx context.Context, tracker string, businessUnitID int64, effectiveDate time.Time) error
	// OwnerAsOf resolves the owning business unit at asOf. When no entry
	// is effective yet it falls back to the earliest logged owner, so any
	// campaign with assignment history resolves deterministically.
	OwnerAsOf(ctx context.Context, tracker string, asOf time.Time) (int64, error)
	// OwnershipHistory returns the relationship log in store order.
	OwnershipHistory(ctx context.Context, tracker string) ([]domain.OwnershipEntry, error)
}

package port

import (
	"context"
	"time"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// MarketplaceRepository persists marketplaces and their status history.
type MarketplaceRepository interface {
	Create(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error)
	Get(ctx context.Context, id int64) (*domain.Marketplace, error)
	Update(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error)
	List(ctx context.Context) ([]domain.Marketplace, error)
	ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.Marketplace, error)
}

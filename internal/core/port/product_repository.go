package port

import (
	"context"
	"time"

	"github.com/stridetech/mcm-service/internal/core/domain"
)

// ProductRepository persists products and their status history.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) (*domain.Product, error)
	Get(ctx context.Context, code string) (*domain.Product, error)
	Update(ctx context.Context, product domain.Product) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.Product, error)
}

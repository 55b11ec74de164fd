package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/repository"
)

// CreateProductInput captures the payload for creating a product.
type CreateProductInput struct {
	Code          string
	Name          string
	Description   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// UpdateProductInput captures the payload for updating a product.
type UpdateProductInput struct {
	Code          string
	Name          string
	Description   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// ProductService orchestrates product lifecycle operations.
type ProductService struct {
	products   port.ProductRepository
	changelogs port.ChangelogRepository
	events     port.EventPublisher
	logger     *zap.Logger
}

// NewProductService constructs a ProductService.
func NewProductService(products port.ProductRepository, changelogs port.ChangelogRepository, events port.EventPublisher, logger *zap.Logger) *ProductService {
	return &ProductService{products: products, changelogs: changelogs, events: events, logger: logger}
}

// Create stores a new product under its caller-assigned code. Status
// defaults to ACTIVE. A duplicate code reports repository.ErrConflict.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if input.Code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = domain.StatusActive
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	created, err := s.products.Create(ctx, domain.Product{
		Code:          input.Code,
		Name:          input.Name,
		Description:   input.Description,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, created.Key(), "", created.Status, created.StatusUpdated)
	return created, nil
}

// Get retrieves a product by code.
func (s *ProductService) Get(ctx context.Context, code string) (*domain.Product, error) {
	return s.products.Get(ctx, code)
}

// Update rewrites the mutable fields. A status change lands in the changelog
// and is published as an event.
func (s *ProductService) Update(ctx context.Context, input UpdateProductInput) (*domain.Product, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	existing, err := s.products.Get(ctx, input.Code)
	if err != nil {
		return nil, err
	}

	updated, err := s.products.Update(ctx, domain.Product{
		Code:          input.Code,
		Name:          input.Name,
		Description:   input.Description,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if existing.Status != updated.Status {
		publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	}
	return updated, nil
}

// Delete transitions the product to DELETED effective now. Campaigns for the
// product disappear from visibility without being touched; restoring the
// product brings them back.
func (s *ProductService) Delete(ctx context.Context, code string) error {
	existing, err := s.products.Get(ctx, code)
	if err != nil {
		return err
	}
	if existing.Status == domain.StatusDeleted {
		return nil
	}

	updated, err := s.products.Update(ctx, domain.Product{
		Code:          existing.Code,
		Name:          existing.Name,
		Description:   existing.Description,
		Status:        domain.StatusDeleted,
		StatusUpdated: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	return nil
}

// List returns live products that are not DELETED.
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

// ListInRetrospect returns products as they stood at asOf.
func (s *ProductService) ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.Product, error) {
	return s.products.ListInRetrospect(ctx, asOf)
}

// History returns the full status changelog of a product.
func (s *ProductService) History(ctx context.Context, code string) (domain.ChangeLog, error) {
	return s.changelogs.History(ctx, domain.ProductKey(code))
}

// ResolveStatus returns the changelog entry in force at asOf.
func (s *ProductService) ResolveStatus(ctx context.Context, code string, asOf time.Time) (*domain.ChangeLogEntry, error) {
	return s.changelogs.Resolve(ctx, domain.ProductKey(code), asOf)
}

// CheckConsistency verifies that the live row agrees with the changelog
// resolution at now.
func (s *ProductService) CheckConsistency(ctx context.Context, code string) error {
	live, err := s.products.Get(ctx, code)
	if err != nil {
		return err
	}

	resolved, err := s.changelogs.Resolve(ctx, live.Key(), time.Now().UTC())
	if err != nil {
		return err
	}

	if !consistentAt(live.Status, resolved) {
		return fmt.Errorf("product %s: %w", code, repository.ErrInconsistentState)
	}
	return nil
}

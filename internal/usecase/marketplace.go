package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/infra/logger"
	"github.com/stridetech/mcm-service/internal/repository"
)

// CreateMarketplaceInput captures the payload for creating a marketplace.
type CreateMarketplaceInput struct {
	Name          string
	Description   *string
	ContactEmail  *string
	ContactName   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// UpdateMarketplaceInput captures the payload for updating a marketplace.
type UpdateMarketplaceInput struct {
	ID            int64
	Name          string
	Description   *string
	ContactEmail  *string
	ContactName   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// MarketplaceService orchestrates marketplace lifecycle operations.
type MarketplaceService struct {
	marketplaces port.MarketplaceRepository
	changelogs   port.ChangelogRepository
	events       port.EventPublisher
	logger       *zap.Logger
}

// NewMarketplaceService constructs a MarketplaceService.
func NewMarketplaceService(marketplaces port.MarketplaceRepository, changelogs port.ChangelogRepository, events port.EventPublisher, logger *zap.Logger) *MarketplaceService {
	return &MarketplaceService{marketplaces: marketplaces, changelogs: changelogs, events: events, logger: logger}
}

// Create stores a new marketplace. Status defaults to ACTIVE.
func (s *MarketplaceService) Create(ctx context.Context, input CreateMarketplaceInput) (*domain.Marketplace, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = domain.StatusActive
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	created, err := s.marketplaces.Create(ctx, domain.Marketplace{
		Name:          input.Name,
		Description:   input.Description,
		ContactEmail:  input.ContactEmail,
		ContactName:   input.ContactName,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create marketplace: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, created.Key(), "", created.Status, created.StatusUpdated)
	s.logContact(created)
	return created, nil
}

// logContact records the contact on file. The address is masked before it
// reaches the log.
func (s *MarketplaceService) logContact(marketplace *domain.Marketplace) {
	if s.logger == nil || marketplace.ContactEmail == nil {
		return
	}

	s.logger.Info("marketplace contact on file",
		zap.Int64("marketplace_id", marketplace.ID),
		zap.String("contact_email", logger.MaskEmail(*marketplace.ContactEmail)),
	)
}

// Get retrieves a marketplace by id.
func (s *MarketplaceService) Get(ctx context.Context, id int64) (*domain.Marketplace, error) {
	return s.marketplaces.Get(ctx, id)
}

// Update rewrites the mutable fields. A status change lands in the changelog
// and is published as an event.
func (s *MarketplaceService) Update(ctx context.Context, input UpdateMarketplaceInput) (*domain.Marketplace, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	existing, err := s.marketplaces.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.marketplaces.Update(ctx, domain.Marketplace{
		ID:            input.ID,
		Name:          input.Name,
		Description:   input.Description,
		ContactEmail:  input.ContactEmail,
		ContactName:   input.ContactName,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update marketplace: %w", err)
	}

	if existing.Status != updated.Status {
		publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	}
	if contactChanged(existing.ContactEmail, updated.ContactEmail) {
		s.logContact(updated)
	}
	return updated, nil
}

func contactChanged(previous, current *string) bool {
	if previous == nil || current == nil {
		return previous != current
	}
	return *previous != *current
}

// Delete transitions the marketplace to DELETED effective now. Campaigns on
// the marketplace disappear from visibility without being touched.
func (s *MarketplaceService) Delete(ctx context.Context, id int64) error {
	existing, err := s.marketplaces.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == domain.StatusDeleted {
		return nil
	}

	updated, err := s.marketplaces.Update(ctx, domain.Marketplace{
		ID:            existing.ID,
		Name:          existing.Name,
		Description:   existing.Description,
		ContactEmail:  existing.ContactEmail,
		ContactName:   existing.ContactName,
		Status:        domain.StatusDeleted,
		StatusUpdated: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("delete marketplace: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	return nil
}

// List returns live marketplaces that are not DELETED.
func (s *MarketplaceService) List(ctx context.Context) ([]domain.Marketplace, error) {
	return s.marketplaces.List(ctx)
}

// ListInRetrospect returns marketplaces as they stood at asOf.
func (s *MarketplaceService) ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.Marketplace, error) {
	return s.marketplaces.ListInRetrospect(ctx, asOf)
}

// History returns the full status changelog of a marketplace.
func (s *MarketplaceService) History(ctx context.Context, id int64) (domain.ChangeLog, error) {
	return s.changelogs.History(ctx, domain.MarketplaceKey(id))
}

// ResolveStatus returns the changelog entry in force at asOf.
func (s *MarketplaceService) ResolveStatus(ctx context.Context, id int64, asOf time.Time) (*domain.ChangeLogEntry, error) {
	return s.changelogs.Resolve(ctx, domain.MarketplaceKey(id), asOf)
}

// CheckConsistency verifies that the live row agrees with the changelog
// resolution at now.
func (s *MarketplaceService) CheckConsistency(ctx context.Context, id int64) error {
	live, err := s.marketplaces.Get(ctx, id)
	if err != nil {
		return err
	}

	resolved, err := s.changelogs.Resolve(ctx, live.Key(), time.Now().UTC())
	if err != nil {
		return err
	}

	if !consistentAt(live.Status, resolved) {
		return fmt.Errorf("marketplace %d: %w", id, repository.ErrInconsistentState)
	}
	return nil
}

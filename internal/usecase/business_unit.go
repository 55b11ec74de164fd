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

// CreateBusinessUnitInput captures the payload for creating a business unit.
type CreateBusinessUnitInput struct {
	Name          string
	Description   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// UpdateBusinessUnitInput captures the payload for updating a business unit.
type UpdateBusinessUnitInput struct {
	ID            int64
	Name          string
	Description   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// BusinessUnitService orchestrates business unit lifecycle operations.
type BusinessUnitService struct {
	units      port.BusinessUnitRepository
	changelogs port.ChangelogRepository
	events     port.EventPublisher
	logger     *zap.Logger
}

// NewBusinessUnitService constructs a BusinessUnitService.
func NewBusinessUnitService(units port.BusinessUnitRepository, changelogs port.ChangelogRepository, events port.EventPublisher, logger *zap.Logger) *BusinessUnitService {
	return &BusinessUnitService{units: units, changelogs: changelogs, events: events, logger: logger}
}

// Create stores a new business unit. Status defaults to ACTIVE.
func (s *BusinessUnitService) Create(ctx context.Context, input CreateBusinessUnitInput) (*domain.BusinessUnit, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = domain.StatusActive
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	created, err := s.units.Create(ctx, domain.BusinessUnit{
		Name:          input.Name,
		Description:   input.Description,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create business unit: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, created.Key(), "", created.Status, created.StatusUpdated)
	return created, nil
}

// Get retrieves a business unit by id.
func (s *BusinessUnitService) Get(ctx context.Context, id int64) (*domain.BusinessUnit, error) {
	return s.units.Get(ctx, id)
}

// Update rewrites the mutable fields. A status change lands in the changelog
// and is published as an event.
func (s *BusinessUnitService) Update(ctx context.Context, input UpdateBusinessUnitInput) (*domain.BusinessUnit, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	existing, err := s.units.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.units.Update(ctx, domain.BusinessUnit{
		ID:            input.ID,
		Name:          input.Name,
		Description:   input.Description,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update business unit: %w", err)
	}

	if existing.Status != updated.Status {
		publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	}
	return updated, nil
}

// Delete transitions the business unit to DELETED effective now. Rows are
// never removed.
func (s *BusinessUnitService) Delete(ctx context.Context, id int64) error {
	existing, err := s.units.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == domain.StatusDeleted {
		return nil
	}

	updated, err := s.units.Update(ctx, domain.BusinessUnit{
		ID:            existing.ID,
		Name:          existing.Name,
		Description:   existing.Description,
		Status:        domain.StatusDeleted,
		StatusUpdated: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("delete business unit: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	return nil
}

// List returns live business units that are not DELETED.
func (s *BusinessUnitService) List(ctx context.Context) ([]domain.BusinessUnit, error) {
	return s.units.List(ctx)
}

// ListInRetrospect returns business units as they stood at asOf.
func (s *BusinessUnitService) ListInRetrospect(ctx context.Context, asOf time.Time) ([]domain.BusinessUnit, error) {
	return s.units.ListInRetrospect(ctx, asOf)
}

// History returns the full status changelog of a business unit.
func (s *BusinessUnitService) History(ctx context.Context, id int64) (domain.ChangeLog, error) {
	return s.changelogs.History(ctx, domain.BusinessUnitKey(id))
}

// ResolveStatus returns the changelog entry in force at asOf, or nil when
// the unit had no status yet.
func (s *BusinessUnitService) ResolveStatus(ctx context.Context, id int64, asOf time.Time) (*domain.ChangeLogEntry, error) {
	return s.changelogs.Resolve(ctx, domain.BusinessUnitKey(id), asOf)
}

// CheckConsistency verifies that the live row agrees with the changelog
// resolution at now. Disagreement reports repository.ErrInconsistentState
// and is never repaired silently.
func (s *BusinessUnitService) CheckConsistency(ctx context.Context, id int64) error {
	live, err := s.units.Get(ctx, id)
	if err != nil {
		return err
	}

	resolved, err := s.changelogs.Resolve(ctx, live.Key(), time.Now().UTC())
	if err != nil {
		return err
	}

	if !consistentAt(live.Status, resolved) {
		return fmt.Errorf("business unit %d: %w", id, repository.ErrInconsistentState)
	}
	return nil
}

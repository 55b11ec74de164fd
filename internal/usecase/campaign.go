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

// CreateCampaignInput captures the payload for creating a campaign.
type CreateCampaignInput struct {
	Tracker        string
	ProductCode    string
	MarketplaceID  int64
	BusinessUnitID int64
	Type           domain.CampaignType
	Name           string
	Description    *string
	CostCents      int64
	Status         domain.Status
	EffectiveDate  time.Time
}

// UpdateCampaignInput captures the payload for updating a campaign. Tracker,
// product, type and cost are immutable.
type UpdateCampaignInput struct {
	Tracker       string
	MarketplaceID int64
	Name          string
	Description   *string
	Status        domain.Status
	EffectiveDate time.Time
}

// CampaignService orchestrates campaign lifecycle, ownership and visibility.
type CampaignService struct {
	campaigns  port.CampaignRepository
	changelogs port.ChangelogRepository
	events     port.EventPublisher
	logger     *zap.Logger
}

// NewCampaignService constructs a CampaignService.
func NewCampaignService(campaigns port.CampaignRepository, changelogs port.ChangelogRepository, events port.EventPublisher, logger *zap.Logger) *CampaignService {
	return &CampaignService{campaigns: campaigns, changelogs: changelogs, events: events, logger: logger}
}

// Create stores a new campaign under its caller-assigned tracker, assigns
// the initial owner and logs the first status entry. Status defaults to
// ACTIVE.
func (s *CampaignService) Create(ctx context.Context, input CreateCampaignInput) (*domain.Campaign, error) {
	if input.Tracker == "" {
		return nil, fmt.Errorf("%w: tracker is required", ErrInvalidInput)
	}
	if input.ProductCode == "" {
		return nil, fmt.Errorf("%w: product code is required", ErrInvalidInput)
	}
	if input.MarketplaceID == 0 {
		return nil, fmt.Errorf("%w: marketplace is required", ErrInvalidInput)
	}
	if input.BusinessUnitID == 0 {
		return nil, fmt.Errorf("%w: business unit is required", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = domain.StatusActive
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	created, err := s.campaigns.Create(ctx, domain.Campaign{
		Tracker:        input.Tracker,
		ProductCode:    input.ProductCode,
		MarketplaceID:  input.MarketplaceID,
		BusinessUnitID: input.BusinessUnitID,
		Type:           input.Type,
		Name:           input.Name,
		Description:    input.Description,
		Status:         input.Status,
		StatusUpdated:  input.EffectiveDate,
		CostCents:      input.CostCents,
	})
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, created.Key(), "", created.Status, created.StatusUpdated)
	s.publishOwnerChanged(ctx, created.Tracker, created.BusinessUnitID, created.StatusUpdated)
	return created, nil
}

// Get retrieves a campaign by tracker with its current owner.
func (s *CampaignService) Get(ctx context.Context, tracker string) (*domain.Campaign, error) {
	return s.campaigns.Get(ctx, tracker)
}

// Update rewrites the mutable fields. A status change lands in the changelog
// and is published as an event.
func (s *CampaignService) Update(ctx context.Context, input UpdateCampaignInput) (*domain.Campaign, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	existing, err := s.campaigns.Get(ctx, input.Tracker)
	if err != nil {
		return nil, err
	}

	marketplaceID := input.MarketplaceID
	if marketplaceID == 0 {
		marketplaceID = existing.MarketplaceID
	}

	updated, err := s.campaigns.Update(ctx, domain.Campaign{
		Tracker:       input.Tracker,
		MarketplaceID: marketplaceID,
		Name:          input.Name,
		Description:   input.Description,
		Status:        input.Status,
		StatusUpdated: input.EffectiveDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	if existing.Status != updated.Status {
		publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	}
	return updated, nil
}

// Delete transitions the campaign to DELETED effective now.
func (s *CampaignService) Delete(ctx context.Context, tracker string) error {
	existing, err := s.campaigns.Get(ctx, tracker)
	if err != nil {
		return err
	}
	if existing.Status == domain.StatusDeleted {
		return nil
	}

	updated, err := s.campaigns.Update(ctx, domain.Campaign{
		Tracker:       existing.Tracker,
		MarketplaceID: existing.MarketplaceID,
		Name:          existing.Name,
		Description:   existing.Description,
		Status:        domain.StatusDeleted,
		StatusUpdated: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	publishStatusChanged(ctx, s.events, s.logger, updated.Key(), existing.Status, updated.Status, updated.StatusUpdated)
	return nil
}

// List returns campaigns visible now, narrowed by scope. Visibility requires
// the campaign, its product and its marketplace to all be non-DELETED.
func (s *CampaignService) List(ctx context.Context, scope domain.CampaignScope) ([]domain.Campaign, error) {
	return s.campaigns.List(ctx, scope)
}

// ListInRetrospect returns campaigns visible at asOf under the same
// cascading predicate, resolved from the changelogs.
func (s *CampaignService) ListInRetrospect(ctx context.Context, asOf time.Time, scope domain.CampaignScope) ([]domain.Campaign, error) {
	return s.campaigns.ListInRetrospect(ctx, asOf, scope)
}

// AssignOwner moves the campaign under a business unit and logs the
// relationship change.
func (s *CampaignService) AssignOwner(ctx context.Context, tracker string, businessUnitID int64, effectiveDate time.Time) error {
	if effectiveDate.IsZero() {
		effectiveDate = time.Now().UTC()
	}

	if err := s.campaigns.AssignOwner(ctx, tracker, businessUnitID, effectiveDate); err != nil {
		return fmt.Errorf("assign campaign owner: %w", err)
	}

	s.publishOwnerChanged(ctx, tracker, businessUnitID, effectiveDate)
	return nil
}

// OwnerAsOf resolves the owning business unit at asOf.
func (s *CampaignService) OwnerAsOf(ctx context.Context, tracker string, asOf time.Time) (int64, error) {
	return s.campaigns.OwnerAsOf(ctx, tracker, asOf)
}

// OwnershipHistory returns the relationship log in insertion order.
func (s *CampaignService) OwnershipHistory(ctx context.Context, tracker string) ([]domain.OwnershipEntry, error) {
	return s.campaigns.OwnershipHistory(ctx, tracker)
}

// History returns the full status changelog of a campaign.
func (s *CampaignService) History(ctx context.Context, tracker string) (domain.ChangeLog, error) {
	return s.changelogs.History(ctx, domain.CampaignKey(tracker))
}

// ResolveStatus returns the changelog entry in force at asOf.
func (s *CampaignService) ResolveStatus(ctx context.Context, tracker string, asOf time.Time) (*domain.ChangeLogEntry, error) {
	return s.changelogs.Resolve(ctx, domain.CampaignKey(tracker), asOf)
}

// CheckConsistency verifies that the live row agrees with the changelog
// resolution at now.
func (s *CampaignService) CheckConsistency(ctx context.Context, tracker string) error {
	live, err := s.campaigns.Get(ctx, tracker)
	if err != nil {
		return err
	}

	resolved, err := s.changelogs.Resolve(ctx, live.Key(), time.Now().UTC())
	if err != nil {
		return err
	}

	if !consistentAt(live.Status, resolved) {
		return fmt.Errorf("campaign %s: %w", tracker, repository.ErrInconsistentState)
	}
	return nil
}

func (s *CampaignService) publishOwnerChanged(ctx context.Context, tracker string, businessUnitID int64, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.OwnerChangedEvent{
		Tracker:        tracker,
		BusinessUnitID: businessUnitID,
		EffectiveDate:  at,
	}

	if err := s.events.PublishOwnerChanged(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("publish owner change failed",
			zap.String("tracker", tracker),
			zap.Error(err),
		)
	}
}

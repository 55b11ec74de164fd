package usecase

import (
	"context"
	"time"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
)

type mockBusinessUnitRepo struct {
	CreateFn func(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error)
	GetFn    func(ctx context.Context, id int64) (*domain.BusinessUnit, error)
	UpdateFn func(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error)

	updates []domain.BusinessUnit
}

func (m *mockBusinessUnitRepo) Create(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
	return m.CreateFn(ctx, unit)
}

func (m *mockBusinessUnitRepo) Get(ctx context.Context, id int64) (*domain.BusinessUnit, error) {
	return m.GetFn(ctx, id)
}

func (m *mockBusinessUnitRepo) Update(ctx context.Context, unit domain.BusinessUnit) (*domain.BusinessUnit, error) {
	m.updates = append(m.updates, unit)
	return m.UpdateFn(ctx, unit)
}

func (m *mockBusinessUnitRepo) List(context.Context) ([]domain.BusinessUnit, error) {
	return nil, nil
}

func (m *mockBusinessUnitRepo) ListInRetrospect(context.Context, time.Time) ([]domain.BusinessUnit, error) {
	return nil, nil
}

type mockMarketplaceRepo struct {
	CreateFn func(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error)
	GetFn    func(ctx context.Context, id int64) (*domain.Marketplace, error)
	UpdateFn func(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error)

	updates []domain.Marketplace
}

func (m *mockMarketplaceRepo) Create(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error) {
	return m.CreateFn(ctx, marketplace)
}

func (m *mockMarketplaceRepo) Get(ctx context.Context, id int64) (*domain.Marketplace, error) {
	return m.GetFn(ctx, id)
}

func (m *mockMarketplaceRepo) Update(ctx context.Context, marketplace domain.Marketplace) (*domain.Marketplace, error) {
	m.updates = append(m.updates, marketplace)
	return m.UpdateFn(ctx, marketplace)
}

func (m *mockMarketplaceRepo) List(context.Context) ([]domain.Marketplace, error) {
	return nil, nil
}

func (m *mockMarketplaceRepo) ListInRetrospect(context.Context, time.Time) ([]domain.Marketplace, error) {
	return nil, nil
}

type mockProductRepo struct {
	CreateFn func(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetFn    func(ctx context.Context, code string) (*domain.Product, error)
	UpdateFn func(ctx context.Context, product domain.Product) (*domain.Product, error)

	updates []domain.Product
}

func (m *mockProductRepo) Create(ctx context.Context, product domain.Product) (*domain.Product, error) {
	return m.CreateFn(ctx, product)
}

func (m *mockProductRepo) Get(ctx context.Context, code string) (*domain.Product, error) {
	return m.GetFn(ctx, code)
}

func (m *mockProductRepo) Update(ctx context.Context, product domain.Product) (*domain.Product, error) {
	m.updates = append(m.updates, product)
	return m.UpdateFn(ctx, product)
}

func (m *mockProductRepo) List(context.Context) ([]domain.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) ListInRetrospect(context.Context, time.Time) ([]domain.Product, error) {
	return nil, nil
}

type mockCampaignRepo struct {
	CreateFn      func(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error)
	GetFn         func(ctx context.Context, tracker string) (*domain.Campaign, error)
	UpdateFn      func(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error)
	AssignOwnerFn func(ctx context.Context, tracker string, businessUnitID int64, effectiveDate time.Time) error

	updates []domain.Campaign
}

func (m *mockCampaignRepo) Create(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	return m.CreateFn(ctx, campaign)
}

func (m *mockCampaignRepo) Get(ctx context.Context, tracker string) (*domain.Campaign, error) {
	return m.GetFn(ctx, tracker)
}

func (m *mockCampaignRepo) Update(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	m.updates = append(m.updates, campaign)
	return m.UpdateFn(ctx, campaign)
}

func (m *mockCampaignRepo) List(context.Context, domain.CampaignScope) ([]domain.Campaign, error) {
	return nil, nil
}

func (m *mockCampaignRepo) ListInRetrospect(context.Context, time.Time, domain.CampaignScope) ([]domain.Campaign, error) {
	return nil, nil
}

func (m *mockCampaignRepo) AssignOwner(ctx context.Context, tracker string, businessUnitID int64, effectiveDate time.Time) error {
	return m.AssignOwnerFn(ctx, tracker, businessUnitID, effectiveDate)
}

func (m *mockCampaignRepo) OwnerAsOf(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func (m *mockCampaignRepo) OwnershipHistory(context.Context, string) ([]domain.OwnershipEntry, error) {
	return nil, nil
}

type mockChangelogRepo struct {
	ResolveFn func(ctx context.Context, key domain.EntityKey, asOf time.Time) (*domain.ChangeLogEntry, error)
	HistoryFn func(ctx context.Context, key domain.EntityKey) (domain.ChangeLog, error)
}

func (m *mockChangelogRepo) Append(context.Context, domain.EntityKey, domain.Status, time.Time) error {
	return nil
}

func (m *mockChangelogRepo) History(ctx context.Context, key domain.EntityKey) (domain.ChangeLog, error) {
	return m.HistoryFn(ctx, key)
}

func (m *mockChangelogRepo) Resolve(ctx context.Context, key domain.EntityKey, asOf time.Time) (*domain.ChangeLogEntry, error) {
	return m.ResolveFn(ctx, key, asOf)
}

func (m *mockChangelogRepo) ResolveSet(context.Context, domain.EntityKind, time.Time) ([]domain.ResolvedStatus, error) {
	return nil, nil
}

// mockPublisher records emitted events; publishErr makes both methods fail.
type mockPublisher struct {
	statusEvents []domain.StatusChangedEvent
	ownerEvents  []domain.OwnerChangedEvent
	publishErr   error
}

func (m *mockPublisher) PublishStatusChanged(_ context.Context, event domain.StatusChangedEvent) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.statusEvents = append(m.statusEvents, event)
	return nil
}

func (m *mockPublisher) PublishOwnerChanged(_ context.Context, event domain.OwnerChangedEvent) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.ownerEvents = append(m.ownerEvents, event)
	return nil
}

type mockTagRepo struct {
	CreateGroupFn func(ctx context.Context, group domain.TagGroup) (*domain.TagGroup, error)
	CreateTagFn   func(ctx context.Context, tag domain.Tag) (*domain.Tag, error)
	ApplyFn       func(ctx context.Context, key domain.EntityKey, tagID int64) error
	RemoveFn      func(ctx context.Context, key domain.EntityKey, tagID int64) error
	TagsOfFn      func(ctx context.Context, key domain.EntityKey) ([]domain.AppliedTag, error)
}

func (m *mockTagRepo) CreateGroup(ctx context.Context, group domain.TagGroup) (*domain.TagGroup, error) {
	return m.CreateGroupFn(ctx, group)
}

func (m *mockTagRepo) GetGroup(context.Context, int64) (*domain.TagGroup, error) {
	return nil, nil
}

func (m *mockTagRepo) ListGroups(context.Context) ([]domain.TagGroup, error) {
	return nil, nil
}

func (m *mockTagRepo) ListApplicable(context.Context, domain.TagType) ([]domain.TagGroup, error) {
	return nil, nil
}

func (m *mockTagRepo) CreateTag(ctx context.Context, tag domain.Tag) (*domain.Tag, error) {
	return m.CreateTagFn(ctx, tag)
}

func (m *mockTagRepo) GroupTags(context.Context, int64) ([]domain.Tag, error) {
	return nil, nil
}

func (m *mockTagRepo) TagsOf(ctx context.Context, key domain.EntityKey) ([]domain.AppliedTag, error) {
	return m.TagsOfFn(ctx, key)
}

func (m *mockTagRepo) Apply(ctx context.Context, key domain.EntityKey, tagID int64) error {
	return m.ApplyFn(ctx, key, tagID)
}

func (m *mockTagRepo) Remove(ctx context.Context, key domain.EntityKey, tagID int64) error {
	return m.RemoveFn(ctx, key, tagID)
}

var (
	_ port.BusinessUnitRepository = (*mockBusinessUnitRepo)(nil)
	_ port.MarketplaceRepository  = (*mockMarketplaceRepo)(nil)
	_ port.ProductRepository      = (*mockProductRepo)(nil)
	_ port.CampaignRepository     = (*mockCampaignRepo)(nil)
	_ port.ChangelogRepository    = (*mockChangelogRepo)(nil)
	_ port.EventPublisher         = (*mockPublisher)(nil)
	_ port.TagRepository          = (*mockTagRepo)(nil)
)

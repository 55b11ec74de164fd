package domain

import "time"

// BusinessUnit is an organizational owner of campaigns.
type BusinessUnit struct {
	ID            int64
	Name          string
	Description   *string
	Status        Status
	StatusUpdated time.Time
}

// Key returns the changelog key for the business unit.
func (b BusinessUnit) Key() EntityKey {
	return BusinessUnitKey(b.ID)
}

// Marketplace is an external venue where campaigns run.
type Marketplace struct {
	ID            int64
	Name          string
	Description   *string
	ContactEmail  *string
	ContactName   *string
	Status        Status
	StatusUpdated time.Time
}

// Key returns the changelog key for the marketplace.
func (m Marketplace) Key() EntityKey {
	return MarketplaceKey(m.ID)
}

// Product is an advertised offering, keyed by an externally assigned code.
type Product struct {
	Code          string
	Name          string
	Description   *string
	Status        Status
	StatusUpdated time.Time
}

// Key returns the changelog key for the product.
func (p Product) Key() EntityKey {
	return ProductKey(p.Code)
}

// CampaignType distinguishes billing models.
type CampaignType string

const (
	CampaignTypeCPC CampaignType = "CPC"
	CampaignTypeCPM CampaignType = "CPM"
	CampaignTypeCPA CampaignType = "CPA"
)

// Campaign is a marketing campaign for one product on one marketplace,
// keyed by an externally assigned tracker. Tracker, product, type and cost
// are immutable after creation; ownership moves through the relationship log.
type Campaign struct {
	Tracker        string
	ProductCode    string
	MarketplaceID  int64
	BusinessUnitID int64
	Type           CampaignType
	Name           string
	Description    *string
	Status         Status
	StatusUpdated  time.Time
	CostCents      int64
}

// Key returns the changelog key for the campaign.
func (c Campaign) Key() EntityKey {
	return CampaignKey(c.Tracker)
}

// CampaignScope narrows campaign listings. Zero-value fields do not filter.
type CampaignScope struct {
	BusinessUnitID *int64
	MarketplaceID  *int64
	ProductCode    *string
}

// CampaignVisible reports whether a campaign is visible given the resolved
// statuses of the campaign itself, its product and its marketplace. A DELETED
// status anywhere in the chain hides the campaign.
func CampaignVisible(campaign, product, marketplace Status) bool {
	return campaign != StatusDeleted && product != StatusDeleted && marketplace != StatusDeleted
}

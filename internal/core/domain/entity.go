package domain

import "fmt"

// Status is the lifecycle state shared by every metadata entity.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusPaused     Status = "PAUSED"
	StatusTerminated Status = "TERMINATED"
	StatusDeleted    Status = "DELETED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusTerminated, StatusDeleted:
		return true
	}
	return false
}

// EntityKind identifies which metadata entity a changelog or tag operation targets.
type EntityKind string

const (
	KindBusinessUnit EntityKind = "BUSINESS_UNIT"
	KindMarketplace  EntityKind = "MARKETPLACE"
	KindProduct      EntityKind = "PRODUCT"
	KindCampaign     EntityKind = "CAMPAIGN"
)

// Numeric reports whether the kind is keyed by a numeric identifier.
// Products are keyed by code and campaigns by tracker.
func (k EntityKind) Numeric() bool {
	return k == KindBusinessUnit || k == KindMarketplace
}

// EntityKey is a typed reference to a single entity of any kind.
type EntityKey struct {
	Kind EntityKind
	ID   int64
	Code string
}

// BusinessUnitKey builds a key for a business unit.
func BusinessUnitKey(id int64) EntityKey {
	return EntityKey{Kind: KindBusinessUnit, ID: id}
}

// MarketplaceKey builds a key for a marketplace.
func MarketplaceKey(id int64) EntityKey {
	return EntityKey{Kind: KindMarketplace, ID: id}
}

// ProductKey builds a key for a product, keyed by code.
func ProductKey(code string) EntityKey {
	return EntityKey{Kind: KindProduct, Code: code}
}

// CampaignKey builds a key for a campaign, keyed by tracker.
func CampaignKey(tracker string) EntityKey {
	return EntityKey{Kind: KindCampaign, Code: tracker}
}

// Value returns the key column value in the form the store expects.
func (k EntityKey) Value() any {
	if k.Kind.Numeric() {
		return k.ID
	}
	return k.Code
}

func (k EntityKey) String() string {
	if k.Kind.Numeric() {
		return fmt.Sprintf("%s/%d", k.Kind, k.ID)
	}
	return fmt.Sprintf("%s/%s", k.Kind, k.Code)
}

package domain

// TagType names the entity kinds a tag group may be applied to.
type TagType string

const (
	TagTypeAccount     TagType = "ACCOUNT"
	TagTypeMarketplace TagType = "MARKETPLACE"
	TagTypeProduct     TagType = "PRODUCT"
	TagTypeCampaign    TagType = "CAMPAIGN"
)

// TagTypeForKind maps an entity kind to its tag applicability type.
func TagTypeForKind(kind EntityKind) TagType {
	switch kind {
	case KindBusinessUnit:
		return TagTypeAccount
	case KindMarketplace:
		return TagTypeMarketplace
	case KindProduct:
		return TagTypeProduct
	default:
		return TagTypeCampaign
	}
}

// TagGroup is a named set of tag values. A mutex group declares that at most
// one of its tags is meant to be applied to an entity at a time. The store
// never enforces this; it only reports exclusion sets so callers can.
type TagGroup struct {
	ID           int64
	Mutex        bool
	ApplicableTo []TagType
}

// Tag is a single value within a group.
type Tag struct {
	ID      int64
	GroupID int64
	Value   string
}

// AppliedTag is a tag attached to an entity together with its exclusion set:
// the sibling tags of its mutex group. The set is empty for non-mutex groups.
type AppliedTag struct {
	Tag        Tag
	Exclusions []Tag
}

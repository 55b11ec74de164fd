package domain

import "time"

// StatusChangedEvent records a status transition on any entity kind.
type StatusChangedEvent struct {
	EventID       string
	Key           EntityKey
	Previous      Status
	Status        Status
	EffectiveDate time.Time
}

// OwnerChangedEvent records a campaign changing business-unit ownership.
type OwnerChangedEvent struct {
	EventID        string
	Tracker        string
	BusinessUnitID int64
	EffectiveDate  time.Time
}

package domain

import (
	"sort"
	"time"
)

// ChangeLogEntry is one immutable status observation. Sequence is assigned by
// the store in insertion order and breaks ties between entries that share an
// effective date.
type ChangeLogEntry struct {
	Status        Status
	EffectiveDate time.Time
	Sequence      int64
}

// after reports whether e ranks above other under the
// (effective_date, sequence) ordering.
func (e ChangeLogEntry) after(other ChangeLogEntry) bool {
	if !e.EffectiveDate.Equal(other.EffectiveDate) {
		return e.EffectiveDate.After(other.EffectiveDate)
	}
	return e.Sequence > other.Sequence
}

// ChangeLog is the in-memory form of one entity's status history. It mirrors
// the store's resolution rule so ranking behavior can be exercised without a
// database.
type ChangeLog []ChangeLogEntry

// ResolveAt returns the entry in force at asOf: the highest
// (effective_date, sequence) among entries effective on or before asOf.
// The second return is false when no entry qualifies, meaning the entity had
// no status yet at that instant.
func (l ChangeLog) ResolveAt(asOf time.Time) (ChangeLogEntry, bool) {
	var best ChangeLogEntry
	found := false
	for _, e := range l {
		if e.EffectiveDate.After(asOf) {
			continue
		}
		if !found || e.after(best) {
			best = e
			found = true
		}
	}
	return best, found
}

// Latest returns the entry with the highest (effective_date, sequence), or
// false for an empty log.
func (l ChangeLog) Latest() (ChangeLogEntry, bool) {
	var best ChangeLogEntry
	found := false
	for _, e := range l {
		if !found || e.after(best) {
			best = e
			found = true
		}
	}
	return best, found
}

// Sorted returns a copy ordered by ascending (effective_date, sequence).
func (l ChangeLog) Sorted() ChangeLog {
	out := make(ChangeLog, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].after(out[i])
	})
	return out
}

// ResolvedStatus is one row of a set-wide resolution pass: the status an
// entity held at the requested instant.
type ResolvedStatus struct {
	Key           EntityKey
	Status        Status
	EffectiveDate time.Time
}

// OwnershipEntry is one record of the campaign to business-unit relationship
// log.
type OwnershipEntry struct {
	Tracker        string
	BusinessUnitID int64
	EffectiveDate  time.Time
	Sequence       int64
}

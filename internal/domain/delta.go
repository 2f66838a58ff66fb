package domain

import "time"

// SyncDelta is the difference between two catalog generations.
type SyncDelta struct {
	FromGeneration uint64
	Generation     uint64
	Added          []*BookEntry
	Changed        []*BookEntry
	Removed        []string
	// At is the publish time of the target snapshot.
	At time.Time
}

// IsEmpty reports whether the delta carries no changes.
func (d SyncDelta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Len returns the total number of changes.
func (d SyncDelta) Len() int {
	return len(d.Added) + len(d.Changed) + len(d.Removed)
}

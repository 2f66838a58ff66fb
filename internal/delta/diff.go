package delta

import (
	"github.com/kobink/kobink-server/internal/domain"
)

// Diff compares two snapshots. A nil previous snapshot means the device knows
// nothing, so every current entry is added. All lists come out in id order,
// which makes the result a pure function of its inputs.
func Diff(previous, current *domain.CatalogSnapshot) domain.SyncDelta {
	d := domain.SyncDelta{
		Generation: current.Generation,
		At:         current.PublishedAt,
		Added:      []*domain.BookEntry{},
		Changed:    []*domain.BookEntry{},
		Removed:    []string{},
	}

	if previous == nil {
		d.Added = current.Entries()
		return d
	}
	d.FromGeneration = previous.Generation

	for _, entry := range current.Entries() {
		prior, ok := previous.Get(entry.ID)
		switch {
		case !ok:
			d.Added = append(d.Added, entry)
		case prior.Fingerprint != entry.Fingerprint:
			d.Changed = append(d.Changed, entry)
		}
	}

	for _, id := range previous.IDs() {
		if _, ok := current.Get(id); !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	return d
}

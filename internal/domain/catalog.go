// Package domain holds the core types shared by the catalog, delta and session layers.
package domain

import (
	"slices"
	"strings"
	"time"
)

// BookFormat is the delivery format advertised to the device.
type BookFormat string

// Supported book formats.
const (
	FormatEPUB  BookFormat = "EPUB"
	FormatKEPUB BookFormat = "KEPUB"
	FormatPDF   BookFormat = "PDF"
)

// ContentType returns the MIME type used when sending the file.
func (f BookFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/epub+zip"
	}
}

// FormatFromPath returns the format for a file name and whether it is a recognized book.
func FormatFromPath(name string) (BookFormat, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".kepub.epub"):
		return FormatKEPUB, true
	case strings.HasSuffix(lower, ".epub"):
		return FormatEPUB, true
	case strings.HasSuffix(lower, ".pdf"):
		return FormatPDF, true
	default:
		return "", false
	}
}

// BookEntry is one book file as seen by a single scan.
// Entries are never mutated after the scan that produced them.
type BookEntry struct {
	ID          string     `json:"id"`
	Path        string     `json:"-"`
	RelPath     string     `json:"rel_path"`
	Format      BookFormat `json:"format"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Description string     `json:"description,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	Language    string     `json:"language,omitempty"`
	Series      string     `json:"series,omitempty"`
	SeriesIndex float64    `json:"series_index,omitempty"`
	PublishedAt time.Time  `json:"published_at,omitzero"`
	Fingerprint string     `json:"fingerprint"`
	Size        int64      `json:"size"`
	ModTime     time.Time  `json:"mod_time"`
	HasCover    bool       `json:"has_cover"`
}

// FileName returns the base name of the entry's file.
func (b *BookEntry) FileName() string {
	if i := strings.LastIndex(b.RelPath, "/"); i >= 0 {
		return b.RelPath[i+1:]
	}
	return b.RelPath
}

// Revision is a short marker of the file content, taken from the fingerprint digest.
func (b *BookEntry) Revision() string {
	fp := b.Fingerprint
	if _, digest, ok := strings.Cut(fp, ":"); ok {
		fp = digest
	}
	if len(fp) > 16 {
		fp = fp[:16]
	}
	return fp
}

// CatalogSnapshot is an id-keyed, id-ordered view of the library at one point.
// Generation 0 means the snapshot has not been committed yet.
type CatalogSnapshot struct {
	Generation  uint64
	PublishedAt time.Time

	entries map[string]*BookEntry
	order   []string
}

// NewCatalogSnapshot builds an uncommitted snapshot. When two entries share an id the
// first one wins.
func NewCatalogSnapshot(entries []*BookEntry) *CatalogSnapshot {
	s := &CatalogSnapshot{
		entries: make(map[string]*BookEntry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if _, dup := s.entries[e.ID]; dup {
			continue
		}
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	slices.Sort(s.order)
	return s
}

// WithGeneration returns a committed copy sharing the same entries.
func (s *CatalogSnapshot) WithGeneration(gen uint64, at time.Time) *CatalogSnapshot {
	return &CatalogSnapshot{
		Generation:  gen,
		PublishedAt: at,
		entries:     s.entries,
		order:       s.order,
	}
}

// Get returns the entry with the given id.
func (s *CatalogSnapshot) Get(id string) (*BookEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Entries returns the entries sorted by id.
func (s *CatalogSnapshot) Entries() []*BookEntry {
	out := make([]*BookEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// IDs returns the sorted entry ids.
func (s *CatalogSnapshot) IDs() []string {
	return slices.Clone(s.order)
}

// Len returns the number of entries.
func (s *CatalogSnapshot) Len() int {
	return len(s.order)
}

// SameContent reports whether both snapshots hold the same ids with the same fingerprints.
func (s *CatalogSnapshot) SameContent(other *CatalogSnapshot) bool {
	if other == nil || len(s.order) != len(other.order) {
		return false
	}
	for id, e := range s.entries {
		o, ok := other.entries[id]
		if !ok || o.Fingerprint != e.Fingerprint {
			return false
		}
	}
	return true
}

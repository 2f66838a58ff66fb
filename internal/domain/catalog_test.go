package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		name   string
		want   BookFormat
		wantOK bool
	}{
		{"a.epub", FormatEPUB, true},
		{"A.EPUB", FormatEPUB, true},
		{"a.kepub.epub", FormatKEPUB, true},
		{"a.pdf", FormatPDF, true},
		{"a.mobi", "", false},
		{"epub", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatFromPath(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogSnapshot_OrderedAndDeduplicated(t *testing.T) {
	s := NewCatalogSnapshot([]*BookEntry{
		{ID: "c", Fingerprint: "1"},
		{ID: "a", Fingerprint: "2"},
		{ID: "c", Fingerprint: "3"},
	})

	assert.Equal(t, []string{"a", "c"}, s.IDs())
	c, ok := s.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "1", c.Fingerprint)
	assert.Equal(t, uint64(0), s.Generation)
}

func TestCatalogSnapshot_SameContent(t *testing.T) {
	a := NewCatalogSnapshot([]*BookEntry{{ID: "x", Fingerprint: "1"}})
	b := NewCatalogSnapshot([]*BookEntry{{ID: "x", Fingerprint: "1", Title: "retitled"}})
	c := NewCatalogSnapshot([]*BookEntry{{ID: "x", Fingerprint: "2"}})

	assert.True(t, a.SameContent(b))
	assert.False(t, a.SameContent(c))
	assert.False(t, a.SameContent(NewCatalogSnapshot(nil)))
	assert.True(t, NewCatalogSnapshot(nil).SameContent(NewCatalogSnapshot(nil)))
}

func TestBookEntry_FileName(t *testing.T) {
	assert.Equal(t, "a.epub", (&BookEntry{RelPath: "x/y/a.epub"}).FileName())
	assert.Equal(t, "a.epub", (&BookEntry{RelPath: "a.epub"}).FileName())
}

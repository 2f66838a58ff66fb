package scanner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/id"
	"github.com/kobink/kobink-server/pkg/bookmeta/bookmetatest"
)

func newTestScanner(root string, opts Options) *Scanner {
	return NewScanner(root, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScan_EmptyLibrary(t *testing.T) {
	snap, report, err := newTestScanner(t.TempDir(), Options{}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, uint64(0), snap.Generation)
	assert.Empty(t, report.Warnings)
}

func TestScan_EntryMetadata(t *testing.T) {
	root := t.TempDir()
	bookmetatest.Write(t, root, "scifi/dune.epub", bookmetatest.EPUB{
		Title:   "Dune",
		Authors: []string{"Herbert, Frank"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "Some_Report.pdf"), []byte("not really a pdf"), 0o644))

	snap, report, err := newTestScanner(root, Options{}).Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, 2, report.Files)

	dune, ok := snap.Get(id.BookID("scifi/dune.epub"))
	require.True(t, ok)
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, []string{"Frank Herbert"}, dune.Authors)
	assert.Equal(t, "scifi/dune.epub", dune.RelPath)
	assert.Contains(t, dune.Fingerprint, "blake3:")

	// Unparseable metadata falls back to defaults instead of skipping the file.
	pdf, ok := snap.Get(id.BookID("Some_Report.pdf"))
	require.True(t, ok)
	assert.Equal(t, "Some Report", pdf.Title)
	assert.Equal(t, []string{"Unknown"}, pdf.Authors)
	assert.Equal(t, int64(len("not really a pdf")), pdf.Size)
}

func TestScan_StableIdentityAndFingerprint(t *testing.T) {
	root := t.TempDir()
	path := bookmetatest.Write(t, root, "a.epub", bookmetatest.EPUB{Title: "A", Body: "one"})
	s := newTestScanner(root, Options{})

	first, _, err := s.Scan(context.Background())
	require.NoError(t, err)
	second, _, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.IDs(), second.IDs())
	assert.True(t, first.SameContent(second))

	bookmetatest.Write(t, root, "a.epub", bookmetatest.EPUB{Title: "A", Body: "two"})
	// Keep the mtime so only a content hash can notice the edit.
	entry, _ := first.Get(id.BookID("a.epub"))
	require.NoError(t, os.Chtimes(path, entry.ModTime, entry.ModTime))

	third, _, err := s.Scan(context.Background())
	require.NoError(t, err)
	changed, ok := third.Get(id.BookID("a.epub"))
	require.True(t, ok)
	assert.NotEqual(t, entry.Fingerprint, changed.Fingerprint)
}

func TestScan_StatFingerprint(t *testing.T) {
	root := t.TempDir()
	path := bookmetatest.Write(t, root, "a.epub", bookmetatest.EPUB{Title: "A"})
	s := newTestScanner(root, Options{Fingerprint: FingerprintStat})

	first, _, err := s.Scan(context.Background())
	require.NoError(t, err)
	entry, _ := first.Get(id.BookID("a.epub"))
	assert.Contains(t, entry.Fingerprint, "stat:")

	later := entry.ModTime.Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	second, _, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.False(t, first.SameContent(second))
}

func TestScan_UnreadableFileIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	root := t.TempDir()
	bookmetatest.Write(t, root, "ok.epub", bookmetatest.EPUB{Title: "OK"})
	locked := bookmetatest.Write(t, root, "locked.epub", bookmetatest.EPUB{Title: "Locked"})
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	snap, report, err := newTestScanner(root, Options{}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Len())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, locked, report.Warnings[0].Path)
	assert.ErrorIs(t, report.Warnings[0].Err, domainerrors.ErrScanWarning)
}

func TestScan_MissingRootIsConfigError(t *testing.T) {
	_, _, err := newTestScanner(filepath.Join(t.TempDir(), "missing"), Options{}).Scan(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrConfig)
}

func TestScan_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, _, err := newTestScanner(file, Options{}).Scan(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrConfig)
}

func TestParseFingerprintMode(t *testing.T) {
	mode, err := ParseFingerprintMode("")
	require.NoError(t, err)
	assert.Equal(t, FingerprintHash, mode)

	mode, err = ParseFingerprintMode("stat")
	require.NoError(t, err)
	assert.Equal(t, FingerprintStat, mode)

	_, err = ParseFingerprintMode("md5")
	assert.Error(t, err)
}

func TestTitleFromName(t *testing.T) {
	assert.Equal(t, "My Book", titleFromName("dir/My_Book.kepub.epub"))
	assert.Equal(t, "Untitled", titleFromName(".epub"))
}

// Package scanner walks the library root and produces catalog snapshots.
package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/id"
	"github.com/kobink/kobink-server/pkg/bookmeta"
)

const (
	defaultWorkers = 4
	defaultTitle   = "Untitled"
	defaultAuthor  = "Unknown"
)

// Scanner turns the library root into an uncommitted CatalogSnapshot. It only reads
// the filesystem and keeps no state between scans.
type Scanner struct {
	logger *slog.Logger
	walker *Walker
	root   string
	opts   Options
}

// NewScanner creates a scanner for the given library root.
func NewScanner(root string, opts Options, logger *slog.Logger) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Fingerprint == "" {
		opts.Fingerprint = FingerprintHash
	}
	return &Scanner{
		logger: logger,
		walker: NewWalker(logger),
		root:   root,
		opts:   opts,
	}
}

// Root returns the library root being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// CheckRoot verifies the library root is a readable directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeConfig, "library root %s is not accessible", root)
	}
	if !info.IsDir() {
		return domainerrors.Configf("library root %s is not a directory", root)
	}
	f, err := os.Open(root) //#nosec G304 -- configured library root
	if err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeConfig, "library root %s is not readable", root)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return domainerrors.Wrapf(err, domainerrors.CodeConfig, "library root %s is not readable", root)
	}
	return nil
}

// Scan walks the root and builds a snapshot. Unreadable files become warnings; an
// unreadable root is a configuration error.
func (s *Scanner) Scan(ctx context.Context) (*domain.CatalogSnapshot, *ScanReport, error) {
	if err := CheckRoot(s.root); err != nil {
		return nil, nil, err
	}

	report := &ScanReport{StartedAt: time.Now()}

	var (
		mu      sync.Mutex
		entries []*domain.BookEntry
	)
	warn := func(p string, err error) {
		s.logger.Warn("skipping unreadable file", "path", p, "error", err)
		mu.Lock()
		report.Warnings = append(report.Warnings, ScanWarning{
			Path: p,
			Err:  domainerrors.Wrapf(err, domainerrors.CodeScanWarning, "cannot read %s", p),
		})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for res := range s.walker.Walk(gctx, s.root) {
		if res.Error != nil {
			warn(res.Path, res.Error)
			continue
		}
		report.Files++

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := s.buildEntry(res)
			if err != nil {
				warn(res.Path, err)
				return nil
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	snapshot := domain.NewCatalogSnapshot(entries)
	report.Entries = snapshot.Len()
	report.CompletedAt = time.Now()

	s.logger.Debug("scan complete",
		"root", s.root,
		"entries", report.Entries,
		"warnings", len(report.Warnings),
		"duration", report.Duration(),
	)
	return snapshot, report, nil
}

func (s *Scanner) buildEntry(res WalkResult) (*domain.BookEntry, error) {
	fp, err := Fingerprint(res.Path, s.opts.Fingerprint, res.Size, res.ModTime)
	if err != nil {
		return nil, err
	}

	entry := &domain.BookEntry{
		ID:          id.BookID(res.RelPath),
		Path:        res.Path,
		RelPath:     res.RelPath,
		Format:      res.Format,
		Fingerprint: fp,
		Size:        res.Size,
		ModTime:     res.ModTime.UTC(),
	}

	meta, err := bookmeta.Read(res.Path)
	if err != nil {
		// Metadata is best-effort; the file itself is still deliverable.
		s.logger.Debug("metadata unavailable", "path", res.Path, "error", err)
		meta = &bookmeta.Metadata{}
	}
	applyMetadata(entry, meta)
	return entry, nil
}

func applyMetadata(entry *domain.BookEntry, meta *bookmeta.Metadata) {
	entry.Title = meta.Title
	if entry.Title == "" {
		entry.Title = titleFromName(entry.RelPath)
	}
	entry.Authors = meta.Authors
	if len(entry.Authors) == 0 {
		entry.Authors = []string{defaultAuthor}
	}
	entry.Description = meta.Description
	entry.Publisher = meta.Publisher
	entry.Language = meta.Language
	entry.Series = meta.Series
	entry.SeriesIndex = meta.SeriesIndex
	entry.HasCover = meta.HasCover
	if t, ok := meta.PublishedAt(); ok {
		entry.PublishedAt = t
	}
}

// titleFromName derives a title from the file name when the book carries none.
func titleFromName(relPath string) string {
	name := path.Base(relPath)
	lower := strings.ToLower(name)
	for _, ext := range []string{".kepub.epub", ".epub", ".pdf"} {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	name = strings.TrimSpace(strings.NewReplacer("_", " ").Replace(name))
	if name == "" {
		return defaultTitle
	}
	return name
}

// Package service coordinates the catalog, sessions and wire format behind the
// Kobo and admin HTTP surfaces.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kobink/kobink-server/internal/delta"
	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/scanner"
)

// CatalogScanner produces a snapshot of the library directory.
type CatalogScanner interface {
	Scan(ctx context.Context) (*domain.CatalogSnapshot, *scanner.ScanReport, error)
}

// LibraryService decides when the library is rescanned and commits each scan to
// the delta engine. Concurrent refreshes share one scan.
//
// The only cached state is the engine head. It is reused while it is younger than
// the rescan interval and the watcher has not reported a change; an interval of
// zero rescans on every request.
type LibraryService struct {
	scanner        CatalogScanner
	engine         *delta.Engine
	logger         *slog.Logger
	rescanInterval time.Duration
	now            func() time.Time

	group singleflight.Group
	dirty atomic.Bool

	mu         sync.RWMutex
	lastScan   time.Time
	lastReport *scanner.ScanReport
}

// NewLibraryService creates a library service.
func NewLibraryService(sc CatalogScanner, engine *delta.Engine, rescanInterval time.Duration, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		scanner:        sc,
		engine:         engine,
		logger:         logger,
		rescanInterval: rescanInterval,
		now:            time.Now,
	}
}

// Refresh scans the library and commits the result, returning the new head.
func (s *LibraryService) Refresh(ctx context.Context) (*domain.CatalogSnapshot, error) {
	ch := s.group.DoChan("scan", func() (any, error) {
		// Changes arriving during the scan mark the library dirty again.
		s.dirty.Store(false)

		// The scan is shared, so one caller going away must not cancel it for the rest.
		snap, report, err := s.scanner.Scan(context.WithoutCancel(ctx))
		if err != nil {
			s.dirty.Store(true)
			return nil, err
		}

		head := s.engine.Commit(snap)

		s.mu.Lock()
		s.lastScan = s.now()
		s.lastReport = report
		s.mu.Unlock()

		s.logger.Debug("library scanned",
			"generation", head.Generation,
			"books", head.Len(),
			"warnings", len(report.Warnings),
			"duration", report.Duration(),
		)
		return head, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if domainerrors.CodeOf(res.Err) == domainerrors.CodeConfig {
				return nil, res.Err
			}
			return nil, domainerrors.Wrap(res.Err, domainerrors.CodeInternal, "scan library")
		}
		return res.Val.(*domain.CatalogSnapshot), nil
	}
}

// Current returns an up-to-date head, scanning first when the cached one is stale.
func (s *LibraryService) Current(ctx context.Context) (*domain.CatalogSnapshot, error) {
	if head := s.engine.Head(); head != nil && !s.stale() {
		return head, nil
	}
	return s.Refresh(ctx)
}

func (s *LibraryService) stale() bool {
	if s.rescanInterval <= 0 || s.dirty.Load() {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan.IsZero() || s.now().Sub(s.lastScan) >= s.rescanInterval
}

// MarkDirty forces the next Current call to rescan.
func (s *LibraryService) MarkDirty() {
	s.dirty.Store(true)
}

// Head returns the latest committed snapshot, or nil before the first scan.
func (s *LibraryService) Head() *domain.CatalogSnapshot {
	return s.engine.Head()
}

// Snapshot returns a retained snapshot by generation.
func (s *LibraryService) Snapshot(generation uint64) (*domain.CatalogSnapshot, bool) {
	return s.engine.Snapshot(generation)
}

// Delta computes the changes from a generation the device has seen to target.
func (s *LibraryService) Delta(from uint64, target *domain.CatalogSnapshot) domain.SyncDelta {
	return s.engine.ComputeDelta(from, target)
}

// Lookup finds a book in the head or any retained snapshot.
func (s *LibraryService) Lookup(bookID string) (*domain.BookEntry, error) {
	e, ok := s.engine.Lookup(bookID)
	if !ok {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}
	return e, nil
}

// LastReport returns the report of the most recent successful scan.
func (s *LibraryService) LastReport() *scanner.ScanReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

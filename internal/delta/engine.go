// Package delta owns catalog generations: it commits scanned snapshots, keeps a
// bounded history of them, and computes per-device deltas between generations.
package delta

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kobink/kobink-server/internal/domain"
)

// DefaultHistory is how many committed snapshots are retained when none is configured.
const DefaultHistory = 64

// Engine is the only writer of generation numbers. Generations start at 1 and
// increase by one for every commit whose content differs from the head.
type Engine struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	head    *domain.CatalogSnapshot
	history map[uint64]*domain.CatalogSnapshot
	order   []uint64
	retain  int
}

// NewEngine creates an engine retaining up to retain snapshots (including the head).
func NewEngine(retain int, logger *slog.Logger) *Engine {
	if retain <= 0 {
		retain = DefaultHistory
	}
	return &Engine{
		logger:  logger,
		now:     time.Now,
		history: make(map[uint64]*domain.CatalogSnapshot),
		retain:  retain,
	}
}

// Commit publishes a freshly scanned snapshot. If its content matches the head the
// head is returned unchanged; otherwise it becomes the new head with the next
// generation. The first commit always creates generation 1, even when empty.
func (e *Engine) Commit(scanned *domain.CatalogSnapshot) *domain.CatalogSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.head != nil && e.head.SameContent(scanned) {
		return e.head
	}

	var next uint64 = 1
	if e.head != nil {
		next = e.head.Generation + 1
	}
	committed := scanned.WithGeneration(next, e.now().UTC().Truncate(time.Second))

	e.head = committed
	e.history[next] = committed
	e.order = append(e.order, next)
	for len(e.order) > e.retain {
		evicted := e.order[0]
		e.order = e.order[1:]
		delete(e.history, evicted)
	}

	e.logger.Info("catalog generation committed",
		"generation", next,
		"entries", committed.Len(),
	)
	return committed
}

// Head returns the latest committed snapshot, or nil before the first commit.
func (e *Engine) Head() *domain.CatalogSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.head
}

// Snapshot returns a retained snapshot by generation.
func (e *Engine) Snapshot(gen uint64) (*domain.CatalogSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.history[gen]
	return s, ok
}

// ComputeDelta diffs current against the snapshot the device last acknowledged.
// Generation zero, or one that is no longer retained or never existed, is treated
// as a first sync and yields the full current snapshot as added.
func (e *Engine) ComputeDelta(previousGeneration uint64, current *domain.CatalogSnapshot) domain.SyncDelta {
	var previous *domain.CatalogSnapshot
	if previousGeneration != 0 && previousGeneration <= current.Generation {
		if s, ok := e.Snapshot(previousGeneration); ok {
			previous = s
		} else {
			e.logger.Debug("cursor generation not retained, sending full catalog",
				"generation", previousGeneration,
				"head", current.Generation,
			)
		}
	}
	return Diff(previous, current)
}

// Lookup resolves an entry id against the head and then older retained snapshots,
// so a device can still download a book it was told about a few generations ago.
func (e *Engine) Lookup(id string) (*domain.BookEntry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.head == nil {
		return nil, false
	}
	if entry, ok := e.head.Get(id); ok {
		return entry, true
	}
	for i := len(e.order) - 1; i >= 0; i-- {
		if entry, ok := e.history[e.order[i]].Get(id); ok {
			return entry, true
		}
	}
	return nil, false
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobink/kobink-server/internal/delta"
	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/scanner"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScanner returns whatever entries are currently set.
type fakeScanner struct {
	mu      sync.Mutex
	entries []*domain.BookEntry
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (f *fakeScanner) set(entries ...*domain.BookEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
}

func (f *fakeScanner) Scan(ctx context.Context) (*domain.CatalogSnapshot, *scanner.ScanReport, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	now := time.Now()
	return domain.NewCatalogSnapshot(f.entries), &scanner.ScanReport{StartedAt: now, CompletedAt: now, Entries: len(f.entries)}, nil
}

func newTestLibrary(sc CatalogScanner, interval time.Duration) *LibraryService {
	return NewLibraryService(sc, delta.NewEngine(0, discardLogger()), interval, discardLogger())
}

func TestLibraryService_RefreshCommitsGenerations(t *testing.T) {
	sc := &fakeScanner{}
	lib := newTestLibrary(sc, 0)
	ctx := context.Background()

	head, err := lib.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head.Generation)

	sc.set(&domain.BookEntry{ID: "a", Fingerprint: "1"})
	head, err = lib.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head.Generation)

	head, err = lib.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head.Generation)
	assert.NotNil(t, lib.LastReport())
}

func TestLibraryService_CurrentHonoursInterval(t *testing.T) {
	sc := &fakeScanner{}
	lib := newTestLibrary(sc, time.Hour)
	ctx := context.Background()

	_, err := lib.Current(ctx)
	require.NoError(t, err)
	_, err = lib.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), sc.calls.Load())

	lib.MarkDirty()
	_, err = lib.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), sc.calls.Load())
}

func TestLibraryService_ZeroIntervalAlwaysScans(t *testing.T) {
	sc := &fakeScanner{}
	lib := newTestLibrary(sc, 0)

	for range 3 {
		_, err := lib.Current(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), sc.calls.Load())
}

func TestLibraryService_ConcurrentRefreshSharesScan(t *testing.T) {
	sc := &fakeScanner{gate: make(chan struct{})}
	lib := newTestLibrary(sc, 0)

	var wg sync.WaitGroup
	results := make([]*domain.CatalogSnapshot, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			head, err := lib.Refresh(context.Background())
			assert.NoError(t, err)
			results[i] = head
		}()
	}

	// Let every caller join the in-flight scan before releasing it.
	require.Eventually(t, func() bool { return sc.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(sc.gate)
	wg.Wait()

	assert.LessOrEqual(t, sc.calls.Load(), int32(4))
	for _, head := range results {
		require.NotNil(t, head)
		assert.Equal(t, uint64(1), head.Generation)
	}
}

func TestLibraryService_ScanErrors(t *testing.T) {
	sc := &fakeScanner{err: domainerrors.Configf("library root missing")}
	lib := newTestLibrary(sc, 0)

	_, err := lib.Refresh(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrConfig)

	sc.err = errors.New("disk on fire")
	_, err = lib.Refresh(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrInternal)
}

func TestLibraryService_Lookup(t *testing.T) {
	sc := &fakeScanner{}
	sc.set(&domain.BookEntry{ID: "a", Fingerprint: "1"})
	lib := newTestLibrary(sc, 0)

	_, err := lib.Refresh(context.Background())
	require.NoError(t, err)

	e, err := lib.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "a", e.ID)

	_, err = lib.Lookup("nope")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

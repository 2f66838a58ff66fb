package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/config"
	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/service"
	"github.com/kobink/kobink-server/internal/watcher"
)

// LibraryWatcherHandle wraps the file watcher with shutdown capability. Watcher
// is nil when watching is disabled.
type LibraryWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *LibraryWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return h.Close()
}

// ProvideLibraryWatcher watches the library root. Each settled batch of changes
// marks the catalog dirty and rescans in the background.
func ProvideLibraryWatcher(i do.Injector) (*LibraryWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	if !cfg.Library.Watch {
		log.Info("Library watcher disabled by configuration")
		return &LibraryWatcherHandle{}, nil
	}

	w, err := watcher.New(cfg.Library.Path, log.Logger, watcher.Options{SettleDelay: cfg.Library.WatchSettle})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		err := w.Run(ctx, func(events []watcher.Event) {
			log.Debug("Library changed", "events", len(events))
			library.MarkDirty()
			go func() {
				if _, err := library.Refresh(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Rescan after library change failed", "error", err)
				}
			}()
		})
		if err != nil && ctx.Err() == nil {
			log.Error("Library watcher stopped", "error", err)
		}
	}()

	log.Info("Library watcher started", "path", cfg.Library.Path, "settle", cfg.Library.WatchSettle)

	return &LibraryWatcherHandle{Watcher: w, cancel: cancel, done: done}, nil
}

// RunInitialScan commits the first generation so the first device sync does not
// wait on a full scan.
func RunInitialScan(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	head, err := library.Refresh(context.Background())
	if err != nil {
		log.Error("Initial library scan failed", "error", err)
		return
	}
	attrs := []any{"generation", head.Generation, "books", head.Len()}
	if report := library.LastReport(); report != nil {
		attrs = append(attrs, "warnings", len(report.Warnings), "duration", report.Duration())
	}
	log.Info("Initial library scan complete", attrs...)
}

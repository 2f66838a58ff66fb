// Package watcher reports changes under the library directory so the catalog can
// be rescanned without waiting for a device to ask.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a directory tree with fsnotify. Events are collected until the
// tree has been quiet for the settle delay and then delivered as one batch.
type Watcher struct {
	root   string
	opts   Options
	fs     *fsnotify.Watcher
	logger *slog.Logger
}

// New creates a watcher for root and registers every directory beneath it.
func New(root string, logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:   filepath.Clean(root),
		opts:   opts,
		fs:     fw,
		logger: logger,
	}
	if err := w.addTree(w.root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			w.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			w.logger.Warn("failed to add watch", "path", p, "error", err)
			return nil
		}
		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return false
	}
	return w.opts.shouldIgnore(rel)
}

// Run delivers batches to onChange until ctx is done or the watcher is closed.
// onChange runs on the watcher goroutine; a slow callback delays later batches
// but never drops them.
func (w *Watcher) Run(ctx context.Context, onChange func([]Event)) error {
	var (
		batch []Event
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			e, keep := w.translate(ev)
			if !keep {
				continue
			}
			batch = append(batch, e)
			if timer == nil {
				timer = time.NewTimer(w.opts.SettleDelay)
			} else {
				timer.Reset(w.opts.SettleDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Debug("library changed", "events", len(batch))
			onChange(batch)
			batch = nil

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; report an unspecific change so a full rescan runs.
				batch = append(batch, Event{Type: EventWritten, Path: w.root})
				if timer == nil {
					timer = time.NewTimer(w.opts.SettleDelay)
				} else {
					timer.Reset(w.opts.SettleDelay)
				}
				fire = timer.C
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// translate filters an fsnotify event and starts watching new directories.
func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	typ, ok := typeOf(ev.Op)
	if !ok || w.ignored(ev.Name) {
		return Event{}, false
	}
	if typ == EventCreated {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
		}
	}
	return Event{Type: typ, Path: ev.Name}, true
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

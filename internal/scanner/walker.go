package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kobink/kobink-server/internal/domain"
)

// Walker traverses the library root and discovers book files.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new walker.
func NewWalker(logger *slog.Logger) *Walker {
	return &Walker{
		logger: logger,
	}
}

// WalkResult represents a book file discovered during walking, or a path that could
// not be read. When Error is set only Path is meaningful.
type WalkResult struct {
	Error   error
	ModTime time.Time
	Path    string
	RelPath string
	Format  domain.BookFormat
	Size    int64
}

// Walk traverses a directory and streams discovered book files.
// Hidden files and directories are skipped, as is anything that is not a book.
// The channel closes when the walk is complete or ctx is canceled.
func (w *Walker) Walk(ctx context.Context, rootPath string) <-chan WalkResult {
	results := make(chan WalkResult, 100)

	go func() {
		defer close(results)

		send := func(r WalkResult) error {
			select {
			case results <- r:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				// Unreadable subtree: report it and keep walking siblings.
				if sendErr := send(WalkResult{Path: path, Error: err}); sendErr != nil {
					return sendErr
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if path != rootPath && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			format, ok := domain.FormatFromPath(d.Name())
			if !ok {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return send(WalkResult{Path: path, Error: err})
			}

			relPath, err := filepath.Rel(rootPath, path)
			if err != nil {
				return send(WalkResult{Path: path, Error: err})
			}

			return send(WalkResult{
				Path:    path,
				RelPath: filepath.ToSlash(relPath),
				Format:  format,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		})

		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error("walk failed", "root", rootPath, "error", err)
		}
	}()

	return results
}

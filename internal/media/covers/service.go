package covers

import (
	"errors"
	"log/slog"

	"github.com/kobink/kobink-server/internal/domain"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/pkg/bookmeta"
)

// Service extracts, resizes and caches covers for catalog entries.
type Service struct {
	cache  *Cache
	logger *slog.Logger
}

// NewService creates a cover service. A nil cache disables caching.
func NewService(cache *Cache, logger *slog.Logger) *Service {
	return &Service{cache: cache, logger: logger}
}

// Render returns the entry's cover as a JPEG sized per opts.
// Entries without a readable cover report NotFound.
func (s *Service) Render(e *domain.BookEntry, opts Options) ([]byte, error) {
	if !e.HasCover {
		return nil, domainerrors.NotFoundf("book %s has no cover", e.ID)
	}

	// The fingerprint is part of the key, so an edited book never serves a stale cover.
	key := e.ID + "-" + e.Revision() + "-" + opts.Key()
	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			return data, nil
		}
	}

	src, err := bookmeta.ReadCover(e.Path)
	if err != nil {
		if errors.Is(err, bookmeta.ErrNoCover) {
			return nil, domainerrors.NotFoundf("book %s has no cover", e.ID)
		}
		return nil, domainerrors.Wrapf(err, domainerrors.CodeNotFound, "read cover for %s", e.ID)
	}

	data, err := Resize(src, opts)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInternal, "resize cover for %s", e.ID)
	}

	if s.cache != nil {
		if err := s.cache.Save(key, data); err != nil {
			s.logger.Warn("failed to cache cover", "book_id", e.ID, "error", err)
		}
	}
	return data, nil
}

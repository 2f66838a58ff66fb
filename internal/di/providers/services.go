package providers

import (
	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/config"
	"github.com/kobink/kobink-server/internal/delta"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/kobo"
	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/media/covers"
	"github.com/kobink/kobink-server/internal/scanner"
	"github.com/kobink/kobink-server/internal/service"
	"github.com/kobink/kobink-server/internal/session"
	"github.com/kobink/kobink-server/internal/validation"
)

// ProvideLibraryService provides the catalog refresh service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sc := do.MustInvoke[*scanner.Scanner](i)
	engine := do.MustInvoke[*delta.Engine](i)

	return service.NewLibraryService(sc, engine, cfg.Library.RescanInterval, log.Logger), nil
}

// ProvideCoverService provides cover rendering, cached on disk when a cache
// directory is configured.
func ProvideCoverService(i do.Injector) (*covers.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var cache *covers.Cache
	if cfg.Covers.CacheDir != "" {
		var err error
		if cache, err = covers.NewCache(cfg.Covers.CacheDir); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "cover cache unavailable")
		}
		log.Info("Cover cache enabled", "path", cfg.Covers.CacheDir)
	}
	return covers.NewService(cache, log.Logger), nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideKoboService provides the device protocol service.
func ProvideKoboService(i do.Injector) (*service.KoboService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var overrides kobo.ResourceOverrides
	if cfg.Kobo.ResourcesFile != "" {
		var err error
		if overrides, err = kobo.LoadResourceOverrides(cfg.Kobo.ResourcesFile); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "invalid KOBO_RESOURCES_FILE")
		}
		log.Info("Resource overrides loaded", "path", cfg.Kobo.ResourcesFile, "count", len(overrides))
	}

	svc := service.NewKoboService(
		do.MustInvoke[*session.Store](i),
		do.MustInvoke[*service.LibraryService](i),
		do.MustInvoke[*covers.Service](i),
		do.MustInvoke[*validation.Validator](i),
		service.KoboConfig{PageSize: cfg.Kobo.SyncPageSize, Resources: overrides},
		log.Logger,
	)
	log.Info("Kobo service ready", "epoch", svc.Epoch(), "page_size", cfg.Kobo.SyncPageSize)
	return svc, nil
}

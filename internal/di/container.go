// Package di provides dependency injection configuration for the kobink server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/auth"
	"github.com/kobink/kobink-server/internal/config"
	"github.com/kobink/kobink-server/internal/delta"
	"github.com/kobink/kobink-server/internal/di/providers"
	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/media/covers"
	"github.com/kobink/kobink-server/internal/scanner"
	"github.com/kobink/kobink-server/internal/service"
	"github.com/kobink/kobink-server/internal/session"
	"github.com/kobink/kobink-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is loaded from flags and the environment.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	registerServices(injector)
	return injector
}

// NewContainerWithConfig is NewContainer with an already loaded configuration.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	registerServices(injector)
	return injector
}

func registerServices(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)

	// Auth and sessions
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideSessionStore)
	do.Provide(injector, providers.ProvideAuthLimiter)

	// Catalog
	do.Provide(injector, providers.ProvideScanner)
	do.Provide(injector, providers.ProvideDeltaEngine)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideCoverService)

	// Device protocol
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideKoboService)

	// Workers
	do.Provide(injector, providers.ProvideLibraryWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services. Configuration errors and a listen
// address that cannot be bound surface here.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*session.Store](injector)
	_ = do.MustInvoke[*scanner.Scanner](injector)
	_ = do.MustInvoke[*delta.Engine](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	if _, err := do.Invoke[*covers.Service](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*validation.Validator](injector)
	if _, err := do.Invoke[*service.KoboService](injector); err != nil {
		return err
	}

	// Workers
	if _, err := do.Invoke[*providers.LibraryWatcherHandle](injector); err != nil {
		return err
	}

	// Server
	_ = do.MustInvoke[*providers.AuthLimiterHandle](injector)
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	go providers.RunInitialScan(injector)

	return nil
}

// Package providers contains dependency injection providers for the kobink server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/config"
	"github.com/kobink/kobink-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting kobink server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"library_path", cfg.Library.Path,
		"fingerprint", string(cfg.Library.Fingerprint),
		"host_url", cfg.Server.HostURL,
	)

	return log, nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/config"
	"github.com/kobink/kobink-server/internal/delta"
	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/scanner"
)

// ProvideScanner provides the library scanner.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return scanner.NewScanner(cfg.Library.Path, scanner.Options{
		Fingerprint: cfg.Library.Fingerprint,
		Workers:     cfg.Library.ScanWorkers,
	}, log.Logger), nil
}

// ProvideDeltaEngine provides the generation and history keeper.
func ProvideDeltaEngine(i do.Injector) (*delta.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return delta.NewEngine(cfg.Library.History, log.Logger), nil
}

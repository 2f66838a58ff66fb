package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/api"
	"github.com/kobink/kobink-server/internal/config"
	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	addr net.Addr
}

// ListenAddr returns the address the server is bound to.
func (h *HTTPServerHandle) ListenAddr() net.Addr {
	return h.addr
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer binds the listen address and serves in the background.
// The bind happens here so that a port in use fails bootstrap.
// TLS is used when both certificate files exist.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limiter := do.MustInvoke[*AuthLimiterHandle](i)

	handler := api.NewServer(
		do.MustInvoke[*service.KoboService](i),
		do.MustInvoke[*service.LibraryService](i),
		api.Options{
			HostURL:     cfg.Server.HostURL,
			APIKey:      cfg.Kobo.APIKey,
			AuthLimiter: limiter.KeyedRateLimiter,
		},
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeConfig, "cannot listen on %s", srv.Addr)
	}

	tls := cfg.TLSEnabled()
	if !tls && cfg.Server.TLSCertFile != "" {
		log.Warn("TLS files not found, serving plain HTTP",
			"cert", cfg.Server.TLSCertFile,
			"key", cfg.Server.TLSKeyFile,
		)
	}

	go func() {
		log.Info("HTTP server starting", "addr", ln.Addr().String(), "tls", tls)
		var err error
		if tls {
			err = srv.ServeTLS(ln, cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, addr: ln.Addr()}, nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/kobink/kobink-server/internal/auth"
	"github.com/kobink/kobink-server/internal/config"
	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/ratelimit"
	"github.com/kobink/kobink-server/internal/session"
)

// AuthKey wraps the token signing key bytes.
type AuthKey []byte

// ProvideAuthKey generates the token key. Sessions do not outlive the process,
// so neither does the key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	key, err := auth.GenerateKey()
	if err != nil {
		return nil, err
	}
	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	return auth.NewTokenService(do.MustInvoke[AuthKey](i))
}

// ProvideSessionStore provides the in-memory device session store.
func ProvideSessionStore(i do.Injector) (*session.Store, error) {
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)
	return session.NewStore(tokens, log.Logger), nil
}

// AuthLimiterHandle wraps the device auth rate limiter with shutdown capability.
type AuthLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *AuthLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAuthLimiter provides the per-client limiter for device auth endpoints.
func ProvideAuthLimiter(i do.Injector) (*AuthLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	limiter := ratelimit.NewPer(cfg.Auth.RateLimitCount, cfg.Auth.RateLimitInterval)
	log.Info("Device auth rate limit",
		"count", cfg.Auth.RateLimitCount,
		"interval", cfg.Auth.RateLimitInterval,
	)
	return &AuthLimiterHandle{KeyedRateLimiter: limiter}, nil
}

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/http/response"
	"github.com/kobink/kobink-server/internal/kobo"
	"github.com/kobink/kobink-server/internal/service"
)

// requireAPIKey answers 404 for device URLs whose {key} does not match the
// configured key, so the endpoint looks absent to anyone without it.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			key := chi.URLParam(r, "key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
				response.KoboError(w, domainerrors.NotFound("not found"), s.logger)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// credentials pairs the bearer with the device the request claims to come from.
func credentials(r *http.Request) service.Credentials {
	return service.Credentials{
		Bearer:   bearerToken(r),
		DeviceID: r.Header.Get(headerDeviceID),
	}
}

// baseURL is HOST_URL when configured, else the scheme and host the request
// came in on.
func (s *Server) baseURL(r *http.Request) string {
	if s.hostURL != "" {
		return s.hostURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto, _, _ = strings.Cut(proto, ",")
		scheme = strings.ToLower(strings.TrimSpace(proto))
	}
	return scheme + "://" + r.Host
}

func (s *Server) urls(r *http.Request) kobo.URLs {
	return kobo.NewURLs(s.baseURL(r), chi.URLParam(r, "key"))
}

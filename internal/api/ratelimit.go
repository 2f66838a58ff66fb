package api

import (
	"net"
	"net/http"

	"github.com/kobink/kobink-server/internal/http/response"
)

// rateLimit rejects clients that exceed the auth limiter.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.authLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.authLimiter.Allow(ip) {
			s.logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
			response.TooManyRequests(w, "too many requests, try again later", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr. middleware.RealIP has already
// replaced it with the forwarded address when a proxy sent one.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

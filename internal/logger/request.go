package logger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestFormatter routes chi's request log through slog. Successful requests
// log at debug so a syncing device does not flood the output; 4xx logs at
// info and 5xx at error.
type RequestFormatter struct {
	Logger *slog.Logger
}

// Middleware returns chi's RequestLogger bound to this formatter.
func (f *RequestFormatter) Middleware() func(http.Handler) http.Handler {
	return middleware.RequestLogger(f)
}

// NewLogEntry implements middleware.LogFormatter.
func (f *RequestFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestEntry{
		logger: f.Logger.With(
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		),
	}
}

type requestEntry struct {
	logger *slog.Logger
}

func (e *requestEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	level := slog.LevelDebug
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, "request",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)
}

func (e *requestEntry) Panic(v any, stack []byte) {
	e.logger.Error("panic", slog.Any("panic", v), slog.String("stack", string(stack)))
}

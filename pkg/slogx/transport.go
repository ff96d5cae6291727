package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/idx"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Transport logs every outbound network attempt. A logger carried in the
// request context wins over base, which lets callers tag a replay with its
// attempt number. Header values are never logged.
func Transport(base *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			logger := fromContextOr(r.Context(), base).With(
				"req_id", idx.New().String(),
				"method", r.Method,
				"path", r.URL.Path,
			)

			resp, err := next.RoundTrip(r)
			duration := time.Since(start).Milliseconds()

			if err != nil {
				logger.Warn("http_call_failed",
					"duration_ms", duration,
					"error", err,
				)
				return nil, err
			}

			level := slog.LevelDebug
			if resp.StatusCode >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http_call",
				"status", resp.StatusCode,
				"duration_ms", duration,
			)
			return resp, nil
		})
	}
}

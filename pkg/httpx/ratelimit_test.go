package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("MOONDANCE_RATELIMIT_TEST_REQUESTS", "42")
	t.Setenv("MOONDANCE_RATELIMIT_TEST_WINDOW_SEC", "7")
	t.Setenv("MOONDANCE_RATELIMIT_TEST_BURST", "not-a-number")

	def := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 3}
	got := httpx.ParseRateLimitFromEnv("TEST", def)

	require.Equal(t, 42, got.RequestsPerWindow)
	require.Equal(t, 7*time.Second, got.Window)
	require.Equal(t, 3, got.Burst, "invalid values keep the default")
}

func TestRateLimit(t *testing.T) {
	t.Run("allows burst without waiting", func(t *testing.T) {
		srv, hits := countingServer(t)

		config := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Second, Burst: 5}
		client := &http.Client{Transport: httpx.Chain(nil, httpx.RateLimit(config, httpx.HostKeyExtractor))}

		start := time.Now()
		for i := range 5 {
			resp, err := client.Get(srv.URL)
			require.NoError(t, err, "request %d", i+1)
			resp.Body.Close()
		}
		require.Less(t, time.Since(start), 500*time.Millisecond)
		require.EqualValues(t, 5, hits.Load())
	})

	t.Run("context deadline stops waiting", func(t *testing.T) {
		srv, hits := countingServer(t)

		config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
		client := &http.Client{Transport: httpx.Chain(nil, httpx.RateLimit(config, nil))}

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		require.Error(t, err)
		require.EqualValues(t, 1, hits.Load(), "second request must not reach the server")
	})

	t.Run("disabled config passes through", func(t *testing.T) {
		srv, hits := countingServer(t)

		client := &http.Client{Transport: httpx.Chain(nil, httpx.RateLimit(httpx.RateLimitConfig{}, nil))}
		for range 20 {
			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			resp.Body.Close()
		}
		require.EqualValues(t, 20, hits.Load())
	})
}

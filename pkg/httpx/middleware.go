package httpx

import (
	"io"
	"net/http"
)

// Middleware wraps a RoundTripper with behaviour that runs around every
// outbound network attempt.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a plain function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain wraps base with mws. The first middleware is the outermost, so
// Chain(t, a, b) sends a request through a, then b, then t.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// UserAgent sets the User-Agent header on requests that do not carry one.
func UserAgent(ua string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if ua == "" || r.Header.Get("User-Agent") != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("User-Agent", ua)
			return next.RoundTrip(r)
		})
	}
}

// DrainAndClose discards the rest of the body so the underlying connection
// can be reused, then closes it.
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

package notesdk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/moondance/pkg/httpx"
	"github.com/aussiebroadwan/moondance/pkg/slogx"
)

// Transport is the response interceptor. It decorates each request with
// the current access token and, on an authorization failure, has the
// coordinator renew credentials and replays the request once.
//
// Everything other than an authorization failure on a decorated request is
// returned unchanged, including transport errors.
type Transport struct {
	// Base sends the decorated request. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	Decorator   Decorator
	Coordinator *RefreshCoordinator
	Logger      *slog.Logger
	Observer    Observer

	// IsAuthFailure reports whether resp is the API's authorization-failure
	// response. Defaults to a 401 status check.
	IsAuthFailure func(resp *http.Response) bool
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) observer() Observer {
	if t.Observer != nil {
		return t.Observer
	}
	return nopObserver{}
}

func (t *Transport) isAuthFailure(resp *http.Response) bool {
	if t.IsAuthFailure != nil {
		return t.IsAuthFailure(resp)
	}
	return resp.StatusCode == http.StatusUnauthorized
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	attempt := AttemptFrom(ctx)

	out, token := t.Decorator.Decorate(req)
	if IsReplay(ctx) {
		logger := t.Logger
		if logger == nil {
			logger = slogx.FromContext(ctx)
		}
		out = out.WithContext(slogx.WithContext(ctx, logger.With("attempt", attempt)))
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if !t.isAuthFailure(resp) {
		return resp, nil
	}

	// A replay that fails again is terminal for this request only.
	if IsReplay(ctx) {
		httpx.DrainAndClose(resp)
		err := &AuthError{Op: "replay", Err: ErrReplayRejected}
		t.observer().RequestRejected(err)
		return nil, err
	}

	// Nothing to renew; let the caller see the server's answer.
	if token == "" || t.Coordinator == nil {
		return resp, nil
	}

	httpx.DrainAndClose(resp)

	if _, err := t.Coordinator.Renew(ctx, token); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			t.observer().RequestRejected(err)
		}
		return nil, err
	}

	replay := req.Clone(WithAttempt(ctx, attempt+1))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		replay.Body = body
	}

	t.observer().RequestReplayed()
	return t.RoundTrip(replay)
}

// replayable returns req, or a shallow copy whose body can be read again,
// buffering the body in memory if needed.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.ContentLength = int64(len(data))
	return out, nil
}

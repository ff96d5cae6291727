package notesdk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/tokenx"
)

// State is the renewal state of a RefreshCoordinator.
type State int

const (
	// StateIdle means no renewal is running.
	StateIdle State = iota
	// StateRefreshing means exactly one renewal call is in flight.
	StateRefreshing
	// StateFailed means renewal failed; only a new session leaves it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Renewer exchanges a refresh token for a new credential pair.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (credstore.Pair, error)
}

// RenewerFunc adapts a function to Renewer.
type RenewerFunc func(ctx context.Context, refreshToken string) (credstore.Pair, error)

func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (credstore.Pair, error) {
	return f(ctx, refreshToken)
}

// flight is one renewal call and everyone waiting on it.
type flight struct {
	done         chan struct{}
	cancel       context.CancelFunc
	epoch        uint64
	stale        string
	refreshToken string

	// set before done is closed
	token string
	err   error
}

// RefreshCoordinator renews credentials after an authorization failure.
//
// However many requests fail at once, at most one renewal call is in flight;
// the rest wait for its outcome. On success the new pair replaces the old one
// in the store before any waiter is released. On failure the store is
// cleared and the coordinator stays failed until Reset. The termination hook
// runs before waiters are released.
type RefreshCoordinator struct {
	store    *credstore.Store
	renewer  Renewer
	logger   *slog.Logger
	observer Observer

	mu          sync.Mutex
	state       State
	epoch       uint64
	inflight    *flight
	failure     error
	onTerminate func(epoch uint64, reason error)
}

// NewRefreshCoordinator returns an idle coordinator.
func NewRefreshCoordinator(store *credstore.Store, renewer Renewer, logger *slog.Logger, observer Observer) *RefreshCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &RefreshCoordinator{
		store:    store,
		renewer:  renewer,
		logger:   logger,
		observer: observer,
	}
}

// OnTerminate registers fn to run after a failed renewal has cleared the
// store and before waiting requests are released. epoch is the session epoch
// the renewal ran for; a Reset may already have replaced it by the time fn
// runs.
func (c *RefreshCoordinator) OnTerminate(fn func(epoch uint64, reason error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTerminate = fn
}

// State returns the current state.
func (c *RefreshCoordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Epoch returns the current session epoch. Every Reset advances it.
func (c *RefreshCoordinator) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Renew returns an access token newer than stale, renewing if needed.
//
// A request that was sent with an already replaced token gets the current
// one without a renewal call. Cancelling ctx stops this caller's wait but
// not the renewal itself.
func (c *RefreshCoordinator) Renew(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()

	if c.state == StateFailed {
		err := c.failure
		c.mu.Unlock()
		return "", err
	}

	f := c.inflight
	if f != nil {
		c.mu.Unlock()
		c.observer.RenewalJoined()
		return c.wait(ctx, f)
	}

	pair, ok := c.store.Get()
	switch {
	case !ok:
		// Logged out while the request was on the wire
		c.mu.Unlock()
		return "", &AuthError{Op: "refresh", Err: ErrSessionChanged}
	case pair.AccessToken != stale:
		c.mu.Unlock()
		return pair.AccessToken, nil
	}

	// The renewal outlives its first caller but not its session.
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f = &flight{
		done:         make(chan struct{}),
		cancel:       cancel,
		epoch:        c.epoch,
		stale:        stale,
		refreshToken: pair.RefreshToken,
	}
	c.inflight = f
	c.state = StateRefreshing
	c.mu.Unlock()

	go c.run(rctx, f)
	return c.wait(ctx, f)
}

func (c *RefreshCoordinator) wait(ctx context.Context, f *flight) (string, error) {
	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// run performs the single renewal call of f and settles the outcome.
func (c *RefreshCoordinator) run(ctx context.Context, f *flight) {
	defer close(f.done)
	defer f.cancel()

	start := time.Now()
	c.logger.Debug("credential renewal started", "token", tokenx.Redact(f.stale))

	var (
		pair credstore.Pair
		err  error
	)
	if f.refreshToken == "" {
		err = ErrNoRefreshToken
	} else {
		pair, err = c.renewer.Renew(ctx, f.refreshToken)
	}

	c.mu.Lock()

	if f.epoch != c.epoch {
		// A login or logout replaced the session; this outcome is moot.
		c.mu.Unlock()
		c.logger.Debug("discarding renewal for a replaced session")
		f.err = &AuthError{Op: "refresh", Err: ErrSessionChanged}
		return
	}

	if err == nil {
		err = c.store.Replace(ctx, pair)
	}

	c.inflight = nil
	took := time.Since(start)

	if err == nil {
		c.state = StateIdle
		f.token = pair.AccessToken
		c.mu.Unlock()

		c.observer.RenewalFinished(nil, took)
		c.logger.Info("credentials renewed", "duration_ms", took.Milliseconds())
		return
	}

	c.state = StateFailed
	c.failure = &AuthError{Op: "refresh", Err: ErrSessionExpired, Cause: err}
	if cerr := c.store.Clear(ctx); cerr != nil {
		c.logger.Error("failed to clear credentials after renewal failure", "error", cerr)
	}
	f.err = c.failure
	hook := c.onTerminate
	c.mu.Unlock()

	c.observer.RenewalFinished(err, took)
	c.logger.Warn("credential renewal failed, session terminated",
		"duration_ms", took.Milliseconds(),
		"error", err,
	)

	if hook != nil {
		hook(f.epoch, f.err)
	}
}

// Reset starts a new session epoch. mutate runs under the coordinator lock
// so no renewal outcome can land between it and the reset; if it fails,
// nothing changes. A renewal still running for the old epoch is cancelled
// and its outcome discarded.
func (c *RefreshCoordinator) Reset(mutate func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mutate != nil {
		if err := mutate(); err != nil {
			return err
		}
	}

	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	c.epoch++
	c.state = StateIdle
	c.failure = nil
	return nil
}

package notesdk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/tokenx"
)

// SessionState is what the rest of the application sees of the session.
type SessionState struct {
	Authenticated bool

	// User is the cached identity; zero when not authenticated.
	User User

	// Reason is set when the session ended because renewal failed.
	Reason error
}

// Authenticator performs the credential exchanges that start a session.
type Authenticator interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
}

// Session owns the signed-in state of one client.
//
// It is the only writer of whole sessions: login and registration install
// both halves with one store write, logout clears both, and a failed renewal
// lands here through the coordinator's termination hook.
type Session struct {
	store  *credstore.Store
	auth   Authenticator
	coord  *RefreshCoordinator
	logger *slog.Logger

	onLoginRequired func(reason error)

	mu   sync.Mutex
	subs map[uint64]func(SessionState)
	next uint64

	// pubMu orders deliveries: each one reads the store while holding it,
	// so the last state a subscriber sees matches the store.
	pubMu sync.Mutex
}

// NewSession wires a Session to its store, authenticator and coordinator.
// onLoginRequired, if set, runs after a failed renewal has torn the session
// down; it is where a front end sends the user back to the login prompt.
func NewSession(
	store *credstore.Store,
	auth Authenticator,
	coord *RefreshCoordinator,
	logger *slog.Logger,
	onLoginRequired func(reason error),
) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		store:           store,
		auth:            auth,
		coord:           coord,
		logger:          logger,
		onLoginRequired: onLoginRequired,
		subs:            make(map[uint64]func(SessionState)),
	}
	coord.OnTerminate(s.terminate)
	return s
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.store.Identity()
	return ok
}

// CurrentUser returns the cached identity of the signed-in user.
func (s *Session) CurrentUser() (User, bool) {
	return s.store.Identity()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	_, user, ok := s.store.Snapshot()
	if !ok {
		return SessionState{}
	}
	return SessionState{Authenticated: true, User: user}
}

// AccessTokenExpiry returns the expiry embedded in the current access token,
// if it has one.
func (s *Session) AccessTokenExpiry() (time.Time, bool) {
	return tokenx.ExpiresAt(s.store.AccessToken())
}

// Hydrate loads the persisted session and publishes the result. Call it once
// at startup before anything reads the session.
func (s *Session) Hydrate(ctx context.Context) error {
	var err error
	_ = s.coord.Reset(func() error {
		err = s.store.Hydrate(ctx)
		return nil
	})

	if user, ok := s.store.Identity(); ok {
		s.logger.Debug("restored session", "user_id", user.ID)
	}
	s.publish()
	return err
}

// Login exchanges email and password for a new session.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	resp, err := s.auth.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return User{}, err
	}
	return s.install(ctx, resp)
}

// Register creates an account and signs into it.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (User, error) {
	resp, err := s.auth.Register(ctx, req)
	if err != nil {
		return User{}, err
	}
	return s.install(ctx, resp)
}

func (s *Session) install(ctx context.Context, resp *AuthResponse) (User, error) {
	if resp.User == nil {
		return User{}, errors.New("notesdk: auth response carries no user")
	}
	user := *resp.User

	err := s.coord.Reset(func() error {
		return s.store.Set(ctx, resp.Pair(), user)
	})
	if err != nil {
		return User{}, err
	}

	s.logger.Info("signed in", "user_id", user.ID, "role", user.Role)
	s.publish()
	return user, nil
}

// Logout ends the session locally. No server call is made. The in-memory
// session is gone even when clearing the persisted copy fails.
func (s *Session) Logout(ctx context.Context) error {
	var err error
	_ = s.coord.Reset(func() error {
		err = s.store.Clear(ctx)
		return nil
	})

	s.logger.Info("signed out")
	s.publish()
	return err
}

// UpdateIdentity replaces the cached identity, e.g. after a profile edit.
func (s *Session) UpdateIdentity(ctx context.Context, user User) error {
	if err := s.store.UpdateIdentity(ctx, user); err != nil {
		if errors.Is(err, credstore.ErrNoSession) {
			return ErrNotAuthenticated
		}
		return err
	}
	s.publish()
	return nil
}

// Subscribe calls fn with the current state and then after every change.
// Deliveries are serialized; fn must not call Login, Logout, Hydrate or
// UpdateIdentity itself. The returned function removes the subscription.
func (s *Session) Subscribe(fn func(SessionState)) (cancel func()) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	fn(s.State())

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) publish() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.deliver(s.State())
}

// deliver hands state to every subscriber. The caller holds pubMu.
func (s *Session) deliver(state SessionState) {
	s.mu.Lock()
	subs := make([]func(SessionState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// terminate runs when renewal failed and the store has been cleared. A login
// or hydrate that replaced the session since then wins: nothing is announced.
func (s *Session) terminate(epoch uint64, reason error) {
	s.pubMu.Lock()
	current := s.coord.Epoch() == epoch && !s.IsAuthenticated()
	if current {
		s.deliver(SessionState{Reason: reason})
	}
	s.pubMu.Unlock()

	if !current {
		s.logger.Debug("ignoring renewal failure of a replaced session", "reason", reason)
		return
	}

	s.logger.Warn("session expired, login required", "reason", reason)
	if s.onLoginRequired != nil {
		s.onLoginRequired(reason)
	}
}

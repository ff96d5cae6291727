package credstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Store is the single owner of the session credentials.
//
// Reads are served from memory. Every mutation holds the write lock across
// the backend write, so readers see either the old session or the new one
// and never a half-written state.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	pair     Pair
	identity Identity
	raw      []byte // encoded identity as persisted
	present  bool
}

// New returns an empty Store backed by backend. Call Hydrate to load a
// previously persisted session.
func New(backend Backend, logger *slog.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Hydrate loads the persisted session once. If either half is missing or
// the identity does not decode, both halves are discarded and the backend is
// wiped, leaving the store logged out.
//
// A backend that cannot be reached leaves the store logged out and returns
// the error without touching persisted data.
func (s *Store) Hydrate(ctx context.Context) error {
	rec, err := s.backend.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()

	switch {
	case errors.Is(err, ErrCorrupt):
		s.logger.Warn("discarding unreadable session", "error", err)
		return s.wipe(ctx)
	case err != nil:
		return fmt.Errorf("failed to load session: %w", err)
	case rec.IsEmpty():
		return nil
	}

	if rec.AccessToken == "" || len(rec.Identity) == 0 {
		s.logger.Warn("discarding partial session",
			"has_token", rec.AccessToken != "",
			"has_identity", len(rec.Identity) > 0,
		)
		return s.wipe(ctx)
	}

	identity, err := decodeIdentity(rec.Identity)
	if err != nil {
		s.logger.Warn("discarding session with invalid identity", "error", err)
		return s.wipe(ctx)
	}

	s.pair = Pair{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresIn:    rec.ExpiresIn,
	}
	s.identity = identity
	s.raw = rec.Identity
	s.present = true

	s.logger.Debug("session hydrated", "user_id", identity.ID)
	return nil
}

// Get returns the current credential pair.
func (s *Store) Get() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.present
}

// AccessToken returns the current access token or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

// Identity returns the cached identity record.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.present
}

// Snapshot returns both halves under one read lock.
func (s *Store) Snapshot() (Pair, Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.identity, s.present
}

// Set installs a new session, overwriting both halves. On error the previous
// session is left untouched.
func (s *Store) Set(ctx context.Context, pair Pair, identity Identity) error {
	if !pair.Valid() {
		return ErrInvalidPair
	}
	raw, err := encodeIdentity(identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, pair, raw); err != nil {
		return err
	}

	s.pair = pair
	s.identity = identity
	s.raw = raw
	s.present = true
	return nil
}

// Replace swaps the credential pair of the current session and keeps the
// identity. A pair without a refresh token keeps the previous one.
func (s *Store) Replace(ctx context.Context, pair Pair) error {
	if !pair.Valid() {
		return ErrInvalidPair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.present {
		return ErrNoSession
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = s.pair.RefreshToken
	}

	if err := s.save(ctx, pair, s.raw); err != nil {
		return err
	}
	s.pair = pair
	return nil
}

// UpdateIdentity rewrites the cached identity of the current session.
func (s *Store) UpdateIdentity(ctx context.Context, identity Identity) error {
	raw, err := encodeIdentity(identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.present {
		return ErrNoSession
	}
	if err := s.save(ctx, s.pair, raw); err != nil {
		return err
	}
	s.identity = identity
	s.raw = raw
	return nil
}

// Clear removes both halves. The in-memory session is always dropped, even
// if the backend fails, and the backend error is returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return s.wipe(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) save(ctx context.Context, pair Pair, raw []byte) error {
	err := s.backend.Save(ctx, Record{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		Identity:     raw,
	})
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Store) wipe(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear persisted session: %w", err)
	}
	return nil
}

// reset drops the in-memory session. Callers hold s.mu.
func (s *Store) reset() {
	s.pair = Pair{}
	s.identity = Identity{}
	s.raw = nil
	s.present = false
}

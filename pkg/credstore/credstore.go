// Package credstore holds the client's session credentials: the access and
// refresh token pair plus the cached identity of the signed-in user.
//
// The two halves are always written and cleared together. A Store keeps an
// in-memory snapshot for lock-cheap reads and writes through to a Backend
// that survives process restarts.
package credstore

import (
	"context"
	"errors"
)

var (
	// ErrNoSession is returned by operations that need an existing session.
	ErrNoSession = errors.New("credstore: no session")

	// ErrInvalidPair is returned when a credential pair has no access token.
	ErrInvalidPair = errors.New("credstore: credential pair has no access token")

	// ErrInvalidIdentity is returned when an identity record fails validation.
	ErrInvalidIdentity = errors.New("credstore: invalid identity record")

	// ErrCorrupt is returned by backends whose persisted data cannot be
	// decoded. Hydration treats it as "no session" and wipes the backend.
	ErrCorrupt = errors.New("credstore: persisted session is corrupt")
)

// Pair is the access/refresh credential pair.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the advisory access token lifetime in seconds, as reported
	// by the server when the pair was issued.
	ExpiresIn int64 `json:"expiresIn"`
}

// Valid reports whether the pair can authenticate a request.
func (p Pair) Valid() bool { return p.AccessToken != "" }

// Record is the persisted form of a session. Each field is independently
// readable by a backend; Identity holds the JSON encoded identity record.
type Record struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Identity     []byte
}

// IsEmpty reports whether nothing at all is persisted.
func (r Record) IsEmpty() bool {
	return r.AccessToken == "" && r.RefreshToken == "" && len(r.Identity) == 0
}

// Backend persists a Record. Save and Clear must be all-or-nothing: a reader
// never observes a mix of old and new fields.
type Backend interface {
	// Load returns the persisted record. A missing record is an empty Record
	// and a nil error. Undecodable data wraps ErrCorrupt.
	Load(ctx context.Context) (Record, error)

	// Save replaces the persisted record.
	Save(ctx context.Context, rec Record) error

	// Clear removes the persisted record.
	Clear(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

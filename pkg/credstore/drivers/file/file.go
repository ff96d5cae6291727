// Package file persists the session as a JSON document on disk.
//
// Writes go to a temp file in the same directory which is then renamed over
// the target, so a crash leaves either the old or the new document. With a
// sealer the document is encrypted under a passphrase.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/sealx"
)

// document is the on-disk layout. Each field can be read on its own.
type document struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    int64           `json:"expires_in,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

// Backend is a credstore.Backend over a single file.
type Backend struct {
	path   string
	sealer *sealx.Sealer

	mu sync.Mutex
}

// Option configures a Backend.
type Option func(*Backend)

// WithSealer encrypts the document with s.
func WithSealer(s *sealx.Sealer) Option {
	return func(b *Backend) { b.sealer = s }
}

// New returns a Backend writing to path. The parent directory is created
// with owner-only permissions if missing.
func New(path string, opts ...Option) (*Backend, error) {
	if path == "" {
		return nil, errors.New("file: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	b := &Backend{path: path}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Path returns the file location.
func (b *Backend) Path() string { return b.path }

func (b *Backend) Load(context.Context) (credstore.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return credstore.Record{}, nil
	}
	if err != nil {
		return credstore.Record{}, fmt.Errorf("failed to read session file: %w", err)
	}

	if b.sealer != nil {
		if !sealx.IsSealed(data) {
			return credstore.Record{}, fmt.Errorf("%w: session file is not sealed", credstore.ErrCorrupt)
		}
		data, err = b.sealer.Open(data)
		if err != nil {
			return credstore.Record{}, fmt.Errorf("%w: %v", credstore.ErrCorrupt, err)
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return credstore.Record{}, fmt.Errorf("%w: %v", credstore.ErrCorrupt, err)
	}

	return credstore.Record{
		AccessToken:  doc.AccessToken,
		RefreshToken: doc.RefreshToken,
		ExpiresIn:    doc.ExpiresIn,
		Identity:     []byte(doc.User),
	}, nil
}

func (b *Backend) Save(_ context.Context, rec credstore.Record) error {
	doc := document{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresIn:    rec.ExpiresIn,
	}
	if len(rec.Identity) > 0 {
		doc.User = json.RawMessage(rec.Identity)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if b.sealer != nil {
		if data, err = b.sealer.Seal(data); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return writeAtomic(b.path, data)
}

func (b *Backend) Clear(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }

// writeAtomic writes data to a sibling temp file, syncs it and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

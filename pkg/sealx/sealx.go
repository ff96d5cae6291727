// Package sealx encrypts small secrets at rest under a passphrase.
//
// Sealed data layout:
//
//	[1-byte version][16-byte salt][24-byte nonce][ciphertext + 16-byte tag]
//
// The key is derived with Argon2id and the payload is sealed with
// XChaCha20-Poly1305, so a random nonce per seal is safe.
package sealx

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	version    byte = 1
	saltLength      = 16
	headerSize      = 1 + saltLength + chacha20poly1305.NonceSizeX
)

var (
	// ErrEmptyPassphrase is returned when sealing or opening without a passphrase.
	ErrEmptyPassphrase = errors.New("sealx: empty passphrase")

	// ErrMalformed is returned when the sealed data is truncated or has an unknown version.
	ErrMalformed = errors.New("sealx: malformed sealed data")

	// ErrDecrypt is returned when authentication fails, usually a wrong passphrase.
	ErrDecrypt = errors.New("sealx: decryption failed")
)

// Params tunes the Argon2id key derivation.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams follow the RFC 9106 second recommended option.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 4}

// Sealer seals and opens payloads with a fixed passphrase.
type Sealer struct {
	passphrase []byte
	params     Params
}

// New returns a Sealer. A zero Params uses DefaultParams.
func New(passphrase string, params Params) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if params == (Params{}) {
		params = DefaultParams
	}
	return &Sealer{passphrase: []byte(passphrase), params: params}, nil
}

func (s *Sealer) key(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, s.params.Time, s.params.Memory, s.params.Threads, chacha20poly1305.KeySize)
}

// Seal encrypts plaintext with a fresh salt and nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	header := make([]byte, headerSize, headerSize+len(plaintext)+chacha20poly1305.Overhead)
	header[0] = version
	if _, err := rand.Read(header[1:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt and nonce: %w", err)
	}

	salt := header[1 : 1+saltLength]
	nonce := header[1+saltLength:]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// The header is bound as additional data so it cannot be swapped.
	return aead.Seal(header, nonce, plaintext, header), nil
}

// Open decrypts data produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < headerSize+chacha20poly1305.Overhead || sealed[0] != version {
		return nil, ErrMalformed
	}

	header := sealed[:headerSize]
	salt := header[1 : 1+saltLength]
	nonce := header[1+saltLength:]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, sealed[headerSize:], header)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// IsSealed reports whether data looks like output of Seal. It only checks
// the framing, not the tag.
func IsSealed(data []byte) bool {
	return len(data) >= headerSize+chacha20poly1305.Overhead && data[0] == version
}

// Package redis persists the session in Redis, one key per field. Writes
// run in a MULTI/EXEC block and reads use a single MGET, so readers never
// see a mix of two sessions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	goredis "github.com/redis/go-redis/v9"
)

// Backend is a credstore.Backend over Redis.
type Backend struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithTTL expires all keys after d. Zero keeps them forever.
func WithTTL(d time.Duration) Option {
	return func(b *Backend) { b.ttl = d }
}

// New wraps an existing client. The client stays owned by the caller.
func New(rdb goredis.UniversalClient, prefix string, opts ...Option) *Backend {
	if prefix == "" {
		prefix = "moondance:session"
	}
	b := &Backend{rdb: rdb, prefix: prefix}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dial connects to addr, verifies the connection and returns a Backend
// that closes the client on Close.
func Dial(ctx context.Context, addr, password string, db int, prefix string, opts ...Option) (*Backend, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}

	b := New(rdb, prefix, opts...)
	b.owned = true
	return b, nil
}

func (b *Backend) key(field string) string { return b.prefix + ":" + field }

func (b *Backend) keys() []string {
	return []string{
		b.key("access_token"),
		b.key("refresh_token"),
		b.key("expires_in"),
		b.key("identity"),
	}
}

func (b *Backend) Load(ctx context.Context) (credstore.Record, error) {
	vals, err := b.rdb.MGet(ctx, b.keys()...).Result()
	if err != nil {
		return credstore.Record{}, fmt.Errorf("failed to read session: %w", err)
	}

	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	rec := credstore.Record{
		AccessToken:  str(0),
		RefreshToken: str(1),
	}
	if s := str(3); s != "" {
		rec.Identity = []byte(s)
	}
	if s := str(2); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return credstore.Record{}, fmt.Errorf("%w: expires_in %q", credstore.ErrCorrupt, s)
		}
		rec.ExpiresIn = n
	}
	return rec, nil
}

func (b *Backend) Save(ctx context.Context, rec credstore.Record) error {
	keys := b.keys()
	values := []string{
		rec.AccessToken,
		rec.RefreshToken,
		"",
		string(rec.Identity),
	}
	if rec.ExpiresIn != 0 {
		values[2] = strconv.FormatInt(rec.ExpiresIn, 10)
	}

	_, err := b.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for i, k := range keys {
			if values[i] == "" {
				continue
			}
			pipe.Set(ctx, k, values[i], b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (b *Backend) Clear(ctx context.Context) error {
	if err := b.rdb.Del(ctx, b.keys()...).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	if b.owned {
		return b.rdb.Close()
	}
	return nil
}

// Package sqlite persists the session in a SQLite database, one row per
// field. Writes happen in a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	_ "modernc.org/sqlite"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldExpiresIn    = "expires_in"
	fieldIdentity     = "identity"
)

// DefaultProfile is used when New is given an empty profile name.
const DefaultProfile = "default"

// Backend is a credstore.Backend over SQLite. Several profiles (for example
// one per API endpoint) can share one database file.
type Backend struct {
	db      *sql.DB
	profile string
}

// New opens dsn, applies migrations and returns a Backend for profile.
func New(dsn, profile string) (*Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer keeps SQLITE_BUSY out of the picture for a single client.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	if profile == "" {
		profile = DefaultProfile
	}
	b := &Backend{db: db, profile: profile}

	if err := b.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) Close() error { return b.db.Close() }

// Ping verifies the database connection is still alive.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Load(ctx context.Context) (credstore.Record, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name, value FROM session_fields WHERE profile = ?`, b.profile)
	if err != nil {
		return credstore.Record{}, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	var rec credstore.Record
	for rows.Next() {
		var name string
		var value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return credstore.Record{}, fmt.Errorf("failed to scan session: %w", err)
		}

		switch name {
		case fieldAccessToken:
			rec.AccessToken = string(value)
		case fieldRefreshToken:
			rec.RefreshToken = string(value)
		case fieldIdentity:
			rec.Identity = value
		case fieldExpiresIn:
			n, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil {
				return credstore.Record{}, fmt.Errorf("%w: expires_in %q", credstore.ErrCorrupt, value)
			}
			rec.ExpiresIn = n
		}
	}
	if err := rows.Err(); err != nil {
		return credstore.Record{}, fmt.Errorf("failed to read session: %w", err)
	}
	return rec, nil
}

func (b *Backend) Save(ctx context.Context, rec credstore.Record) error {
	return b.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_fields WHERE profile = ?`, b.profile); err != nil {
			return err
		}

		now := time.Now().Unix()
		fields := []struct {
			name  string
			value []byte
		}{
			{fieldAccessToken, []byte(rec.AccessToken)},
			{fieldRefreshToken, []byte(rec.RefreshToken)},
			{fieldIdentity, rec.Identity},
		}
		if rec.ExpiresIn != 0 {
			fields = append(fields, struct {
				name  string
				value []byte
			}{fieldExpiresIn, []byte(strconv.FormatInt(rec.ExpiresIn, 10))})
		}

		for _, f := range fields {
			if len(f.value) == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_fields (profile, name, value, updated_at) VALUES (?, ?, ?, ?)`,
				b.profile, f.name, f.value, now,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Backend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM session_fields WHERE profile = ?`, b.profile); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// withTx executes fn within a transaction, handling commit and rollback.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := tx.Commit(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

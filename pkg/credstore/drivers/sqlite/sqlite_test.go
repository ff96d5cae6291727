package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/credstore/credstoretest"
	"github.com/aussiebroadwan/moondance/pkg/credstore/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func openBackend(t *testing.T, dsn, profile string) *sqlite.Backend {
	t.Helper()

	b, err := sqlite.New(dsn, profile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackendContract(t *testing.T) {
	credstoretest.Run(t, func(t *testing.T) credstore.Backend {
		return openBackend(t, filepath.Join(t.TempDir(), "session.db"), "")
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")

	b := openBackend(t, dsn, "")
	require.NoError(t, b.Save(context.Background(), credstoretest.SampleRecord()))
	require.NoError(t, b.ApplyMigrations())

	// A second process opening the same file sees the same session
	again := openBackend(t, dsn, "")
	rec, err := again.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", rec.AccessToken)
}

func TestProfilesAreIsolated(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	prod := openBackend(t, dsn, "prod")
	staging := openBackend(t, dsn, "staging")

	require.NoError(t, prod.Save(ctx, credstoretest.SampleRecord()))

	rec, err := staging.Load(ctx)
	require.NoError(t, err)
	require.True(t, rec.IsEmpty())

	require.NoError(t, staging.Clear(ctx))
	rec, err = prod.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-1", rec.AccessToken)
}

// Package credstoretest holds the behaviour every credstore.Backend must
// share, so each driver runs the same checks.
package credstoretest

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty backend. Cleanup is the factory's job.
type Factory func(t *testing.T) credstore.Backend

// SampleRecord returns a fully populated record.
func SampleRecord() credstore.Record {
	return credstore.Record{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    900,
		Identity:     []byte(`{"id":7,"email":"ada@uni.edu","name":"Ada","role":"STUDENT","reputationPoints":12,"emailVerified":true}`),
	}
}

// Run exercises the backend contract.
func Run(t *testing.T, open Factory) {
	t.Helper()

	t.Run("empty load", func(t *testing.T) {
		b := open(t)

		rec, err := b.Load(context.Background())
		require.NoError(t, err)
		require.True(t, rec.IsEmpty())
	})

	t.Run("save then load", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		want := SampleRecord()
		require.NoError(t, b.Save(ctx, want))

		got, err := b.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, want.AccessToken, got.AccessToken)
		require.Equal(t, want.RefreshToken, got.RefreshToken)
		require.Equal(t, want.ExpiresIn, got.ExpiresIn)
		require.JSONEq(t, string(want.Identity), string(got.Identity))
	})

	t.Run("save overwrites every field", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		require.NoError(t, b.Save(ctx, SampleRecord()))

		next := credstore.Record{
			AccessToken: "access-2",
			Identity:    []byte(`{"id":8,"email":"bob@uni.edu","name":"Bob","role":"ADMIN"}`),
		}
		require.NoError(t, b.Save(ctx, next))

		got, err := b.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "access-2", got.AccessToken)
		require.Empty(t, got.RefreshToken, "old refresh token must not survive")
		require.Zero(t, got.ExpiresIn)
		require.JSONEq(t, string(next.Identity), string(got.Identity))
	})

	t.Run("clear", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		require.NoError(t, b.Save(ctx, SampleRecord()))
		require.NoError(t, b.Clear(ctx))

		rec, err := b.Load(ctx)
		require.NoError(t, err)
		require.True(t, rec.IsEmpty())

		// Clearing twice is fine
		require.NoError(t, b.Clear(ctx))
	})

	t.Run("hydrates a store", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		require.NoError(t, b.Save(ctx, SampleRecord()))

		s := credstore.New(b, nil)
		require.NoError(t, s.Hydrate(ctx))

		pair, ok := s.Get()
		require.True(t, ok)
		require.Equal(t, "access-1", pair.AccessToken)

		id, ok := s.Identity()
		require.True(t, ok)
		require.EqualValues(t, 7, id.ID)
	})
}

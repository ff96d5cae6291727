//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/credstore/credstoretest"
	"github.com/aussiebroadwan/moondance/pkg/credstore/drivers/redis"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a throwaway Redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestBackendContractRealRedis(t *testing.T) {
	addr := setupRedisContainer(t)

	n := 0
	credstoretest.Run(t, func(t *testing.T) credstore.Backend {
		n++
		b, err := redis.Dial(context.Background(), addr, "", 0, fmt.Sprintf("it:%d", n))
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

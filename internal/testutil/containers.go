package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// EnvContainerTests enables tests that need a container runtime.
const EnvContainerTests = "MDFLUIDS_CONTAINER_TESTS"

// RequireContainers skips t unless container tests are enabled.
func RequireContainers(t testing.TB) {
	t.Helper()
	if os.Getenv(EnvContainerTests) != "1" {
		t.Skipf("set %s=1 to run container tests", EnvContainerTests)
	}
}

// startContainer runs image and returns its mapped endpoint. The container is
// terminated when t finishes.
func startContainer(t testing.TB, image string, opts ...testcontainers.ContainerCustomizer) string {
	t.Helper()
	RequireContainers(t)

	// Give generous timeout in CI environments
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := testcontainers.Run(ctx, image, opts...)
	t.Cleanup(func() {
		testcontainers.CleanupContainer(t, c)
	})
	require.NoError(t, err)

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

// StartPostgres starts postgres:16 and returns a pgx DSN.
func StartPostgres(t testing.TB) string {
	t.Helper()
	endpoint := startContainer(t, "postgres:16",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("ready to accept connections"),
				wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://mdfluids:mdfluids@%s:%s/mdfluids_test?sslmode=disable", host, port.Port())
				}).WithQuery("SELECT 1"),
			).WithDeadline(2*time.Minute),
		),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "mdfluids",
			"POSTGRES_PASSWORD": "mdfluids",
			"POSTGRES_DB":       "mdfluids_test",
		}),
	)
	return fmt.Sprintf("postgres://mdfluids:mdfluids@%s/mdfluids_test?sslmode=disable", endpoint)
}

// StartMongo starts mongo:7 and returns a connection URI.
func StartMongo(t testing.TB) string {
	t.Helper()
	endpoint := startContainer(t, "mongo:7",
		testcontainers.WithExposedPorts("27017/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("mongod startup complete"),
		),
	)
	return fmt.Sprintf("mongodb://%s", endpoint)
}

// StartRedis starts redis:latest and returns its host:port address.
func StartRedis(t testing.TB) string {
	t.Helper()
	return startContainer(t, "redis:latest",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
}

package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a disposable PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "kbase",
				"POSTGRES_PASSWORD": "kbase",
				"POSTGRES_DB":       "kbase",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(ctx, req)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://kbase:kbase@%s:%s/kbase?sslmode=disable", host, port.Port())
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	b, err := Open(ctx, BackendConfig{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)

	_, err = b.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Write(ctx, sampleCollections()))
	require.NoError(t, b.Write(ctx, sampleCollections()))
	require.NoError(t, b.Close())

	b2, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer b2.Close()

	got, err := b2.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCollections(), got)

	var rows int
	require.NoError(t, b2.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM kbase_state`).Scan(&rows))
	assert.Equal(t, 4, rows)
}

func TestPostgresBackend_ResumeThroughBootstrap(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	b, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer b.Close()

	initial, err := Bootstrap(ctx, StartupOptions{Resume: true}, b, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, initial.Source)

	require.NoError(t, b.Write(ctx, sampleCollections()))
	initial, err = Bootstrap(ctx, StartupOptions{Resume: true}, b, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, initial.Source)
	assert.Equal(t, sampleCollections(), initial.Collections)
}

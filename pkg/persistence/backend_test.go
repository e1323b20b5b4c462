package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/getmockd/kbase/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{in: "", want: DriverFile},
		{in: "file", want: DriverFile},
		{in: "YAML", want: DriverFile},
		{in: "sqlite", want: DriverSQLite},
		{in: "sqlite3", want: DriverSQLite},
		{in: "postgres", want: DriverPostgres},
		{in: "pgx", want: DriverPostgres},
		{in: "mongo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDriver(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownDriver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_FileDefaultsToFixedPath(t *testing.T) {
	b, err := Open(context.Background(), BackendConfig{})
	require.NoError(t, err)
	defer b.Close()

	fb, ok := b.(*FileBackend)
	require.True(t, ok)
	assert.Equal(t, DefaultSnapshotPath, fb.Path())
	assert.Equal(t, "file:"+DefaultSnapshotPath, b.String())
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), BackendConfig{Driver: DriverPostgres})
	assert.Error(t, err)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(filepath.Join(t.TempDir(), "kbase.tmpdb"))

	_, err := b.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Write(ctx, sampleCollections()))
	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCollections(), got)
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "kbase.db")

	b, err := Open(ctx, BackendConfig{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)

	_, err = b.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Write(ctx, sampleCollections()))
	require.NoError(t, b.Write(ctx, sampleCollections()))
	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCollections(), got)
	require.NoError(t, b.Close())

	// Reopen to make sure the data outlived the connection.
	b2, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer b2.Close()

	var rows int
	require.NoError(t, b2.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM kbase_state`).Scan(&rows))
	assert.Equal(t, 4, rows)

	got, err = b2.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCollections(), got)
}

func TestSQLiteBackend_EmptyStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Write(ctx, entity.NewCollections()))
	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.NewCollections(), got)
}

func TestSQLiteBackend_MalformedPayload(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer b.Close()

	_, err = b.DB().ExecContext(ctx, `INSERT INTO kbase_state(bucket, payload) VALUES('persons', '[1,2]')`)
	require.NoError(t, err)

	_, err = b.Read(ctx)
	assert.ErrorIs(t, err, ErrMalformed)
}

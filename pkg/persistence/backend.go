package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/getmockd/kbase/pkg/entity"
)

// Backend stores the automatic snapshot taken after every mutation.
type Backend interface {
	// Write replaces the stored snapshot with c.
	Write(ctx context.Context, c entity.Collections) error
	// Read returns the stored snapshot, or ErrNotFound if there is none.
	Read(ctx context.Context) (entity.Collections, error)
	// Close releases any resources held by the backend.
	Close() error
	// String describes where snapshots go, for logs.
	String() string
}

// Driver selects a snapshot backend.
type Driver string

// Supported drivers.
const (
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// BackendConfig configures Open.
type BackendConfig struct {
	// Driver defaults to DriverFile.
	Driver Driver `yaml:"driver" json:"driver"`

	// Path is the snapshot file for DriverFile and the database file for
	// DriverSQLite. The file driver defaults to DefaultSnapshotPath.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// DSN is the connection string for DriverPostgres.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// ParseDriver normalizes a driver name. Empty selects DriverFile.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "file", "yaml":
		return DriverFile, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, s)
	}
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg BackendConfig) (Backend, error) {
	driver, err := ParseDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return NewFileBackend(cfg.Path), nil
	}
}

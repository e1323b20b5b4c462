package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getmockd/kbase/pkg/entity"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// DefaultSQLitePath is used by the sqlite driver when no path is configured.
const DefaultSQLitePath = "/tmp/kbase.db"

var sqlBuckets = []string{"locations", "viewpoints", "objects", "persons"}

type dialect struct {
	name        string
	createTable string
	upsert      string
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS kbase_state (
			bucket TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
		upsert: `INSERT INTO kbase_state(bucket, payload) VALUES(?, ?)
			ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
	}
	postgresDialect = dialect{
		name: "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS kbase_state (
			bucket TEXT PRIMARY KEY,
			payload JSONB NOT NULL
		)`,
		upsert: `INSERT INTO kbase_state(bucket, payload) VALUES($1, $2)
			ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
	}
)

// SQLBackend keeps the automatic snapshot in a kbase_state table, one row per
// collection holding its records as JSON. Every write replaces all four rows
// in a single transaction.
type SQLBackend struct {
	db      *sql.DB
	dialect dialect
	target  string
}

// OpenSQLite opens (and creates if needed) a sqlite snapshot database.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	return newSQLBackend(ctx, db, sqliteDialect, "sqlite:"+path)
}

// OpenPostgres connects to a postgres snapshot database.
func OpenPostgres(ctx context.Context, dsn string) (*SQLBackend, error) {
	if dsn == "" {
		return nil, errors.New("postgres snapshot driver requires a DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLBackend(ctx, db, postgresDialect, "postgres")
}

func newSQLBackend(ctx context.Context, db *sql.DB, d dialect, target string) (*SQLBackend, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLBackend{db: db, dialect: d, target: target}, nil
}

// Write replaces the four collection rows.
func (b *SQLBackend) Write(ctx context.Context, c entity.Collections) (retErr error) {
	c = c.Clone()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, bucket := range sqlBuckets {
		var data []byte
		switch bucket {
		case "locations":
			data, err = json.Marshal(c.Locations)
		case "viewpoints":
			data, err = json.Marshal(c.Viewpoints)
		case "objects":
			data, err = json.Marshal(c.Objects)
		case "persons":
			data, err = json.Marshal(c.Persons)
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, b.dialect.upsert, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Read loads the four collection rows. An empty table is ErrNotFound.
func (b *SQLBackend) Read(ctx context.Context) (entity.Collections, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT bucket, payload FROM kbase_state`)
	if err != nil {
		return entity.Collections{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	c := entity.NewCollections()
	found := 0
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return entity.Collections{}, fmt.Errorf("scan: %w", err)
		}
		found++
		switch bucket {
		case "locations":
			err = json.Unmarshal(payload, &c.Locations)
		case "viewpoints":
			err = json.Unmarshal(payload, &c.Viewpoints)
		case "objects":
			err = json.Unmarshal(payload, &c.Objects)
		case "persons":
			err = json.Unmarshal(payload, &c.Persons)
		default:
			err = fmt.Errorf("unexpected bucket %q", bucket)
		}
		if err != nil {
			return entity.Collections{}, fmt.Errorf("%w: %s: %v", ErrMalformed, bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return entity.Collections{}, fmt.Errorf("iterate state: %w", err)
	}
	if found == 0 {
		return entity.Collections{}, fmt.Errorf("%w: %s", ErrNotFound, b.target)
	}

	c = c.Clone()
	if err := checkNames(c); err != nil {
		return entity.Collections{}, err
	}
	return c, nil
}

// Close closes the database.
func (b *SQLBackend) Close() error { return b.db.Close() }

// DB exposes the underlying database for tests.
func (b *SQLBackend) DB() *sql.DB { return b.db }

func (b *SQLBackend) String() string { return b.target }

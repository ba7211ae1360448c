// Package cache implements an optional decompilation cache (spec.md §6):
// a Rite file's header CRC plus its total size stands in for its identity,
// and a previously-seen file's rendered source is served back without
// re-running the lifter. Backed by database/sql with a pluggable driver,
// following internal/database's DBManager shape in this repo's lineage —
// a pure-Go modernc.org/sqlite store by default, or a shared team cache
// reached over a DSN for postgres/mysql/mssql.
package cache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names the backend a Cache was opened against.
type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
	MySQL    Driver = "mysql"
	MSSQL    Driver = "sqlserver"
)

// Cache is a single connection to a decompile-result store, keyed by the
// container's header CRC (spec.md §6) plus its byte length — the pair is
// not cryptographically strong but is cheap to compute from data the
// reader already parses, and collisions only cost a redundant re-lift.
type Cache struct {
	db     *sql.DB
	mu     sync.Mutex
	driver Driver
}

// Open connects to dsn using driver and ensures the results table exists.
func Open(driver Driver, dsn string) (*Cache, error) {
	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	c := &Cache{db: db, driver: driver}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// OpenSQLite opens (creating if necessary) a local file-backed cache; it is
// Open(SQLite, path).
func OpenSQLite(path string) (*Cache, error) {
	return Open(SQLite, path)
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS decompile_results (
	crc         INTEGER NOT NULL,
	total_size  INTEGER NOT NULL,
	source      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (crc, total_size)
)`)
	if err != nil {
		return fmt.Errorf("cache: create schema: %w", err)
	}
	return nil
}

// Key identifies one cached result.
type Key struct {
	CRC       uint16
	TotalSize uint32
}

// Lookup returns the cached rendered source for key, and whether it was
// found.
func (c *Cache) Lookup(key Key) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRow(
		`SELECT source FROM decompile_results WHERE crc = ? AND total_size = ?`,
		key.CRC, key.TotalSize,
	)
	var source string
	switch err := row.Scan(&source); err {
	case nil:
		return source, true, nil
	case sql.ErrNoRows:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("cache: lookup: %w", err)
	}
}

// Store records a freshly decompiled file's rendered source, replacing any
// prior entry under the same key (a recompiled input with an unchanged
// header is assumed identical — spec.md makes no provision for detecting
// source drift under an unchanged CRC).
func (c *Cache) Store(key Key, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO decompile_results (crc, total_size, source, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (crc, total_size) DO UPDATE SET source = excluded.source, created_at = excluded.created_at`,
		key.CRC, key.TotalSize, source, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("cache: store: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

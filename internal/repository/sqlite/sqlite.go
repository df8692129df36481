// Package sqlite implements the repository Store and the identity
// provider's account table on top of SQLite.
//
// WHY SQLITE?
// The catalog is a single-server application with a family-sized dataset.
// An embedded database is one file next to the binary: nothing to install
// or operate, and ":memory:" gives every test a fresh database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 needs CGo, so a C compiler at build time and painful
// cross-compilation. modernc.org/sqlite is a pure Go translation of the
// SQLite C code and builds wherever Go does.
//
// TWO TABLES:
//   - kv       — the key-value tree (whitelistedEmails/..., objects/...),
//     one row per full path. List is a prefix range scan on the
//     primary key.
//   - accounts — the local identity provider's credentials. It is a real
//     table because it needs a UNIQUE email constraint.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: the driver's init() registers itself with
	// database/sql under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
//
// The same DB serves as the kv Store and as the AccountRepository, so the
// sqlite backend keeps accounts and the tree in one file.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/catalog.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database, used by tests
//
// CONNECTION POOL:
// sql.Open only creates a pool manager; no connection exists until the
// first query. Ping forces one now, so a bad path or a permissions problem
// fails at startup instead of on the first request.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (write-ahead logging) lets readers proceed while a write is in
	// progress. Without it a long export would block every sign-in that
	// reads the whitelist. In-memory databases ignore the pragma.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// A writer that finds the database locked waits up to 5s instead of
	// failing at once with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the tables.
//
// MIGRATION STRATEGY:
// Every statement is idempotent (CREATE ... IF NOT EXISTS, or a column
// added only when missing), so migrate runs on every start with no
// version table. Columns are only ever added; nothing is dropped or
// renamed in place.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			path       TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}

	// email is compared exactly: the whitelist is keyed on the exact address.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			password_hash  TEXT NOT NULL DEFAULT '',
			provider       TEXT NOT NULL DEFAULT 'password',
			email_verified INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	if err := db.addColumnIfNotExists("accounts", "provider",
		"TEXT NOT NULL DEFAULT 'password'"); err != nil {
		return fmt.Errorf("adding provider to accounts: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
//
// SQLite has no ADD COLUMN IF NOT EXISTS, so the pragma_table_info
// table-valued function is checked first. table, column and definition
// are spliced into the statement and must be constants, never user input.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

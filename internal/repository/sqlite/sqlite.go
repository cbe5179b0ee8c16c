package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// migrations are applied in order; PRAGMA user_version records how many
// have already run against a database file.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS load_events (
		id TEXT PRIMARY KEY,
		model_dir TEXT NOT NULL,
		runtime TEXT NOT NULL DEFAULT '',
		device TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL DEFAULT 0,
		class_count INTEGER DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER DEFAULT 0,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_load_events_timestamp ON load_events(timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_load_events_success ON load_events(success, timestamp);`,
}

// DB is the model load history store. Reloads write to it while status
// pages read from it, so access goes through read and write.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New opens the history database at dbPath and brings its schema up to date.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// SchemaVersion is the number of migrations applied to the file.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// write runs fn under the exclusive lock.
func (db *DB) write(fn func(*sql.DB) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.conn)
}

// read runs fn under the shared lock.
func (db *DB) read(fn func(*sql.DB) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.conn)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

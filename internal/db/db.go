package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/jot/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init opens (creating if needed) the SQLite database at dbPath and applies
// migrations. Parent directories are created. Safe to call repeatedly
// against the same file.
func Init(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection.
	// foreign_keys drives the cascading deletes; _txlock=immediate takes the
	// write lock at BEGIN so concurrent writers wait on busy_timeout instead of
	// failing mid-transaction.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// schemaV1 creates contexts, jots, tag and metadata side tables, and the
// FTS5 index over jot messages. The index uses external content keyed by
// jots.id and is kept in sync by triggers, so every writer path (including
// cascading deletes) updates it.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS contexts (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  name       TEXT    NOT NULL UNIQUE,
  repository TEXT,
  branch     TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS jots (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  uid        TEXT    NOT NULL UNIQUE,
  context_id INTEGER NOT NULL REFERENCES contexts(id) ON DELETE CASCADE,
  message    TEXT    NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  expires_at INTEGER
);

CREATE TABLE IF NOT EXISTS jot_tags (
  jot_id INTEGER NOT NULL REFERENCES jots(id) ON DELETE CASCADE,
  tag    TEXT    NOT NULL,
  PRIMARY KEY (jot_id, tag)
);

CREATE TABLE IF NOT EXISTS jot_metadata (
  jot_id INTEGER NOT NULL REFERENCES jots(id) ON DELETE CASCADE,
  key    TEXT    NOT NULL,
  value  TEXT    NOT NULL,
  PRIMARY KEY (jot_id, key)
);

CREATE INDEX IF NOT EXISTS idx_jots_context_id ON jots(context_id);
CREATE INDEX IF NOT EXISTS idx_jots_created_at ON jots(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jots_expires_at ON jots(expires_at) WHERE expires_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_jot_tags_tag ON jot_tags(tag);
CREATE INDEX IF NOT EXISTS idx_contexts_updated_at ON contexts(updated_at DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS jots_fts USING fts5(
  message,
  content='jots',
  content_rowid='id',
  tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS jots_fts_insert AFTER INSERT ON jots BEGIN
  INSERT INTO jots_fts(rowid, message) VALUES (new.id, new.message);
END;

CREATE TRIGGER IF NOT EXISTS jots_fts_delete AFTER DELETE ON jots BEGIN
  INSERT INTO jots_fts(jots_fts, rowid, message) VALUES ('delete', old.id, old.message);
END;

CREATE TRIGGER IF NOT EXISTS jots_fts_update AFTER UPDATE OF message ON jots BEGIN
  INSERT INTO jots_fts(jots_fts, rowid, message) VALUES ('delete', old.id, old.message);
  INSERT INTO jots_fts(rowid, message) VALUES (new.id, new.message);
END;
`

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		if _, err := db.Exec(schemaV1); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

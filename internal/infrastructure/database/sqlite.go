package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"adscope-lab/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    device_id TEXT NOT NULL,
    package_name TEXT NOT NULL,
    risk_score REAL NOT NULL,
    risk_level TEXT NOT NULL,
    anomaly_score REAL,
    anomaly_zmax REAL,
    reasons_json TEXT NOT NULL,
    ioc_matches_json TEXT NOT NULL,
    features_json TEXT NOT NULL,
    raw_snapshot_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_sessions_package_created
ON scan_sessions (package_name, created_at DESC);

CREATE TABLE IF NOT EXISTS ioc_signatures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ioc_type TEXT NOT NULL,
    value TEXT NOT NULL,
    severity INTEGER NOT NULL,
    confidence REAL NOT NULL,
    source TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(ioc_type, value)
);

CREATE TABLE IF NOT EXISTS model_baseline (
    feature_name TEXT PRIMARY KEY,
    mean REAL NOT NULL,
    std REAL NOT NULL,
    sample_size INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_labels (
    scan_id INTEGER PRIMARY KEY,
    label INTEGER NOT NULL,
    source TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY(scan_id) REFERENCES scan_sessions(id)
);

CREATE TABLE IF NOT EXISTS ml_models (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_name TEXT NOT NULL,
    model_version TEXT NOT NULL,
    model_payload_json TEXT NOT NULL,
    metrics_json TEXT NOT NULL,
    trained_samples INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ml_models_name_created
ON ml_models (model_name, created_at DESC);
`

// Open connects to the SQLite database described by cfg, creates the parent
// directory and applies the schema. WAL journaling keeps readers unblocked
// while a writer holds the log.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." && !isMemoryPath(cfg.Path) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// fan out across connections.
	if isMemoryPath(cfg.Path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || path == ""
}

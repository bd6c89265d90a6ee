package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	_ "modernc.org/sqlite"

	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS decision_sets (
	storage_key   TEXT PRIMARY KEY,
	candidate_ids TEXT NOT NULL DEFAULT '[]',
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// OpenSQLite opens (creating if needed) the local decision database at path.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"path":      path,
		"operation": "sqlite_open",
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	db, err := otelsql.Open("sqlite", path, otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		logger.WithError(err).Error("Failed to open local database")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; several swipe processes share the file through the busy timeout
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create decision_sets table: %w", err)
	}

	logger.Debug("Local decision database ready")
	return &DB{db}, nil
}

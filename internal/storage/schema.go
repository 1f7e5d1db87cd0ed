package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates the embedding cache tables if they do not exist.
func InitSchema(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS embedding_cache (
		slug         TEXT    NOT NULL,
		model        TEXT    NOT NULL,
		content_hash TEXT    NOT NULL,
		dimensions   INTEGER NOT NULL,
		vector       BLOB    NOT NULL,
		cached_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (slug, model)
	);

	CREATE INDEX IF NOT EXISTS idx_embedding_cache_hash
		ON embedding_cache(content_hash);
	`
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

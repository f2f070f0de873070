// Package sqlite provides the SQLite implementation of the record
// store. SQLite is file-based and suits local development and
// single-process deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/persomem/persomem-go/pkg/store"
)

// Client implements store.RecordStore using SQLite.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a SQLite record store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite record store.
//
// Parameters:
//   - cfg: Configuration containing the database file path
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS extraction_runs (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL,
			source_updated_at DATETIME,
			processed INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user_source
			ON extraction_runs(user_id, source_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS memory_records (
			id INTEGER PRIMARY KEY,
			run_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			layer TEXT NOT NULL,
			content TEXT NOT NULL,
			payload TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user_layer
			ON memory_records(user_id, layer, created_at)`,
	}
	for _, query := range queries {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}
	return nil
}

// SaveRun persists one run row.
func (c *Client) SaveRun(ctx context.Context, run *store.Run) error {
	query := `
		INSERT INTO extraction_runs
		(id, user_id, source, source_id, source_updated_at, processed, succeeded, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		run.ID,
		run.UserID,
		run.Source,
		run.SourceID,
		run.SourceUpdatedAt,
		run.Processed,
		run.Succeeded,
		run.Failed,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("SaveRun: %w", err)
	}
	return nil
}

// LastRun returns the newest run for the user/source pair, or nil when
// none exists.
func (c *Client) LastRun(ctx context.Context, userID, sourceID string) (*store.Run, error) {
	query := `
		SELECT id, user_id, source, source_id, source_updated_at, processed, succeeded, failed, created_at
		FROM extraction_runs
		WHERE user_id = ? AND source_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	run := &store.Run{}
	var sourceUpdatedAt sql.NullTime
	err := c.db.QueryRowContext(ctx, query, userID, sourceID).Scan(
		&run.ID,
		&run.UserID,
		&run.Source,
		&run.SourceID,
		&sourceUpdatedAt,
		&run.Processed,
		&run.Succeeded,
		&run.Failed,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LastRun: %w", err)
	}
	if sourceUpdatedAt.Valid {
		run.SourceUpdatedAt = sourceUpdatedAt.Time
	}
	return run, nil
}

// SaveRecords persists the given records in one transaction.
func (c *Client) SaveRecords(ctx context.Context, records []*store.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveRecords: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO memory_records
		(id, run_id, user_id, source_id, layer, content, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, record := range records {
		_, err := tx.ExecContext(ctx, query,
			record.ID,
			record.RunID,
			record.UserID,
			record.SourceID,
			record.Layer,
			record.Content,
			record.Payload,
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("SaveRecords: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveRecords: %w", err)
	}
	return nil
}

// RecentByLayer returns up to limit records of one layer, newest first.
func (c *Client) RecentByLayer(ctx context.Context, userID, layer string, limit int) ([]*store.Record, error) {
	query := `
		SELECT id, run_id, user_id, source_id, layer, content, payload, created_at
		FROM memory_records
		WHERE user_id = ? AND layer = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := c.db.QueryContext(ctx, query, userID, layer, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentByLayer: %w", err)
	}
	defer rows.Close()

	var records []*store.Record
	for rows.Next() {
		record := &store.Record{}
		var payload sql.NullString
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.UserID,
			&record.SourceID,
			&record.Layer,
			&record.Content,
			&payload,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("RecentByLayer: %w", err)
		}
		record.Payload = payload.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentByLayer: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

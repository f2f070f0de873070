// Package postgres provides the PostgreSQL implementation of the
// record store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/persomem/persomem-go/pkg/store"
)

// Client implements store.RecordStore using PostgreSQL.
type Client struct {
	db *sql.DB
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewClient creates a new PostgreSQL record store.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
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
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			source VARCHAR(64) NOT NULL,
			source_id VARCHAR(255) NOT NULL,
			source_updated_at TIMESTAMP,
			processed INT NOT NULL DEFAULT 0,
			succeeded INT NOT NULL DEFAULT 0,
			failed INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user_source
			ON extraction_runs(user_id, source_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS memory_records (
			id BIGINT PRIMARY KEY,
			run_id BIGINT NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			source_id VARCHAR(255) NOT NULL,
			layer VARCHAR(32) NOT NULL,
			content TEXT NOT NULL,
			payload JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
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
		WHERE user_id = $1 AND source_id = $2
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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
		WHERE user_id = $1 AND layer = $2
		ORDER BY created_at DESC
		LIMIT $3
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

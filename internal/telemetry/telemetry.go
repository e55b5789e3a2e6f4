// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records routing outcomes in a local SQLite database.
//
// Every handled chat request leaves one row: which provider answered, the
// cost and confidence signals it reported, and whether the fallback path
// fired. The stats endpoint aggregates these rows. Recording is best
// effort and never affects the response to the caller.
package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var ErrClosed = errors.New("telemetry recorder closed")

// =============================================================================
// RECORD TYPE
// =============================================================================

// RequestRecord is one routing outcome.
type RequestRecord struct {
	ID             string
	UserID         string
	Provider       string
	Complexity     string
	Fallback       bool
	ProcessingTime float64
	Confidence     float64
	CreatedAt      time.Time
}

// Stats aggregates the request log.
type Stats struct {
	TotalRequests int            `json:"total_requests"`
	Fallbacks     int            `json:"fallbacks"`
	ByProvider    map[string]int `json:"by_provider"`
	AvgConfidence float64        `json:"avg_confidence"`
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder writes request records to SQLite.
type Recorder struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	provider        TEXT NOT NULL,
	complexity      TEXT NOT NULL,
	fallback        INTEGER NOT NULL DEFAULT 0,
	processing_time REAL NOT NULL,
	confidence      REAL NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_provider ON requests(provider);
CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);
`

// NewRecorder opens (or creates) the request log at path.
func NewRecorder(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}

	// SQLite supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure telemetry database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create telemetry schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Record inserts one routing outcome. The id and timestamp are assigned
// here when absent.
func (r *Recorder) Record(ctx context.Context, rec RequestRecord) error {
	if r == nil || r.db == nil {
		return ErrClosed
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO requests (id, user_id, provider, complexity, fallback, processing_time, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Provider, rec.Complexity, boolToInt(rec.Fallback),
		rec.ProcessingTime, rec.Confidence, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// Stats aggregates the full request log.
func (r *Recorder) Stats(ctx context.Context) (Stats, error) {
	if r == nil || r.db == nil {
		return Stats{}, ErrClosed
	}

	stats := Stats{ByProvider: make(map[string]int)}

	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(fallback), 0), COALESCE(AVG(confidence), 0) FROM requests`)
	if err := row.Scan(&stats.TotalRequests, &stats.Fallbacks, &stats.AvgConfidence); err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate requests: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT provider, COUNT(*) FROM requests GROUP BY provider`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate providers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var provider string
		var count int
		if err := rows.Scan(&provider, &count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan provider row: %w", err)
		}
		stats.ByProvider[provider] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("failed to read provider rows: %w", err)
	}

	return stats, nil
}

// Close releases the underlying database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

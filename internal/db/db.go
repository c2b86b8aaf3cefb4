// Package db provides optional PostgreSQL storage for batch run history.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Run represents a batch run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Input       string     `json:"input"`
	Model       string     `json:"model"`
	Status      string     `json:"status"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Total       int        `json:"total"`
	TotalCost   float64    `json:"total_cost"`
	Requests    int        `json:"requests"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateRun creates a new batch run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, input, model string, total int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO batch_runs (input, model, total, status)
		 VALUES ($1, $2, $3, 'running')
		 RETURNING id`,
		input, model, total,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun records the final counters of a batch run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, processed, failed, skipped, requests int, totalCost float64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE batch_runs
		 SET status = $1, processed = $2, failed = $3, skipped = $4,
		     requests = $5, total_cost = $6, completed_at = NOW()
		 WHERE id = $7`,
		status, processed, failed, skipped, requests, totalCost, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a batch run by ID. Returns (nil, nil) when not found.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, input, model, status, processed, failed, skipped, total,
		        total_cost, requests, created_at, completed_at
		 FROM batch_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Input, &run.Model, &run.Status, &run.Processed,
		&run.Failed, &run.Skipped, &run.Total, &run.TotalCost, &run.Requests,
		&run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves recent batch runs
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, input, model, status, processed, failed, skipped, total,
		        total_cost, requests, created_at, completed_at
		 FROM batch_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Input, &run.Model, &run.Status,
			&run.Processed, &run.Failed, &run.Skipped, &run.Total,
			&run.TotalCost, &run.Requests, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

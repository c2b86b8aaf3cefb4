package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/config"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/db"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/engine"
)

// runHistory records run outcomes in PostgreSQL when a database URL is
// configured. All failures are logged and swallowed: run history is an
// audit trail, never a reason to abort the batch.
type runHistory struct {
	database *db.DB
	runID    uuid.UUID
	logger   *slog.Logger
}

func newRunHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) *runHistory {
	if cfg.DatabaseURL == "" {
		return nil
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("run history disabled, database unreachable", "error", err)
		return nil
	}
	return &runHistory{database: database, logger: logger}
}

func (h *runHistory) start(ctx context.Context, input, model string, total int) {
	id, err := h.database.CreateRun(ctx, input, model, total)
	if err != nil {
		h.logger.Warn("failed to record run start", "error", err)
		return
	}
	h.runID = id
}

func (h *runHistory) finish(report *engine.Report) {
	if h.runID == uuid.Nil || report == nil {
		return
	}
	// The run context may already be cancelled; use a fresh one.
	err := h.database.CompleteRun(context.Background(), h.runID, string(report.Status),
		report.Processed, report.Failed, report.Skipped, report.Requests, report.TotalCost)
	if err != nil {
		h.logger.Warn("failed to record run completion", "error", err)
	}
}

func (h *runHistory) close() {
	h.database.Close()
}

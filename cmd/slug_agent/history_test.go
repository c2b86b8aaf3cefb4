package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/db"
)

func TestPrintRunList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		printRunList(&buf, nil)
		assert.Contains(t, buf.String(), "No runs recorded.")
	})

	t.Run("rows", func(t *testing.T) {
		id := uuid.New()
		runs := []db.Run{{
			ID:        id,
			Status:    "budget_exhausted",
			Processed: 5,
			Total:     10,
			TotalCost: 0.01,
			CreatedAt: time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
		}}

		var buf bytes.Buffer
		printRunList(&buf, runs)

		out := buf.String()
		assert.Contains(t, out, id.String())
		assert.Contains(t, out, "budget_exhausted")
		assert.Contains(t, out, "5/10")
		assert.Contains(t, out, "$0.0100")
		assert.Contains(t, out, "2026-08-29 10:30")
	})
}

func TestPrintRunDetail(t *testing.T) {
	completed := time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC)
	run := &db.Run{
		ID:          uuid.New(),
		Input:       "items.csv",
		Model:       "gemini-2.5-flash-lite",
		Status:      "completed",
		Processed:   10,
		Total:       10,
		Requests:    10,
		TotalCost:   0.02,
		CreatedAt:   time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
		CompletedAt: &completed,
	}

	var buf bytes.Buffer
	printRunDetail(&buf, run)

	out := buf.String()
	assert.Contains(t, out, "items.csv")
	assert.Contains(t, out, "10 / 10")
	assert.Contains(t, out, "Completed:  2026-08-29 11:00:00")
}

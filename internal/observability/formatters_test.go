package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/engine"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/progress"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

func TestPrintRunHeader(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunHeader("items.csv", 120, 5.0, "gemini-2.5-flash-lite", true, 40)

	out := buf.String()
	assert.Contains(t, out, "BATCH RUN")
	assert.Contains(t, out, "items.csv")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "$5.00")
	assert.Contains(t, out, "Resuming: from item 40")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProgress(progress.Snapshot{
		Processed: 9,
		Failed:    1,
		Total:     20,
		Percent:   50,
		Rate:      0.5,
		ETA:       20 * time.Second,
		ETAKnown:  true,
	})

	out := buf.String()
	assert.Contains(t, out, "[10/20]")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "ETA 20s")
}

func TestPrintProgress_UnknownETA(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProgress(progress.Snapshot{Total: 20})

	assert.Contains(t, buf.String(), "ETA unknown")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunSummary(&engine.Report{
		Status:      engine.StatusBudgetExhausted,
		Processed:   5,
		Failed:      0,
		Total:       10,
		TotalCost:   0.01,
		Requests:    5,
		Elapsed:     90 * time.Second,
		ResumeIndex: 5,
	})

	out := buf.String()
	assert.Contains(t, out, "RUN SUMMARY")
	assert.Contains(t, out, "budget_exhausted")
	assert.Contains(t, out, "5 / 10")
	assert.Contains(t, out, "$0.0100")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "Resume at:  item 5")
}

func TestPrintRunSummary_NilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary(nil)
	assert.Empty(t, buf.String())
}

func TestPrintFailures(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &engine.Report{
		Failures: []types.FailedItem{
			{Key: "https://blog.example.com/a", Reason: "content blocked by safety filter"},
			{Key: "https://blog.example.com/b", Reason: "transient failure after 3 attempts: overloaded"},
			{Key: "https://blog.example.com/c", Reason: "invalid response"},
			{Key: "https://blog.example.com/d", Reason: "invalid response"},
			{Key: "https://blog.example.com/e", Reason: "invalid response"},
			{Key: "https://blog.example.com/f", Reason: "invalid response"},
		},
	}
	p.PrintFailures(report)

	out := buf.String()
	assert.Contains(t, out, "FAILED ITEMS")
	assert.Contains(t, out, "Found 6 failures")
	assert.Contains(t, out, "... and 1 more failures")
}

func TestPrintFailures_EmptyIsNoop(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFailures(&engine.Report{})
	assert.Empty(t, buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}

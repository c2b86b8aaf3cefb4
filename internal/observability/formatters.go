// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/engine"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/progress"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunHeader outputs the run parameters before processing starts.
func (p *Printer) PrintRunHeader(input string, total int, maxBudget float64, model string, resuming bool, resumeIndex int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Input:    %s\n", input))
	sb.WriteString(fmt.Sprintf("Items:    %d\n", total))
	sb.WriteString(fmt.Sprintf("Budget:   $%.2f\n", maxBudget))
	sb.WriteString(fmt.Sprintf("Model:    %s", model))
	if resuming {
		sb.WriteString(fmt.Sprintf("\nResuming: from item %d", resumeIndex))
	}
	p.printBox("BATCH RUN", sb.String())
}

// PrintProgress outputs a single progress line. Meant to be called on each
// processed item; writes a plain line rather than a box so the output
// scrolls naturally.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(snap progress.Snapshot) {
	eta := "unknown"
	if snap.ETAKnown {
		eta = formatDuration(snap.ETA)
	}
	fmt.Fprintf(p.out, "[%d/%d] %.1f%% done, %d failed, %.2f items/min, ETA %s\n",
		snap.Processed+snap.Failed, snap.Total, snap.Percent, snap.Failed, snap.Rate*60, eta)
}

// PrintRunSummary outputs the final run report.
func (p *Printer) PrintRunSummary(report *engine.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:     %s\n", report.Status))
	sb.WriteString(fmt.Sprintf("Processed:  %d / %d\n", report.Processed, report.Total))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", report.Failed))
	sb.WriteString(fmt.Sprintf("Skipped:    %d (duplicates)\n", report.Skipped))
	sb.WriteString(fmt.Sprintf("Requests:   %d\n", report.Requests))
	sb.WriteString(fmt.Sprintf("Cost:       $%.4f\n", report.TotalCost))
	sb.WriteString(fmt.Sprintf("Elapsed:    %s", formatDuration(report.Elapsed)))
	if report.Status.Resumable() {
		sb.WriteString(fmt.Sprintf("\nResume at:  item %d", report.ResumeIndex))
	}
	p.printBox("RUN SUMMARY", sb.String())
}

// PrintFailures outputs the failed items, truncated to a short list.
func (p *Printer) PrintFailures(report *engine.Report) {
	if report == nil || len(report.Failures) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d failures:\n\n", len(report.Failures)))

	count := min(len(report.Failures), maxItemsToShow)
	for i := 0; i < count; i++ {
		f := report.Failures[i]
		key := f.Key
		if len(key) > 45 {
			key = key[:42] + "..."
		}
		reason := f.Reason
		if len(reason) > 45 {
			reason = reason[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s\n", key))
		sb.WriteString(fmt.Sprintf("  %s\n", reason))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(report.Failures) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more failures", len(report.Failures)-maxItemsToShow))
	}

	p.printBox("FAILED ITEMS", sb.String())
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m < 60 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%dh%dm", m/60, m%60)
}

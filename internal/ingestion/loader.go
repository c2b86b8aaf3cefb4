// Package ingestion loads work item lists from disk and optionally
// backfills missing titles by fetching the pages themselves.
package ingestion

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

var (
	// ErrUnsupportedFormat is returned for input files with an unknown extension
	ErrUnsupportedFormat = fmt.Errorf("unsupported input format")
	// ErrEmptyList is returned when the input file contains no usable items
	ErrEmptyList = fmt.Errorf("input contains no items")
)

// LoadItems reads a work item list from path. The format is chosen by
// extension: .csv (url,title columns), .jsonl (one JSON object per line
// with "url" and optional "title"), or .txt (one URL per line). Blank
// lines and lines starting with '#' are skipped in txt files.
func LoadItems(path string) ([]types.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var items []types.WorkItem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		items, err = loadCSV(f)
	case ".jsonl":
		items, err = loadJSONL(f)
	case ".txt":
		items, err = loadText(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyList, path)
	}
	return items, nil
}

func loadCSV(r io.Reader) ([]types.WorkItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // title column is optional

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	var items []types.WorkItem
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		url := strings.TrimSpace(record[0])
		// Tolerate a header row
		if i == 0 && strings.EqualFold(url, "url") {
			continue
		}
		if url == "" {
			continue
		}
		title := ""
		if len(record) > 1 {
			title = strings.TrimSpace(record[1])
		}
		items = append(items, types.WorkItem{Key: url, Payload: title})
	}
	return items, nil
}

type jsonlItem struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func loadJSONL(r io.Reader) ([]types.WorkItem, error) {
	var items []types.WorkItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item jsonlItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("failed to parse JSONL line %d: %w", lineNo, err)
		}
		if item.URL == "" {
			continue
		}
		items = append(items, types.WorkItem{Key: item.URL, Payload: item.Title})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return items, nil
}

func loadText(r io.Reader) ([]types.WorkItem, error) {
	var items []types.WorkItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, types.WorkItem{Key: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return items, nil
}

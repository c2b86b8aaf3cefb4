package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

const fetchUserAgent = "Mozilla/5.0 (compatible; slug-generator/1.0)"

// TitleFetcher backfills missing titles by fetching each page and reading
// its <title> (or og:title) tag. Fetch failures are non-fatal; items keep
// their empty payload and the generator falls back to the URL path.
type TitleFetcher struct {
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

// NewTitleFetcher creates a fetcher with a bounded worker count and
// per-request timeout.
func NewTitleFetcher(concurrency int, timeout time.Duration, logger *slog.Logger) *TitleFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleFetcher{
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		logger:      logger,
	}
}

// Backfill fetches titles for every item whose payload is empty, mutating
// the slice in place. It returns the number of titles filled.
func (f *TitleFetcher) Backfill(ctx context.Context, items []types.WorkItem) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	filled := make([]bool, len(items))
	for i := range items {
		if items[i].Payload != "" {
			continue
		}
		i := i
		g.Go(func() error {
			title, err := f.fetchTitle(ctx, items[i].Key)
			if err != nil {
				f.logger.Warn("title fetch failed", "url", items[i].Key, "error", err)
				return nil
			}
			items[i].Payload = title
			filled[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, ok := range filled {
		if ok {
			count++
		}
	}
	return count, nil
}

func (f *TitleFetcher) fetchTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Prefer og:title since page titles often carry site-name suffixes.
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title := strings.TrimSpace(og); title != "" {
			return title, nil
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "", fmt.Errorf("no title found")
	}
	return title, nil
}

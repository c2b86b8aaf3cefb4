package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/budget"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/generation"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/prompts"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/quality"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/schemas"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

// SlugGenerator implements generation.Generator on top of the Gemini client.
// It owns prompt construction, response schema validation, actual-cost
// derivation from reported token usage, and the mapping of provider errors
// onto outcome kinds.
type SlugGenerator struct {
	client  Client
	tier    ModelTier
	tmpl    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSlugGenerator creates a slug generator running on the given model tier.
// Each provider call is bounded by requestTimeout; zero disables the bound.
func NewSlugGenerator(client Client, tier ModelTier, requestTimeout time.Duration, logger *slog.Logger) (*SlugGenerator, error) {
	tmpl, err := prompts.Get("slugs.json", "generate_slug")
	if err != nil {
		return nil, fmt.Errorf("failed to load slug prompt: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlugGenerator{client: client, tier: tier, tmpl: tmpl, timeout: requestTimeout, logger: logger}, nil
}

// slugResponse is the JSON shape the model is instructed to produce.
type slugResponse struct {
	Slug         string   `json:"slug"`
	Alternatives []string `json:"alternatives"`
	Confidence   float64  `json:"confidence"`
}

// Generate produces one slug candidate for the item.
func (g *SlugGenerator) Generate(ctx context.Context, item types.WorkItem) generation.Outcome {
	if strings.TrimSpace(item.Key) == "" {
		return generation.Fatal("work item has no key", generation.ErrEmptyItem)
	}

	title := strings.TrimSpace(item.Payload)
	if title == "" {
		// No title available: the URL path words are the only signal.
		title = titleFromURL(item.Key)
	}
	if title == "" {
		return generation.Fatal("work item has neither title nor usable URL path", generation.ErrEmptyItem)
	}

	prompt := prompts.Format(g.tmpl, map[string]string{
		"URL":   item.Key,
		"Title": title,
	})

	// A hung provider call must not stall the whole run; a deadline here
	// surfaces as a transient timeout the retry loop can handle.
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.GenerateJSON(callCtx, prompt, g.tier)
	if err != nil {
		return classifyError(err)
	}

	if verr := schemas.ValidateSlugResponse([]byte(resp.Text)); verr != nil {
		g.logger.WarnContext(ctx, "schema-invalid slug response", "key", item.Key, "error", verr)
		return generation.Fatal(
			fmt.Sprintf("schema-invalid response: %v", verr),
			fmt.Errorf("%w: %v", generation.ErrInvalidResponse, verr),
		)
	}

	var parsed slugResponse
	if uerr := json.Unmarshal([]byte(resp.Text), &parsed); uerr != nil {
		return generation.Fatal(
			"unparseable response",
			fmt.Errorf("%w: %v", generation.ErrInvalidResponse, uerr),
		)
	}

	slug := quality.CleanSlug(parsed.Slug)
	if slug == "" {
		return generation.Fatal("empty slug in response", generation.ErrInvalidResponse)
	}

	var alternatives []string
	for _, alt := range parsed.Alternatives {
		cleaned := quality.CleanSlug(alt)
		if cleaned != "" && cleaned != slug {
			alternatives = append(alternatives, cleaned)
		}
	}

	cost := budget.ActualCost(g.client.GetModel(g.tier), resp.InputTokens, resp.OutputTokens)
	g.logger.DebugContext(ctx, "slug generated",
		"key", item.Key,
		"slug", slug,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens)

	return generation.Success(slug, alternatives, parsed.Confidence, cost)
}

// titleFromURL recovers title words from the last URL path segment.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	last = strings.TrimSuffix(last, ".html")
	for _, sep := range []string{"-", "_", "+"} {
		last = strings.ReplaceAll(last, sep, " ")
	}
	return strings.TrimSpace(last)
}

// classifyError maps a provider error onto an outcome kind. The mapping is
// driven by structured error codes, never by error message text.
func classifyError(err error) generation.Outcome {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return generation.RateLimited(fmt.Sprintf("provider rate limit (HTTP %d)", gerr.Code), err)
		case gerr.Code == 503:
			// Overloaded: retryable, but back off harder.
			return generation.Transient(fmt.Sprintf("provider overloaded (HTTP %d)", gerr.Code), true, err)
		case gerr.Code >= 500:
			return generation.Transient(fmt.Sprintf("provider error (HTTP %d)", gerr.Code), false, err)
		default:
			return generation.Fatal(fmt.Sprintf("provider rejected request (HTTP %d)", gerr.Code), err)
		}
	}

	if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
		return generation.Fatal(err.Error(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return generation.Transient("request timed out", false, err)
	}

	// Unknown errors are assumed transient so the bounded retry gets a
	// chance before the item is demoted.
	return generation.Transient(err.Error(), false, err)
}

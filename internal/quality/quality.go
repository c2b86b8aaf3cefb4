// Package quality scores generated slugs against structural rules. A bad
// slug is scored low and tagged, never rejected; skipping or retrying an
// item is an orchestrator decision, not a validator one.
package quality

import (
	"fmt"
	"regexp"
	"strings"
)

// Structural limits for a publishable slug.
const (
	MinWords = 3
	MaxWords = 10
	MaxChars = 60
)

// DefaultPenaltyPerIssue is the score deduction for each issue found.
const DefaultPenaltyPerIssue = 0.2

var slugCharset = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validator inspects artifacts and attaches a score and issue list.
type Validator struct {
	penalty float64
}

// NewValidator creates a validator with the given per-issue penalty.
// Non-positive penalties fall back to the default.
func NewValidator(penaltyPerIssue float64) *Validator {
	if penaltyPerIssue <= 0 {
		penaltyPerIssue = DefaultPenaltyPerIssue
	}
	return &Validator{penalty: penaltyPerIssue}
}

// Validate scores an artifact in [0, 1]. The score is 1.0 exactly when the
// issue list is empty; each issue deducts the configured penalty, floored
// at zero. Never fails: validation problems are data, not errors.
func (v *Validator) Validate(artifact string) (float64, []string) {
	var issues []string

	if strings.TrimSpace(artifact) == "" {
		issues = append(issues, "empty artifact")
	} else {
		if len(artifact) > MaxChars {
			issues = append(issues, fmt.Sprintf("too long: %d chars (max %d)", len(artifact), MaxChars))
		}

		words := len(strings.Split(artifact, "-"))
		if words < MinWords {
			issues = append(issues, fmt.Sprintf("too few words: %d (min %d)", words, MinWords))
		}
		if words > MaxWords {
			issues = append(issues, fmt.Sprintf("too many words: %d (max %d)", words, MaxWords))
		}

		if !slugCharset.MatchString(artifact) {
			issues = append(issues, "invalid characters: must be lowercase words separated by single hyphens")
		}
	}

	score := 1.0 - float64(len(issues))*v.penalty
	if score < 0 {
		score = 0
	}
	return score, issues
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	multiHyphen  = regexp.MustCompile(`-{2,}`)
)

// CleanSlug normalizes raw generator output into slug form: lowercase,
// non-alphanumeric runs collapsed to single hyphens, edges trimmed. It does
// not enforce length or word-count limits; those remain visible to Validate.
func CleanSlug(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

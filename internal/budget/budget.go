// Package budget enforces a hard spending ceiling on a batch run. Every unit
// of work is authorized before it starts and committed (or released) when it
// finishes, so the run can never overspend by more than one item's estimate
// even with concurrent workers.
package budget

import (
	"fmt"
	"sync"
)

// ModelPricing holds per-1K-token prices for one model.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// pricing is the fixed token-cost table. Unknown models fall back to
// defaultPricing rather than failing, since a wrong estimate only affects
// the safety margin, not correctness.
var pricing = map[string]ModelPricing{
	"gemini-2.5-flash-lite": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"gemini-2.5-flash":      {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gemini-2.5-pro":        {InputPer1K: 0.00125, OutputPer1K: 0.005},
}

var defaultPricing = ModelPricing{InputPer1K: 0.00015, OutputPer1K: 0.0006}

// Pricing returns the token pricing for a model.
func Pricing(model string) ModelPricing {
	if p, ok := pricing[model]; ok {
		return p
	}
	return defaultPricing
}

// ActualCost computes the real cost of a request from reported token counts.
func ActualCost(model string, inputTokens, outputTokens int) float64 {
	p := Pricing(model)
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}

// EstimateItem computes the pre-flight cost estimate for a single item,
// padded by the safety multiplier to absorb estimation error and pricing
// tier differences.
func EstimateItem(model string, promptTokens, outputTokens int, safetyMultiplier float64) float64 {
	if safetyMultiplier <= 0 {
		safetyMultiplier = 1
	}
	return ActualCost(model, promptTokens, outputTokens) * safetyMultiplier
}

// State is a snapshot of the guard's ledger.
type State struct {
	MaxBudget    float64 `json:"max_budget"`
	CurrentCost  float64 `json:"current_cost"`
	RequestsMade int     `json:"requests_made"`
}

// Guard tracks cumulative spend against a hard cap. Authorize reserves one
// item's estimate; Commit replaces the reservation with the actual cost and
// Release cancels it. Committed cost only ever grows. All methods are safe
// for concurrent use.
type Guard struct {
	mu           sync.Mutex
	maxBudget    float64
	perItem      float64
	committed    float64
	reserved     float64
	requestsMade int
}

// NewGuard creates a guard with a hard cap and a per-item estimate.
func NewGuard(maxBudget, perItemEstimate float64) (*Guard, error) {
	if maxBudget <= 0 {
		return nil, fmt.Errorf("max budget must be positive, got %g", maxBudget)
	}
	if perItemEstimate <= 0 {
		return nil, fmt.Errorf("per-item estimate must be positive, got %g", perItemEstimate)
	}
	return &Guard{maxBudget: maxBudget, perItem: perItemEstimate}, nil
}

// Estimate returns the projected cost of processing n items.
func (g *Guard) Estimate(n int) float64 {
	return float64(n) * g.perItem
}

// PerItemEstimate returns the estimate reserved per authorization.
func (g *Guard) PerItemEstimate() float64 {
	return g.perItem
}

// Authorize reserves budget for one item. Returns false when the reservation
// would push committed plus in-flight spend past the cap. A false return is
// a normal stop signal, not an error.
func (g *Guard) Authorize() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.committed+g.reserved+g.perItem > g.maxBudget {
		return false
	}
	g.reserved += g.perItem
	return true
}

// Commit settles one reservation at its actual cost. When the actual cost is
// unknown (zero or negative) the estimate stands.
func (g *Guard) Commit(actual float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reserved -= g.perItem
	if g.reserved < 0 {
		g.reserved = 0
	}
	if actual <= 0 {
		actual = g.perItem
	}
	g.committed += actual
	g.requestsMade++
}

// Release cancels one reservation after a failed attempt. The attempt still
// counts toward requests made.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reserved -= g.perItem
	if g.reserved < 0 {
		g.reserved = 0
	}
	g.requestsMade++
}

// Restore seeds the committed ledger from a prior run's checkpoint.
func (g *Guard) Restore(committed float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if committed > g.committed {
		g.committed = committed
	}
}

// Snapshot returns a copy of the ledger.
func (g *Guard) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		MaxBudget:    g.maxBudget,
		CurrentCost:  g.committed,
		RequestsMade: g.requestsMade,
	}
}

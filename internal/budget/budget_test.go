package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGuard_RejectsInvalidInputs(t *testing.T) {
	_, err := NewGuard(0, 0.002)
	assert.Error(t, err)

	_, err = NewGuard(1.0, 0)
	assert.Error(t, err)

	_, err = NewGuard(1.0, -0.5)
	assert.Error(t, err)
}

func TestAuthorize_StopsAtCap(t *testing.T) {
	// budget = $0.01, per-item estimate = $0.002 -> exactly 5 authorizations
	guard, err := NewGuard(0.01, 0.002)
	require.NoError(t, err)

	authorized := 0
	for guard.Authorize() {
		guard.Commit(0) // unknown actual, estimate stands
		authorized++
	}

	assert.Equal(t, 5, authorized)
	state := guard.Snapshot()
	assert.InDelta(t, 0.01, state.CurrentCost, 1e-12)
	assert.Equal(t, 5, state.RequestsMade)
}

func TestCommit_UsesActualWhenKnown(t *testing.T) {
	guard, err := NewGuard(1.0, 0.01)
	require.NoError(t, err)

	require.True(t, guard.Authorize())
	guard.Commit(0.003)

	state := guard.Snapshot()
	assert.InDelta(t, 0.003, state.CurrentCost, 1e-12)
}

func TestRelease_FreesReservation(t *testing.T) {
	guard, err := NewGuard(0.004, 0.002)
	require.NoError(t, err)

	require.True(t, guard.Authorize())
	require.True(t, guard.Authorize())
	// Cap reached with two in-flight reservations.
	assert.False(t, guard.Authorize())

	guard.Release()
	assert.True(t, guard.Authorize())

	state := guard.Snapshot()
	assert.Zero(t, state.CurrentCost)
	assert.Equal(t, 1, state.RequestsMade)
}

func TestGuard_NeverExceedsCapUnderConcurrency(t *testing.T) {
	guard, err := NewGuard(0.1, 0.002) // room for exactly 50 items
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	authorized := 0

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if !guard.Authorize() {
					return
				}
				guard.Commit(0)
				mu.Lock()
				authorized++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, authorized)
	state := guard.Snapshot()
	assert.LessOrEqual(t, state.CurrentCost, state.MaxBudget+guard.PerItemEstimate())
}

func TestRestore_SeedsCommittedCost(t *testing.T) {
	guard, err := NewGuard(0.01, 0.002)
	require.NoError(t, err)

	guard.Restore(0.008)
	assert.InDelta(t, 0.008, guard.Snapshot().CurrentCost, 1e-12)

	// Only one more item fits under the cap.
	assert.True(t, guard.Authorize())
	guard.Commit(0)
	assert.False(t, guard.Authorize())
}

func TestEstimate(t *testing.T) {
	guard, err := NewGuard(1.0, 0.002)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, guard.Estimate(10), 1e-12)
}

func TestEstimateItem_AppliesSafetyMultiplier(t *testing.T) {
	base := ActualCost("gemini-2.5-flash-lite", 500, 100)
	padded := EstimateItem("gemini-2.5-flash-lite", 500, 100, 1.5)
	assert.InDelta(t, base*1.5, padded, 1e-12)

	// Non-positive multiplier falls back to 1x.
	assert.InDelta(t, base, EstimateItem("gemini-2.5-flash-lite", 500, 100, 0), 1e-12)
}

func TestPricing_UnknownModelFallsBack(t *testing.T) {
	p := Pricing("some-future-model")
	assert.Equal(t, defaultPricing, p)
}

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImpliedProbability(t *testing.T) {
	assert.InDelta(t, 0.5, ImpliedProbability(2.0), 1e-9)
	assert.InDelta(t, 0.25, ImpliedProbability(4.0), 1e-9)
	assert.Zero(t, ImpliedProbability(0))
	assert.Zero(t, ImpliedProbability(-1.5))
}

func TestArbitrageMargin(t *testing.T) {
	// A fair coin flip priced at 2.0/2.0 carries no margin.
	assert.InDelta(t, 1.0, ArbitrageMargin([]float64{2.0, 2.0}), 1e-9)

	// A typical book prices over 100%.
	assert.InDelta(t, 1.0526, ArbitrageMargin([]float64{1.9, 1.9}), 1e-3)

	// Non-positive odds are ignored rather than poisoning the sum.
	assert.InDelta(t, 0.5, ArbitrageMargin([]float64{2.0, 0, -3}), 1e-9)
}

func TestIsArbitrageOpportunity(t *testing.T) {
	assert.True(t, IsArbitrageOpportunity([]float64{2.1, 2.1}))
	assert.False(t, IsArbitrageOpportunity([]float64{1.9, 1.9}))
	assert.False(t, IsArbitrageOpportunity([]float64{2.0, 2.0}), "exact 100% is not an opportunity")
	assert.False(t, IsArbitrageOpportunity(nil))
}

func TestExpectedValue(t *testing.T) {
	// Fair odd at the true probability is EV-zero.
	assert.InDelta(t, 0, ExpectedValue(2.0, 0.5, 100), 1e-9)

	// Positive edge: 55% true probability at even money.
	assert.InDelta(t, 10, ExpectedValue(2.0, 0.55, 100), 1e-9)

	// Negative edge.
	assert.InDelta(t, -10, ExpectedValue(2.0, 0.45, 100), 1e-9)
}

func TestKellyStake(t *testing.T) {
	// b=1, p=0.55 -> f* = 0.10 of bankroll at full Kelly.
	assert.InDelta(t, 100, KellyStake(2.0, 0.55, 1000, 1.0), 1e-6)

	// Fractional Kelly scales linearly.
	assert.InDelta(t, 25, KellyStake(2.0, 0.55, 1000, 0.25), 1e-6)

	// No edge or negative edge sizes to zero.
	assert.Zero(t, KellyStake(2.0, 0.5, 1000, 1.0))
	assert.Zero(t, KellyStake(2.0, 0.4, 1000, 1.0))

	// Odds at or below even have no positive b.
	assert.Zero(t, KellyStake(1.0, 0.9, 1000, 1.0))
}

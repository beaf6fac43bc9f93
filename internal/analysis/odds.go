// Package analysis holds the pure financial formulas applied to extracted
// odds: implied probability, market margin, expected value and Kelly sizing.
// Stateless; consumed downstream of the extraction engine.
package analysis

// ImpliedProbability converts a decimal odd into its implied probability.
// Non-positive odds yield 0.
func ImpliedProbability(odd float64) float64 {
	if odd <= 0 {
		return 0
	}
	return 1 / odd
}

// ArbitrageMargin computes the market margin (vigorish) as the sum of
// implied probabilities over all outcomes of one market.
func ArbitrageMargin(odds []float64) float64 {
	var margin float64
	for _, odd := range odds {
		if odd > 0 {
			margin += 1 / odd
		}
	}
	return margin
}

// IsArbitrageOpportunity reports whether the odds of a complete market sum to
// under 100% implied probability, i.e. a surebet exists.
func IsArbitrageOpportunity(odds []float64) bool {
	margin := ArbitrageMargin(odds)
	return margin > 0 && margin < 1
}

// ExpectedValue computes the monetary EV of a stake at the offered odd given
// an estimated true win probability:
//
//	EV = p*profit - (1-p)*stake
func ExpectedValue(odd, trueProbability, stake float64) float64 {
	profit := odd*stake - stake
	return trueProbability*profit - (1-trueProbability)*stake
}

// KellyStake sizes a bet with the Kelly criterion f* = (b*p - q) / b, where b
// is the net decimal odd. fraction scales f* down (fractional Kelly); a
// negative edge sizes to zero.
func KellyStake(odd, trueProbability, bankroll, fraction float64) float64 {
	b := odd - 1
	if b <= 0 {
		return 0
	}
	p := trueProbability
	q := 1 - p

	fStar := (b*p - q) / b
	if fStar < 0 {
		fStar = 0
	}
	return fStar * fraction * bankroll
}

package service

import "CoinPulse/internal/domain/models"

// PathGenerator produces the next fractional price change for one instrument.
// Implementations must be pure given their inputs: the updated scenario and
// volatility states are returned, never mutated in place, so a single call is
// testable in isolation and per-instrument state stays isolated.
type PathGenerator interface {
	Next(mode models.TrendMode, scen models.ScenarioState, vol models.VolatilityState) (delta float64, nextScen models.ScenarioState, nextVol models.VolatilityState)

	// SetupVolatility seeds a fresh per-instrument volatility baseline.
	SetupVolatility() models.VolatilityState

	// WickJitter returns a small non-negative fraction used to pad candle
	// highs/lows with believable wick noise.
	WickJitter() float64

	// Chance reports true with probability p.
	Chance(p float64) bool
}

// Package pricing implements the synthetic price path generator. All
// arithmetic is done in percent space: regime drift, scenario effects and
// Gaussian noise are summed as percentages and divided by 100 once at the end
// to produce a fractional price change.
package pricing

import (
	"math"
	"math/rand"
	"time"

	"CoinPulse/internal/domain/models"
	domsvc "CoinPulse/internal/domain/service"
)

// Generator produces regime-driven fractional price deltas. Each instrument
// runner owns its own Generator (and therefore its own rng), so generation
// for different instruments never contends on shared state.
type Generator struct {
	rng *rand.Rand
}

// New creates a Generator. A non-positive seed uses the clock, which is what
// production wants; tests pass a fixed seed for reproducible paths.
func New(seed int64) *Generator {
	if seed <= 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

var _ domsvc.PathGenerator = (*Generator)(nil)

// Next returns the next fractional price change for the given regime, plus
// the advanced scenario and volatility states. The input states are values;
// callers must adopt the returned copies as the new state.
func (g *Generator) Next(mode models.TrendMode, scen models.ScenarioState, vol models.VolatilityState) (float64, models.ScenarioState, models.VolatilityState) {
	pct := g.drift(mode)

	eff, scen := ScenarioEffect(mode, scen, g.rng.Float64())
	pct += eff
	if eff >= 1 || eff <= -1 {
		scen.LastMajorMove = time.Now()
	}

	pct += g.gaussian() * vol.Base

	// Slow random perturbation of the noise baseline.
	vol.Base += (g.rng.Float64() - 0.5) * 0.1
	if vol.Base < 0.2 {
		vol.Base = 0.2
	}
	if vol.Base > 2.0 {
		vol.Base = 2.0
	}

	return pct / 100, scen, vol
}

// drift is the random directional component in percent.
func (g *Generator) drift(mode models.TrendMode) float64 {
	switch mode {
	case models.TrendUp:
		return 10 + g.rng.Float64()*10 // +10%..+20%
	case models.TrendDown:
		return -(10 + g.rng.Float64()*10) // -20%..-10%
	default:
		// Normal and every scenario regime walk on top of this.
		return -5 + g.rng.Float64()*10 // -5%..+5%
	}
}

// ScenarioEffect returns the patterned regime contribution in percent and the
// advanced scenario state. It is deterministic given its inputs: the only
// random ingredient, the spike magnitude for Scenario4/5, is supplied by the
// caller as u in [0,1).
func ScenarioEffect(mode models.TrendMode, scen models.ScenarioState, u float64) (float64, models.ScenarioState) {
	switch mode {
	case models.TrendScenario1:
		// Gradual rise with corrections.
		eff := math.Sin(float64(scen.Counter)/10) * 0.5
		scen.Counter++
		return eff, scen

	case models.TrendScenario2:
		// Sawtooth: 7 ticks up, 3 ticks down.
		eff := 0.3
		if scen.Counter%10 >= 7 {
			eff = -0.7
		}
		scen.Counter++
		return eff, scen

	case models.TrendScenario3:
		// Sine wave.
		eff := math.Sin(scen.Phase) * 0.8
		scen.Phase += 0.2
		return eff, scen

	case models.TrendScenario4:
		// Spike up, every 3rd step partially reverts.
		eff := 2 + u*0.5
		if scen.Step%3 == 2 {
			eff *= -0.7
		}
		scen.Step++
		return eff, scen

	case models.TrendScenario5:
		// Spike down, every 4th step partially reverts.
		eff := -(2 + u*0.5)
		if scen.Step%4 == 3 {
			eff *= -0.7
		}
		scen.Step++
		return eff, scen

	default:
		return 0, scen
	}
}

// gaussian draws a standard normal via the Box-Muller transform.
func (g *Generator) gaussian() float64 {
	u1 := g.rng.Float64()
	for u1 == 0 {
		u1 = g.rng.Float64()
	}
	u2 := g.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// SetupVolatility seeds a fresh noise baseline in [0.5, 1.5).
func (g *Generator) SetupVolatility() models.VolatilityState {
	return models.VolatilityState{Base: 0.5 + g.rng.Float64()}
}

// WickJitter returns a uniform fraction in [0, 0.005) for high/low padding.
func (g *Generator) WickJitter() float64 {
	return g.rng.Float64() * 0.005
}

// Chance reports true with probability p.
func (g *Generator) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return g.rng.Float64() < p
}

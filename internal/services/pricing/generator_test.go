package pricing

import (
	"math"
	"testing"

	"CoinPulse/internal/domain/models"
)

func TestScenario1GradualRiseShape(t *testing.T) {
	// Slow sine over the counter, half amplitude.
	scen := models.ScenarioState{}
	for i := 0; i < 40; i++ {
		eff, next := ScenarioEffect(models.TrendScenario1, scen, 0)
		want := math.Sin(float64(i)/10) * 0.5
		if math.Abs(eff-want) > 1e-12 {
			t.Fatalf("counter %d: got %v, want %v", i, eff, want)
		}
		if next.Counter != i+1 {
			t.Fatalf("counter not advanced: %d -> %d", i, next.Counter)
		}
		scen = next
	}
}

func TestScenario2SawtoothSign(t *testing.T) {
	// Counters 0-6 (mod 10) must contribute positively, 7-9 negatively,
	// independent of the noise term.
	scen := models.ScenarioState{}
	for i := 0; i < 30; i++ {
		pos := i%10 < 7
		eff, next := ScenarioEffect(models.TrendScenario2, scen, 0)
		if pos && eff <= 0 {
			t.Errorf("counter %d: expected positive effect, got %v", i, eff)
		}
		if !pos && eff >= 0 {
			t.Errorf("counter %d: expected negative effect, got %v", i, eff)
		}
		if next.Counter != scen.Counter+1 {
			t.Fatalf("counter not advanced: %d -> %d", scen.Counter, next.Counter)
		}
		scen = next
	}
}

func TestScenario3SinePhase(t *testing.T) {
	scen := models.ScenarioState{Phase: math.Pi / 2}
	eff, next := ScenarioEffect(models.TrendScenario3, scen, 0)
	if math.Abs(eff-0.8) > 1e-9 {
		t.Errorf("sin peak: got %v, want 0.8", eff)
	}
	if math.Abs(next.Phase-(math.Pi/2+0.2)) > 1e-9 {
		t.Errorf("phase not advanced: got %v", next.Phase)
	}
}

func TestScenario4SpikeAndReversion(t *testing.T) {
	scen := models.ScenarioState{}
	var effs []float64
	for i := 0; i < 6; i++ {
		var eff float64
		eff, scen = ScenarioEffect(models.TrendScenario4, scen, 0.5)
		effs = append(effs, eff)
	}
	for i, eff := range effs {
		if i%3 == 2 {
			if eff >= 0 {
				t.Errorf("step %d: expected reversion (<0), got %v", i, eff)
			}
		} else if eff < 2 {
			t.Errorf("step %d: expected spike >= 2, got %v", i, eff)
		}
	}
}

func TestScenario5MirrorsScenario4(t *testing.T) {
	scen := models.ScenarioState{}
	for i := 0; i < 8; i++ {
		var eff float64
		eff, scen = ScenarioEffect(models.TrendScenario5, scen, 0.25)
		if i%4 == 3 {
			if eff <= 0 {
				t.Errorf("step %d: expected upward reversion, got %v", i, eff)
			}
		} else if eff > -2 {
			t.Errorf("step %d: expected spike <= -2, got %v", i, eff)
		}
	}
}

func TestScenarioEffectZeroForPlainRegimes(t *testing.T) {
	for _, mode := range []models.TrendMode{models.TrendUp, models.TrendDown, models.TrendNormal} {
		scen := models.ScenarioState{Counter: 3, Phase: 1.5}
		eff, next := ScenarioEffect(mode, scen, 0.9)
		if eff != 0 {
			t.Errorf("%s: expected zero effect, got %v", mode, eff)
		}
		if next != scen {
			t.Errorf("%s: state must not advance, got %+v", mode, next)
		}
	}
}

func TestUpTrendDeltaBounds(t *testing.T) {
	// With zero noise (vol.Base=0) the Up regime must land in [0.10, 0.20].
	g := New(42)
	scen := models.ScenarioState{}
	vol := models.VolatilityState{Base: 0}
	for i := 0; i < 200; i++ {
		var delta float64
		delta, scen, vol = g.Next(models.TrendUp, scen, vol)
		vol.Base = 0 // pin noise off for the bound check
		if delta < 0.10 || delta > 0.20 {
			t.Fatalf("iteration %d: up delta %v outside [0.10, 0.20]", i, delta)
		}
	}
}

func TestDownTrendDeltaBounds(t *testing.T) {
	g := New(42)
	vol := models.VolatilityState{Base: 0}
	for i := 0; i < 200; i++ {
		var delta float64
		delta, _, vol = g.Next(models.TrendDown, models.ScenarioState{}, vol)
		vol.Base = 0
		if delta < -0.20 || delta > -0.10 {
			t.Fatalf("iteration %d: down delta %v outside [-0.20, -0.10]", i, delta)
		}
	}
}

func TestNormalTrendDeltaBounds(t *testing.T) {
	g := New(7)
	vol := models.VolatilityState{Base: 0}
	for i := 0; i < 200; i++ {
		var delta float64
		delta, _, vol = g.Next(models.TrendNormal, models.ScenarioState{}, vol)
		vol.Base = 0
		if delta < -0.05 || delta > 0.05 {
			t.Fatalf("iteration %d: normal delta %v outside [-0.05, 0.05]", i, delta)
		}
	}
}

func TestNextDoesNotMutateInput(t *testing.T) {
	g := New(1)
	scen := models.ScenarioState{Counter: 5}
	vol := models.VolatilityState{Base: 1}
	_, _, _ = g.Next(models.TrendScenario2, scen, vol)
	if scen.Counter != 5 {
		t.Errorf("input scenario state mutated: %+v", scen)
	}
	if vol.Base != 1 {
		t.Errorf("input volatility state mutated: %+v", vol)
	}
}

func TestVolatilityBaseStaysClamped(t *testing.T) {
	g := New(99)
	vol := g.SetupVolatility()
	if vol.Base < 0.5 || vol.Base >= 1.5 {
		t.Fatalf("setup base %v outside [0.5, 1.5)", vol.Base)
	}
	for i := 0; i < 1000; i++ {
		_, _, vol = g.Next(models.TrendNormal, models.ScenarioState{}, vol)
		if vol.Base < 0.2 || vol.Base > 2.0 {
			t.Fatalf("iteration %d: base %v escaped [0.2, 2.0]", i, vol.Base)
		}
	}
}

func TestWickJitterRange(t *testing.T) {
	g := New(3)
	for i := 0; i < 1000; i++ {
		j := g.WickJitter()
		if j < 0 || j >= 0.005 {
			t.Fatalf("jitter %v outside [0, 0.005)", j)
		}
	}
}

func TestFixedSeedIsReproducible(t *testing.T) {
	a, b := New(1234), New(1234)
	scenA, scenB := models.ScenarioState{}, models.ScenarioState{}
	volA, volB := models.VolatilityState{Base: 1}, models.VolatilityState{Base: 1}
	for i := 0; i < 50; i++ {
		var da, db float64
		da, scenA, volA = a.Next(models.TrendScenario3, scenA, volA)
		db, scenB, volB = b.Next(models.TrendScenario3, scenB, volB)
		if da != db {
			t.Fatalf("iteration %d: same seed diverged: %v vs %v", i, da, db)
		}
	}
}

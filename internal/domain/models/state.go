package models

import "time"

// ScenarioState carries the per-instrument counters that make patterned
// regimes (sawtooth, sine, spike-and-decay) produce continuous shapes across
// ticks. It is an explicit value: the generator returns the updated copy and
// callers must treat that as the new state. Reset to the zero value whenever
// the global trend changes; never persisted.
type ScenarioState struct {
	Counter       int
	Phase         float64
	Step          int
	LastMajorMove time.Time
}

// VolatilityState is the per-instrument noise amplitude. Base is randomized
// once at setup so instruments don't all breathe in lockstep, then slowly
// perturbed each tick.
type VolatilityState struct {
	Base float64
}

package models

import (
	"fmt"
	"time"
)

// InstrumentKind classifies how an instrument gets its prices.
type InstrumentKind string

const (
	// KindLive mirrors an external price feed; the engine never generates for it.
	KindLive InstrumentKind = "live"
	// KindOTC is an entirely generator-driven synthetic pair.
	KindOTC InstrumentKind = "otc"
	// KindForex is a generator-driven forex-style instrument.
	KindForex InstrumentKind = "forex"
)

// IsValidKind reports whether k is a known instrument kind.
func IsValidKind(k InstrumentKind) bool {
	switch k {
	case KindLive, KindOTC, KindForex:
		return true
	default:
		return false
	}
}

// Instrument is the durable registry record of one tradable instrument.
type Instrument struct {
	Symbol           string        `json:"symbol"`
	Kind             InstrumentKind `json:"kind"`
	BasePrice        float64       `json:"basePrice"`
	PayoutPercentage float64       `json:"payoutPercentage"`
	SelectedInterval Interval      `json:"selectedInterval"`
	CurrentTrend     TrendMode     `json:"currentTrend"`
	CurrentDuration  Interval      `json:"currentDuration"`
	LastPrice        float64       `json:"lastPrice,omitempty"`
	LastUpdated      time.Time     `json:"lastUpdated,omitempty"`
}

// Validate checks the configuration-level invariants. A non-positive base
// price would poison the generator with NaN/Inf downstream, so it is rejected
// here, at setup time.
func (i *Instrument) Validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !IsValidKind(i.Kind) {
		return fmt.Errorf("unknown instrument kind %q", i.Kind)
	}
	if i.BasePrice <= 0 {
		return fmt.Errorf("base price must be > 0, got %v", i.BasePrice)
	}
	if i.PayoutPercentage < 0 || i.PayoutPercentage > 100 {
		return fmt.Errorf("payout percentage must be in [0,100], got %v", i.PayoutPercentage)
	}
	if !IsValidInterval(i.SelectedInterval) {
		return fmt.Errorf("unsupported interval %q", i.SelectedInterval)
	}
	return nil
}

// Generated reports whether the engine should drive this instrument.
func (i *Instrument) Generated() bool {
	return i.Kind != KindLive
}

package models

import (
	"fmt"
	"time"
)

// TrendMode is the closed set of pricing regimes. String-typed so it
// serialises cleanly, but all dispatch goes through the enum values below.
// Unknown strings are rejected at parse time, never silently treated as
// Normal.
type TrendMode string

const (
	TrendUp        TrendMode = "up"
	TrendDown      TrendMode = "down"
	TrendNormal    TrendMode = "normal"
	TrendScenario1 TrendMode = "scenario1"
	TrendScenario2 TrendMode = "scenario2"
	TrendScenario3 TrendMode = "scenario3"
	TrendScenario4 TrendMode = "scenario4"
	TrendScenario5 TrendMode = "scenario5"
)

// AllTrendModes lists every valid regime, in a stable order.
func AllTrendModes() []TrendMode {
	return []TrendMode{
		TrendUp, TrendDown, TrendNormal,
		TrendScenario1, TrendScenario2, TrendScenario3, TrendScenario4, TrendScenario5,
	}
}

// DefaultTrend is the regime used when no TrendRecord exists yet.
func DefaultTrend() TrendMode { return TrendNormal }

// ParseTrendMode validates a raw mode string.
func ParseTrendMode(s string) (TrendMode, error) {
	m := TrendMode(s)
	switch m {
	case TrendUp, TrendDown, TrendNormal,
		TrendScenario1, TrendScenario2, TrendScenario3, TrendScenario4, TrendScenario5:
		return m, nil
	default:
		return "", fmt.Errorf("unknown trend mode %q", s)
	}
}

// TrendRecord is one entry of the append-only operator trend log.
type TrendRecord struct {
	Mode      TrendMode `json:"mode"`
	UpdatedAt time.Time `json:"updatedAt"`
}

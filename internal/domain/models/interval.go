package models

import "time"

// Interval is a candle bucket width label. An instrument generates at exactly
// one interval at a time, but historical candles keep the label they were
// created under.
type Interval string

const (
	Interval30s Interval = "30s"
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
)

var intervalDurations = map[Interval]time.Duration{
	Interval30s: 30 * time.Second,
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval1h:  time.Hour,
}

// IsValidInterval reports whether iv is a supported candle interval.
func IsValidInterval(iv Interval) bool {
	_, ok := intervalDurations[iv]
	return ok
}

// DefaultInterval returns the interval new instruments generate at.
func DefaultInterval() Interval { return Interval30s }

// Duration returns the bucket width. Unknown labels fall back to the default
// so a stale label in persisted state can never produce a zero-period ticker.
func (iv Interval) Duration() time.Duration {
	if d, ok := intervalDurations[iv]; ok {
		return d
	}
	return intervalDurations[DefaultInterval()]
}

// NormalizeInterval converts a raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

package models

import (
	"encoding/json"
	"time"
)

// Candle is a single OHLC record. Immutable after construction.
type Candle struct {
	Time     time.Time `json:"time"` // bucket start, aligned to Interval
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Interval Interval  `json:"interval"`
}

// NewCandle builds a candle from open/close plus wick extremes, normalising
// high/low so the invariant low <= min(open,close) <= max(open,close) <= high
// holds no matter what the caller passed.
func NewCandle(bucket time.Time, open, high, low, close float64, iv Interval) Candle {
	body := open
	if close > body {
		body = close
	}
	if high < body {
		high = body
	}
	body = open
	if close < body {
		body = close
	}
	if low > body {
		low = body
	}
	return Candle{
		Time:     bucket.Truncate(iv.Duration()),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    close,
		Interval: iv,
	}
}

// Valid reports whether the OHLC invariant holds.
func (c *Candle) Valid() bool {
	lo, hi := c.Open, c.Open
	if c.Close < lo {
		lo = c.Close
	}
	if c.Close > hi {
		hi = c.Close
	}
	return c.Low <= lo && hi <= c.High
}

// JSON returns the JSON-encoded candle (errors ignored for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

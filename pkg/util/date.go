package util

import (
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// AlignFromTo rounds the time range to boundaries for the candle interval.
func AlignFromTo(from, to time.Time, interval string) (time.Time, time.Time) {
    d := IntervalDuration(interval)
    return from.Truncate(d), to.Truncate(d)
}

// IntervalDuration maps an interval label to its duration, defaulting to 30s.
func IntervalDuration(interval string) time.Duration {
    switch interval {
    case "30s":
        return 30 * time.Second
    case "1m":
        return time.Minute
    case "5m":
        return 5 * time.Minute
    case "15m":
        return 15 * time.Minute
    case "1h":
        return time.Hour
    default:
        return 30 * time.Second
    }
}
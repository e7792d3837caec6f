package util

import "testing"

func TestParseIntDefault(t *testing.T) {
    if got := ParseIntDefault("42", 7); got != 42 {
        t.Fatalf("got %d", got)
    }
    if got := ParseIntDefault("", 7); got != 7 {
        t.Fatalf("empty must fall back: got %d", got)
    }
    if got := ParseIntDefault("x", 7); got != 7 {
        t.Fatalf("invalid must fall back: got %d", got)
    }
}

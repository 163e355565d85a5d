package cliutil

import (
	"strings"
	"time"

	units "github.com/docker/go-units"
)

// FormatBytes renders a byte count the way the tables show memory.
func FormatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}
	return units.BytesSize(float64(b))
}

// FormatCPUTime renders cumulative CPU time, second-granular.
func FormatCPUTime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Truncate(time.Second).String()
}

// Truncate bounds a display string to max runes, collapsing newlines.
func Truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

package procs

import (
	"fmt"
	"sort"
	"strings"
)

// SortMode selects the snapshot presentation order.
type SortMode string

const (
	SortRSS  SortMode = "rss"
	SortCPU  SortMode = "cpu"
	SortName SortMode = "name"
	SortPID  SortMode = "pid"
)

// SortModes lists the supported modes in cycle order.
var SortModes = []SortMode{SortRSS, SortCPU, SortName, SortPID}

// ParseSortMode validates a textual sort mode.
func ParseSortMode(s string) (SortMode, error) {
	mode := SortMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SortModes {
		if mode == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown sort mode %q (expected rss, cpu, name or pid)", s)
}

// Next returns the mode following m in the cycle order.
func (m SortMode) Next() SortMode {
	for i, known := range SortModes {
		if m == known {
			return SortModes[(i+1)%len(SortModes)]
		}
	}
	return SortRSS
}

// Sort orders records in place. RSS and CPU sort descending, name sorts
// case-insensitively ascending, pid ascending. Ties fall back to PID so
// the order is stable across refreshes.
func Sort(records []Record, mode SortMode) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch mode {
		case SortCPU:
			if a.CPUPercent != b.CPUPercent {
				return a.CPUPercent > b.CPUPercent
			}
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		case SortPID:
			return a.PID < b.PID
		default:
			if a.RSS != b.RSS {
				return a.RSS > b.RSS
			}
		}
		return a.PID < b.PID
	})
}

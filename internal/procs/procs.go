package procs

import (
	"context"
	"time"
)

// Record describes one process observed in a snapshot. Records are
// immutable; every refresh replaces them wholesale.
type Record struct {
	PID        int32
	PPID       int32
	Name       string
	Cmdline    string
	User       string
	RSS        uint64
	CPUPercent float64
	CPUTime    time.Duration
	StartedAt  time.Time
	Container  string
}

// Identity names a process across snapshots. A PID alone is not enough:
// the kernel recycles PID numbers, so the start time disambiguates.
type Identity struct {
	PID       int32
	StartedMS int64
}

// Identity returns the snapshot-stable identity for the record.
func (r Record) Identity() Identity {
	return Identity{PID: r.PID, StartedMS: r.StartedAt.UnixMilli()}
}

// Snapshot is one point-in-time enumeration of the process table.
type Snapshot struct {
	TakenAt time.Time
	Elapsed time.Duration
	Records []Record
}

// Contains reports whether the snapshot still holds the given identity.
func (s *Snapshot) Contains(id Identity) bool {
	if s == nil {
		return false
	}
	for _, rec := range s.Records {
		if rec.Identity() == id {
			return true
		}
	}
	return false
}

// Details carries the per-process attributes shown in the details pane.
// Any attribute may be empty when the kernel refuses or the process is gone.
type Details struct {
	PID     int32
	Cmdline string
	Cwd     string
	RSS     uint64
	CPUTime time.Duration
}

// Provider produces process snapshots and per-PID details. The system
// implementation reads live OS state; tests inject fakes.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Details(ctx context.Context, pid int32) (*Details, error)
}

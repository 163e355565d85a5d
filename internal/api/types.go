package api

import (
	stdcontext "context"
	"errors"
	"time"
)

// ErrUnavailable indicates the snapshot provider cannot serve requests.
var ErrUnavailable = errors.New("snapshot provider unavailable")

// ProcessReport describes one process record for API consumers. Command
// lines are redacted before they reach this struct.
type ProcessReport struct {
	PID        int32     `json:"pid"`
	PPID       int32     `json:"ppid"`
	Name       string    `json:"name"`
	User       string    `json:"user"`
	Cmdline    string    `json:"cmdline"`
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	CPUSeconds float64   `json:"cpu_seconds"`
	StartedAt  time.Time `json:"started_at"`
	Container  string    `json:"container,omitempty"`
}

// SnapshotReport aggregates one process table enumeration.
type SnapshotReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	DurationMS  int64           `json:"duration_ms"`
	Processes   []ProcessReport `json:"processes"`
}

// Controller exposes the read-only operations required by the HTTP
// server. There is deliberately no remote kill.
type Controller interface {
	Processes(stdcontext.Context) (*SnapshotReport, error)
}

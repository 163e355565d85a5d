package cli

import (
	stdcontext "context"

	"github.com/fastkill/fastkill/internal/api"
	"github.com/fastkill/fastkill/internal/cliutil"
	"github.com/fastkill/fastkill/internal/procs"
)

// SnapshotController serves read-only process snapshots to the HTTP API.
type SnapshotController struct {
	provider procs.Provider
}

// NewSnapshotController wraps a snapshot provider for API consumption.
func NewSnapshotController(provider procs.Provider) *SnapshotController {
	if provider == nil {
		return nil
	}
	return &SnapshotController{provider: provider}
}

// Processes takes a fresh snapshot and renders it as an API report.
func (c *SnapshotController) Processes(ctx stdcontext.Context) (*api.SnapshotReport, error) {
	if c == nil || c.provider == nil {
		return nil, api.ErrUnavailable
	}
	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshotReport(snap), nil
}

func snapshotReport(snap *procs.Snapshot) *api.SnapshotReport {
	report := &api.SnapshotReport{
		GeneratedAt: snap.TakenAt,
		DurationMS:  snap.Elapsed.Milliseconds(),
		Processes:   make([]api.ProcessReport, 0, len(snap.Records)),
	}
	for _, rec := range snap.Records {
		report.Processes = append(report.Processes, api.ProcessReport{
			PID:        rec.PID,
			PPID:       rec.PPID,
			Name:       rec.Name,
			User:       rec.User,
			Cmdline:    cliutil.RedactSecrets(rec.Cmdline),
			RSSBytes:   rec.RSS,
			CPUPercent: rec.CPUPercent,
			CPUSeconds: rec.CPUTime.Seconds(),
			StartedAt:  rec.StartedAt,
			Container:  rec.Container,
		})
	}
	return report
}

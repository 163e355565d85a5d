package procs

import (
	"context"
	"fmt"
	"os"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// cmdlineCap bounds command lines shown anywhere in the UI; argv can be
// arbitrarily long (browsers, JVMs).
const cmdlineCap = 200

// Annotator supplies a PID to container-name mapping for a snapshot.
// Implementations must degrade to an empty map on any failure.
type Annotator interface {
	Names(ctx context.Context) map[int32]string
}

// SystemOption configures a SystemProvider.
type SystemOption func(*SystemProvider)

// WithAnnotator attaches a container annotator consulted on every snapshot.
func WithAnnotator(a Annotator) SystemOption {
	return func(p *SystemProvider) {
		p.annotator = a
	}
}

// WithSortMode sets the snapshot ordering.
func WithSortMode(mode SortMode) SystemOption {
	return func(p *SystemProvider) {
		p.sortMode = mode
	}
}

// SystemProvider enumerates live processes through gopsutil.
type SystemProvider struct {
	filter    *Filter
	sortMode  SortMode
	annotator Annotator
}

// NewSystemProvider builds a provider filtering to the invoking user.
func NewSystemProvider(filterOpts FilterOptions, opts ...SystemOption) *SystemProvider {
	p := &SystemProvider{
		filter:   NewFilter(int32(os.Getpid()), uint32(os.Getuid()), filterOpts),
		sortMode: SortRSS,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSortMode changes the ordering applied to subsequent snapshots.
func (p *SystemProvider) SetSortMode(mode SortMode) {
	p.sortMode = mode
}

// Snapshot enumerates the process table. A process disappearing between
// listing and detail reads is omitted, never an error; only a failure of
// the enumeration itself is returned.
func (p *SystemProvider) Snapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	list, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	var containerNames map[int32]string
	if p.annotator != nil {
		containerNames = p.annotator.Names(ctx)
	}

	records := make([]Record, 0, len(list))
	for _, proc := range list {
		rec, uid, ok := p.read(ctx, proc)
		if !ok {
			continue
		}
		if !p.filter.Keep(rec, uid) {
			continue
		}
		rec.Container = containerNames[rec.PID]
		records = append(records, rec)
	}

	Sort(records, p.sortMode)

	return &Snapshot{
		TakenAt: start,
		Elapsed: time.Since(start),
		Records: records,
	}, nil
}

// read collects a single record. Attribute reads racing a process exit
// return errors; those drop the record silently.
func (p *SystemProvider) read(ctx context.Context, proc *gopsprocess.Process) (Record, uint32, bool) {
	rec := Record{PID: proc.Pid}

	uids, err := proc.UidsWithContext(ctx)
	if err != nil || len(uids) == 0 {
		return rec, 0, false
	}
	uid := uids[0]

	rec.Name, err = proc.NameWithContext(ctx)
	if err != nil {
		return rec, 0, false
	}
	rec.Cmdline, err = proc.CmdlineWithContext(ctx)
	if err != nil {
		return rec, 0, false
	}
	rec.Cmdline = capRunes(rec.Cmdline, cmdlineCap)

	createdMS, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return rec, 0, false
	}
	rec.StartedAt = time.UnixMilli(createdMS)

	// Best-effort attributes: absence never drops the record.
	rec.PPID, _ = proc.PpidWithContext(ctx)
	rec.User, _ = proc.UsernameWithContext(ctx)
	rec.CPUPercent, _ = proc.CPUPercentWithContext(ctx)
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		rec.RSS = mem.RSS
	}
	if times, err := proc.TimesWithContext(ctx); err == nil && times != nil {
		rec.CPUTime = time.Duration((times.User + times.System) * float64(time.Second))
	}

	return rec, uid, true
}

// Details reads the attributes for the details pane. Missing attributes
// stay zero; only a vanished process is reported as an error.
func (p *SystemProvider) Details(ctx context.Context, pid int32) (*Details, error) {
	proc, err := gopsprocess.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("process %d: %w", pid, err)
	}
	det := &Details{PID: pid}
	if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
		det.Cmdline = capRunes(cmdline, cmdlineCap)
	}
	det.Cwd, _ = proc.CwdWithContext(ctx)
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		det.RSS = mem.RSS
	}
	if times, err := proc.TimesWithContext(ctx); err == nil && times != nil {
		det.CPUTime = time.Duration((times.User + times.System) * float64(time.Second))
	}
	return det, nil
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

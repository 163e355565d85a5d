// Package kill delivers termination signals with per-process escalation:
// the first action on a process sends SIGTERM, a repeated action while it
// is still alive sends SIGKILL.
package kill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/fastkill/fastkill/internal/metrics"
	"github.com/fastkill/fastkill/internal/session"
)

const (
	SignalTerm = "SIGTERM"
	SignalKill = "SIGKILL"
)

// gracefulPollInterval is how often a graceful kill re-probes liveness
// while waiting for the process to honor SIGTERM.
const gracefulPollInterval = 200 * time.Millisecond

// Signaler abstracts raw signal delivery so batches are testable without
// touching real processes.
type Signaler interface {
	Terminate(pid int32) error
	Kill(pid int32) error
	Alive(pid int32) bool
}

// Result captures the outcome for one target of a batch.
type Result struct {
	ID     session.Exited
	Signal string
	Err    error
}

// Denied reports whether the target is owned by another user.
func (r Result) Denied() bool {
	return errors.Is(r.Err, syscall.EPERM)
}

// Killer walks kill batches, consulting the session for escalation state.
type Killer struct {
	sig Signaler
}

// New constructs a Killer over the given signaler.
func New(sig Signaler) *Killer {
	return &Killer{sig: sig}
}

// Batch signals every target. The per-target signal choice comes from the
// session: SIGTERM first, SIGKILL once a SIGTERM was already delivered.
// A target that already exited is dropped silently; permission errors are
// recorded but never abort the rest of the batch.
func (k *Killer) Batch(sess *session.Session, targets []session.Exited) []Result {
	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		results = append(results, k.signalOne(sess, target))
	}
	return results
}

func (k *Killer) signalOne(sess *session.Session, target session.Exited) Result {
	r := Result{ID: target, Signal: SignalTerm}
	escalate := sess.TermSent(target.ID)
	if escalate {
		r.Signal = SignalKill
	}

	var err error
	if escalate {
		err = k.sig.Kill(target.ID.PID)
	} else {
		err = k.sig.Terminate(target.ID.PID)
	}

	switch {
	case err == nil:
		if !escalate {
			sess.MarkTermSent(target.ID)
		}
		metrics.IncSignal(r.Signal, "ok")
	case errors.Is(err, syscall.ESRCH):
		// Already exited between snapshot and signal.
		sess.Drop(target.ID)
		metrics.IncSignal(r.Signal, "not_found")
	case errors.Is(err, syscall.EPERM):
		r.Err = fmt.Errorf("signal %s to %s (pid %d): %w", r.Signal, target.Name, target.ID.PID, err)
		metrics.IncSignal(r.Signal, "denied")
	default:
		r.Err = fmt.Errorf("signal %s to %s (pid %d): %w", r.Signal, target.Name, target.ID.PID, err)
		metrics.IncSignal(r.Signal, "error")
	}
	return r
}

// Graceful sends SIGTERM and polls liveness until the process exits or
// the timeout elapses, at which point it sends SIGKILL. Used by the
// non-interactive CLI; the interactive UI never auto-escalates.
func (k *Killer) Graceful(ctx context.Context, pid int32, timeout time.Duration) error {
	if err := k.sig.Terminate(pid); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	metrics.IncSignal(SignalTerm, "ok")

	deadline := time.After(timeout)
	ticker := time.NewTicker(gracefulPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if err := k.sig.Kill(pid); err != nil && !errors.Is(err, syscall.ESRCH) {
				return err
			}
			metrics.IncSignal(SignalKill, "ok")
			return nil
		case <-ticker.C:
			if !k.sig.Alive(pid) {
				return nil
			}
		}
	}
}

// Summarize renders a one-line batch outcome for the status bar.
func Summarize(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var termed, killed, failed int
	var failures []string
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			failures = append(failures, r.Err.Error())
		case r.Signal == SignalKill:
			killed++
		default:
			termed++
		}
	}
	parts := make([]string, 0, 4)
	if termed > 0 {
		parts = append(parts, fmt.Sprintf("%d terminated", termed))
	}
	if killed > 0 {
		parts = append(parts, fmt.Sprintf("%d force-killed", killed))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	line := strings.Join(parts, ", ")
	if len(failures) > 0 {
		line += ": " + strings.Join(failures, "; ")
	}
	return line
}

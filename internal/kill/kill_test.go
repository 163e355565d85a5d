package kill

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/fastkill/fastkill/internal/procs"
	"github.com/fastkill/fastkill/internal/session"
)

type fakeSignaler struct {
	calls   []string
	termErr map[int32]error
	killErr map[int32]error
	alive   map[int32]bool
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{
		termErr: make(map[int32]error),
		killErr: make(map[int32]error),
		alive:   make(map[int32]bool),
	}
}

func (f *fakeSignaler) Terminate(pid int32) error {
	f.calls = append(f.calls, fmt.Sprintf("TERM %d", pid))
	return f.termErr[pid]
}

func (f *fakeSignaler) Kill(pid int32) error {
	f.calls = append(f.calls, fmt.Sprintf("KILL %d", pid))
	return f.killErr[pid]
}

func (f *fakeSignaler) Alive(pid int32) bool {
	return f.alive[pid]
}

func target(pid int32, name string) session.Exited {
	return session.Exited{ID: procs.Identity{PID: pid, StartedMS: 1}, Name: name}
}

func TestBatchEscalatesTermThenKill(t *testing.T) {
	sig := newFakeSignaler()
	killer := New(sig)
	sess := session.New()
	tgt := target(1234, "stress-test")

	first := killer.Batch(sess, []session.Exited{tgt})
	if first[0].Signal != SignalTerm || first[0].Err != nil {
		t.Fatalf("first batch: got %s err=%v, want SIGTERM with no error", first[0].Signal, first[0].Err)
	}

	// Still alive on the next action: escalate.
	second := killer.Batch(sess, []session.Exited{tgt})
	if second[0].Signal != SignalKill || second[0].Err != nil {
		t.Fatalf("second batch: got %s err=%v, want SIGKILL with no error", second[0].Signal, second[0].Err)
	}

	want := []string{"TERM 1234", "KILL 1234"}
	if len(sig.calls) != len(want) {
		t.Fatalf("got calls %v, want %v", sig.calls, want)
	}
	for i := range want {
		if sig.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, sig.calls[i], want[i])
		}
	}
}

func TestBatchAlreadyExitedIsSilent(t *testing.T) {
	sig := newFakeSignaler()
	sig.termErr[55] = syscall.ESRCH
	killer := New(sig)
	sess := session.New()
	tgt := target(55, "gone")
	sess.SetSelected(tgt.ID, tgt.Name, true)

	results := killer.Batch(sess, []session.Exited{tgt})
	if results[0].Err != nil {
		t.Fatalf("ESRCH should be silent, got %v", results[0].Err)
	}
	if sess.IsSelected(tgt.ID) || sess.TermSent(tgt.ID) {
		t.Fatalf("exited target should be dropped from the session")
	}
}

func TestBatchPermissionDeniedContinues(t *testing.T) {
	sig := newFakeSignaler()
	sig.termErr[1] = syscall.EPERM
	killer := New(sig)
	sess := session.New()

	results := killer.Batch(sess, []session.Exited{target(1, "root-thing"), target(2, "mine")})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Denied() {
		t.Fatalf("expected permission denied for pid 1, got %v", results[0].Err)
	}
	if results[1].Err != nil {
		t.Fatalf("pid 2 should still be signalled, got %v", results[1].Err)
	}
	if sess.TermSent(procs.Identity{PID: 1, StartedMS: 1}) {
		t.Fatalf("denied target must not be marked term-sent")
	}
	if !sess.TermSent(procs.Identity{PID: 2, StartedMS: 1}) {
		t.Fatalf("delivered SIGTERM should be recorded")
	}
}

func TestGracefulReturnsWhenProcessExits(t *testing.T) {
	sig := newFakeSignaler()
	sig.alive[9] = false
	killer := New(sig)

	if err := killer.Graceful(context.Background(), 9, 5*time.Second); err != nil {
		t.Fatalf("graceful: %v", err)
	}
	for _, call := range sig.calls {
		if strings.HasPrefix(call, "KILL") {
			t.Fatalf("process exited before the deadline, SIGKILL must not be sent: %v", sig.calls)
		}
	}
}

func TestGracefulEscalatesOnTimeout(t *testing.T) {
	sig := newFakeSignaler()
	sig.alive[9] = true
	killer := New(sig)

	if err := killer.Graceful(context.Background(), 9, 50*time.Millisecond); err != nil {
		t.Fatalf("graceful: %v", err)
	}
	last := sig.calls[len(sig.calls)-1]
	if last != "KILL 9" {
		t.Fatalf("expected SIGKILL after timeout, calls: %v", sig.calls)
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{ID: target(1, "a"), Signal: SignalTerm},
		{ID: target(2, "b"), Signal: SignalKill},
		{ID: target(3, "c"), Signal: SignalTerm, Err: fmt.Errorf("signal SIGTERM to c (pid 3): %w", syscall.EPERM)},
	}
	got := Summarize(results)
	for _, fragment := range []string{"1 terminated", "1 force-killed", "1 failed", "pid 3"} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("summary %q missing %q", got, fragment)
		}
	}
	if Summarize(nil) != "" {
		t.Fatalf("empty batch should summarize to empty string")
	}
}

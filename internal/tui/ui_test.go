package tui

import (
	stdcontext "context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fastkill/fastkill/internal/kill"
	"github.com/fastkill/fastkill/internal/procs"
	"github.com/fastkill/fastkill/internal/session"
)

type fakeProvider struct {
	records []procs.Record
}

func (f *fakeProvider) Snapshot(stdcontext.Context) (*procs.Snapshot, error) {
	return &procs.Snapshot{TakenAt: time.Now(), Records: f.records}, nil
}

func (f *fakeProvider) Details(_ stdcontext.Context, pid int32) (*procs.Details, error) {
	return &procs.Details{}, nil
}

type fakeSignaler struct {
	calls []string
}

func (f *fakeSignaler) Terminate(pid int32) error {
	f.calls = append(f.calls, fmt.Sprintf("TERM %d", pid))
	return nil
}

func (f *fakeSignaler) Kill(pid int32) error {
	f.calls = append(f.calls, fmt.Sprintf("KILL %d", pid))
	return nil
}

func (f *fakeSignaler) Alive(int32) bool { return true }

func rec(pid int32, name string, rss uint64) procs.Record {
	return procs.Record{PID: pid, Name: name, Cmdline: name, RSS: rss, StartedAt: time.UnixMilli(int64(pid))}
}

func newTestUI(records []procs.Record, opts ...Option) (*UI, *fakeSignaler) {
	sig := &fakeSignaler{}
	ui := New(&fakeProvider{records: records}, session.New(), kill.New(sig), opts...)
	ui.mu.Lock()
	ui.records = records
	ui.rebuildTableLocked()
	ui.mu.Unlock()
	return ui, sig
}

func TestBuildRowsGroupsDuplicateNames(t *testing.T) {
	records := []procs.Record{
		rec(1, "chrome", 300),
		rec(2, "chrome", 200),
		rec(3, "vim", 100),
	}
	ui, _ := newTestUI(records)

	ui.mu.Lock()
	rows := ui.buildRowsLocked()
	ui.mu.Unlock()

	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (header, two members, single)", len(rows))
	}
	if rows[0].kind != rowHeader || rows[0].name != "chrome" || len(rows[0].members) != 2 {
		t.Fatalf("rows[0] = %+v, want chrome header with 2 members", rows[0])
	}
	if rows[1].kind != rowProc || !rows[1].grouped {
		t.Fatalf("rows[1] should be a grouped member, got %+v", rows[1])
	}
	if rows[3].kind != rowProc || rows[3].name != "vim" || rows[3].grouped {
		t.Fatalf("rows[3] should be a plain vim row, got %+v", rows[3])
	}
}

func TestHeaderTriState(t *testing.T) {
	records := []procs.Record{
		rec(1, "chrome", 300),
		rec(2, "chrome", 200),
	}
	ui, _ := newTestUI(records)

	mark := func() string {
		return ui.table.GetCell(1, 0).Text
	}

	if mark() != "[ ]" {
		t.Fatalf("initial header mark = %q, want [ ]", mark())
	}

	// Cursor starts on the header row: toggling there selects every member.
	ui.table.Select(1, 0)
	ui.toggleCursor()
	if mark() != "[x]" {
		t.Fatalf("after select-all mark = %q, want [x]", mark())
	}
	if ui.session.SelectedCount() != 2 {
		t.Fatalf("got %d selected, want 2", ui.session.SelectedCount())
	}

	// Unselect one member: the header shows partial selection.
	ui.table.Select(2, 0)
	ui.toggleCursor()
	if mark() != "[~]" {
		t.Fatalf("partial mark = %q, want [~]", mark())
	}

	// Header toggle on a partial group selects the stragglers.
	ui.table.Select(1, 0)
	ui.toggleCursor()
	if mark() != "[x]" {
		t.Fatalf("after re-select mark = %q, want [x]", mark())
	}

	// And on a fully selected group it clears everything.
	ui.toggleCursor()
	if mark() != "[ ]" || ui.session.SelectedCount() != 0 {
		t.Fatalf("after clear mark = %q selected = %d, want [ ] and 0", mark(), ui.session.SelectedCount())
	}
}

func TestCursorSurvivesRebuild(t *testing.T) {
	a := rec(1, "alpha", 300)
	b := rec(2, "beta", 200)
	ui, _ := newTestUI([]procs.Record{a, b})

	// Move the cursor onto beta (row 2 with rss sort).
	ui.table.Select(2, 0)
	if ui.cursorID != b.Identity() {
		t.Fatalf("cursor = %+v, want beta", ui.cursorID)
	}

	// New snapshot flips the order; the cursor follows the identity.
	a.RSS = 100
	ui.mu.Lock()
	ui.records = []procs.Record{a, b}
	ui.rebuildTableLocked()
	ui.mu.Unlock()

	r, _ := ui.table.GetSelection()
	if r != 1 {
		t.Fatalf("cursor row = %d, want 1 (beta moved to the top)", r)
	}
	if ui.cursorID != b.Identity() {
		t.Fatalf("cursor identity = %+v, want beta", ui.cursorID)
	}
}

func TestSelectionSurvivesRebuild(t *testing.T) {
	a := rec(1, "alpha", 300)
	b := rec(2, "beta", 200)
	ui, _ := newTestUI([]procs.Record{a, b})

	ui.session.Toggle(b.Identity(), b.Name)

	a.RSS = 100
	ui.mu.Lock()
	ui.records = []procs.Record{a, b}
	ui.rebuildTableLocked()
	ui.mu.Unlock()

	// Beta is now the first data row and still carries its mark.
	if got := ui.table.GetCell(1, 0).Text; got != "[x]" {
		t.Fatalf("beta mark = %q, want [x]", got)
	}
	if got := ui.table.GetCell(2, 0).Text; got != "[ ]" {
		t.Fatalf("alpha mark = %q, want [ ]", got)
	}
}

func TestKillSelectedEscalates(t *testing.T) {
	target := rec(1234, "stress-test", 100)
	ui, sig := newTestUI([]procs.Record{target})

	ui.session.Toggle(target.Identity(), target.Name)

	ui.killSelected()
	ui.killSelected()

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

func TestKillSelectedSkipsProtected(t *testing.T) {
	guard := rec(1, "sshd", 300)
	victim := rec(2, "stress-test", 200)
	ui, sig := newTestUI([]procs.Record{guard, victim}, WithProtected(func(name string) bool {
		return name == "sshd"
	}))

	ui.session.Toggle(guard.Identity(), guard.Name)
	ui.session.Toggle(victim.Identity(), victim.Name)

	ui.killSelected()

	if len(sig.calls) != 1 || sig.calls[0] != "TERM 2" {
		t.Fatalf("got calls %v, want only TERM 2", sig.calls)
	}
	if !strings.Contains(ui.notice, "sshd") {
		t.Fatalf("notice %q should name the protected process", ui.notice)
	}
}

func TestKillSelectedNothingSelected(t *testing.T) {
	ui, sig := newTestUI([]procs.Record{rec(1, "vim", 100)})

	ui.killSelected()

	if len(sig.calls) != 0 {
		t.Fatalf("no signals expected, got %v", sig.calls)
	}
	if ui.notice != "nothing selected" {
		t.Fatalf("notice = %q, want %q", ui.notice, "nothing selected")
	}
}

func TestApplyFilter(t *testing.T) {
	records := []procs.Record{
		rec(1, "chrome", 300),
		rec(2, "vim", 100),
	}
	ui, _ := newTestUI(records)

	ui.applyFilter("chro")

	ui.mu.RLock()
	visible := ui.visibleRecordsLocked()
	ui.mu.RUnlock()
	if len(visible) != 1 || visible[0].Name != "chrome" {
		t.Fatalf("visible = %v, want just chrome", visible)
	}

	ui.applyFilter("")
	ui.mu.RLock()
	visible = ui.visibleRecordsLocked()
	ui.mu.RUnlock()
	if len(visible) != 2 {
		t.Fatalf("clearing the filter should restore %d records, got %d", len(records), len(visible))
	}
}

func TestApplyFilterInvalidRegex(t *testing.T) {
	ui, _ := newTestUI([]procs.Record{rec(1, "vim", 100)})

	ui.applyFilter("[")

	if !ui.pages.HasPage(filterPageName) {
		t.Fatalf("invalid regex should open the error modal")
	}
	ui.mu.RLock()
	defer ui.mu.RUnlock()
	if ui.filter != "" || ui.filterExpr != nil {
		t.Fatalf("invalid expression must not be installed, filter = %q", ui.filter)
	}
}

func TestStatusLine(t *testing.T) {
	a := rec(1, "alpha", 300)
	b := rec(2, "beta", 200)
	ui, _ := newTestUI([]procs.Record{a, b}, WithSortMode(procs.SortName))

	ui.session.Toggle(a.Identity(), a.Name)
	ui.mu.Lock()
	ui.rebuildTableLocked()
	ui.renderStatusLocked()
	status := ui.status.GetText(true)
	ui.mu.Unlock()

	for _, fragment := range []string{"2 processes", "1 selected", "sort name"} {
		if !strings.Contains(status, fragment) {
			t.Fatalf("status %q missing %q", status, fragment)
		}
	}
}

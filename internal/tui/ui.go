package tui

import (
	stdcontext "context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fastkill/fastkill/internal/cliutil"
	"github.com/fastkill/fastkill/internal/kill"
	"github.com/fastkill/fastkill/internal/metrics"
	"github.com/fastkill/fastkill/internal/procs"
	"github.com/fastkill/fastkill/internal/session"
)

const (
	tableTitle     = "Processes"
	detailsTitle   = "Details"
	filterPageName = "filter"

	defaultInterval = 2 * time.Second
	// postKillDelay is how long after a kill batch the table refreshes so
	// deaths show up without waiting a full tick.
	postKillDelay = 500 * time.Millisecond

	commandColumnWidth = 60
)

// Option configures UI behaviour.
type Option func(*UI)

// WithInterval sets the refresh ticker interval.
func WithInterval(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.interval = d
		}
	}
}

// WithSortMode sets the initial table sort mode.
func WithSortMode(mode procs.SortMode) Option {
	return func(u *UI) {
		u.sortMode = mode
	}
}

// WithProtected installs a predicate for names that must never be
// signalled from the UI.
func WithProtected(fn func(string) bool) Option {
	return func(u *UI) {
		u.protected = fn
	}
}

type rowKind int

const (
	rowHeader rowKind = iota
	rowProc
)

// row is one rendered table line: either a group header covering several
// processes with the same executable name, or a single process.
type row struct {
	kind    rowKind
	name    string
	rec     procs.Record
	members []procs.Record
	grouped bool
}

// UI coordinates the interactive process table backed by tview. All
// widget mutation happens on the tview event loop; the refresh goroutine
// only ever reaches it through QueueUpdateDraw.
type UI struct {
	app     *tview.Application
	pages   *tview.Pages
	table   *tview.Table
	details *tview.TextView
	status  *tview.TextView

	provider  procs.Provider
	session   *session.Session
	killer    *kill.Killer
	protected func(string) bool

	interval  time.Duration
	refreshCh chan struct{}

	records     []procs.Record
	rows        []row
	cursorID    procs.Identity
	cursorGroup string
	filter      string
	filterExpr  *regexp.Regexp
	sortMode    procs.SortMode
	notice      string
	batchLine   string

	// rebuilding suppresses the selection-changed callback while the
	// table is repopulated under the lock; Table.Select fires it
	// synchronously. Only touched on the event-loop goroutine.
	rebuilding bool

	detailsFocused bool

	mu sync.RWMutex

	cancelMu sync.Mutex
	cancel   stdcontext.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// New constructs a UI over the given provider, session and killer.
func New(provider procs.Provider, sess *session.Session, killer *kill.Killer, opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	details := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	details.SetBorder(true).SetTitle(detailsTitle)

	status := tview.NewTextView().SetDynamicColors(true).SetWrap(false)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(details, 0, 1, false).
		AddItem(status, 1, 0, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:       app,
		pages:     pages,
		table:     table,
		details:   details,
		status:    status,
		provider:  provider,
		session:   sess,
		killer:    killer,
		interval:  defaultInterval,
		refreshCh: make(chan struct{}, 1),
		sortMode:  procs.SortRSS,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ui)
	}

	table.SetSelectionChangedFunc(func(r, c int) {
		if ui.rebuilding {
			return
		}
		ui.mu.Lock()
		defer ui.mu.Unlock()
		ui.syncCursorLocked(r)
		ui.renderDetailsLocked()
	})

	details.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			ui.toggleFocus()
			return nil
		}
		return event
	})

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.rebuildTableLocked()
	ui.renderStatusLocked()
	ui.mu.Unlock()

	return ui
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and the refresh loop until Stop is
// invoked or the provided context is cancelled.
func (u *UI) Run(ctx stdcontext.Context) error {
	ctx, cancel := stdcontext.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.refreshLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

// ForceRefresh schedules an immediate snapshot outside the ticker.
func (u *UI) ForceRefresh() {
	select {
	case u.refreshCh <- struct{}{}:
	default:
	}
}

func (u *UI) refreshLoop(ctx stdcontext.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.refresh(ctx)
		case <-u.refreshCh:
			u.refresh(ctx)
		}
	}
}

// refresh takes one snapshot, reconciles session state and republishes
// the table. Runs on the refresh goroutine.
func (u *UI) refresh(ctx stdcontext.Context) {
	snap, err := u.provider.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.IncRefreshError()
		u.app.QueueUpdateDraw(func() {
			u.mu.Lock()
			defer u.mu.Unlock()
			// Previous table is retained; the next tick retries.
			u.notice = fmt.Sprintf("refresh failed: %v", err)
			u.renderStatusLocked()
		})
		return
	}
	metrics.ObserveSnapshot(len(snap.Records), snap.Elapsed)

	exited := u.session.Reconcile(snap)

	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.records = snap.Records
		if len(exited) > 0 {
			u.notice = formatExited(exited)
		}
		u.rebuildTableLocked()
		u.renderDetailsLocked()
		u.renderStatusLocked()
	})
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	// Keys belong to the filter prompt while it is open.
	if _, ok := u.app.GetFocus().(*tview.InputField); ok {
		return event
	}

	switch event.Key() {
	case tcell.KeyEnter:
		u.toggleFocus()
		return nil
	case tcell.KeyDelete:
		u.killSelected()
		return nil
	case tcell.KeyUp, tcell.KeyDown, tcell.KeyPgUp, tcell.KeyPgDn:
		return event
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case ' ':
			u.toggleCursor()
			return nil
		case 'a', 'A':
			u.toggleAll()
			return nil
		case 'k', 'K':
			u.killSelected()
			return nil
		case 's', 'S':
			u.cycleSort()
			return nil
		case 'r', 'R':
			u.ForceRefresh()
			return nil
		case '/':
			u.showFilterPrompt()
			return nil
		}
	}
	return event
}

func (u *UI) toggleFocus() {
	if u.detailsFocused {
		u.app.SetFocus(u.table)
	} else {
		u.app.SetFocus(u.details)
	}
	u.detailsFocused = !u.detailsFocused
}

// toggleCursor flips the selection under the cursor. On a group header
// the whole group follows the tri-state: all-selected clears, anything
// else selects every member.
func (u *UI) toggleCursor() {
	u.mu.Lock()
	defer u.mu.Unlock()

	r, _ := u.table.GetSelection()
	if r <= 0 || r-1 >= len(u.rows) {
		return
	}
	line := u.rows[r-1]
	switch line.kind {
	case rowProc:
		u.session.Toggle(line.rec.Identity(), line.rec.Name)
	case rowHeader:
		target := !u.allSelected(line.members)
		for _, rec := range line.members {
			u.session.SetSelected(rec.Identity(), rec.Name, target)
		}
	}
	u.rebuildTableLocked()
	u.renderStatusLocked()
}

// toggleAll selects every visible process, or clears the selection when
// everything is already selected.
func (u *UI) toggleAll() {
	u.mu.Lock()
	defer u.mu.Unlock()

	visible := u.visibleRecordsLocked()
	if len(visible) == 0 {
		return
	}
	target := !u.allSelected(visible)
	for _, rec := range visible {
		u.session.SetSelected(rec.Identity(), rec.Name, target)
	}
	u.rebuildTableLocked()
	u.renderStatusLocked()
}

func (u *UI) allSelected(records []procs.Record) bool {
	for _, rec := range records {
		if !u.session.IsSelected(rec.Identity()) {
			return false
		}
	}
	return len(records) > 0
}

// killSelected signals every selected process with per-process
// escalation. Protected names are skipped with a notice; permission
// errors stay visible until the next batch.
func (u *UI) killSelected() {
	u.mu.Lock()
	defer u.mu.Unlock()

	selected := u.session.Selected()
	if len(selected) == 0 {
		u.notice = "nothing selected"
		u.renderStatusLocked()
		return
	}

	targets := selected[:0:0]
	var skipped []string
	for _, target := range selected {
		if u.protected != nil && u.protected(target.Name) {
			skipped = append(skipped, target.Name)
			continue
		}
		targets = append(targets, target)
	}

	results := u.killer.Batch(u.session, targets)
	u.batchLine = kill.Summarize(results)
	if len(skipped) > 0 {
		u.notice = fmt.Sprintf("protected, skipped: %s", strings.Join(skipped, ", "))
	} else {
		u.notice = ""
	}
	u.renderStatusLocked()

	time.AfterFunc(postKillDelay, u.ForceRefresh)
}

func (u *UI) cycleSort() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sortMode = u.sortMode.Next()
	u.rebuildTableLocked()
	u.renderStatusLocked()
}

func (u *UI) showFilterPrompt() {
	u.mu.RLock()
	current := u.filter
	u.mu.RUnlock()

	input := tview.NewInputField().
		SetLabel("Regex filter: ").
		SetText(current).
		SetFieldWidth(40)

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Apply", func() {
			u.applyFilter(input.GetText())
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		}).
		AddButton("Cancel", func() {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	form.SetBorder(true).SetTitle("Filter Processes")

	grid := tview.NewGrid().
		SetColumns(0, 60, 0).
		SetRows(0, 7, 0).
		AddItem(form, 1, 1, 1, 1, 0, 0, true)

	u.pages.AddPage(filterPageName, grid, true, true)
	u.app.SetFocus(input)
}

// applyFilter compiles and installs a filter expression matched against
// both name and command line. An empty expression clears the filter.
func (u *UI) applyFilter(expr string) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		u.mu.Lock()
		u.filter = ""
		u.filterExpr = nil
		u.rebuildTableLocked()
		u.renderStatusLocked()
		u.mu.Unlock()
		return
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		u.showErrorModal(fmt.Sprintf("Invalid filter: %v", err))
		return
	}

	u.mu.Lock()
	u.filter = expr
	u.filterExpr = re
	u.rebuildTableLocked()
	u.renderStatusLocked()
	u.mu.Unlock()
}

func (u *UI) showErrorModal(message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	// Ensure a previous filter prompt is removed to avoid stacking pages.
	u.pages.RemovePage(filterPageName)
	u.pages.AddPage(filterPageName, modal, true, true)
}

func (u *UI) visibleRecordsLocked() []procs.Record {
	visible := make([]procs.Record, 0, len(u.records))
	for _, rec := range u.records {
		if u.filterExpr != nil && !u.filterExpr.MatchString(rec.Name) && !u.filterExpr.MatchString(rec.Cmdline) {
			continue
		}
		visible = append(visible, rec)
	}
	procs.Sort(visible, u.sortMode)
	return visible
}

// buildRowsLocked groups visible records by executable name. Two or more
// records with the same name collapse under a header row; singles render
// plain.
func (u *UI) buildRowsLocked() []row {
	visible := u.visibleRecordsLocked()

	counts := make(map[string]int, len(visible))
	for _, rec := range visible {
		counts[rec.Name]++
	}

	rows := make([]row, 0, len(visible))
	grouped := make(map[string]bool, len(counts))
	for _, rec := range visible {
		if counts[rec.Name] < 2 {
			rows = append(rows, row{kind: rowProc, name: rec.Name, rec: rec})
			continue
		}
		if grouped[rec.Name] {
			continue
		}
		grouped[rec.Name] = true
		members := make([]procs.Record, 0, counts[rec.Name])
		for _, other := range visible {
			if other.Name == rec.Name {
				members = append(members, other)
			}
		}
		rows = append(rows, row{kind: rowHeader, name: rec.Name, members: members})
		for _, member := range members {
			rows = append(rows, row{kind: rowProc, name: member.Name, rec: member, grouped: true})
		}
	}
	return rows
}

func (u *UI) rebuildTableLocked() {
	u.rebuilding = true
	defer func() { u.rebuilding = false }()

	u.table.Clear()

	headers := []string{"", "PID", "NAME", "USER", "RSS", "CPU%", "TIME", "CONTAINER", "COMMAND"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	u.rows = u.buildRowsLocked()

	if u.filter != "" {
		u.table.SetTitle(fmt.Sprintf("%s /%s/", tableTitle, u.filter))
	} else {
		u.table.SetTitle(tableTitle)
	}

	for i, line := range u.rows {
		switch line.kind {
		case rowHeader:
			u.renderHeaderRow(i+1, line)
		case rowProc:
			u.renderProcRow(i+1, line)
		}
	}

	u.ensureCursorLocked()
}

func (u *UI) renderHeaderRow(tableRow int, line row) {
	selected := 0
	for _, rec := range line.members {
		if u.session.IsSelected(rec.Identity()) {
			selected++
		}
	}
	mark := "[ ]"
	switch {
	case selected == len(line.members):
		mark = "[x]"
	case selected > 0:
		mark = "[~]"
	}

	u.table.SetCell(tableRow, 0, tview.NewTableCell(mark))
	name := tview.NewTableCell(fmt.Sprintf("%s (%d)", line.name, len(line.members))).
		SetAttributes(tcell.AttrBold).
		SetExpansion(1)
	u.table.SetCell(tableRow, 1, tview.NewTableCell(""))
	u.table.SetCell(tableRow, 2, name)
	for col := 3; col < 9; col++ {
		u.table.SetCell(tableRow, col, tview.NewTableCell(""))
	}
}

func (u *UI) renderProcRow(tableRow int, line row) {
	rec := line.rec
	mark := "[ ]"
	if u.session.IsSelected(rec.Identity()) {
		mark = "[x]"
	}
	name := rec.Name
	if line.grouped {
		name = "  " + name
	}

	values := []string{
		mark,
		fmt.Sprintf("%d", rec.PID),
		name,
		rec.User,
		cliutil.FormatBytes(rec.RSS),
		fmt.Sprintf("%.1f", rec.CPUPercent),
		cliutil.FormatCPUTime(rec.CPUTime),
		rec.Container,
		cliutil.Truncate(cliutil.RedactSecrets(rec.Cmdline), commandColumnWidth),
	}
	for col, value := range values {
		cell := tview.NewTableCell(value)
		if col == 8 {
			cell = cell.SetExpansion(1)
		}
		u.table.SetCell(tableRow, col, cell)
	}
}

// ensureCursorLocked restores the cursor to the row holding the same
// identity (or group) it was on before the rebuild.
func (u *UI) ensureCursorLocked() {
	if len(u.rows) == 0 {
		u.cursorID = procs.Identity{}
		u.cursorGroup = ""
		u.table.Select(0, 0)
		return
	}

	idx := 0
	for i, line := range u.rows {
		if line.kind == rowProc && line.rec.Identity() == u.cursorID {
			idx = i
			break
		}
		if line.kind == rowHeader && u.cursorGroup != "" && line.name == u.cursorGroup {
			idx = i
			break
		}
	}
	u.syncCursorLocked(idx + 1)
	u.table.Select(idx+1, 0)
}

func (u *UI) syncCursorLocked(tableRow int) {
	if tableRow <= 0 || tableRow-1 >= len(u.rows) {
		return
	}
	line := u.rows[tableRow-1]
	if line.kind == rowHeader {
		u.cursorGroup = line.name
		u.cursorID = procs.Identity{}
		return
	}
	u.cursorGroup = ""
	u.cursorID = line.rec.Identity()
}

func (u *UI) renderDetailsLocked() {
	u.details.Clear()

	var rec *procs.Record
	for i := range u.rows {
		if u.rows[i].kind == rowProc && u.rows[i].rec.Identity() == u.cursorID {
			rec = &u.rows[i].rec
			break
		}
	}
	if rec == nil {
		u.details.SetTitle(detailsTitle)
		return
	}

	u.details.SetTitle(fmt.Sprintf("%s (%s)", detailsTitle, rec.Name))

	fmt.Fprintf(u.details, "PID: %d  PPID: %d  User: %s\n", rec.PID, rec.PPID, rec.User)
	if det, err := u.provider.Details(stdcontext.Background(), rec.PID); err == nil {
		if det.Cmdline != "" {
			fmt.Fprintf(u.details, "Command: %s\n", cliutil.RedactSecrets(det.Cmdline))
		}
		if det.Cwd != "" {
			fmt.Fprintf(u.details, "Working dir: %s\n", det.Cwd)
		}
	} else if rec.Cmdline != "" {
		fmt.Fprintf(u.details, "Command: %s\n", cliutil.RedactSecrets(rec.Cmdline))
	}
	fmt.Fprintf(u.details, "Memory: %s  CPU time: %s\n", cliutil.FormatBytes(rec.RSS), cliutil.FormatCPUTime(rec.CPUTime))
	if !rec.StartedAt.IsZero() {
		fmt.Fprintf(u.details, "Started: %s\n", rec.StartedAt.Format(time.RFC3339))
	}
	if rec.Container != "" {
		fmt.Fprintf(u.details, "Container: %s\n", rec.Container)
	}
}

func (u *UI) renderStatusLocked() {
	u.status.Clear()

	visible := 0
	for _, line := range u.rows {
		if line.kind == rowProc {
			visible++
		}
	}
	parts := []string{
		fmt.Sprintf("%d processes", visible),
		fmt.Sprintf("%d selected", u.session.SelectedCount()),
		fmt.Sprintf("sort %s", u.sortMode),
	}
	if u.filter != "" {
		parts = append(parts, fmt.Sprintf("filter /%s/", u.filter))
	}
	line := strings.Join(parts, " · ")
	if u.batchLine != "" {
		line += "  |  " + u.batchLine
	}
	if u.notice != "" {
		line += "  |  " + u.notice
	}
	fmt.Fprint(u.status, tview.Escape(line))
}

func formatExited(exited []session.Exited) string {
	names := make([]string, 0, len(exited))
	for _, e := range exited {
		names = append(names, fmt.Sprintf("%s (%d)", e.Name, e.ID.PID))
	}
	return "exited: " + strings.Join(names, ", ")
}

package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"numtrack/internal/config"
	"numtrack/internal/export"
	"numtrack/internal/record"
	"numtrack/internal/tracker"
	"numtrack/internal/view"
)

type mode int

const (
	modeLoading mode = iota
	modeList
	modeSearch
	modeBulk
	modeRename
	modeDate
	modeDateFrom
	modeDateTo
)

const defaultRows = 15

type loadedMsg struct {
	source tracker.Source
}

// loadGate keeps the initial load from outliving the program: once closed,
// a load that has not started is skipped and close waits for one in flight.
type loadGate struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newLoadGate(parent context.Context) *loadGate {
	ctx, cancel := context.WithCancel(parent)
	return &loadGate{ctx: ctx, cancel: cancel}
}

func (g *loadGate) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *loadGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cancel()
	g.wg.Wait()
}

type Model struct {
	store      *tracker.Store
	cfg        config.Config
	keys       keyMap
	help       help.Model
	spinner    spinner.Model
	input      textinput.Model
	mode       mode
	source     tracker.Source
	query      view.Query
	visible    []int
	cursor     int
	rows       int
	bulkStatus record.Status
	status     string
	now        func() time.Time
	loads      *loadGate
}

func New(store *tracker.Store, cfg config.Config) Model {
	ti := textinput.New()
	ti.CharLimit = 128
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		store:      store,
		cfg:        cfg,
		keys:       newKeyMap(cfg.Keys),
		help:       help.New(),
		spinner:    sp,
		input:      ti,
		mode:       modeLoading,
		rows:       defaultRows,
		bulkStatus: record.StatusDone,
		status:     "Loading numbers...",
		now:        time.Now,
		loads:      newLoadGate(context.Background()),
	}
	if s, err := record.ParseStatus(strings.ToLower(cfg.DefaultFilter)); err == nil {
		m.query.Status = s
	}
	return m
}

// Run blocks until the program exits, the initial load has stopped and
// every write-through has finished.
func Run(ctx context.Context, store *tracker.Store, cfg config.Config) error {
	m := New(store, cfg)
	m.loads = newLoadGate(ctx)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	m.loads.close()
	store.Wait()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	store, gate := m.store, m.loads
	return func() tea.Msg {
		if !gate.enter() {
			return nil
		}
		defer gate.wg.Done()
		return loadedMsg{source: store.Load(gate.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.source = msg.source
		m.mode = modeList
		m.refresh()
		m.status = fmt.Sprintf("Loaded from %s", msg.source)
		return m, nil
	case spinner.TickMsg:
		if m.mode != modeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.mode == modeLoading {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
		m.help.Width = msg.Width
		// header, panels and footer take roughly 16 lines
		if rows := msg.Height - 16; rows > 3 {
			m.rows = rows
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeSearch:
		return m.updateSearchMode(key, msg)
	case modeBulk, modeRename, modeDate, modeDateFrom, modeDateTo:
		return m.updateInputMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	if i := strings.Index(k.StatusKeys, key); len(key) == 1 && i >= 0 && i < len(record.Statuses) {
		return m.setStatus(record.Statuses[i])
	}

	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.visible))
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.visible))
	case k.PageDown:
		m.cursor = clampCursor(m.cursor+m.rows, len(m.visible))
	case k.PageUp:
		m.cursor = clampCursor(m.cursor-m.rows, len(m.visible))
	case k.Search:
		m.mode = modeSearch
		m.input.SetValue(m.query.Search)
		m.input.Placeholder = "number or name"
		m.input.Focus()
		m.status = "Search: type a number or part of a name, Enter to keep, Esc to clear"
	case k.Filter:
		m.query.Status = nextStatusFilter(m.query.Status)
		m.refresh()
		m.status = "Status filter: " + filterLabel(m.query.Status)
	case k.DateFilter:
		m.query.DateField = nextDateField(m.query.DateField)
		m.refresh()
		m.status = "Date filter: " + dateFieldLabel(m.query.DateField)
	case k.DateFrom:
		return m.startInput(modeDateFrom, formatDate(m.query.Start), "from YYYY-MM-DD",
			"Filter start date (empty clears)")
	case k.DateTo:
		return m.startInput(modeDateTo, formatDate(m.query.End), "to YYYY-MM-DD",
			"Filter end date (empty clears)")
	case k.ClearFilter:
		m.query = view.Query{}
		m.refresh()
		m.status = "Filters cleared"
	case k.BulkStatus:
		m.bulkStatus = nextStatus(m.bulkStatus)
		m.status = "Bulk status: " + m.bulkStatus.Label()
	case k.Bulk:
		return m.startInput(modeBulk, "", "e.g. 1-10, 15, 20-25",
			fmt.Sprintf("Bulk update to %s: enter numbers and ranges", m.bulkStatus.Label()))
	case k.Rename:
		n, ok := m.selected()
		if !ok {
			m.status = "No number selected"
			return m, nil
		}
		return m.startInput(modeRename, m.store.Get(n).Name, "name",
			fmt.Sprintf("Name for #%d", n))
	case k.EditDate:
		n, ok := m.selected()
		if !ok {
			m.status = "No number selected"
			return m, nil
		}
		r := m.store.Get(n)
		f := record.FieldFor(r.Status)
		if f == record.FieldNone {
			m.status = "No date to edit for status No"
			return m, nil
		}
		return m.startInput(modeDate, formatDate(r.Date(f)), "YYYY-MM-DD",
			fmt.Sprintf("%s for #%d (empty clears)", dateFieldLabel(f), n))
	case k.SubDone:
		return m.setSubStatus(record.SubDone)
	case k.SubNo:
		return m.setSubStatus(record.SubNo)
	case k.Export:
		return m.exportFile()
	case "?":
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.query.Search = ""
		m.leaveInput()
		m.refresh()
		m.status = "Search cleared"
		return m, nil
	case m.cfg.Keys.Confirm:
		m.leaveInput()
		m.status = fmt.Sprintf("Search %q", m.query.Search)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.query.Search = m.input.Value()
	m.refresh()
	return m, cmd
}

func (m Model) updateInputMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.leaveInput()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		return m.submitInput(strings.TrimSpace(m.input.Value()))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitInput(v string) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeBulk:
		numbers, err := m.store.BulkApply(v, m.bulkStatus)
		if err != nil {
			m.status = fmt.Sprintf("bulk update failed: %v", err)
			return m, nil
		}
		if len(numbers) == 0 {
			m.status = "No valid numbers in range"
			return m, nil
		}
		m.status = fmt.Sprintf("Set %d numbers to %s", len(numbers), m.bulkStatus.Label())
	case modeRename:
		n, _ := m.selected()
		if err := m.store.SetName(n, v); err != nil {
			m.status = fmt.Sprintf("rename failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Renamed #%d", n)
	case modeDate:
		date, err := parseDate(v)
		if err != nil {
			m.status = fmt.Sprintf("date invalid: %v", err)
			return m, nil
		}
		n, _ := m.selected()
		f := record.FieldFor(m.store.Get(n).Status)
		if err := m.store.SetDate(n, f, date); err != nil {
			m.status = fmt.Sprintf("date update failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Updated %s for #%d", dateFieldLabel(f), n)
	case modeDateFrom, modeDateTo:
		date, err := parseDate(v)
		if err != nil {
			m.status = fmt.Sprintf("date invalid: %v", err)
			return m, nil
		}
		if m.mode == modeDateFrom {
			m.query.Start = date
		} else {
			m.query.End = date
		}
		m.status = "Date window " + windowLabel(m.query)
	}
	m.leaveInput()
	m.refresh()
	return m, nil
}

func (m Model) startInput(md mode, value, placeholder, status string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.status = status
	cmd := m.input.Focus()
	return m, cmd
}

func (m *Model) leaveInput() {
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) setStatus(s record.Status) (tea.Model, tea.Cmd) {
	n, ok := m.selected()
	if !ok {
		m.status = "No number selected"
		return m, nil
	}
	if err := m.store.SetStatus(n, s, nil); err != nil {
		m.status = fmt.Sprintf("status update failed: %v", err)
		return m, nil
	}
	m.refreshKeep(n)
	m.status = fmt.Sprintf("#%d is now %s", n, s.Label())
	return m, nil
}

func (m Model) setSubStatus(sub record.SubStatus) (tea.Model, tea.Cmd) {
	n, ok := m.selected()
	if !ok {
		m.status = "No number selected"
		return m, nil
	}
	c := m.store.Get(n).Status
	if !record.IsCategory(c) {
		m.status = "Sub-status applies to Pending, Dead, Resettle and Duplicates"
		return m, nil
	}
	if err := m.store.SetSubStatus(n, sub, c, nil); err != nil {
		m.status = fmt.Sprintf("sub-status update failed: %v", err)
		return m, nil
	}
	m.refreshKeep(n)
	m.status = fmt.Sprintf("#%d %s sub-status: %s", n, c.Label(), sub)
	return m, nil
}

func (m Model) exportFile() (tea.Model, tea.Cmd) {
	path := m.cfg.ExportPath
	if path == "" {
		path = export.DefaultCSVName
	}
	f, err := os.Create(path)
	if err != nil {
		m.status = fmt.Sprintf("export failed: %v", err)
		return m, nil
	}
	write := export.WriteCSV
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		write = export.WriteXLSX
	}
	err = write(f, m.store.Records())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		m.status = fmt.Sprintf("export failed: %v", err)
		return m, nil
	}
	m.status = "Exported to " + path
	return m, nil
}

func (m Model) selected() (int, bool) {
	if len(m.visible) == 0 {
		return 0, false
	}
	return m.visible[clampCursor(m.cursor, len(m.visible))], true
}

func (m *Model) refresh() {
	m.visible = view.Filter(m.store.Records(), m.query)
	m.cursor = clampCursor(m.cursor, len(m.visible))
}

// refreshKeep recomputes the listing and keeps the cursor on n when n is
// still visible.
func (m *Model) refreshKeep(n int) {
	m.refresh()
	for i, v := range m.visible {
		if v == n {
			m.cursor = i
			return
		}
	}
}

func nextStatusFilter(cur record.Status) record.Status {
	if cur == "" || cur == "all" {
		return record.Statuses[0]
	}
	for i, s := range record.Statuses {
		if s == cur && i+1 < len(record.Statuses) {
			return record.Statuses[i+1]
		}
	}
	return ""
}

func nextStatus(cur record.Status) record.Status {
	for i, s := range record.Statuses {
		if s == cur {
			return record.Statuses[wrapIndex(i+1, len(record.Statuses))]
		}
	}
	return record.StatusDone
}

func nextDateField(cur record.DateField) record.DateField {
	if cur == record.FieldNone {
		return record.DateFields[0]
	}
	for i, f := range record.DateFields {
		if f == cur && i+1 < len(record.DateFields) {
			return record.DateFields[i+1]
		}
	}
	return record.FieldNone
}

func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(record.DateLayout, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(record.DateLayout)
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

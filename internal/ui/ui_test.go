package ui

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numtrack/internal/config"
	"numtrack/internal/record"
	"numtrack/internal/tracker"
	"numtrack/internal/view"
)

var fixedNow = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func newLoaded(t *testing.T) (Model, *tracker.Store) {
	t.Helper()
	cfg, err := config.LoadOrCreate(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	cfg.ExportPath = filepath.Join(t.TempDir(), "out.csv")

	store := tracker.New(nil, nil, tracker.WithClock(func() time.Time { return fixedNow }))
	m := New(store, cfg)
	assert.Contains(t, m.View(), "Loading numbers")

	src := store.Load(context.Background())
	next, _ := m.Update(loadedMsg{source: src})
	return next.(Model), store
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func TestLoadedView(t *testing.T) {
	m, _ := newLoaded(t)
	assert.Equal(t, modeList, m.mode)
	assert.Equal(t, "Loaded from defaults", m.status)
	assert.Len(t, m.visible, record.MaxNumber)
	assert.Contains(t, m.View(), "Showing 1421 of 1421 numbers")
}

func TestStatusAndSubStatusKeys(t *testing.T) {
	m, store := newLoaded(t)

	m = press(m, "j", "1")
	got := store.Get(2)
	assert.Equal(t, record.StatusDone, got.Status)
	require.NotNil(t, got.DoneDate)
	assert.True(t, got.DoneDate.Equal(fixedNow))

	m = press(m, "4", "y")
	got = store.Get(2)
	assert.Equal(t, record.StatusDead, got.Status)
	assert.Equal(t, record.SubDone, got.Dead.Status)
	assert.Nil(t, got.DoneDate)
	assert.Equal(t, []int{2}, store.Recent())

	m = press(m, "k", "n")
	assert.Contains(t, m.status, "Sub-status applies")
	assert.Equal(t, record.SubUnset, store.Get(1).Dead.Status)
}

func TestSearchWindow(t *testing.T) {
	m, _ := newLoaded(t)
	m = press(m, "/", "4", "2", "enter")
	assert.Equal(t, modeList, m.mode)
	assert.Equal(t, []int{42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52}, m.visible)
	n, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, 42, n)

	m = press(m, "/", "esc")
	assert.Len(t, m.visible, record.MaxNumber)
}

func TestStatusFilterCycle(t *testing.T) {
	m, _ := newLoaded(t)
	m = press(m, "f")
	assert.Equal(t, record.StatusDone, m.query.Status)
	assert.Empty(t, m.visible)
	assert.Contains(t, m.View(), "No numbers match")

	m = press(m, "f")
	assert.Equal(t, record.StatusNo, m.query.Status)
	assert.Len(t, m.visible, record.MaxNumber)

	m = press(m, "c")
	assert.Equal(t, record.Status(""), m.query.Status)
}

func TestBulkMode(t *testing.T) {
	m, store := newLoaded(t)
	m = press(m, "b", "1", "0", "0", "-", "1", "0", "5", ",", "2", "0", "0", "enter")
	assert.Equal(t, "Set 7 numbers to Done", m.status)
	for _, n := range []int{100, 101, 102, 103, 104, 105, 200} {
		assert.Equal(t, record.StatusDone, store.Get(n).Status, "number %d", n)
	}
	assert.Equal(t, record.StatusNo, store.Get(106).Status)

	m = press(m, "B", "b", "x", "enter")
	assert.Equal(t, record.StatusNo, m.bulkStatus)
	assert.Equal(t, "No valid numbers in range", m.status)
}

func TestRenameAndEditDate(t *testing.T) {
	m, store := newLoaded(t)
	m = press(m, "r", "A", "n", "n", "enter")
	assert.Equal(t, "Ann", store.Get(1).Name)

	m = press(m, "1", "t")
	require.Equal(t, modeDate, m.mode)
	assert.Equal(t, "2024-05-06", m.input.Value())
	m.input.SetValue("2024-02-03")
	m = press(m, "enter")
	require.NotNil(t, store.Get(1).DoneDate)
	assert.Equal(t, "2024-02-03", store.Get(1).DoneDate.Format(record.DateLayout))

	m = press(m, "2", "t")
	assert.Contains(t, m.status, "No date to edit")
}

func TestDateWindowInput(t *testing.T) {
	m, _ := newLoaded(t)
	m = press(m, "1", "F")
	assert.Equal(t, record.FieldDone, m.query.DateField)

	m = press(m, "[")
	m.input.SetValue("nope")
	m = press(m, "enter")
	assert.Equal(t, modeDateFrom, m.mode)
	assert.Contains(t, m.status, "date invalid")

	m.input.SetValue("2024-05-06")
	m = press(m, "enter")
	assert.Equal(t, modeList, m.mode)
	require.NotNil(t, m.query.Start)
	assert.Equal(t, []int{1}, m.visible)

	m = press(m, "]")
	m.input.SetValue("2024-05-01")
	m = press(m, "enter")
	assert.Empty(t, m.visible)
}

func TestExportKey(t *testing.T) {
	m, _ := newLoaded(t)
	m = press(m, "1", "e")
	assert.Equal(t, "Exported to "+m.cfg.ExportPath, m.status)

	data, err := os.ReadFile(m.cfg.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Number,Status,Name\n1,done,\n2,no,\n")
}

type countingCache struct {
	mu    sync.Mutex
	saves int
}

func (c *countingCache) SaveSnapshot(view.Records) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	return nil
}

func (c *countingCache) LoadSnapshot() (view.Records, error) {
	return nil, os.ErrNotExist
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// blockingBackend holds FetchAll until its context ends.
type blockingBackend struct {
	started chan struct{}
}

func (b *blockingBackend) FetchAll(ctx context.Context) ([]record.Entry, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingBackend) PutRecord(context.Context, int, record.Record) error { return nil }

func (b *blockingBackend) BulkUpdate(context.Context, []int, record.Status) error { return nil }

func TestLoadSkippedAfterQuit(t *testing.T) {
	cache := &countingCache{}
	m := New(tracker.New(nil, cache), config.Config{})
	m.loads.close()

	assert.Nil(t, m.loadCmd()())
	assert.Zero(t, cache.count())
}

func TestQuitWaitsForInFlightLoad(t *testing.T) {
	cache := &countingCache{}
	backend := &blockingBackend{started: make(chan struct{})}
	m := New(tracker.New(backend, cache), config.Config{})

	msgs := make(chan tea.Msg, 1)
	go func() { msgs <- m.loadCmd()() }()
	<-backend.started

	m.loads.close()
	assert.Equal(t, 1, cache.count(), "load must finish before close returns")

	msg := <-msgs
	require.IsType(t, loadedMsg{}, msg)
	assert.Equal(t, tracker.SourceDefaults, msg.(loadedMsg).source)
}

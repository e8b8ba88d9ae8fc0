// Package tui is a Bubble Tea terminal client for the arblens dashboard. It
// polls the server for the session snapshot and turns key presses into
// dashboard intents.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
)

// Backend is the subset of the API client the dashboard drives.
type Backend interface {
	Snapshot(ctx context.Context) (dashboard.Snapshot, error)
	SetSearch(ctx context.Context, q string) (dashboard.Snapshot, error)
	ResetFilters(ctx context.Context) (dashboard.Snapshot, error)
	ToggleSort(ctx context.Context, key domain.SortKey) (dashboard.Snapshot, error)
	SelectPair(ctx context.Context, id string) (dashboard.Snapshot, error)
	ToggleRow(ctx context.Context, id string) (dashboard.Snapshot, error)
	SelectAll(ctx context.Context) (dashboard.Snapshot, error)
	ClearSelection(ctx context.Context) (dashboard.Snapshot, error)
	RequestBulk(ctx context.Context, action domain.BulkAction, ids []string) (dashboard.Snapshot, error)
	SetBulkReason(ctx context.Context, reason string) (dashboard.Snapshot, error)
	ConfirmBulk(ctx context.Context) (dashboard.Snapshot, error)
	CloseBulk(ctx context.Context) (dashboard.Snapshot, error)
	DismissNotification(ctx context.Context, id string) error
	Refresh(ctx context.Context) (dashboard.Snapshot, error)
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Backend  Backend
	PollTick time.Duration
	Logger   *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	backend  Backend
	pollTick time.Duration
	logger   *slog.Logger
	keys     keyMap

	width  int
	height int
	ready  bool

	snap        dashboard.Snapshot
	loaded      bool
	lastErr     string
	lastUpdated time.Time
	cursor      int

	searching bool
	search    textinput.Model

	reasonActive bool
	reason       textinput.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search titles"
	search.CharLimit = 120

	reason := textinput.New()
	reason.Prompt = "Reason: "
	reason.CharLimit = 500

	return Model{
		ctx:      ctx,
		backend:  opts.Backend,
		pollTick: pollTick,
		logger:   logger.With(slog.String("component", "tui")),
		keys:     defaultKeyMap(),
		search:   search,
		reason:   reason,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.fetchCmd(),
		tickCmd(m.pollTick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd(m.pollTick))

	case snapshotMsg:
		return m.applySnapshot(msg), nil

	case dismissedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, m.fetchCmd()
	}

	return m, nil
}

func (m Model) applySnapshot(msg snapshotMsg) Model {
	if msg.err != nil {
		m.setError(msg.err)
		return m
	}
	m.snap = msg.snap
	m.loaded = true
	m.lastErr = ""
	m.lastUpdated = time.Now()
	m.clampCursor()

	switch {
	case m.snap.Dialog.Open && m.snap.Dialog.ShowsReason && !m.reasonActive:
		m.reason.SetValue(m.snap.Dialog.Reason)
		m.reason.Focus()
		m.reasonActive = true
	case !m.snap.Dialog.Open && m.reasonActive:
		m.reason.Blur()
		m.reason.SetValue("")
		m.reasonActive = false
	}
	return m
}

func (m *Model) setError(err error) {
	m.lastErr = err.Error()
	m.logger.Warn("request failed", slog.String("error", err.Error()))
}

func (m *Model) clampCursor() {
	n := len(m.snap.Rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// currentRow returns the row under the cursor.
func (m Model) currentRow() (dashboard.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Rows) {
		return dashboard.Row{}, false
	}
	return m.snap.Rows[m.cursor], true
}

// handleKey processes keyboard input. Input modes are checked first: the
// search line, then the open dialog, then the table.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.snap.Dialog.Open {
		return m.handleDialogKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Rows)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if row, ok := m.currentRow(); ok {
			return m, m.call(func(ctx context.Context) (dashboard.Snapshot, error) {
				return m.backend.ToggleRow(ctx, row.ID)
			})
		}
		return m, nil

	case key.Matches(msg, m.keys.All):
		return m, m.call(m.backend.SelectAll)

	case key.Matches(msg, m.keys.Open):
		if row, ok := m.currentRow(); ok {
			return m, m.call(func(ctx context.Context) (dashboard.Snapshot, error) {
				return m.backend.SelectPair(ctx, row.ID)
			})
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		return m, m.call(m.backend.ClearSelection)

	case key.Matches(msg, m.keys.SortConfidence):
		return m, m.sortCmd(domain.SortByConfidence)

	case key.Matches(msg, m.keys.SortLastModified):
		return m, m.sortCmd(domain.SortByLastModified)

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.snap.Search)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.ResetFilters):
		return m, m.call(m.backend.ResetFilters)

	case key.Matches(msg, m.keys.Approve):
		return m, m.bulkCmd(domain.BulkApprove)
	case key.Matches(msg, m.keys.Reject):
		return m, m.bulkCmd(domain.BulkReject)
	case key.Matches(msg, m.keys.Link):
		return m, m.bulkCmd(domain.BulkLink)
	case key.Matches(msg, m.keys.Unlink):
		return m, m.bulkCmd(domain.BulkUnlink)

	case key.Matches(msg, m.keys.Dismiss):
		if len(m.snap.Notifications) == 0 {
			return m, nil
		}
		return m, m.dismissCmd(m.snap.Notifications[0].ID)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.call(m.backend.Refresh)
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		q := m.search.Value()
		return m, m.call(func(ctx context.Context) (dashboard.Snapshot, error) {
			return m.backend.SetSearch(ctx, q)
		})
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		return m, m.call(m.backend.CloseBulk)
	}
	if m.snap.Dialog.Processing {
		return m, nil
	}

	if m.reasonActive {
		if msg.Type == tea.KeyEnter {
			reason := m.reason.Value()
			return m, m.call(func(ctx context.Context) (dashboard.Snapshot, error) {
				if _, err := m.backend.SetBulkReason(ctx, reason); err != nil {
					return dashboard.Snapshot{}, err
				}
				return m.backend.ConfirmBulk(ctx)
			})
		}
		var cmd tea.Cmd
		m.reason, cmd = m.reason.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, m.keys.Confirm) || msg.Type == tea.KeyEnter {
		return m, m.call(m.backend.ConfirmBulk)
	}
	return m, nil
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snap dashboard.Snapshot
	err  error
}

type dismissedMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchCmd() tea.Cmd {
	return m.call(m.backend.Snapshot)
}

// call runs fn off the UI goroutine and delivers its result as a
// snapshotMsg.
func (m Model) call(fn func(context.Context) (dashboard.Snapshot, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		snap, err := fn(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) sortCmd(k domain.SortKey) tea.Cmd {
	return m.call(func(ctx context.Context) (dashboard.Snapshot, error) {
		return m.backend.ToggleSort(ctx, k)
	})
}

func (m Model) bulkCmd(action domain.BulkAction) tea.Cmd {
	if len(m.snap.Selection) == 0 {
		return nil
	}
	return m.call(func(ctx context.Context) (dashboard.Snapshot, error) {
		return m.backend.RequestBulk(ctx, action, nil)
	})
}

func (m Model) dismissCmd(id string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return dismissedMsg{err: m.backend.DismissNotification(ctx, id)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}

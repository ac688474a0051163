// Package tui is the interactive dashboard.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/haulboard/internal/action"
	"github.com/leapstack-labs/haulboard/internal/dispatch"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

// Refresher reloads the customer list.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
	modeCommand
)

// topicMsg carries a notifier ping into the update loop.
type topicMsg notifier.Topic

// cycleDoneMsg is delivered when a dispatched cycle settles.
type cycleDoneMsg dispatch.Outcome

type refreshDoneMsg struct {
	count int
	err   error
}

// Options configures the dashboard model.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Refresher  Refresher
	Notifier   *notifier.Notifier
	BaseURL    string
	Logger     *slog.Logger
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx     context.Context
	d       *dispatch.Dispatcher
	refresh Refresher
	updates chan notifier.Topic
	notify  *notifier.Notifier
	baseURL string
	logger  *slog.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	table   table.Model
	input   textinput.Model
	mode    inputMode

	width  int
	height int
	// last settled outcome, shown in the status line
	last *dispatch.Outcome
}

// New creates the model. ctx bounds every cycle dispatched from the dashboard.
func New(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = loadingStyle

	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.BorderStyle(tableBorderStyle.GetBorderStyle()).BorderForeground(borderColor).BorderBottom(true).Bold(true)
	ts.Selected = ts.Selected.Foreground(textColor).Background(borderColor).Bold(false)
	t.SetStyles(ts)

	in := textinput.New()
	in.CharLimit = 120

	m := &Model{
		ctx:     ctx,
		d:       opts.Dispatcher,
		refresh: opts.Refresher,
		notify:  opts.Notifier,
		baseURL: opts.BaseURL,
		logger:  opts.Logger,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		table:   t,
		input:   in,
	}
	if opts.Notifier != nil {
		m.updates = opts.Notifier.Subscribe()
	}
	m.syncRows()
	return m
}

func columns(width int) []table.Column {
	name := max(16, (width-40)/2)
	email := max(20, width-40-name)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Name", Width: name},
		{Title: "Email", Width: email},
		{Title: "Phone", Width: 14},
		{Title: "Status", Width: 10},
	}
}

// Init starts the spinner, the notifier pump and the first refresh.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForTopic(), m.refreshCmd())
}

// Close releases the notifier subscription.
func (m *Model) Close() {
	if m.notify != nil && m.updates != nil {
		m.notify.Unsubscribe(m.updates)
	}
}

func (m *Model) waitForTopic() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	ch := m.updates
	return func() tea.Msg {
		topic, ok := <-ch
		if !ok {
			return nil
		}
		return topicMsg(topic)
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	ctx := m.ctx
	r := m.refresh
	return func() tea.Msg {
		n, err := r.Refresh(ctx)
		return refreshDoneMsg{count: n, err: err}
	}
}

// dispatch sends an action and returns a command that reports its settlement.
func (m *Model) dispatch(a action.Action, p action.Params) tea.Cmd {
	c := m.d.Dispatch(m.ctx, a, p)
	ctx := m.ctx
	return func() tea.Msg {
		o, err := c.Wait(ctx)
		if err != nil {
			return nil
		}
		return cycleDoneMsg(o)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width - 4))
		m.table.SetHeight(max(5, msg.Height-16))
		return m, nil

	case topicMsg:
		if notifier.Topic(msg) == notifier.TopicBoard {
			m.syncRows()
		}
		return m, m.waitForTopic()

	case cycleDoneMsg:
		o := dispatch.Outcome(msg)
		m.last = &o
		m.logger.Debug("cycle settled", slog.String("action", o.Action.String()), slog.String("status", o.Status.String()))
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.logger.Warn("refresh failed", slog.Any("error", msg.err))
			m.d.Feedback().Warning("Failed to load customers")
		}
		m.syncRows()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeCommand:
			return m.updateCommand(msg)
		case modeNormal:
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Close):
		m.d.Board().CloseTop()
		return m, nil

	case key.Matches(msg, m.keys.Quick):
		idx := int(msg.Runes[0] - '1')
		quick := action.QuickActions()
		if idx >= 0 && idx < len(quick) {
			return m, m.dispatch(quick[idx], action.Params{})
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		row, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.dispatch(action.ToggleCustomerStatus, action.Params{CustomerID: row.ID, Active: !row.Active})

	case key.Matches(msg, m.keys.Invoice):
		if row, ok := m.selected(); ok {
			return m, m.dispatch(action.GenerateInvoice, action.Params{CustomerID: row.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.History):
		if row, ok := m.selected(); ok {
			return m, m.dispatch(action.LoadCustomerHistory, action.Params{CustomerID: row.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.dispatch(action.ExportData, action.Params{DataType: "customers"})

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Dismiss):
		m.d.Feedback().DismissLatest()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.input.Prompt = "/ "
		m.input.Placeholder = "name or email"
		m.input.SetValue(m.d.Board().FilterTerm())
		m.table.Blur()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Command):
		m.mode = modeCommand
		m.input.Prompt = ": "
		m.input.Placeholder = "action key=value ..."
		m.input.SetValue("")
		m.table.Blur()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.leaveInput()
		return m, nil
	case tea.KeyEsc:
		m.d.Dispatch(m.ctx, action.FilterCustomers, action.Params{})
		m.leaveInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.d.Dispatch(m.ctx, action.FilterCustomers, action.Params{Search: m.input.Value()})
	return m, cmd
}

func (m *Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.leaveInput()
		return m, nil
	case tea.KeyEnter:
		line := m.input.Value()
		m.leaveInput()
		return m, m.runCommand(line)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runCommand dispatches a typed `action key=value ...` line.
func (m *Model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	a, ok := action.Parse(fields[0])
	if !ok {
		m.logger.Info("unknown action", slog.String("action", fields[0]))
		return nil
	}
	p, err := action.ParseParams(fields[1:])
	if err != nil {
		m.d.Feedback().Warning(err.Error())
		return nil
	}
	return m.dispatch(a, p)
}

func (m *Model) leaveInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.table.Focus()
}

// selected returns the board row under the cursor.
func (m *Model) selected() (rowRef, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return rowRef{}, false
	}
	c, ok := m.d.Board().Customer(row[0])
	if !ok {
		return rowRef{}, false
	}
	return rowRef{ID: c.ID, Active: c.Active}, true
}

type rowRef struct {
	ID     string
	Active bool
}

func (m *Model) syncRows() {
	visible := m.d.Board().Visible()
	rows := make([]table.Row, 0, len(visible))
	for _, c := range visible {
		status := "inactive"
		if c.Active {
			status = "active"
		}
		rows = append(rows, table.Row{c.ID, c.Name, c.Email, c.Phone, status})
	}
	m.table.SetRows(rows)
	if cur := m.table.Cursor(); cur >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// Summary is a one-line description of the last settled cycle.
func (m *Model) Summary() string {
	if m.last == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", m.last.Action, m.last.Status)
}

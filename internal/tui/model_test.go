package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/action"
	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/board"
	"github.com/leapstack-labs/haulboard/internal/dispatch"
	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/loading"
	"github.com/leapstack-labs/haulboard/internal/notifier"
	"github.com/leapstack-labs/haulboard/internal/testutil"
)

type stubBackend struct {
	toggled map[string]bool
}

func (s *stubBackend) UpdateCustomerStatus(_ context.Context, id string, active bool) error {
	s.toggled[id] = active
	return nil
}

func (s *stubBackend) QuickReport(context.Context) (*backend.Report, error) {
	return &backend.Report{TotalRevenue: 10}, nil
}

func (s *stubBackend) OptimizeRoute(_ context.Context, id string) (*backend.Route, error) {
	return &backend.Route{ID: id}, nil
}

func (s *stubBackend) GenerateInvoice(_ context.Context, id string) (*backend.Invoice, error) {
	return &backend.Invoice{ID: "INV-1", CustomerID: id}, nil
}

func (s *stubBackend) Export(context.Context, string) ([]byte, error) { return []byte("id\n"), nil }

type stubRefresher struct {
	b     *board.Board
	calls int
}

func (r *stubRefresher) Refresh(context.Context) (int, error) {
	r.calls++
	r.b.SetCustomers([]backend.Customer{
		{ID: 1, Name: "Alice", Email: "alice@x.com", IsActive: true},
		{ID: 2, Name: "Bob", Email: "bob@y.com", IsActive: false},
	})
	return 2, nil
}

func setupModel(t *testing.T) (*Model, *stubBackend, *stubRefresher) {
	t.Helper()
	n := notifier.New()
	b := board.New(n)
	fc := feedback.New(feedback.Config{TTL: time.Minute, Notifier: n})
	t.Cleanup(fc.Close)
	be := &stubBackend{toggled: map[string]bool{}}
	d := dispatch.New(dispatch.Config{
		Backend:       be,
		Board:         b,
		Feedback:      fc,
		Loading:       loading.New(n),
		SimulateDelay: 10 * time.Millisecond,
		ExportDir:     t.TempDir(),
		Logger:        testutil.NewTestLogger(t),
	})
	t.Cleanup(d.Close)

	r := &stubRefresher{b: b}
	m := New(context.Background(), Options{Dispatcher: d, Refresher: r, Notifier: n, BaseURL: "http://localhost:5000"})
	t.Cleanup(m.Close)

	// first refresh, as Init would run it
	_, _ = m.Update(m.refreshCmd()())
	return m, be, r
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// settleCmd runs a dispatch command to completion and feeds the result back.
func settleCmd(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	_, _ = m.Update(cmd())
}

func TestModel_InitialRows(t *testing.T) {
	m, _, r := setupModel(t)
	assert.Equal(t, 1, r.calls)
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "Alice")
	assert.Contains(t, m.View(), "1 active")
}

func TestModel_QuickActionOpensDialog(t *testing.T) {
	m, _, _ := setupModel(t)

	_, cmd := m.Update(runes("2"))
	settleCmd(t, m, cmd)

	top, ok := m.d.Board().TopDialog()
	require.True(t, ok)
	assert.Equal(t, "Add New Customer", top.Title)
	assert.Contains(t, m.View(), "Add New Customer feature coming soon!")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_, ok = m.d.Board().TopDialog()
	assert.False(t, ok)
}

func TestModel_ToggleSelectedCustomer(t *testing.T) {
	m, be, _ := setupModel(t)

	_, cmd := m.Update(runes("t"))
	assert.True(t, m.d.Loading().Active())
	assert.Contains(t, m.View(), "Updating customer status...")
	settleCmd(t, m, cmd)

	assert.Equal(t, map[string]bool{"1": false}, be.toggled)
	row, ok := m.d.Board().Customer("1")
	require.True(t, ok)
	assert.False(t, row.Active)
	assert.False(t, m.d.Loading().Active())
	assert.Contains(t, m.View(), "Customer status updated successfully")
	assert.Equal(t, "toggle_customer_status succeeded", m.Summary())
}

func TestModel_SearchFilters(t *testing.T) {
	m, _, _ := setupModel(t)

	_, _ = m.Update(runes("/"))
	assert.Equal(t, modeSearch, m.mode)
	for _, r := range "bob" {
		_, _ = m.Update(runes(string(r)))
	}
	assert.Equal(t, "bob", m.d.Board().FilterTerm())
	m.syncRows()
	require.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "Bob", m.table.Rows()[0][1])

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeNormal, m.mode)
	assert.Equal(t, "", m.d.Board().FilterTerm())
}

func TestModel_CommandLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantCmd bool
		check   func(t *testing.T, m *Model)
	}{
		{
			name:    "simulated action",
			line:    "update_request_status request=5 status=completed",
			wantCmd: true,
			check: func(t *testing.T, m *Model) {
				reqs := m.d.Board().Requests()
				require.Len(t, reqs, 1)
				assert.Equal(t, "completed", reqs[0].Status)
			},
		},
		{
			name: "unknown action",
			line: "launch_rockets",
			check: func(t *testing.T, m *Model) {
				assert.Equal(t, 0, m.d.Feedback().Count())
			},
		},
		{
			name: "bad params",
			line: "optimize_route nonsense",
			check: func(t *testing.T, m *Model) {
				visible := m.d.Feedback().Visible()
				require.Len(t, visible, 1)
				assert.Equal(t, feedback.Warning, visible[0].Severity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := setupModel(t)
			_, _ = m.Update(runes(":"))
			require.Equal(t, modeCommand, m.mode)
			m.input.SetValue(tt.line)

			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			assert.Equal(t, modeNormal, m.mode)
			if tt.wantCmd {
				settleCmd(t, m, cmd)
			} else {
				assert.Nil(t, cmd)
			}
			tt.check(t, m)
		})
	}
}

func TestModel_DismissAndQuit(t *testing.T) {
	m, _, _ := setupModel(t)
	m.d.Feedback().Info("hello")

	_, _ = m.Update(runes("x"))
	assert.Equal(t, 0, m.d.Feedback().Count())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_BoardTopicResyncsRows(t *testing.T) {
	m, _, _ := setupModel(t)
	m.d.Board().SetCustomers([]backend.Customer{{ID: 9, Name: "Zed", IsActive: true}})

	_, cmd := m.Update(topicMsg(notifier.TopicBoard))
	assert.NotNil(t, cmd, "pump is re-armed")
	require.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "9", m.table.Rows()[0][0])
}

func TestRenderToasts(t *testing.T) {
	assert.Empty(t, renderToasts(nil, 80))

	out := renderToasts([]feedback.Message{
		{Severity: feedback.Success, Text: "Route optimized successfully"},
		{Severity: feedback.Error, Text: "Network error occurred"},
	}, 80)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "Network error occurred")
}

func TestQuickBarListsSixActions(t *testing.T) {
	m, _, _ := setupModel(t)
	bar := m.quickBar()
	for _, a := range action.QuickActions() {
		assert.Contains(t, bar, a.Title())
	}
}

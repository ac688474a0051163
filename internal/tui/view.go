package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/haulboard/internal/action"
	"github.com/leapstack-labs/haulboard/internal/feedback"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("haulboard"))
	if m.baseURL != "" {
		b.WriteString(mutedStyle.Render("  " + m.baseURL))
	}
	b.WriteString("\n")
	b.WriteString(m.quickBar())
	b.WriteString("\n\n")

	if top, ok := m.d.Board().TopDialog(); ok {
		b.WriteString(renderDialog(top.Title, top.Body, m.width))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("esc to close"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.customerHeader())
		b.WriteString("\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	b.WriteString(m.loadingLine())
	b.WriteString("\n")

	switch m.mode {
	case modeSearch, modeCommand:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case modeNormal:
	}

	if toasts := renderToasts(m.d.Feedback().Visible(), m.width); toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) quickBar() string {
	parts := make([]string, 0, 6)
	for i, a := range action.QuickActions() {
		parts = append(parts, quickStyle.Render(fmt.Sprintf("%d %s", i+1, a.Title())))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) customerHeader() string {
	board := m.d.Board()
	all, visible := len(board.Customers()), len(board.Visible())
	active := 0
	for _, c := range board.Customers() {
		if c.Active {
			active++
		}
	}
	line := fmt.Sprintf("Customers %s %s",
		activeStyle.Render(fmt.Sprintf("%d active", active)),
		inactiveStyle.Render(fmt.Sprintf("%d inactive", all-active)))
	if term := board.FilterTerm(); term != "" {
		line += mutedStyle.Render(fmt.Sprintf("  filter %q: %d of %d", term, visible, all))
	}
	return line
}

func (m *Model) loadingLine() string {
	ind := m.d.Loading()
	if !ind.Active() {
		return ""
	}
	msg := ind.Message()
	if n := ind.Outstanding(); n > 1 {
		msg = fmt.Sprintf("%s (+%d more)", msg, n-1)
	}
	return m.spinner.View() + " " + loadingStyle.Render(msg)
}

func renderDialog(title, body string, width int) string {
	style := dialogStyle
	if width > 10 {
		style = style.MaxWidth(width - 2)
	}
	return style.Render(dialogTitleStyle.Render(title) + "\n" + body)
}

// renderToasts draws the visible messages, newest last.
func renderToasts(msgs []feedback.Message, width int) string {
	if len(msgs) == 0 {
		return ""
	}
	maxLen := max(width-5, 20)
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		text := msg.Text
		if utf8.RuneCountInString(text) > maxLen {
			runes := []rune(text)
			half := (maxLen - 1) / 2
			text = string(runes[:half]) + "…" + string(runes[len(runes)-half:])
		}
		icon := lipgloss.NewStyle().Foreground(severityColor(msg.Severity)).Render(msg.Severity.Icon())
		lines = append(lines, icon+" "+lipgloss.NewStyle().Foreground(textColor).Render(text))
	}
	return strings.Join(lines, "\n")
}

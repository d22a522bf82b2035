package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"numtrack/internal/record"
	"numtrack/internal/view"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("63")).Foreground(lipgloss.Color("0"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)

	badgeColors = map[record.Status]string{
		record.StatusDone:       "10",
		record.StatusNo:         "244",
		record.StatusPending:    "11",
		record.StatusDead:       "9",
		record.StatusResettle:   "12",
		record.StatusDuplicates: "13",
	}
)

func badge(s record.Status) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(badgeColors[s])).
		Width(12).
		Render(s.Label())
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Number Status Tracker"))
	b.WriteString("\n\n")

	if m.mode == modeLoading {
		b.WriteString(m.spinner.View() + " Loading numbers...")
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(renderCounts(view.Count(m.store.Records())))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.renderRecentChanges()),
		panelStyle.Render(m.renderRecentUpdates()),
	))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.renderFilters()))
	b.WriteString("\n\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Showing %d of %d numbers", len(m.visible), record.MaxNumber)))
	b.WriteString("\n---\n")

	if m.mode != modeList {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func renderCounts(c view.Counts) string {
	parts := make([]string, 0, len(record.Statuses))
	for _, s := range record.Statuses {
		part := fmt.Sprintf("%s %d", s.Label(), c.Status[s])
		if sc, ok := c.Sub[s]; ok {
			part += dimStyle.Render(fmt.Sprintf(" (%d done, %d no)", sc.Done, sc.No))
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderRecentChanges() string {
	var b strings.Builder
	b.WriteString("Recent changes\n")
	items := m.store.Recent()
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("none yet"))
		return b.String()
	}
	for _, n := range items {
		b.WriteString(fmt.Sprintf("#%-5d %s\n", n, badge(m.store.Get(n).Status)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRecentUpdates() string {
	var b strings.Builder
	b.WriteString("Recent updates\n")
	updates := view.RecentUpdates(m.store.Records(), m.now())
	if len(updates) == 0 {
		b.WriteString(dimStyle.Render("nothing recorded"))
		return b.String()
	}
	for _, u := range updates {
		b.WriteString(fmt.Sprintf("#%-5d %s %s\n", u.Number, badge(u.Record.Status), u.At.Local().Format(record.DateLayout)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFilters() string {
	search := m.query.Search
	if search == "" {
		search = "-"
	}
	return fmt.Sprintf("search: %s  status: %s  date: %s %s  bulk: %s  source: %s",
		search, filterLabel(m.query.Status), dateFieldLabel(m.query.DateField), windowLabel(m.query),
		m.bulkStatus.Label(), m.source)
}

func (m Model) renderList() string {
	if len(m.visible) == 0 {
		return "No numbers match the current filters."
	}
	start := 0
	if m.cursor >= m.rows {
		start = m.cursor - m.rows + 1
	}
	end := min(start+m.rows, len(m.visible))

	var b strings.Builder
	for i := start; i < end; i++ {
		n := m.visible[i]
		r := m.store.Get(n)
		line := fmt.Sprintf("%4d  %s %-10s %-12s %s", n, badge(r.Status), subLabel(r), formatDate(r.ActiveDate()), r.Name)
		if i == m.cursor {
			line = cursorStyle.Render(">" + line)
		} else {
			line = " " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func subLabel(r record.Record) string {
	if !record.IsCategory(r.Status) {
		return ""
	}
	sub := r.Sub(r.Status).Status
	if sub == record.SubUnset {
		return "-"
	}
	return string(sub)
}

func filterLabel(s record.Status) string {
	if s == "" || s == "all" {
		return "all"
	}
	return s.Label()
}

func dateFieldLabel(f record.DateField) string {
	switch f {
	case record.FieldNone:
		return "any"
	case record.FieldDone:
		return "Done date"
	}
	return f.Owner().Label() + " done date"
}

func windowLabel(q view.Query) string {
	if q.Start == nil && q.End == nil {
		return ""
	}
	from, to := formatDate(q.Start), formatDate(q.End)
	if from == "" {
		from = "..."
	}
	if to == "" {
		to = "..."
	}
	return from + " to " + to
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alanyoungcy/arblens/internal/dashboard"
	"github.com/alanyoungcy/arblens/internal/domain"
)

const maxToasts = 3

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready || !m.loaded {
		if m.lastErr != "" {
			return errorStyle.Render("arblens: "+m.lastErr) + "\n" + mutedStyle.Render("retrying… (q to quit)")
		}
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilterLine())
	b.WriteString("\n\n")

	body := m.renderTable()
	if m.snap.Detail.Visible && m.snap.Detail.Pair != nil {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", m.renderDetail())
	}
	b.WriteString(body)
	b.WriteString("\n")

	if m.snap.Dialog.Open {
		b.WriteString("\n")
		b.WriteString(m.renderDialog())
		b.WriteString("\n")
	}
	if toasts := m.renderToasts(); toasts != "" {
		b.WriteString("\n")
		b.WriteString(toasts)
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render("error: " + m.lastErr))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	s := m.snap.Stats
	parts := []string{
		titleStyle.Render("Market Pair Management"),
		textStyle.Render(fmt.Sprintf("%d pairs", s.TotalPairs)),
		mutedStyle.Render(fmt.Sprintf("%d shown", s.Visible)),
		mutedStyle.Render(fmt.Sprintf("%d selected", s.Selected)),
	}
	for _, st := range domain.PairStatuses {
		parts = append(parts, colored(statusColor(st)).Render(fmt.Sprintf("%s %d", st, s.ByStatus[st])))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderFilterLine() string {
	if m.searching {
		return m.search.View()
	}
	f := m.snap.Filters
	var parts []string
	if m.snap.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.snap.Search))
	}
	if f.MinConfidence != nil {
		parts = append(parts, fmt.Sprintf("confidence ≥ %d", *f.MinConfidence))
	}
	if len(f.Venues) > 0 {
		parts = append(parts, "venues "+joinStrings(f.Venues))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, "categories "+joinStrings(f.Categories))
	}
	if f.Status != "" && f.Status != "all" {
		parts = append(parts, "status "+f.Status)
	}
	sort := fmt.Sprintf("sort %s %s", m.snap.Sort.Key, m.snap.Sort.Direction)
	if len(parts) == 0 {
		return mutedStyle.Render("no filters · " + sort)
	}
	return textStyle.Render(strings.Join(parts, " · ")) + mutedStyle.Render(" · "+sort)
}

func joinStrings[T ~string](vals []T) string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return strings.Join(out, ",")
}

func (m Model) renderTable() string {
	if len(m.snap.Rows) == 0 {
		return mutedStyle.Render("No pairs match the current filters.")
	}

	titleWidth := 34
	if m.width > 0 && m.snap.Detail.Visible {
		titleWidth = max(16, (m.width-70)/2)
	} else if m.width > 0 {
		titleWidth = max(16, (m.width-40)/2)
	}

	var lines []string
	check := "[ ]"
	if m.snap.AllSelected {
		check = "[x]"
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s %-*s %-*s %5s  %-10s %-10s",
		check, titleWidth, "Market 1", titleWidth, "Market 2", "Conf", "Venues", "Status")))

	for i, row := range m.snap.Rows {
		lines = append(lines, m.renderRow(i, row, titleWidth))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(i int, row dashboard.Row, titleWidth int) string {
	check := "[ ]"
	if row.Selected {
		check = "[x]"
	}
	venues := fmt.Sprintf("%s/%s", venueShort(row.Market1.Venue), venueShort(row.Market2.Venue))
	conf := colored(confidenceColor(row.Confidence)).Render(fmt.Sprintf("%4d%%", row.Confidence))
	status := colored(statusColor(row.Status)).Render(fmt.Sprintf("%-10s", row.Status))

	line := fmt.Sprintf("%s %-*s %-*s %s  %-10s %s",
		check,
		titleWidth, truncate(row.Market1.Title, titleWidth),
		titleWidth, truncate(row.Market2.Title, titleWidth),
		conf, venues, status,
	)
	if row.Current {
		line += mutedStyle.Render(" ◂")
	}
	if i == m.cursor {
		return cursorStyle.Render(line)
	}
	return line
}

func venueShort(v domain.Venue) string {
	s := string(v)
	if len(s) > 4 {
		return strings.ToUpper(s[:4])
	}
	return strings.ToUpper(s)
}

func (m Model) renderDetail() string {
	d := m.snap.Detail
	p := d.Pair
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.ID))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n  %s @ %s (%s)\n", mutedStyle.Render("Market 1"), truncate(p.Market1.Title, 40), p.Market1.Price, p.Market1.Venue)
	fmt.Fprintf(&b, "%s\n  %s @ %s (%s)\n", mutedStyle.Render("Market 2"), truncate(p.Market2.Title, 40), p.Market2.Price, p.Market2.Venue)
	fmt.Fprintf(&b, "Confidence %s  Category %s\n",
		colored(confidenceColor(p.Confidence)).Render(fmt.Sprintf("%d%%", p.Confidence)), p.Category)
	if p.OverrideReason != "" {
		fmt.Fprintf(&b, "Override: %s\n", truncate(p.OverrideReason, 40))
	}
	if a := d.Analysis; a != nil {
		fmt.Fprintf(&b, "\n%s (weighted %d, spread %s)\n", mutedStyle.Render("Factors"), a.Weighted, a.Spread)
		for _, f := range a.Factors {
			fmt.Fprintf(&b, "  %-22s %3d  w%d\n", f.Factor, f.Score, f.Weight)
		}
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderDialog() string {
	d := m.snap.Dialog
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Copy.Title))
	b.WriteString("\n")
	b.WriteString(d.Copy.Description)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d pair(s): %s\n", len(d.IDs), strings.Join(d.IDs, ", "))
	if m.reasonActive {
		b.WriteString(m.reason.View())
		b.WriteString("\n")
	}
	if d.LastError != "" {
		b.WriteString(errorStyle.Render(d.LastError))
		b.WriteString("\n")
	}
	switch {
	case d.Processing:
		b.WriteString(mutedStyle.Render("Processing…"))
	case m.reasonActive:
		b.WriteString(mutedStyle.Render("enter " + d.Copy.ConfirmLabel + " · esc cancel"))
	default:
		b.WriteString(mutedStyle.Render("y " + d.Copy.ConfirmLabel + " · esc cancel"))
	}
	return dialogStyle.Render(b.String())
}

func (m Model) renderToasts() string {
	notes := m.snap.Notifications
	if len(notes) == 0 {
		return ""
	}
	if len(notes) > maxToasts {
		notes = notes[:maxToasts]
	}
	toasts := make([]string, 0, len(notes))
	for _, n := range notes {
		c := notificationColor(n.Type)
		body := colored(c).Bold(true).Render(n.Title) + "\n" + n.Message
		if n.Action != nil {
			body += "\n" + mutedStyle.Render("["+n.Action.Label+"]")
		}
		toasts = append(toasts, toastStyle.BorderForeground(lipgloss.Color(c)).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, toasts...)
}

func (m Model) renderFooter() string {
	help := m.keys.shortHelp()
	parts := make([]string, 0, len(help))
	for _, k := range help {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	footer := strings.Join(parts, " · ")
	if !m.lastUpdated.IsZero() {
		footer += " · updated " + m.lastUpdated.Format("15:04:05")
	}
	return mutedStyle.Render(footer)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

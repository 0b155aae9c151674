package cli

import (
	"fmt"
	"strings"

	"TradePilot/internal/domain/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9CA3AF"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func statusStyle(s string) lipgloss.Style {
	switch models.TradeStatus(strings.ToUpper(s)) {
	case models.StatusCompleted:
		return okStyle
	case models.StatusFailed:
		return errStyle
	case models.StatusPending, models.StatusProcessing:
		return warnStyle
	default:
		return mutedStyle
	}
}

// table lays rows out in fixed-width columns sized to the widest cell.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style func(i int, s string) string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			pad := widths[i] - lipgloss.Width(c)
			parts[i] = style(i, c) + strings.Repeat(" ", pad)
		}
		return strings.Join(parts, "  ")
	}

	var b strings.Builder
	b.WriteString(line(header, func(_ int, s string) string { return headerStyle.Render(s) }))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(line(r, func(_ int, s string) string { return s }))
	}
	return b.String()
}

func short(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderReport(title string, r *models.CycleReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if r.Message != "" {
		b.WriteString(mutedStyle.Render(r.Message))
		b.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		rows := make([][]string, 0, len(r.Recommendations))
		for _, rec := range r.Recommendations {
			rows = append(rows, []string{
				string(rec.TradeAction),
				rec.TokenContract,
				rec.AllocationPercentage.StringFixed(2) + "%",
				rec.Amount.String(),
				short(rec.Justification, 48),
			})
		}
		b.WriteString(boxStyle.Render(table([]string{"ACTION", "TOKEN", "ALLOC", "AMOUNT", "WHY"}, rows)))
		b.WriteString("\n")
	}

	if len(r.ExecutionResults) > 0 {
		rows := make([][]string, 0, len(r.ExecutionResults))
		for _, res := range r.ExecutionResults {
			detail := res.Message
			if res.Error != "" {
				detail = res.Error
			}
			rows = append(rows, []string{statusStyle(res.Status).Render(res.Status), res.Token, res.TradeID, short(detail, 48)})
		}
		b.WriteString(boxStyle.Render(table([]string{"RESULT", "TOKEN", "TRADE", "DETAIL"}, rows)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTrades(title string, trades []models.Trade) string {
	if len(trades) == 0 {
		return titleStyle.Render(title) + "\n" + mutedStyle.Render("no trades")
	}
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		detail := ""
		switch {
		case t.Error != nil:
			detail = *t.Error
		case t.ExecutionResponse != nil:
			detail = *t.ExecutionResponse
		}
		rows = append(rows, []string{
			t.CreatedAt.Format("2006-01-02 15:04:05"),
			statusStyle(string(t.Status)).Render(string(t.Status)),
			string(t.TradeAction),
			t.Amount.String(),
			t.ContractAddress,
			short(detail, 40),
		})
	}
	return titleStyle.Render(title) + "\n" +
		boxStyle.Render(table([]string{"CREATED", "STATUS", "ACTION", "AMOUNT", "TOKEN", "DETAIL"}, rows))
}

func renderAgent(a *models.AgentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  @%s\n", okStyle.Render(a.Name), a.ContractAddress, a.TwitterHandle)
	fmt.Fprintf(&b, "posts: %d\n", len(a.RecentPosts))
	if an := a.Analysis; an != nil {
		pos := an.TradingRecommendation
		fmt.Fprintf(&b, "%s %s conviction, %s horizon\n", headerStyle.Render(string(pos.Position)), pos.Conviction, pos.TimeHorizon)
		fmt.Fprintf(&b, "technical %.1f/10  social %.1f/10\n", an.TechnicalAnalysis.Score, an.SocialMetrics.Score)
		b.WriteString(an.ExecutiveSummary)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

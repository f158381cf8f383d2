package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"hsr-monitor/internal/notice"
)

// Columns are the display headers, in order.
var Columns = []string{"Date", "Target", "Acquirer", "Title", "Link", "Transaction number", "Status"}

var (
	colorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBlue).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	captionStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

// cells returns the display values of r in Columns order.
func cells(r Row) []string {
	return []string{r.Date, r.Target, r.Acquirer, r.Title, r.Link, r.TransactionNumber, r.Status()}
}

// RenderTable draws rows as a bordered terminal table.
func RenderTable(rows []Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(Columns...)

	for _, r := range rows {
		c := cells(r)
		if r.IsNew {
			c[len(c)-1] = statusStyle.Render(StatusNew)
		}
		t.Row(c...)
	}
	return t.String()
}

// RenderSummary formats the summary line.
func RenderSummary(s Summary) string {
	return fmt.Sprintf("%s %d   %s %d   %s %s",
		labelStyle.Render("Total notices:"), s.Total,
		labelStyle.Render("New since last visit:"), s.New,
		labelStyle.Render("Latest transaction date:"), notice.OrNA(s.LatestDate),
	)
}

// RenderDetail formats one notice's detail block.
func RenderDetail(r Row) string {
	fields := []struct{ label, value string }{
		{"Title", r.Title},
		{"Date", r.Date},
		{"Acquirer", r.Acquirer},
		{"Target", r.Target},
		{"Transaction number", r.TransactionNumber},
	}

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(f.label+":"), notice.OrNA(f.value))
	}
	return b.String()
}

// Render writes the full view: summary, table and data source caption.
func Render(v *View) string {
	if v.Empty() {
		return EmptyMessage + "\n"
	}
	var b strings.Builder
	b.WriteString(RenderSummary(v.Summary))
	b.WriteString("\n\n")
	b.WriteString(RenderTable(v.Rows))
	b.WriteString("\n")
	b.WriteString(captionStyle.Render("Data source: FTC HSR Early Termination Notices API"))
	b.WriteString("\n")
	return b.String()
}

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lazypower/charmlink/internal/server"
)

const (
	glyphDone    = "■"
	glyphEmpty   = "□"
	glyphPending = "◇"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	todayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(4)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

// GitHub-style: only alternate weekdays are labelled.
var weekdayLabels = [7]string{"", "Mon", "", "Wed", "", "Fri", ""}

// renderGraph draws the window as seven weekday rows by N week columns.
// Future days render blank; today renders highlighted when not yet done.
func renderGraph(g *server.GraphResponse) string {
	rows := make([]string, 7)
	for wd := range 7 {
		var b strings.Builder
		b.WriteString(labelStyle.Render(weekdayLabels[wd]))
		for _, week := range g.Weeks {
			if wd >= len(week) {
				continue
			}
			c := week[wd]
			switch {
			case c.IsFuture:
				b.WriteString(" ")
			case c.Done:
				b.WriteString(doneStyle.Render(glyphDone))
			case c.IsToday:
				b.WriteString(todayStyle.Render(glyphPending))
			default:
				b.WriteString(emptyStyle.Render(glyphEmpty))
			}
			b.WriteString(" ")
		}
		rows[wd] = strings.TrimRight(b.String(), " ")
	}

	h := g.Habit
	title := titleStyle.Render(h.Title)
	summary := summaryStyle.Render(fmt.Sprintf("%s to %s · %d of %d days · streak %d (longest %d)",
		g.Start, g.End, g.Completed, g.Cells, h.CurrentStreak, h.LongestStreak))

	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"), summary)
}

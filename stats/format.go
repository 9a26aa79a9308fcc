package stats

import (
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// EmptyMessage is printed when no action has been recorded.
const EmptyMessage = "No usage stats recorded yet."

// Format renders stats as a table sorted by arm key.
func Format(s Stats) string {
	keys := make([]string, 0, len(s))
	for k, e := range s {
		if e != nil {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return EmptyMessage
	}
	slices.Sort(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		e := s[k]
		rows = append(rows, []string{
			k,
			strconv.Itoa(e.Execute),
			strconv.Itoa(e.Copy),
			strconv.Itoa(e.Cancel),
			strconv.Itoa(e.Total()),
			strconv.Itoa(e.AcceptPercent()) + "%",
		})
	}

	right := lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	left := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Provider/Model", "Exec", "Copy", "Cancel", "Total", "Accept%").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return left
			}
			return right
		})
	return t.String()
}

package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

// styles used by every command
var styles = struct {
	Bold       lipgloss.Style
	Header     lipgloss.Style
	Cell       lipgloss.Style
	SuccessBox lipgloss.Style
	Warning    lipgloss.Style
}{
	Bold:   lipgloss.NewStyle().Bold(true),
	Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1),
	Cell:   lipgloss.NewStyle().Padding(0, 1),
	SuccessBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("42")).
		Padding(0, 1),
	Warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
}

func printSuccessBox(w io.Writer, lines ...string) {
	fmt.Fprintln(w, styles.SuccessBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.Warning.Render("⚠ "+fmt.Sprintf(format, args...)))
}

func renderTable(headers []string, rows [][]string) string {
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		Render()
}

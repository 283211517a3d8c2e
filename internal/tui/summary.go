package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// RenderSummary formats a committed run as a bordered panel.
func RenderSummary(result *csvetl.RunResult) string {
	table := result.Table
	if result.TableCreated {
		table += " (created)"
	}

	rows := [][2]string{
		{"Table", table},
		{"Strategy", string(result.Strategy)},
		{"Rows loaded", fmt.Sprint(result.RowsLoaded)},
		{"Batches", fmt.Sprint(result.Batches)},
		{"Columns", fmt.Sprint(len(result.Schema.Columns))},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
		{"Run ID", result.RunID},
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, SuccessStyle.Render(SymbolCheck+" Load committed"))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(r[0]), ValueStyle.Render(r[1])))
	}
	return BoxStyle.Render(strings.Join(lines, "\n"))
}

// RenderFailure formats a run error for stderr.
func RenderFailure(err error) string {
	return ErrorStyle.Render(SymbolCross+" ") + err.Error()
}

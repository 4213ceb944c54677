package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	network "github.com/neurlang/vocoder/net/lpcnet"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderSummary prints the layers of the model as a table.
func renderSummary(layers []network.LayerSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Layer", "Shape", "Params", "Nonzero").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	var total int
	for _, l := range layers {
		t.Row(l.Name, fmt.Sprintf("(%d, %d)", l.Rows, l.Cols), fmt.Sprint(l.Params), fmt.Sprint(l.Nonzero))
		total += l.Params
	}
	return t.String() + fmt.Sprintf("\nTotal params: %d", total)
}

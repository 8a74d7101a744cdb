package main

import (
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable draws rows under header using the rounded box style. Columns
// listed in rightAligned (1-based) are right-aligned; short rows are padded.
func renderTable(header table.Row, rows []table.Row, rightAligned ...int) string {
	if len(header) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	for _, row := range rows {
		if len(row) < len(header) {
			row = append(row, make(table.Row, len(header)-len(row))...)
		}
		tw.AppendRow(row[:len(header)])
	}
	configs := make([]table.ColumnConfig, len(header))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if slices.Contains(rightAligned, i+1) {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

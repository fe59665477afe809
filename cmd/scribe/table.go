package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableOption adjusts individual columns.
type tableOption func(map[int]*table.ColumnConfig)

// wrapColumn soft-wraps the 0-based column at width runes.
func wrapColumn(index, width int) tableOption {
	return func(configs map[int]*table.ColumnConfig) {
		if cfg, ok := configs[index]; ok {
			cfg.WidthMax = width
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
	}
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, opts ...tableOption) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make(map[int]*table.ColumnConfig, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = &table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	for _, opt := range opts {
		opt(configs)
	}
	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		columnConfigs = append(columnConfigs, *configs[i])
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

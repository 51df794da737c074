package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	xcases "golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// writeJSON prints v as indented JSON, the --json form of scan and show.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// rightAligned lists zero-based column indexes rendered flush right.
type rightAligned []int

func (r rightAligned) has(col int) bool {
	for _, c := range r {
		if c == col {
			return true
		}
	}
	return false
}

func renderTable(headers []string, rows [][]string, right rightAligned) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if right.has(i) {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

var titleCaser = xcases.Title(language.Und)

// roleTitle renders a file role as a column heading, e.g. "Headshape".
func roleTitle(role string) string {
	return titleCaser.String(role)
}

package main

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	labelColor = color.New(color.FgCyan)
	dimColor   = color.New(color.FgHiBlack)
)

// renderTable prints rows under headers. Numeric columns listed in right are right aligned.
func renderTable(w io.Writer, headers []string, rows [][]string, right ...int) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)

	align := make([]tw.Align, len(headers))
	for i := range align {
		align[i] = tw.AlignLeft
	}
	for _, col := range right {
		if col >= 0 && col < len(align) {
			align[col] = tw.AlignRight
		}
	}
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = align
	})

	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package render

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/veridata/veridata/internal/profile"
)

// Profile writes a per-column statistics table.
func Profile(w io.Writer, p *profile.Profile) {
	fmt.Fprintf(w, "%s: %s rows\n", p.Table, humanize.Comma(p.Rows))

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{
		"column", "type", "completeness", "distinctness", "min", "max", "mean", "stddev",
	})

	for _, col := range p.Columns {
		tw.AppendRow(table.Row{
			col.Name,
			col.Type,
			cell(col.Completeness),
			cell(col.ApproxDistinctness),
			cell(col.Minimum),
			cell(col.Maximum),
			cell(col.Mean),
			cell(col.StandardDeviation),
		})
	}

	tw.Render()
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}

	return fmt.Sprintf("%.4g", *v)
}

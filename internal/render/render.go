// Package render prints verification results and metric tables for terminal
// consumption.
package render

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/veridata/veridata/internal/check"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/verification"
)

// Report writes the per-constraint outcome table followed by a one-line
// verdict.
func Report(w io.Writer, result *verification.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"check", "level", "constraint", "status", "message"})

	for _, checkResult := range result.Checks {
		for _, cons := range checkResult.Constraints {
			tw.AppendRow(table.Row{
				checkResult.Description,
				checkResult.Level.String(),
				cons.Constraint,
				statusCell(cons.Status),
				cons.Message,
			})
		}

		tw.AppendSeparator()
	}

	tw.Render()

	verdict(w, result)
}

func statusCell(status check.ConstraintStatus) string {
	switch status {
	case check.ConstraintSuccess:
		return text.FgGreen.Sprint("ok")
	case check.ConstraintFailure:
		return text.FgYellow.Sprint("failed")
	default:
		return text.FgRed.Sprint("error")
	}
}

func verdict(w io.Writer, result *verification.Result) {
	elapsed := result.FinishedAt.Sub(result.StartedAt)
	summary := fmt.Sprintf("run %s on %s: %d checks, %d metrics in %s",
		result.RunID, result.Table,
		len(result.Checks), result.Metrics().Len(),
		humanize.RelTime(result.StartedAt, result.FinishedAt, "", ""),
	)

	if elapsed.Seconds() < 1 {
		summary = fmt.Sprintf("run %s on %s: %d checks, %d metrics in %dms",
			result.RunID, result.Table,
			len(result.Checks), result.Metrics().Len(), elapsed.Milliseconds(),
		)
	}

	switch result.Status {
	case check.StatusSuccess:
		color.New(color.FgGreen, color.Bold).Fprintln(w, "PASSED "+summary)
	case check.StatusWarning:
		color.New(color.FgYellow, color.Bold).Fprintln(w, "WARNING "+summary)
	default:
		color.New(color.FgRed, color.Bold).Fprintln(w, "FAILED "+summary)
	}
}

// Metrics writes every computed metric in stable order.
func Metrics(w io.Writer, metrics *metric.Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"entity", "name", "instance", "value", "approx"})

	for _, m := range metrics.All() {
		approx := ""
		if m.Approx {
			approx = "~"
		}

		instance := m.Instance
		if m.Qualifier != "" {
			instance += " [" + m.Qualifier + "]"
		}

		tw.AppendRow(table.Row{string(m.Entity), m.Name, instance, m.Value.String(), approx})
	}

	tw.Render()
}

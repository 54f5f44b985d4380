package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dutyplan.onebusaway.org/internal/autocorrect"
	"dutyplan.onebusaway.org/internal/metrics"
)

func addAutocorrect(topLevel *cobra.Command, opts *Options) {
	var outPath string

	cmd := &cobra.Command{
		Use:   "autocorrect",
		Short: "Drop segments until each duty passes the labor rules, then write the corrected CSV",
		Example: `
dutyctl autocorrect --blocks blocks.csv --duties duties.csv --out corrected.csv
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(w.session.State().Duties))
			for _, d := range w.session.State().Duties {
				ids = append(ids, d.ID)
			}

			results := make([]autocorrect.Result, 0, len(ids))
			for _, id := range ids {
				result, _, err := w.session.AutoCorrect(cmd.Context(), id)
				if err != nil {
					return err
				}
				results = append(results, result)
			}

			export, err := w.session.ExportCSV()
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, outPath, export.CSV, w.logger); err != nil {
				return err
			}

			printCorrections(cmd, outPath, results, w.session.AllMetrics())
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Corrected duties CSV; stdout when empty")

	topLevel.AddCommand(cmd)
}

func printCorrections(cmd *cobra.Command, outPath string, results []autocorrect.Result, after []metrics.Metrics) {
	out := reportWriter(cmd, outPath)
	remaining := make(map[string]metrics.Warnings, len(after))
	for _, m := range after {
		remaining[m.DutyID] = m.Warnings
	}

	tbl := newTable("DUTY", "REMOVED", "REMAINING WARNINGS")
	changed := 0
	for _, r := range results {
		removed := "-"
		if r.Changed {
			changed++
			removed = strings.Join(r.Removed, ", ")
		}
		warnings := remaining[r.Duty.ID].Active()
		cell := color.GreenString("none")
		if len(warnings) > 0 {
			cell = softColor.Sprint(strings.Join(warnings, ", "))
		}
		tbl.AddRow(r.Duty.ID, removed, cell)
	}
	_, _ = fmt.Fprintln(out, tbl)
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintf(out, "%d of %d duties corrected\n", changed, len(results))
}

package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dutyplan.onebusaway.org/internal/metrics"
)

var (
	hardColor = color.New(color.FgRed)
	softColor = color.New(color.FgYellow)
)

type checkRow struct {
	metrics.Metrics
	DriverID string          `json:"driverId,omitempty"`
	Segments int             `json:"segments"`
	Summary  metrics.Summary `json:"summary"`
}

func addCheck(topLevel *cobra.Command, opts *Options) {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report span, continuous driving and breaks for every duty",
		Example: `
dutyctl check --blocks blocks.csv --duties duties.csv
dutyctl check --gtfs feed.zip --duties duties.csv --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.load(cmd)
			if err != nil {
				return err
			}

			state := w.session.State()
			rows := make([]checkRow, 0, len(state.Duties))
			warned := false
			for i, m := range w.session.AllMetrics() {
				d := state.Duties[i]
				row := checkRow{Metrics: m, DriverID: d.DriverID, Segments: len(d.Segments), Summary: metrics.SummarizeWarnings(m)}
				warned = warned || m.Warnings.Any()
				rows = append(rows, row)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rows); err != nil {
					return err
				}
			} else {
				printCheck(cmd, rows)
			}

			if warned {
				return ErrWarnings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON.")

	topLevel.AddCommand(cmd)
}

func printCheck(cmd *cobra.Command, rows []checkRow) {
	out := cmd.OutOrStdout()
	tbl := newTable("DUTY", "DRIVER", "SEGMENTS", "SPAN", "CONTINUOUS", "BREAK", "WARNINGS")
	hard, soft := 0, 0
	for _, r := range rows {
		driver := r.DriverID
		if driver == "" {
			driver = "-"
		}
		tbl.AddRow(r.DutyID, driver, r.Segments,
			metrics.FormatMinutes(r.TotalSpanMinutes),
			metrics.FormatMinutes(r.LongestContinuousMinutes),
			metrics.FormatMinutes(r.ShortestBreakMinutes),
			warningCell(r.Summary))
		hard += r.Summary.Hard
		soft += r.Summary.Soft
	}
	_, _ = fmt.Fprintln(out, tbl)
	_, _ = fmt.Fprintln(out, "")

	switch {
	case hard > 0:
		_, _ = fmt.Fprintln(out, color.RedString("%d duties checked: %d hard, %d soft warnings", len(rows), hard, soft))
	case soft > 0:
		_, _ = fmt.Fprintln(out, color.YellowString("%d duties checked: %d soft warnings", len(rows), soft))
	default:
		_, _ = fmt.Fprintln(out, color.GreenString("%d duties checked: no warnings", len(rows)))
	}
}

func warningCell(summary metrics.Summary) string {
	if len(summary.Messages) == 0 {
		return color.GreenString("ok")
	}
	names := make([]string, 0, len(summary.Messages))
	for _, m := range summary.Messages {
		if m.Level == metrics.LevelHard {
			names = append(names, hardColor.Sprint(m.Warning))
		} else {
			names = append(names, softColor.Sprint(m.Warning))
		}
	}
	return strings.Join(names, ", ")
}

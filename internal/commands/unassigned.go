package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dutyplan.onebusaway.org/internal/app"
)

func addUnassigned(topLevel *cobra.Command, opts *Options) {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "unassigned",
		Short: "List trip runs that no duty covers",
		Example: `
dutyctl unassigned --blocks blocks.csv --duties duties.csv
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.load(cmd)
			if err != nil {
				return err
			}

			summary := w.session.Unassigned()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			} else {
				printUnassigned(cmd, summary, w.session.State().Settings.MaxUnassignedPercentage)
			}

			if summary.ExceedsLimit {
				return ErrWarnings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON.")

	topLevel.AddCommand(cmd)
}

func printUnassigned(cmd *cobra.Command, summary app.UnassignedSummary, limit float64) {
	out := cmd.OutOrStdout()
	if len(summary.Ranges) > 0 {
		tbl := newTable("BLOCK", "FROM", "TO", "TRIPS", "DEPARTS", "ARRIVES")
		tbl.RightAlign(3)
		for _, r := range summary.Ranges {
			tbl.AddRow(r.BlockID, r.StartTripID, r.EndTripID, r.TripCount, r.FirstDeparture, r.LastArrival)
		}
		_, _ = fmt.Fprintln(out, tbl)
		_, _ = fmt.Fprintln(out, "")
	}

	line := fmt.Sprintf("%d of %d trips unassigned (%.1f%%, limit %.1f%%)",
		summary.UnassignedTrips, summary.TotalTrips, summary.Percentage, limit)
	if summary.ExceedsLimit {
		_, _ = fmt.Fprintln(out, hardColor.Sprint(line))
		return
	}
	_, _ = fmt.Fprintln(out, color.GreenString("%s", line))
}

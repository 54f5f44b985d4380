package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addExport(topLevel *cobra.Command, opts *Options) {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Rewrite a duties CSV with renumbered segments and the current settings hash",
		Example: `
dutyctl export --blocks blocks.csv --duties duties.csv --out normalized.csv
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.load(cmd)
			if err != nil {
				return err
			}

			export, err := w.session.ExportCSV()
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, outPath, export.CSV, w.logger); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(reportWriter(cmd, outPath), "wrote %d rows (settings %s)\n", export.RowCount, export.SettingsHash)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output CSV; stdout when empty")

	topLevel.AddCommand(cmd)
}

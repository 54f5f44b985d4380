// Package commands implements dutyctl, the offline companion of the duty API. It loads a schedule
// and a duties CSV into an in-memory session and reports on or repairs the plan.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"dutyplan.onebusaway.org/internal/app"
	"dutyplan.onebusaway.org/internal/appconf"
	"dutyplan.onebusaway.org/internal/dutycsv"
	"dutyplan.onebusaway.org/internal/logging"
)

// ErrWarnings is returned when a report found labor-rule or coverage problems. The report itself
// has already been printed.
var ErrWarnings = errors.New("duty plan has warnings")

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrWarnings):
		return 1
	default:
		return 2
	}
}

// Options are the flags shared by every subcommand.
type Options struct {
	ConfigPath string
	BlocksCSV  string
	Gtfs       string
	DutiesCSV  string
	Verbose    bool
}

func New() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           "dutyctl",
		Short:         "Check and repair driver duty plans offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "YAML or JSON config file with duty settings")
	flags.StringVar(&opts.BlocksCSV, "blocks", "", "Blocks CSV with block_id,seq,trip_id,trip_start,trip_end")
	flags.StringVar(&opts.Gtfs, "gtfs", "", "Path or URL of a static GTFS zip file, used instead of --blocks")
	flags.StringVar(&opts.DutiesCSV, "duties", "", "Duties CSV to load")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log at debug level")

	AddCommands(cmd, opts)
	return cmd
}

func AddCommands(topLevel *cobra.Command, opts *Options) {
	addCheck(topLevel, opts)
	addAutocorrect(topLevel, opts)
	addUnassigned(topLevel, opts)
	addExport(topLevel, opts)
}

// workspace is a session holding the duties of one CSV file.
type workspace struct {
	session *app.Session
	parsed  *dutycsv.Parsed
	logger  *slog.Logger
}

func (o *Options) load(cmd *cobra.Command) (*workspace, error) {
	if o.DutiesCSV == "" {
		return nil, errors.New("--duties is required")
	}

	cfg, err := appconf.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if o.Verbose || cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(cmd.ErrOrStderr(), level)

	schedule := cfg.Schedule
	if o.BlocksCSV != "" || o.Gtfs != "" {
		schedule = app.ScheduleFromFlags(o.BlocksCSV, o.Gtfs)
		schedule.ServiceID = cfg.Schedule.ServiceID
	}
	if schedule.BlocksCSV == "" && schedule.GtfsSource() == "" {
		return nil, errors.New("a schedule is required: pass --blocks or --gtfs")
	}

	index, manager, err := app.LoadSchedule(cmd.Context(), schedule, logging.WithComponent(logger, "schedule"))
	if err != nil {
		return nil, err
	}
	if manager != nil {
		manager.Shutdown()
	}

	session := app.NewSession(index, cfg.Duty.Settings(), nil, logging.WithComponent(logger, "session"))

	f, err := os.Open(o.DutiesCSV)
	if err != nil {
		return nil, fmt.Errorf("error opening duties csv: %w", err)
	}
	defer logging.SafeCloseWithLogging(f, logger, "duties_csv")

	parsed, _, err := session.ImportCSV(cmd.Context(), f)
	if err != nil {
		return nil, fmt.Errorf("error importing %s: %w", o.DutiesCSV, err)
	}

	w := &workspace{session: session, parsed: parsed, logger: logger}
	w.warnSettingsHash(cmd.ErrOrStderr())
	return w, nil
}

// warnSettingsHash flags files exported under different settings than the ones in effect.
func (w *workspace) warnSettingsHash(out io.Writer) {
	if w.parsed.SettingsHash == "" {
		return
	}
	current, err := dutycsv.SettingsHash(w.session.State().Settings)
	if err != nil {
		logging.LogError(w.logger, "failed to hash settings", err)
		return
	}
	if current != w.parsed.SettingsHash {
		_, _ = fmt.Fprintln(out, color.YellowString("warning: file was exported with settings %s, checking with %s",
			w.parsed.SettingsHash, current))
	}
}

func newTable(headers ...interface{}) *uitable.Table {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = bold.Sprint(h)
	}
	tbl.AddRow(cells...)
	return tbl
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path, data string, logger *slog.Logger) (err error) {
	if path == "" || path == "-" {
		_, err = io.WriteString(cmd.OutOrStdout(), data)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer logging.HandleDeferredError(&err, f.Close, logger, "close_output")

	_, err = io.WriteString(f, data)
	return err
}

// reportWriter is where tables go. When the CSV itself is written to stdout, reports move to
// stderr so the output stays a valid file.
func reportWriter(cmd *cobra.Command, outPath string) io.Writer {
	if outPath == "" || outPath == "-" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

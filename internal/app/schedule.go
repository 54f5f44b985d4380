package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"dutyplan.onebusaway.org/internal/appconf"
	"dutyplan.onebusaway.org/internal/gtfs"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/tripindex"
)

// LoadSchedule builds the trip index from the configured source. The manager is non-nil only
// for GTFS sources. With no source configured the index is empty.
func LoadSchedule(ctx context.Context, cfg appconf.ScheduleConfig, logger *slog.Logger) (*tripindex.Index, *gtfs.Manager, error) {
	start := time.Now()

	switch {
	case cfg.BlocksCSV != "":
		rows, err := ReadBlocksFile(cfg.BlocksCSV, logger)
		if err != nil {
			return nil, nil, err
		}
		logging.LogOperation(logger, "schedule_loaded",
			slog.String("source", cfg.BlocksCSV),
			slog.Int("rows", len(rows)),
			slog.Duration("duration", time.Since(start)))
		return tripindex.Build(rows), nil, nil

	case cfg.GtfsSource() != "":
		manager, err := gtfs.InitManager(ctx, cfg.GtfsSource(), gtfs.BlockRowsOptions{ServiceID: cfg.ServiceID},
			logging.WithComponent(logger, "gtfs"))
		if err != nil {
			return nil, nil, fmt.Errorf("error loading GTFS feed %s: %w", cfg.GtfsSource(), err)
		}
		return tripindex.Build(manager.Rows()), manager, nil

	default:
		logging.LogOperation(logger, "schedule_empty")
		return tripindex.Build(nil), nil, nil
	}
}

// ScheduleFromFlags builds a schedule config from command-line values. A GTFS source wins over a
// blocks CSV; http(s) sources become URLs.
func ScheduleFromFlags(blocksCSV, gtfsSource string) appconf.ScheduleConfig {
	switch {
	case gtfsSource == "":
		return appconf.ScheduleConfig{BlocksCSV: blocksCSV}
	case gtfs.IsLocalFile(gtfsSource):
		return appconf.ScheduleConfig{GtfsPath: gtfsSource}
	default:
		return appconf.ScheduleConfig{GtfsURL: gtfsSource}
	}
}

// ReadBlocksFile reads a blocks CSV from disk.
func ReadBlocksFile(path string, logger *slog.Logger) ([]tripindex.BlockRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening blocks csv: %w", err)
	}
	defer logging.SafeCloseWithLogging(f, logger, "blocks_csv")

	rows, err := tripindex.ReadBlocksCSV(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return rows, nil
}

// WatchSchedule swaps the session's index whenever the manager reloads its feed.
func WatchSchedule(manager *gtfs.Manager, session *Session, interval time.Duration, logger *slog.Logger) {
	if manager == nil || interval <= 0 {
		return
	}
	manager.StartPeriodicUpdates(interval, func(rows []tripindex.BlockRow) {
		session.SetIndex(tripindex.Build(rows))
		logging.LogOperation(logger, "schedule_index_swapped", slog.Int("rows", len(rows)))
	})
}

package app

import (
	"log/slog"

	"dutyplan.onebusaway.org/internal/appconf"
	"dutyplan.onebusaway.org/internal/gtfs"
)

// Application holds the dependencies for our HTTP handlers, helpers, and middleware.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Session *Session
	// GtfsManager is set when block rows come from a static GTFS feed.
	GtfsManager *gtfs.Manager
}

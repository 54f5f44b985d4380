package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dutyplan.onebusaway.org/internal/app"
	"dutyplan.onebusaway.org/internal/appconf"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/persistence"
	"dutyplan.onebusaway.org/internal/restapi"
)

// flags holds command-line values. Only flags that were set explicitly override the config file.
type flags struct {
	configPath  string
	port        int
	env         string
	apiKeys     string
	blocksCSV   string
	gtfs        string
	storage     string
	storagePath string
	verbose     bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML or JSON config file")
	flag.IntVar(&f.port, "port", 4000, "API server port")
	flag.StringVar(&f.env, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&f.apiKeys, "api-keys", "test", "Comma Separated API Keys (test, etc)")
	flag.StringVar(&f.blocksCSV, "blocks", "", "Blocks CSV with block_id,seq,trip_id,trip_start,trip_end")
	flag.StringVar(&f.gtfs, "gtfs", "", "Path or URL of a static GTFS zip file")
	flag.StringVar(&f.storage, "storage", "", "Snapshot storage backend (memory|sqlite|disk)")
	flag.StringVar(&f.storagePath, "storage-path", "", "SQLite file or disk store directory")
	flag.BoolVar(&f.verbose, "verbose", false, "Log at debug level")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { explicit[fl.Name] = true })

	cfg, err := loadConfig(f, explicit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewStructuredLogger(os.Stdout, logging.LevelFor(cfg.Verbose))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logging.LogError(logger, "server stopped", err)
		os.Exit(1)
	}
}

func loadConfig(f flags, explicit map[string]bool) (*appconf.Config, error) {
	cfg, err := appconf.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	if explicit["port"] {
		cfg.Port = f.port
	}
	if explicit["env"] {
		cfg.Env = appconf.EnvFlagToEnvironment(f.env)
	}
	if explicit["api-keys"] {
		cfg.ApiKeys = appconf.SplitAPIKeys(f.apiKeys)
	}
	if explicit["blocks"] || explicit["gtfs"] {
		schedule := app.ScheduleFromFlags(f.blocksCSV, f.gtfs)
		schedule.ServiceID = cfg.Schedule.ServiceID
		schedule.RefreshMinutes = cfg.Schedule.RefreshMinutes
		cfg.Schedule = schedule
	}
	if explicit["storage"] {
		cfg.Storage = appconf.StorageConfig{Backend: f.storage}
	}
	if explicit["storage-path"] {
		cfg.Storage.Path = f.storagePath
	}
	if explicit["verbose"] {
		cfg.Verbose = f.verbose
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *appconf.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, manager, err := app.LoadSchedule(ctx, cfg.Schedule, logging.WithComponent(logger, "schedule"))
	if err != nil {
		return err
	}
	if manager != nil {
		defer manager.Shutdown()
	}

	storage, closer, err := persistence.Open(ctx, cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("error opening %s storage: %w", cfg.Storage.Backend, err)
	}
	defer logging.SafeCloseWithLogging(closer, logger, "snapshot_storage")

	session := app.NewSession(index, cfg.Duty.Settings(), storage, logging.WithComponent(logger, "session"))
	if restored, err := session.Restore(ctx); err != nil {
		logging.LogError(logger, "failed to restore saved duties", err, slog.String("component", "persistence"))
	} else if !restored {
		logging.LogOperation(logger, "duty_state_fresh", slog.String("backend", cfg.Storage.Backend))
	}
	app.WatchSchedule(manager, session, time.Duration(cfg.Schedule.RefreshMinutes)*time.Minute, logger)

	application := &app.Application{
		Config:      *cfg,
		Logger:      logger,
		Session:     session,
		GtfsManager: manager,
	}
	api := restapi.NewRestAPI(application)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server",
			slog.String("addr", srv.Addr),
			slog.String("env", string(cfg.Env)),
			slog.Int("blocks", len(index.BlockIDs())))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logging.LogOperation(logger, "shutting_down_server")
	return srv.Shutdown(shutdownCtx)
}

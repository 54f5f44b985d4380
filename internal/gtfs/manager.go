package gtfs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/tripindex"
)

// Manager holds the block rows of a static feed and refreshes them from a remote source.
type Manager struct {
	source       string
	opts         BlockRowsOptions
	logger       *slog.Logger
	mu           sync.RWMutex
	rows         []tripindex.BlockRow
	lastUpdated  time.Time
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// InitManager loads the feed at source once.
func InitManager(ctx context.Context, source string, opts BlockRowsOptions, logger *slog.Logger) (*Manager, error) {
	rows, err := LoadBlockRows(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		source:       source,
		opts:         opts,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}
	m.setRows(rows)
	return m, nil
}

// Rows returns the current block rows.
func (m *Manager) Rows() []tripindex.BlockRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows
}

func (m *Manager) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUpdated
}

// StartPeriodicUpdates reloads a remote feed every interval and hands the new rows to onUpdate.
// Local files are never reloaded.
func (m *Manager) StartPeriodicUpdates(interval time.Duration, onUpdate func([]tripindex.BlockRow)) {
	if IsLocalFile(m.source) {
		logging.LogOperation(m.logger, "gtfs_periodic_updates_skipped", slog.String("source", m.source))
		return
	}
	m.wg.Add(1)
	go m.updatePeriodically(interval, onUpdate)
}

func (m *Manager) updatePeriodically(interval time.Duration, onUpdate func([]tripindex.BlockRow)) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			rows, err := LoadBlockRows(ctx, m.source, m.opts)
			cancel()
			if err != nil {
				logging.LogError(m.logger, "error updating GTFS data", err, slog.String("source", m.source))
				continue
			}
			m.setRows(rows)
			if onUpdate != nil {
				onUpdate(rows)
			}
		case <-m.shutdownChan:
			logging.LogOperation(m.logger, "gtfs_periodic_updates_stopped")
			return
		}
	}
}

func (m *Manager) setRows(rows []tripindex.BlockRow) {
	m.mu.Lock()
	m.rows = rows
	m.lastUpdated = time.Now()
	m.mu.Unlock()
	logging.LogOperation(m.logger, "gtfs_block_rows_loaded",
		slog.String("source", m.source),
		slog.Int("rows", len(rows)))
}

// Shutdown stops periodic updates and waits for them to finish.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
		m.wg.Wait()
	})
}

package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"dutyplan.onebusaway.org/internal/autocorrect"
	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/dutycsv"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/metrics"
	"dutyplan.onebusaway.org/internal/persistence"
	"dutyplan.onebusaway.org/internal/tripindex"
)

// Session owns one editor state and serializes every read-modify-write on it. After each change
// the state is written to storage when one is configured.
type Session struct {
	mu      sync.Mutex
	state   *duty.EditState
	index   *tripindex.Index
	storage persistence.Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewSession creates a session with an empty state. storage may be nil.
func NewSession(index *tripindex.Index, settings duty.Settings, storage persistence.Storage, logger *slog.Logger) *Session {
	return &Session{
		state:   duty.NewEditState(settings),
		index:   index,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Restore replaces the state with the stored snapshot, if there is one.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.storage == nil {
		return false, nil
	}
	stored, ok, err := persistence.Load(ctx, s.storage)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = persistence.RestoreState(stored)
	logging.LogOperation(s.logger, "duty_state_restored",
		slog.Int("duties", len(stored.Duties)),
		slog.Time("saved_at", stored.SavedAt))
	return true, nil
}

// State returns the current state. Callers must treat it as read-only.
func (s *Session) State() *duty.EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Index() *tripindex.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// SetIndex swaps the trip index, e.g. after a schedule refresh. Existing duties are kept as is.
func (s *Session) SetIndex(index *tripindex.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
}

func (s *Session) AddSegment(ctx context.Context, input duty.AddSegmentInput) (*duty.EditState, error) {
	return s.apply(ctx, "add_segment", func(state *duty.EditState, index *tripindex.Index) (*duty.EditState, error) {
		return duty.AddDutySegment(state, input, index)
	})
}

func (s *Session) MoveSegment(ctx context.Context, input duty.MoveSegmentInput) (*duty.EditState, error) {
	return s.apply(ctx, "move_segment", func(state *duty.EditState, index *tripindex.Index) (*duty.EditState, error) {
		return duty.MoveDutySegment(state, input, index)
	})
}

func (s *Session) DeleteSegment(ctx context.Context, input duty.DeleteSegmentInput) (*duty.EditState, error) {
	return s.apply(ctx, "delete_segment", func(state *duty.EditState, _ *tripindex.Index) (*duty.EditState, error) {
		return duty.DeleteDutySegment(state, input)
	})
}

func (s *Session) ReplaceDuties(ctx context.Context, duties []duty.Duty) (*duty.EditState, error) {
	return s.apply(ctx, "replace_duties", func(state *duty.EditState, index *tripindex.Index) (*duty.EditState, error) {
		return duty.ReplaceDutyState(state, duties, index)
	})
}

func (s *Session) Undo(ctx context.Context) (*duty.EditState, error) {
	return s.apply(ctx, "undo", func(state *duty.EditState, _ *tripindex.Index) (*duty.EditState, error) {
		return duty.UndoLastAction(state), nil
	})
}

func (s *Session) Redo(ctx context.Context) (*duty.EditState, error) {
	return s.apply(ctx, "redo", func(state *duty.EditState, _ *tripindex.Index) (*duty.EditState, error) {
		return duty.RedoLastAction(state), nil
	})
}

// UpdateSettings changes the thresholds. This is not an undoable step.
func (s *Session) UpdateSettings(ctx context.Context, settings duty.Settings) (*duty.EditState, error) {
	return s.apply(ctx, "update_settings", func(state *duty.EditState, _ *tripindex.Index) (*duty.EditState, error) {
		return state.WithSettings(settings), nil
	})
}

// AutoCorrect repairs one duty and, when anything was removed, applies the result as a single
// undoable step.
func (s *Session) AutoCorrect(ctx context.Context, dutyID string) (autocorrect.Result, *duty.EditState, error) {
	var result autocorrect.Result
	state, err := s.apply(ctx, "auto_correct", func(state *duty.EditState, index *tripindex.Index) (*duty.EditState, error) {
		current, ok := state.FindDuty(dutyID)
		if !ok {
			return nil, &duty.NotFoundError{Kind: "duty", ID: dutyID}
		}
		result = autocorrect.AutoCorrectDuty(current, index, state.Settings)
		if !result.Changed {
			return state, nil
		}
		return duty.ReplaceDutyState(state, replaceDuty(state.Duties, result.Duty), index)
	})
	return result, state, err
}

// Metrics computes the metrics of one duty.
func (s *Session) Metrics(dutyID string) (metrics.Metrics, error) {
	s.mu.Lock()
	state, index := s.state, s.index
	s.mu.Unlock()

	d, ok := state.FindDuty(dutyID)
	if !ok {
		return metrics.Metrics{}, &duty.NotFoundError{Kind: "duty", ID: dutyID}
	}
	return metrics.ComputeDutyMetrics(d, index, state.Settings), nil
}

// AllMetrics computes the metrics of every duty, in duty order.
func (s *Session) AllMetrics() []metrics.Metrics {
	s.mu.Lock()
	state, index := s.state, s.index
	s.mu.Unlock()

	out := make([]metrics.Metrics, 0, len(state.Duties))
	for _, d := range state.Duties {
		out = append(out, metrics.ComputeDutyMetrics(d, index, state.Settings))
	}
	return out
}

// UnassignedSummary reports how much of the schedule no duty covers.
type UnassignedSummary struct {
	Ranges          []duty.UnassignedRange `json:"ranges"`
	UnassignedTrips int                    `json:"unassignedTrips"`
	TotalTrips      int                    `json:"totalTrips"`
	Percentage      float64                `json:"percentage"`
	ExceedsLimit    bool                   `json:"exceedsLimit"`
}

func (s *Session) Unassigned() UnassignedSummary {
	s.mu.Lock()
	state, index := s.state, s.index
	s.mu.Unlock()

	summary := UnassignedSummary{Ranges: duty.ComputeUnassignedRanges(index, state.Duties)}
	summary.UnassignedTrips, summary.TotalTrips = duty.UnassignedTripCount(index, state.Duties)
	if summary.TotalTrips > 0 {
		summary.Percentage = float64(summary.UnassignedTrips) * 100 / float64(summary.TotalTrips)
	}
	summary.ExceedsLimit = summary.Percentage > state.Settings.MaxUnassignedPercentage
	return summary
}

func (s *Session) ExportCSV() (dutycsv.Export, error) {
	state := s.State()
	return dutycsv.BuildCSV(state.Duties, state.Settings, s.now())
}

// ImportCSV parses a duties CSV against the current index and replaces all duties with it.
func (s *Session) ImportCSV(ctx context.Context, r io.Reader) (*dutycsv.Parsed, *duty.EditState, error) {
	var parsed *dutycsv.Parsed
	state, err := s.apply(ctx, "import_csv", func(state *duty.EditState, index *tripindex.Index) (*duty.EditState, error) {
		var err error
		parsed, err = dutycsv.ParseCSV(r, index)
		if err != nil {
			return nil, err
		}
		return duty.ReplaceDutyState(state, parsed.Duties, index)
	})
	return parsed, state, err
}

func (s *Session) apply(ctx context.Context, operation string, fn func(*duty.EditState, *tripindex.Index) (*duty.EditState, error)) (*duty.EditState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.state, s.index)
	if err != nil {
		logging.FromContext(ctx).Debug("duty command rejected",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, err
	}
	if next == s.state {
		return next, nil
	}
	s.state = next

	logging.LogOperation(s.logger, "duty_"+operation,
		slog.Int("duties", len(next.Duties)),
		slog.Int("undo_depth", len(next.UndoStack)),
		slog.Int("redo_depth", len(next.RedoStack)))

	if s.storage != nil {
		if err := persistence.Save(ctx, s.storage, next, s.now()); err != nil {
			logging.LogError(s.logger, "failed to save duty state", err,
				slog.String("operation", operation),
				slog.String("component", "persistence"))
		}
	}
	return next, nil
}

func replaceDuty(duties []duty.Duty, updated duty.Duty) []duty.Duty {
	out := make([]duty.Duty, 0, len(duties))
	for _, d := range duties {
		if d.ID != updated.ID {
			out = append(out, d)
			continue
		}
		if len(updated.Segments) > 0 {
			out = append(out, updated)
		}
	}
	return out
}

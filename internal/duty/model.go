package duty

import (
	"math"
)

// SegmentKind distinguishes revenue trip ranges from deadhead moves.
type SegmentKind string

const (
	KindTrip     SegmentKind = "trip"
	KindDeadhead SegmentKind = "deadhead"
)

// Segment is a contiguous range of trips within one block, or a deadhead anchored between two
// trips of a block. Deadheads do not occupy the trips they are anchored to.
type Segment struct {
	ID                 string      `json:"id"`
	BlockID            string      `json:"blockId"`
	StartTripID        string      `json:"startTripId"`
	EndTripID          string      `json:"endTripId"`
	StartSequence      int         `json:"startSequence"`
	EndSequence        int         `json:"endSequence"`
	Kind               SegmentKind `json:"kind,omitempty"`
	DeadheadMinutes    int         `json:"deadheadMinutes,omitempty"`
	DeadheadFromStopID string      `json:"deadheadFromStopId,omitempty"`
	DeadheadToStopID   string      `json:"deadheadToStopId,omitempty"`
}

// IsDeadhead reports whether the segment is a deadhead. An empty kind is a trip segment.
func (s Segment) IsDeadhead() bool {
	return s.Kind == KindDeadhead
}

// Overlaps reports whether two trip segments of the same block share at least one trip.
func (s Segment) Overlaps(other Segment) bool {
	if s.IsDeadhead() || other.IsDeadhead() || s.BlockID != other.BlockID {
		return false
	}
	return s.StartSequence <= other.EndSequence && s.EndSequence >= other.StartSequence
}

// Duty is one driver's assignment for a service day.
type Duty struct {
	ID       string    `json:"id"`
	DriverID string    `json:"driverId,omitempty"`
	Segments []Segment `json:"segments"`
}

// Settings holds the labor-rule thresholds and editor limits.
type Settings struct {
	MaxContinuousMinutes    float64 `json:"maxContinuousMinutes"`
	MinBreakMinutes         float64 `json:"minBreakMinutes"`
	MaxDailyMinutes         float64 `json:"maxDailyMinutes"`
	UndoStackLimit          int     `json:"undoStackLimit"`
	MaxUnassignedPercentage float64 `json:"maxUnassignedPercentage"`
	MaxNightShiftVariance   float64 `json:"maxNightShiftVariance"`
}

const (
	DefaultMaxContinuousMinutes    = 240
	DefaultMinBreakMinutes         = 30
	DefaultMaxDailyMinutes         = 780
	DefaultUndoStackLimit          = 50
	DefaultMaxUnassignedPercentage = 10
	DefaultMaxNightShiftVariance   = 60
)

// DefaultSettings returns the built-in thresholds.
func DefaultSettings() Settings {
	return Settings{
		MaxContinuousMinutes:    DefaultMaxContinuousMinutes,
		MinBreakMinutes:         DefaultMinBreakMinutes,
		MaxDailyMinutes:         DefaultMaxDailyMinutes,
		UndoStackLimit:          DefaultUndoStackLimit,
		MaxUnassignedPercentage: DefaultMaxUnassignedPercentage,
		MaxNightShiftVariance:   DefaultMaxNightShiftVariance,
	}
}

// Sanitize replaces NaN and infinite thresholds with their defaults.
func (s Settings) Sanitize() Settings {
	d := DefaultSettings()
	return Settings{
		MaxContinuousMinutes:    finiteOr(s.MaxContinuousMinutes, d.MaxContinuousMinutes),
		MinBreakMinutes:         finiteOr(s.MinBreakMinutes, d.MinBreakMinutes),
		MaxDailyMinutes:         finiteOr(s.MaxDailyMinutes, d.MaxDailyMinutes),
		UndoStackLimit:          s.UndoStackLimit,
		MaxUnassignedPercentage: finiteOr(s.MaxUnassignedPercentage, d.MaxUnassignedPercentage),
		MaxNightShiftVariance:   finiteOr(s.MaxNightShiftVariance, d.MaxNightShiftVariance),
	}
}

func finiteOr(value, fallback float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	return value
}

// EditState is the editor's full state. Values are never mutated after construction: every
// command returns a new EditState with a freshly built Duties slice.
//
// DutyCounter and SegmentCounter hold the last issued id numbers so that ids stay deterministic
// and never reuse a number within the state's lifetime, even across undo.
type EditState struct {
	Duties         []Duty
	Settings       Settings
	UndoStack      [][]Duty
	RedoStack      [][]Duty
	DutyCounter    int
	SegmentCounter int
}

// NewEditState creates an empty state with the given settings.
func NewEditState(settings Settings) *EditState {
	return &EditState{
		Duties:    []Duty{},
		Settings:  settings.Sanitize(),
		UndoStack: [][]Duty{},
		RedoStack: [][]Duty{},
	}
}

// FindDuty returns the duty with the given id.
func (s *EditState) FindDuty(dutyID string) (Duty, bool) {
	for _, d := range s.Duties {
		if d.ID == dutyID {
			return d, true
		}
	}
	return Duty{}, false
}

// CanUndo reports whether an undo step is available.
func (s *EditState) CanUndo() bool {
	return len(s.UndoStack) > 0
}

// CanRedo reports whether a redo step is available.
func (s *EditState) CanRedo() bool {
	return len(s.RedoStack) > 0
}

// WithSettings returns a copy of the state using new settings. History is left untouched; settings
// changes are not undoable. Stacks longer than a lowered limit are trimmed from the oldest end.
func (s *EditState) WithSettings(settings Settings) *EditState {
	settings = settings.Sanitize()
	return &EditState{
		Duties:         s.Duties,
		Settings:       settings,
		UndoStack:      trimStack(s.UndoStack, settings.UndoStackLimit),
		RedoStack:      trimStack(s.RedoStack, settings.UndoStackLimit),
		DutyCounter:    s.DutyCounter,
		SegmentCounter: s.SegmentCounter,
	}
}

package models

import (
	"dutyplan.onebusaway.org/internal/autocorrect"
	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/metrics"
)

// DutyStateEntry is the editor state as seen by clients. The history stacks themselves stay on the
// server; clients only learn how deep they are.
type DutyStateEntry struct {
	Duties    []duty.Duty   `json:"duties"`
	Settings  duty.Settings `json:"settings"`
	CanUndo   bool          `json:"canUndo"`
	CanRedo   bool          `json:"canRedo"`
	UndoDepth int           `json:"undoDepth"`
	RedoDepth int           `json:"redoDepth"`
}

func NewDutyStateEntry(state *duty.EditState) DutyStateEntry {
	duties := state.Duties
	if duties == nil {
		duties = []duty.Duty{}
	}
	return DutyStateEntry{
		Duties:    duties,
		Settings:  state.Settings,
		CanUndo:   state.CanUndo(),
		CanRedo:   state.CanRedo(),
		UndoDepth: len(state.UndoStack),
		RedoDepth: len(state.RedoStack),
	}
}

// DutyMetricsEntry adds display strings and a warning summary to the raw metrics.
type DutyMetricsEntry struct {
	metrics.Metrics
	TotalSpan         string          `json:"totalSpan"`
	LongestContinuous string          `json:"longestContinuous"`
	ShortestBreak     string          `json:"shortestBreak"`
	Summary           metrics.Summary `json:"summary"`
}

func NewDutyMetricsEntry(m metrics.Metrics) DutyMetricsEntry {
	return DutyMetricsEntry{
		Metrics:           m,
		TotalSpan:         metrics.FormatMinutes(m.TotalSpanMinutes),
		LongestContinuous: metrics.FormatMinutes(m.LongestContinuousMinutes),
		ShortestBreak:     metrics.FormatMinutes(m.ShortestBreakMinutes),
		Summary:           metrics.SummarizeWarnings(m),
	}
}

// AutoCorrectEntry reports what an auto-correct pass removed and the resulting state.
type AutoCorrectEntry struct {
	DutyID  string         `json:"dutyId"`
	Changed bool           `json:"changed"`
	Removed []string       `json:"removed"`
	Duty    duty.Duty      `json:"duty"`
	State   DutyStateEntry `json:"state"`
}

func NewAutoCorrectEntry(dutyID string, result autocorrect.Result, state *duty.EditState) AutoCorrectEntry {
	removed := result.Removed
	if removed == nil {
		removed = []string{}
	}
	return AutoCorrectEntry{
		DutyID:  dutyID,
		Changed: result.Changed,
		Removed: removed,
		Duty:    result.Duty,
		State:   NewDutyStateEntry(state),
	}
}

// ImportEntry reports the outcome of a CSV import.
type ImportEntry struct {
	SettingsHash string         `json:"settingsHash,omitempty"`
	GeneratedAt  string         `json:"generatedAt,omitempty"`
	DutyCount    int            `json:"dutyCount"`
	State        DutyStateEntry `json:"state"`
}

// BlockEntry summarizes one block of the loaded schedule.
type BlockEntry struct {
	BlockID        string `json:"blockId"`
	TripCount      int    `json:"tripCount"`
	FirstDeparture string `json:"firstDeparture"`
	LastArrival    string `json:"lastArrival"`
}

package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"dutyplan.onebusaway.org/internal/duty"
)

const (
	// StateKey is the storage key of the editor snapshot.
	StateKey = "duty-edit-state-v1"
	// StateVersion is the only snapshot version Load accepts.
	StateVersion = 1
)

// StoredState is the persisted form of an edit state. Undo and redo history are never stored.
type StoredState struct {
	Version  int           `json:"version"`
	SavedAt  time.Time     `json:"savedAt"`
	Settings duty.Settings `json:"settings"`
	Duties   []duty.Duty   `json:"duties"`
}

// Save writes the duties and settings of state under StateKey.
func Save(ctx context.Context, storage Storage, state *duty.EditState, now time.Time) error {
	payload, err := json.Marshal(StoredState{
		Version:  StateVersion,
		SavedAt:  now.UTC(),
		Settings: state.Settings.Sanitize(),
		Duties:   duty.CloneDuties(state.Duties),
	})
	if err != nil {
		return fmt.Errorf("error encoding duty state: %w", err)
	}
	return storage.Set(ctx, StateKey, payload)
}

// Load reads the snapshot under StateKey. A missing key reports false. A snapshot of another
// version, or one that cannot be decoded, is removed and also reports false. Settings that are
// missing or not finite numbers fall back to their defaults.
func Load(ctx context.Context, storage Storage) (*StoredState, bool, error) {
	raw, ok, err := storage.Get(ctx, StateKey)
	if err != nil || !ok {
		return nil, false, err
	}

	stored, err := decode(raw)
	if err != nil {
		if rerr := storage.Remove(ctx, StateKey); rerr != nil {
			return nil, false, fmt.Errorf("error discarding unreadable duty state (%v): %w", err, rerr)
		}
		return nil, false, nil
	}
	return stored, true, nil
}

// Clear removes the snapshot.
func Clear(ctx context.Context, storage Storage) error {
	return storage.Remove(ctx, StateKey)
}

// RestoreState rebuilds an edit state from a snapshot, with empty history.
func RestoreState(stored *StoredState) *duty.EditState {
	state := duty.NewEditState(stored.Settings)
	state.Duties = duty.CloneDuties(stored.Duties)
	return state
}

type envelope struct {
	Version  *int                       `json:"version"`
	SavedAt  string                     `json:"savedAt"`
	Settings map[string]json.RawMessage `json:"settings"`
	Duties   json.RawMessage            `json:"duties"`
}

func decode(raw []byte) (*StoredState, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Version == nil || *env.Version != StateVersion {
		return nil, errors.New("unsupported duty state version")
	}

	stored := &StoredState{
		Version:  StateVersion,
		Settings: decodeSettings(env.Settings),
		Duties:   []duty.Duty{},
	}
	if t, err := time.Parse(time.RFC3339Nano, env.SavedAt); err == nil {
		stored.SavedAt = t
	}

	if len(env.Duties) > 0 {
		var duties []duty.Duty
		if err := json.Unmarshal(env.Duties, &duties); err != nil {
			return nil, fmt.Errorf("error decoding duties: %w", err)
		}
		if duties != nil {
			stored.Duties = duties
		}
	}
	for i := range stored.Duties {
		if stored.Duties[i].Segments == nil {
			stored.Duties[i].Segments = []duty.Segment{}
		}
	}
	return stored, nil
}

func decodeSettings(fields map[string]json.RawMessage) duty.Settings {
	d := duty.DefaultSettings()
	return duty.Settings{
		MaxContinuousMinutes:    number(fields["maxContinuousMinutes"], d.MaxContinuousMinutes),
		MinBreakMinutes:         number(fields["minBreakMinutes"], d.MinBreakMinutes),
		MaxDailyMinutes:         number(fields["maxDailyMinutes"], d.MaxDailyMinutes),
		UndoStackLimit:          int(number(fields["undoStackLimit"], float64(d.UndoStackLimit))),
		MaxUnassignedPercentage: number(fields["maxUnassignedPercentage"], d.MaxUnassignedPercentage),
		MaxNightShiftVariance:   number(fields["maxNightShiftVariance"], d.MaxNightShiftVariance),
	}
}

func number(raw json.RawMessage, fallback float64) float64 {
	var v *float64
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil || v == nil {
		return fallback
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fallback
	}
	return *v
}

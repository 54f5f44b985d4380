package duty

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutyplan.onebusaway.org/internal/tripindex"
)

func testIndex() *tripindex.Index {
	return tripindex.Build([]tripindex.BlockRow{
		{BlockID: "BLOCK_001", Sequence: 1, TripID: "T1", StartTime: "08:00", EndTime: "08:45"},
		{BlockID: "BLOCK_001", Sequence: 2, TripID: "T2", StartTime: "09:00", EndTime: "09:30"},
		{BlockID: "BLOCK_001", Sequence: 3, TripID: "T3", StartTime: "10:00", EndTime: "11:00"},
		{BlockID: "BLOCK_001", Sequence: 4, TripID: "T4", StartTime: "11:10", EndTime: "12:00"},
		{BlockID: "BLOCK_002", Sequence: 1, TripID: "U1", StartTime: "07:00", EndTime: "07:40"},
		{BlockID: "BLOCK_002", Sequence: 2, TripID: "U2", StartTime: "08:00", EndTime: "08:40"},
	})
}

func mustAdd(t *testing.T, state *EditState, input AddSegmentInput) *EditState {
	t.Helper()
	next, err := AddDutySegment(state, input, testIndex())
	require.NoError(t, err)
	return next
}

func assertDisjoint(t *testing.T, state *EditState) {
	t.Helper()
	assert.NoError(t, CheckOverlaps(state.Duties))
}

func TestAddDutySegment(t *testing.T) {
	t.Run("creates duty with deterministic ids", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2"})

		require.Len(t, state.Duties, 1)
		assert.Equal(t, "DUTY_001", state.Duties[0].ID)
		require.Len(t, state.Duties[0].Segments, 1)
		seg := state.Duties[0].Segments[0]
		assert.Equal(t, "SEG_001", seg.ID)
		assert.Equal(t, 1, seg.StartSequence)
		assert.Equal(t, 2, seg.EndSequence)
		assert.Len(t, state.UndoStack, 1)
		assert.Empty(t, state.UndoStack[0])
	})

	t.Run("appends to existing duty and overwrites driver", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2", DriverID: "DRV_A"})
		state = mustAdd(t, state, AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3", DriverID: "DRV_B"})

		require.Len(t, state.Duties, 1)
		assert.Equal(t, "DRV_B", state.Duties[0].DriverID)
		assert.Equal(t, []string{"SEG_001", "SEG_002"}, segmentIDs(state.Duties[0]))
	})

	t.Run("second new duty gets next id", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_002", StartTripID: "U1", EndTripID: "U2"})
		assert.Equal(t, "DUTY_002", state.Duties[1].ID)
		assert.Equal(t, "SEG_002", state.Duties[1].Segments[0].ID)
	})

	t.Run("does not mutate the previous state", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
		before := CloneDuties(state.Duties)

		next := mustAdd(t, state, AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T3"})
		assert.Equal(t, before, state.Duties)
		assert.Len(t, next.Duties[0].Segments, 2)
		assert.Len(t, state.Duties[0].Segments, 1)
	})

	t.Run("clears redo stack", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
		state = UndoLastAction(state)
		require.True(t, state.CanRedo())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T2"})
		assert.False(t, state.CanRedo())
	})
}

func TestAddDutySegmentErrors(t *testing.T) {
	base := NewEditState(DefaultSettings())
	base = mustAdd(t, base, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T3"})

	tests := []struct {
		name   string
		input  AddSegmentInput
		target error
	}{
		{name: "missing block", input: AddSegmentInput{StartTripID: "T1", EndTripID: "T1"}, target: ErrValidation},
		{name: "missing end trip", input: AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1"}, target: ErrValidation},
		{name: "unknown block", input: AddSegmentInput{BlockID: "BLOCK_404", StartTripID: "T1", EndTripID: "T1"}, target: ErrRange},
		{name: "endpoint outside block", input: AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "U1"}, target: ErrRange},
		{name: "start after end", input: AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T4", EndTripID: "T1"}, target: ErrRange},
		{name: "overlap in same duty", input: AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T4"}, target: ErrOverlap},
		{name: "overlap across duties", input: AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2"}, target: ErrOverlap},
		{name: "unknown duty", input: AddSegmentInput{DutyID: "DUTY_999", BlockID: "BLOCK_001", StartTripID: "T4", EndTripID: "T4"}, target: ErrNotFound},
		{name: "deadhead without minutes", input: AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T4", Kind: KindDeadhead}, target: ErrValidation},
		{name: "unknown kind", input: AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T4", EndTripID: "T4", Kind: "break"}, target: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := AddDutySegment(base, tt.input, testIndex())
			require.Error(t, err)
			assert.Nil(t, next)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	t.Run("overlap error names the conflicting segment", func(t *testing.T) {
		_, err := AddDutySegment(base, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3"}, testIndex())
		var overlap *OverlapError
		require.ErrorAs(t, err, &overlap)
		assert.Equal(t, "DUTY_001", overlap.ConflictDutyID)
		assert.Equal(t, "SEG_001", overlap.ConflictSegmentID)
	})
}

func TestAddDeadheadSegment(t *testing.T) {
	state := NewEditState(DefaultSettings())
	state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
	state = mustAdd(t, state, AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T2"})

	// A deadhead anchored on trips already covered is not an overlap.
	state = mustAdd(t, state, AddSegmentInput{
		DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2",
		Kind: KindDeadhead, DeadheadMinutes: 15, DeadheadFromStopID: "B", DeadheadToStopID: "B",
	})

	segs := state.Duties[0].Segments
	require.Len(t, segs, 3)
	assert.True(t, segs[2].IsDeadhead())
	assert.Equal(t, 15, segs[2].DeadheadMinutes)
	assertDisjoint(t, state)
}

func TestMoveDutySegment(t *testing.T) {
	base := NewEditState(DefaultSettings())
	base = mustAdd(t, base, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
	base = mustAdd(t, base, AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3"})

	t.Run("moves within block keeping position", func(t *testing.T) {
		next, err := MoveDutySegment(base, MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001", BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2"}, testIndex())
		require.NoError(t, err)
		seg := next.Duties[0].Segments[0]
		assert.Equal(t, "SEG_001", seg.ID)
		assert.Equal(t, 2, seg.EndSequence)
		assert.Equal(t, "T2", seg.EndTripID)
		assert.Len(t, next.UndoStack, len(base.UndoStack)+1)
		assertDisjoint(t, next)
	})

	t.Run("may overlap its own previous range", func(t *testing.T) {
		_, err := MoveDutySegment(base, MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_002", StartTripID: "T2", EndTripID: "T4"}, testIndex())
		require.NoError(t, err)
	})

	t.Run("rejects overlap with another segment", func(t *testing.T) {
		_, err := MoveDutySegment(base, MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001", StartTripID: "T1", EndTripID: "T3"}, testIndex())
		assert.ErrorIs(t, err, ErrOverlap)
	})

	t.Run("cross block move leaves state unchanged", func(t *testing.T) {
		dutiesBefore := base.Duties
		snapshot := CloneDuties(base.Duties)

		next, err := MoveDutySegment(base, MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001", BlockID: "BLOCK_002", StartTripID: "U1", EndTripID: "U1"}, testIndex())
		var crossBlock *CrossBlockMoveError
		require.ErrorAs(t, err, &crossBlock)
		assert.Equal(t, "BLOCK_001", crossBlock.FromBlockID)
		assert.Nil(t, next)
		assert.Same(t, &dutiesBefore[0], &base.Duties[0])
		assert.Equal(t, snapshot, base.Duties)
	})

	t.Run("unknown segment", func(t *testing.T) {
		_, err := MoveDutySegment(base, MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_404", StartTripID: "T1", EndTripID: "T1"}, testIndex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := MoveDutySegment(base, MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_002", StartTripID: "T4", EndTripID: "T3"}, testIndex())
		assert.ErrorIs(t, err, ErrRange)
	})
}

func TestDeleteDutySegment(t *testing.T) {
	base := NewEditState(DefaultSettings())
	base = mustAdd(t, base, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
	base = mustAdd(t, base, AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3"})

	t.Run("removes one segment", func(t *testing.T) {
		next, err := DeleteDutySegment(base, DeleteSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001"})
		require.NoError(t, err)
		assert.Equal(t, []string{"SEG_002"}, segmentIDs(next.Duties[0]))
		assert.Len(t, base.Duties[0].Segments, 2)
	})

	t.Run("removes empty duty", func(t *testing.T) {
		next, err := DeleteDutySegment(base, DeleteSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001"})
		require.NoError(t, err)
		next, err = DeleteDutySegment(next, DeleteSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_002"})
		require.NoError(t, err)
		assert.Empty(t, next.Duties)

		restored := UndoLastAction(next)
		require.Len(t, restored.Duties, 1)
		assert.Equal(t, []string{"SEG_002"}, segmentIDs(restored.Duties[0]))
	})

	t.Run("unknown duty", func(t *testing.T) {
		_, err := DeleteDutySegment(base, DeleteSegmentInput{DutyID: "DUTY_404", SegmentID: "SEG_001"})
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "duty", notFound.Kind)
	})
}

func TestReplaceDutyState(t *testing.T) {
	state := NewEditState(DefaultSettings())
	state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})

	replacement := []Duty{
		{ID: "DUTY_007", Segments: []Segment{{ID: "SEG_001", BlockID: "BLOCK_002", StartTripID: "U1", EndTripID: "U2", StartSequence: 1, EndSequence: 2}}},
	}
	next, err := ReplaceDutyState(state, replacement, testIndex())
	require.NoError(t, err)
	assert.Equal(t, replacement, next.Duties)
	assert.Len(t, next.UndoStack, 2)

	replacement[0].Segments[0].EndTripID = "mutated"
	assert.Equal(t, "U2", next.Duties[0].Segments[0].EndTripID)

	t.Run("single undo step restores everything", func(t *testing.T) {
		undone := UndoLastAction(next)
		require.Len(t, undone.Duties, 1)
		assert.Equal(t, "DUTY_001", undone.Duties[0].ID)
	})

	t.Run("new ids continue past imported ones", func(t *testing.T) {
		added := mustAdd(t, next, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T2"})
		assert.Equal(t, "DUTY_008", added.Duties[1].ID)
	})

	t.Run("rejects overlapping duties", func(t *testing.T) {
		overlapping := []Duty{
			{ID: "A", Segments: []Segment{{ID: "S1", BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T3"}}},
			{ID: "B", Segments: []Segment{{ID: "S1", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T4"}}},
		}
		_, err := ReplaceDutyState(state, overlapping, testIndex())
		assert.ErrorIs(t, err, ErrOverlap)
	})

	t.Run("rejects sequences that disagree with trip ids", func(t *testing.T) {
		// Taken at face value, SEG_001 would cover T1 only and leave room for T2.
		mislabeled := []Duty{
			{ID: "DUTY_001", Segments: []Segment{{ID: "SEG_001", BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T3", StartSequence: 1, EndSequence: 1}}},
			{ID: "DUTY_002", Segments: []Segment{{ID: "SEG_002", BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T2", StartSequence: 2, EndSequence: 2}}},
		}
		_, err := ReplaceDutyState(state, mislabeled, testIndex())
		require.ErrorIs(t, err, ErrRange)

		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, ReasonSequenceMismatch, rangeErr.Reason)
		assert.Equal(t, "T1", rangeErr.TripID)
	})

	t.Run("fills unset sequences from the index", func(t *testing.T) {
		bare := []Duty{
			{ID: "DUTY_001", Segments: []Segment{{ID: "SEG_001", BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T4"}}},
		}
		filled, err := ReplaceDutyState(state, bare, testIndex())
		require.NoError(t, err)
		assert.Equal(t, 2, filled.Duties[0].Segments[0].StartSequence)
		assert.Equal(t, 4, filled.Duties[0].Segments[0].EndSequence)
		assert.Zero(t, bare[0].Segments[0].StartSequence, "input is not modified")
	})

	t.Run("rejects unknown trips", func(t *testing.T) {
		unknown := []Duty{
			{ID: "DUTY_001", Segments: []Segment{{ID: "SEG_001", BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "U2"}}},
		}
		_, err := ReplaceDutyState(state, unknown, testIndex())
		assert.ErrorIs(t, err, ErrRange)
	})

	t.Run("rejects repeated segment ids within a duty", func(t *testing.T) {
		repeated := []Duty{
			{ID: "DUTY_001", Segments: []Segment{
				{ID: "SEG_001", BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"},
				{ID: "SEG_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3"},
			}},
		}
		_, err := ReplaceDutyState(state, repeated, testIndex())
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "repeats segment id SEG_001")
	})
}

func TestWithSettings(t *testing.T) {
	state := NewEditState(DefaultSettings())
	for _, trip := range []string{"T1", "T2", "T3"} {
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: trip, EndTripID: trip})
	}
	settings := DefaultSettings()
	settings.UndoStackLimit = 1
	next := state.WithSettings(settings)
	assert.Len(t, next.UndoStack, 1)
	assert.Len(t, state.UndoStack, 3)
	assert.Equal(t, state.Duties, next.Duties)
}

func segmentIDs(d Duty) []string {
	ids := make([]string, 0, len(d.Segments))
	for _, s := range d.Segments {
		ids = append(ids, s.ID)
	}
	return ids
}

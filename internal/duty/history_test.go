package duty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoRedo(t *testing.T) {
	t.Run("empty stacks return the same state", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		assert.Same(t, state, UndoLastAction(state))
		assert.Same(t, state, RedoLastAction(state))
	})

	t.Run("undo then redo restores duties", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2"})
		state = mustAdd(t, state, AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3"})
		after := CloneDuties(state.Duties)

		undone := UndoLastAction(state)
		require.Len(t, undone.Duties[0].Segments, 1)
		assert.True(t, undone.CanRedo())

		redone := RedoLastAction(undone)
		assert.Equal(t, after, redone.Duties)
		assert.False(t, redone.CanRedo())
		assert.Len(t, redone.UndoStack, 2)
	})

	t.Run("undo all the way back", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		for _, trip := range []string{"T1", "T2", "T3"} {
			state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: trip, EndTripID: trip})
		}
		for state.CanUndo() {
			state = UndoLastAction(state)
		}
		assert.Empty(t, state.Duties)
		assert.Len(t, state.RedoStack, 3)
	})

	t.Run("ids are not reused after undo", func(t *testing.T) {
		state := NewEditState(DefaultSettings())
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
		state = UndoLastAction(state)
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
		assert.Equal(t, "DUTY_002", state.Duties[0].ID)
		assert.Equal(t, "SEG_002", state.Duties[0].Segments[0].ID)
	})
}

func TestHistoryLimit(t *testing.T) {
	t.Run("evicts oldest snapshots first", func(t *testing.T) {
		settings := DefaultSettings()
		settings.UndoStackLimit = 2
		state := NewEditState(settings)
		for _, trip := range []string{"T1", "T2", "T3", "T4"} {
			state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: trip, EndTripID: trip})
		}
		require.Len(t, state.UndoStack, 2)
		assert.Len(t, state.UndoStack[0], 2)
		assert.Len(t, state.UndoStack[1], 3)
	})

	t.Run("zero limit disables history", func(t *testing.T) {
		settings := DefaultSettings()
		settings.UndoStackLimit = 0
		state := NewEditState(settings)
		state = mustAdd(t, state, AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
		assert.False(t, state.CanUndo())
		assert.Same(t, state, UndoLastAction(state))
	})
}

func TestPushSnapshot(t *testing.T) {
	a := []Duty{{ID: "A"}}
	b := []Duty{{ID: "B"}}
	c := []Duty{{ID: "C"}}

	stack := pushSnapshot(nil, a, 2)
	stack = pushSnapshot(stack, b, 2)
	grown := pushSnapshot(stack, c, 2)

	assert.Equal(t, [][]Duty{b, c}, grown)
	assert.Equal(t, [][]Duty{a, b}, stack)
}

func TestCloneDuties(t *testing.T) {
	original := []Duty{{ID: "DUTY_001", Segments: []Segment{{ID: "SEG_001", BlockID: "B"}}}}
	clone := CloneDuties(original)
	clone[0].Segments[0].BlockID = "changed"
	assert.Equal(t, "B", original[0].Segments[0].BlockID)
}

package duty

// CloneDuties deep-copies a duty list so snapshots never share segment arrays with live state.
func CloneDuties(duties []Duty) []Duty {
	out := make([]Duty, len(duties))
	for i, d := range duties {
		out[i] = CloneDuty(d)
	}
	return out
}

// CloneDuty deep-copies a single duty.
func CloneDuty(d Duty) Duty {
	segments := make([]Segment, len(d.Segments))
	copy(segments, d.Segments)
	return Duty{ID: d.ID, DriverID: d.DriverID, Segments: segments}
}

// pushSnapshot returns a new stack with snapshot on top. When the stack is at limit the oldest
// entries are evicted first. A limit below 1 disables history.
func pushSnapshot(stack [][]Duty, snapshot []Duty, limit int) [][]Duty {
	if limit < 1 {
		return [][]Duty{}
	}
	start := 0
	if len(stack) >= limit {
		start = len(stack) - limit + 1
	}
	next := make([][]Duty, 0, len(stack)-start+1)
	next = append(next, stack[start:]...)
	return append(next, snapshot)
}

// popSnapshot returns the top snapshot and the remaining stack.
func popSnapshot(stack [][]Duty) ([]Duty, [][]Duty, bool) {
	if len(stack) == 0 {
		return nil, stack, false
	}
	top := stack[len(stack)-1]
	rest := make([][]Duty, len(stack)-1)
	copy(rest, stack[:len(stack)-1])
	return top, rest, true
}

func trimStack(stack [][]Duty, limit int) [][]Duty {
	if limit < 1 {
		return [][]Duty{}
	}
	if len(stack) <= limit {
		return stack
	}
	trimmed := make([][]Duty, limit)
	copy(trimmed, stack[len(stack)-limit:])
	return trimmed
}

// UndoLastAction restores the most recent snapshot. With nothing to undo it returns state itself.
func UndoLastAction(state *EditState) *EditState {
	snapshot, rest, ok := popSnapshot(state.UndoStack)
	if !ok {
		return state
	}
	return &EditState{
		Duties:         snapshot,
		Settings:       state.Settings,
		UndoStack:      rest,
		RedoStack:      pushSnapshot(state.RedoStack, CloneDuties(state.Duties), state.Settings.UndoStackLimit),
		DutyCounter:    state.DutyCounter,
		SegmentCounter: state.SegmentCounter,
	}
}

// RedoLastAction re-applies the most recently undone change. With nothing to redo it returns
// state itself.
func RedoLastAction(state *EditState) *EditState {
	snapshot, rest, ok := popSnapshot(state.RedoStack)
	if !ok {
		return state
	}
	return &EditState{
		Duties:         snapshot,
		Settings:       state.Settings,
		UndoStack:      pushSnapshot(state.UndoStack, CloneDuties(state.Duties), state.Settings.UndoStackLimit),
		RedoStack:      rest,
		DutyCounter:    state.DutyCounter,
		SegmentCounter: state.SegmentCounter,
	}
}

// nextState builds the successor of state after a mutating command: the pre-mutation duties are
// pushed onto the undo stack and the redo stack is cleared.
func nextState(state *EditState, duties []Duty, dutyCounter, segmentCounter int) *EditState {
	return &EditState{
		Duties:         duties,
		Settings:       state.Settings,
		UndoStack:      pushSnapshot(state.UndoStack, CloneDuties(state.Duties), state.Settings.UndoStackLimit),
		RedoStack:      [][]Duty{},
		DutyCounter:    dutyCounter,
		SegmentCounter: segmentCounter,
	}
}

package duty

import "fmt"

// AddSegmentInput describes a segment to append. An empty DutyID creates a new duty.
type AddSegmentInput struct {
	DutyID             string      `json:"dutyId,omitempty"`
	BlockID            string      `json:"blockId"`
	StartTripID        string      `json:"startTripId"`
	EndTripID          string      `json:"endTripId"`
	DriverID           string      `json:"driverId,omitempty"`
	Kind               SegmentKind `json:"kind,omitempty"`
	DeadheadMinutes    int         `json:"deadheadMinutes,omitempty"`
	DeadheadFromStopID string      `json:"deadheadFromStopId,omitempty"`
	DeadheadToStopID   string      `json:"deadheadToStopId,omitempty"`
}

// MoveSegmentInput relocates a segment within its block. An empty BlockID means the segment's
// current block.
type MoveSegmentInput struct {
	DutyID      string `json:"dutyId"`
	SegmentID   string `json:"segmentId"`
	BlockID     string `json:"blockId,omitempty"`
	StartTripID string `json:"startTripId"`
	EndTripID   string `json:"endTripId"`
}

// DeleteSegmentInput identifies a segment to remove.
type DeleteSegmentInput struct {
	DutyID    string `json:"dutyId"`
	SegmentID string `json:"segmentId"`
}

// AddDutySegment appends a segment to an existing duty, or to a new duty when input.DutyID is
// empty. Trip segments must not share trips with any segment of any duty on the same block.
func AddDutySegment(state *EditState, input AddSegmentInput, index SequenceLookup) (*EditState, error) {
	if err := requireSelection(input.BlockID, input.StartTripID, input.EndTripID); err != nil {
		return nil, err
	}

	kind := input.Kind
	switch kind {
	case "", KindTrip:
		kind = ""
	case KindDeadhead:
		if input.DeadheadMinutes <= 0 {
			return nil, &ValidationError{Field: "deadheadMinutes", Message: "a deadhead needs a positive duration"}
		}
	default:
		return nil, &ValidationError{Field: "kind", Message: "unknown segment kind " + string(kind)}
	}

	dutyIndex := -1
	if input.DutyID != "" {
		for i, d := range state.Duties {
			if d.ID == input.DutyID {
				dutyIndex = i
				break
			}
		}
		if dutyIndex == -1 {
			return nil, &NotFoundError{Kind: "duty", ID: input.DutyID}
		}
	}

	start, end, err := resolveRange(index, input.BlockID, input.StartTripID, input.EndTripID)
	if err != nil {
		return nil, err
	}

	segmentNumber := nextSegmentNumber(state.SegmentCounter, state.Duties)
	segment := Segment{
		ID:            FormatSegmentID(segmentNumber),
		BlockID:       input.BlockID,
		StartTripID:   input.StartTripID,
		EndTripID:     input.EndTripID,
		StartSequence: start,
		EndSequence:   end,
		Kind:          kind,
	}
	if kind == KindDeadhead {
		segment.DeadheadMinutes = input.DeadheadMinutes
		segment.DeadheadFromStopID = input.DeadheadFromStopID
		segment.DeadheadToStopID = input.DeadheadToStopID
	}

	if err := ensureNoOverlap(state.Duties, segment, "", ""); err != nil {
		return nil, err
	}

	duties := CloneDuties(state.Duties)
	dutyCounter := state.DutyCounter
	if dutyIndex >= 0 {
		target := &duties[dutyIndex]
		target.Segments = append(target.Segments, segment)
		if input.DriverID != "" {
			target.DriverID = input.DriverID
		}
	} else {
		dutyCounter = nextDutyNumber(state.DutyCounter, state.Duties)
		duties = append(duties, Duty{
			ID:       FormatDutyID(dutyCounter),
			DriverID: input.DriverID,
			Segments: []Segment{segment},
		})
	}

	return nextState(state, duties, dutyCounter, segmentNumber), nil
}

// MoveDutySegment changes the trip range of an existing segment. The segment keeps its id, kind
// and position in the duty; moving to another block is rejected.
func MoveDutySegment(state *EditState, input MoveSegmentInput, index SequenceLookup) (*EditState, error) {
	dutyIndex, segmentIndex, err := locateSegment(state.Duties, input.DutyID, input.SegmentID)
	if err != nil {
		return nil, err
	}
	current := state.Duties[dutyIndex].Segments[segmentIndex]

	blockID := input.BlockID
	if blockID == "" {
		blockID = current.BlockID
	}
	if blockID != current.BlockID {
		return nil, &CrossBlockMoveError{SegmentID: current.ID, FromBlockID: current.BlockID, ToBlockID: blockID}
	}
	if err := requireSelection(blockID, input.StartTripID, input.EndTripID); err != nil {
		return nil, err
	}

	start, end, err := resolveRange(index, blockID, input.StartTripID, input.EndTripID)
	if err != nil {
		return nil, err
	}

	updated := current
	updated.StartTripID = input.StartTripID
	updated.EndTripID = input.EndTripID
	updated.StartSequence = start
	updated.EndSequence = end

	if err := ensureNoOverlap(state.Duties, updated, input.DutyID, input.SegmentID); err != nil {
		return nil, err
	}

	duties := CloneDuties(state.Duties)
	duties[dutyIndex].Segments[segmentIndex] = updated

	return nextState(state, duties, state.DutyCounter, state.SegmentCounter), nil
}

// DeleteDutySegment removes a segment. A duty left without segments is removed as well.
func DeleteDutySegment(state *EditState, input DeleteSegmentInput) (*EditState, error) {
	dutyIndex, segmentIndex, err := locateSegment(state.Duties, input.DutyID, input.SegmentID)
	if err != nil {
		return nil, err
	}

	duties := CloneDuties(state.Duties)
	target := duties[dutyIndex]
	remaining := make([]Segment, 0, len(target.Segments)-1)
	remaining = append(remaining, target.Segments[:segmentIndex]...)
	remaining = append(remaining, target.Segments[segmentIndex+1:]...)

	if len(remaining) == 0 {
		duties = append(duties[:dutyIndex], duties[dutyIndex+1:]...)
	} else {
		duties[dutyIndex].Segments = remaining
	}

	return nextState(state, duties, state.DutyCounter, state.SegmentCounter), nil
}

// ReplaceDutyState swaps in a whole duty list as a single undoable step. The list is copied and
// every segment's sequences are resolved from its trip ids; sequences supplied by the caller must
// agree with the index. The result must satisfy the per-block overlap invariant.
func ReplaceDutyState(state *EditState, duties []Duty, index SequenceLookup) (*EditState, error) {
	resolved := CloneDuties(duties)
	for i := range resolved {
		seen := make(map[string]bool, len(resolved[i].Segments))
		for j := range resolved[i].Segments {
			segment := &resolved[i].Segments[j]
			if seen[segment.ID] {
				return nil, &ValidationError{
					Field:   "segments",
					Message: fmt.Sprintf("duty %s repeats segment id %s", resolved[i].ID, segment.ID),
				}
			}
			seen[segment.ID] = true
			if err := resequence(index, segment); err != nil {
				return nil, err
			}
		}
	}
	if err := CheckOverlaps(resolved); err != nil {
		return nil, err
	}
	return nextState(state, resolved, state.DutyCounter, state.SegmentCounter), nil
}

// resequence fills a segment's sequences from the index. Zero sequences are taken as unset.
func resequence(index SequenceLookup, segment *Segment) error {
	start, end, err := resolveRange(index, segment.BlockID, segment.StartTripID, segment.EndTripID)
	if err != nil {
		return err
	}
	supplied := segment.StartSequence != 0 || segment.EndSequence != 0
	if supplied && (segment.StartSequence != start || segment.EndSequence != end) {
		return &RangeError{Reason: ReasonSequenceMismatch, BlockID: segment.BlockID, TripID: segment.StartTripID}
	}
	segment.StartSequence, segment.EndSequence = start, end
	return nil
}

func locateSegment(duties []Duty, dutyID, segmentID string) (int, int, error) {
	for i, d := range duties {
		if d.ID != dutyID {
			continue
		}
		for j, s := range d.Segments {
			if s.ID == segmentID {
				return i, j, nil
			}
		}
		return 0, 0, &NotFoundError{Kind: "segment", ID: segmentID}
	}
	return 0, 0, &NotFoundError{Kind: "duty", ID: dutyID}
}

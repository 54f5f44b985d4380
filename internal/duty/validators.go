package duty

// SequenceLookup resolves a trip's position within its block.
type SequenceLookup interface {
	HasBlock(blockID string) bool
	Sequence(blockID, tripID string) (int, bool)
}

func requireSelection(blockID, startTripID, endTripID string) error {
	switch {
	case blockID == "":
		return &ValidationError{Field: "blockId", Message: "a block must be selected"}
	case startTripID == "":
		return &ValidationError{Field: "startTripId", Message: "a start trip must be selected"}
	case endTripID == "":
		return &ValidationError{Field: "endTripId", Message: "an end trip must be selected"}
	}
	return nil
}

func resolveRange(index SequenceLookup, blockID, startTripID, endTripID string) (int, int, error) {
	if !index.HasBlock(blockID) {
		return 0, 0, &RangeError{Reason: ReasonUnknownBlock, BlockID: blockID}
	}
	start, ok := index.Sequence(blockID, startTripID)
	if !ok {
		return 0, 0, &RangeError{Reason: ReasonEndpointOutsideBlock, BlockID: blockID, TripID: startTripID}
	}
	end, ok := index.Sequence(blockID, endTripID)
	if !ok {
		return 0, 0, &RangeError{Reason: ReasonEndpointOutsideBlock, BlockID: blockID, TripID: endTripID}
	}
	if start > end {
		return 0, 0, &RangeError{Reason: ReasonStartAfterEnd, BlockID: blockID}
	}
	return start, end, nil
}

// ensureNoOverlap checks candidate against every trip segment of every duty. The segment
// identified by (ignoreDutyID, ignoreSegmentID) is skipped so a moved segment does not collide
// with itself.
func ensureNoOverlap(duties []Duty, candidate Segment, ignoreDutyID, ignoreSegmentID string) error {
	for _, d := range duties {
		for _, s := range d.Segments {
			if d.ID == ignoreDutyID && s.ID == ignoreSegmentID {
				continue
			}
			if candidate.Overlaps(s) {
				return &OverlapError{BlockID: candidate.BlockID, ConflictDutyID: d.ID, ConflictSegmentID: s.ID}
			}
		}
	}
	return nil
}

// CheckOverlaps returns an OverlapError for the first pair of trip segments, across all duties,
// that share a trip.
func CheckOverlaps(duties []Duty) error {
	type placed struct {
		dutyID  string
		segment Segment
	}
	var all []placed
	for _, d := range duties {
		for _, s := range d.Segments {
			all = append(all, placed{dutyID: d.ID, segment: s})
		}
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].segment.Overlaps(all[j].segment) {
				return &OverlapError{
					BlockID:           all[i].segment.BlockID,
					ConflictDutyID:    all[j].dutyID,
					ConflictSegmentID: all[j].segment.ID,
				}
			}
		}
	}
	return nil
}

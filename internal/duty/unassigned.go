package duty

import (
	"sort"

	"dutyplan.onebusaway.org/internal/tripindex"
)

// BlockRows exposes the ordered rows of every block.
type BlockRows interface {
	BlockIDs() []string
	Rows(blockID string) []tripindex.BlockRow
}

// UnassignedRange is a maximal run of consecutive trips of one block that no trip segment covers.
type UnassignedRange struct {
	BlockID        string `json:"blockId"`
	StartTripID    string `json:"startTripId"`
	EndTripID      string `json:"endTripId"`
	StartSequence  int    `json:"startSequence"`
	EndSequence    int    `json:"endSequence"`
	TripCount      int    `json:"tripCount"`
	FirstDeparture string `json:"firstDeparture"`
	LastArrival    string `json:"lastArrival"`
}

// sequenceSpan is an inclusive run of block sequences covered by trip segments.
type sequenceSpan struct {
	start, end int
}

// coveredSpans returns the merged trip segment spans of every block, sorted by start.
func coveredSpans(duties []Duty) map[string][]sequenceSpan {
	spans := make(map[string][]sequenceSpan)
	for _, d := range duties {
		for _, s := range d.Segments {
			if s.IsDeadhead() || s.StartSequence > s.EndSequence {
				continue
			}
			spans[s.BlockID] = append(spans[s.BlockID], sequenceSpan{start: s.StartSequence, end: s.EndSequence})
		}
	}

	for blockID, list := range spans {
		sort.Slice(list, func(i, j int) bool { return list[i].start < list[j].start })
		merged := list[:1]
		for _, span := range list[1:] {
			last := &merged[len(merged)-1]
			if span.start <= last.end {
				if span.end > last.end {
					last.end = span.end
				}
				continue
			}
			merged = append(merged, span)
		}
		spans[blockID] = merged
	}
	return spans
}

// ComputeUnassignedRanges lists uncovered trip runs, ordered by block id then sequence. The cost
// grows with the number of trips and segments, never with the width of a segment's range.
func ComputeUnassignedRanges(blocks BlockRows, duties []Duty) []UnassignedRange {
	spans := coveredSpans(duties)

	ranges := []UnassignedRange{}
	for _, blockID := range blocks.BlockIDs() {
		rows := blocks.Rows(blockID)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sequence < rows[j].Sequence })

		covered := make([]bool, len(rows))
		blockSpans := spans[blockID]
		next := 0
		for i, row := range rows {
			for next < len(blockSpans) && blockSpans[next].end < row.Sequence {
				next++
			}
			covered[i] = next < len(blockSpans) && blockSpans[next].start <= row.Sequence
		}

		for i := 0; i < len(rows); {
			if covered[i] {
				i++
				continue
			}
			j := i
			for j+1 < len(rows) && !covered[j+1] {
				j++
			}
			ranges = append(ranges, UnassignedRange{
				BlockID:        blockID,
				StartTripID:    rows[i].TripID,
				EndTripID:      rows[j].TripID,
				StartSequence:  rows[i].Sequence,
				EndSequence:    rows[j].Sequence,
				TripCount:      j - i + 1,
				FirstDeparture: rows[i].StartTime,
				LastArrival:    rows[j].EndTime,
			})
			i = j + 1
		}
	}
	return ranges
}

// UnassignedTripCount counts trips that no trip segment covers, and the total number of trips.
func UnassignedTripCount(blocks BlockRows, duties []Duty) (unassigned, total int) {
	for _, r := range ComputeUnassignedRanges(blocks, duties) {
		unassigned += r.TripCount
	}
	for _, blockID := range blocks.BlockIDs() {
		total += len(blocks.Rows(blockID))
	}
	return unassigned, total
}

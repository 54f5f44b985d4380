package tripindex

import (
	"sort"
)

// BlockRow is one trip of one block as delivered by the schedule builder.
type BlockRow struct {
	BlockID    string `json:"blockId"`
	Sequence   int    `json:"seq"`
	TripID     string `json:"tripId"`
	StartTime  string `json:"tripStart"`
	EndTime    string `json:"tripEnd"`
	FromStopID string `json:"fromStopId,omitempty"`
	ToStopID   string `json:"toStopId,omitempty"`
	ServiceID  string `json:"serviceId,omitempty"`
}

// TripTiming is the minute range of a single trip on the uncapped service-day scale.
type TripTiming struct {
	TripID       string `json:"tripId"`
	StartMinutes int    `json:"startMinutes"`
	EndMinutes   int    `json:"endMinutes"`
}

// Index answers "which position does this trip have in its block" and "when does it run".
// It is immutable once built and safe to share between goroutines.
type Index struct {
	sequences map[string]map[string]int
	timings   map[string]map[string]TripTiming
	rows      map[string]map[string]BlockRow
	order     map[string][]string
}

// Build indexes rows that are already in operating order. A row without a positive Sequence gets
// its 1-based position within the block. Trips whose clock values cannot be parsed are still
// sequenced but have no timing.
//
// Duplicate trip ids within one block are not guarded: the last row wins.
func Build(rows []BlockRow) *Index {
	idx := &Index{
		sequences: make(map[string]map[string]int),
		timings:   make(map[string]map[string]TripTiming),
		rows:      make(map[string]map[string]BlockRow),
		order:     make(map[string][]string),
	}

	for _, row := range rows {
		seqs, ok := idx.sequences[row.BlockID]
		if !ok {
			seqs = make(map[string]int)
			idx.sequences[row.BlockID] = seqs
			idx.timings[row.BlockID] = make(map[string]TripTiming)
			idx.rows[row.BlockID] = make(map[string]BlockRow)
		}

		seq := row.Sequence
		if seq <= 0 {
			seq = len(idx.order[row.BlockID]) + 1
			row.Sequence = seq
		}
		if _, dup := seqs[row.TripID]; !dup {
			idx.order[row.BlockID] = append(idx.order[row.BlockID], row.TripID)
		}
		seqs[row.TripID] = seq
		idx.rows[row.BlockID][row.TripID] = row

		start, startErr := ParseClock(row.StartTime)
		end, endErr := ParseClock(row.EndTime)
		if startErr == nil && endErr == nil {
			idx.timings[row.BlockID][row.TripID] = TripTiming{TripID: row.TripID, StartMinutes: start, EndMinutes: end}
		} else {
			delete(idx.timings[row.BlockID], row.TripID)
		}
	}

	for blockID, tripIDs := range idx.order {
		seqs := idx.sequences[blockID]
		sort.SliceStable(tripIDs, func(i, j int) bool {
			return seqs[tripIDs[i]] < seqs[tripIDs[j]]
		})
	}

	return idx
}

// HasBlock reports whether the block exists in the index.
func (idx *Index) HasBlock(blockID string) bool {
	_, ok := idx.sequences[blockID]
	return ok
}

// Sequence returns the trip's position within its block.
func (idx *Index) Sequence(blockID, tripID string) (int, bool) {
	seq, ok := idx.sequences[blockID][tripID]
	return seq, ok
}

// Timing returns the trip's start and end minutes.
func (idx *Index) Timing(blockID, tripID string) (TripTiming, bool) {
	timing, ok := idx.timings[blockID][tripID]
	return timing, ok
}

// Row returns the source row of a trip.
func (idx *Index) Row(blockID, tripID string) (BlockRow, bool) {
	row, ok := idx.rows[blockID][tripID]
	return row, ok
}

// Rows returns the block's rows in sequence order.
func (idx *Index) Rows(blockID string) []BlockRow {
	tripIDs := idx.order[blockID]
	rows := make([]BlockRow, 0, len(tripIDs))
	for _, tripID := range tripIDs {
		rows = append(rows, idx.rows[blockID][tripID])
	}
	return rows
}

// Trips returns the timed trips of a block in sequence order.
func (idx *Index) Trips(blockID string) []TripTiming {
	tripIDs := idx.order[blockID]
	trips := make([]TripTiming, 0, len(tripIDs))
	for _, tripID := range tripIDs {
		if timing, ok := idx.timings[blockID][tripID]; ok {
			trips = append(trips, timing)
		}
	}
	return trips
}

// BlockIDs returns every indexed block id, sorted.
func (idx *Index) BlockIDs() []string {
	ids := make([]string, 0, len(idx.sequences))
	for blockID := range idx.sequences {
		ids = append(ids, blockID)
	}
	sort.Strings(ids)
	return ids
}

// Sequences returns a copy of the blockId → tripId → sequence map.
func (idx *Index) Sequences() map[string]map[string]int {
	out := make(map[string]map[string]int, len(idx.sequences))
	for blockID, seqs := range idx.sequences {
		inner := make(map[string]int, len(seqs))
		for tripID, seq := range seqs {
			inner[tripID] = seq
		}
		out[blockID] = inner
	}
	return out
}

// Timings returns a copy of the blockId → tripId → timing map.
func (idx *Index) Timings() map[string]map[string]TripTiming {
	out := make(map[string]map[string]TripTiming, len(idx.timings))
	for blockID, timings := range idx.timings {
		inner := make(map[string]TripTiming, len(timings))
		for tripID, timing := range timings {
			inner[tripID] = timing
		}
		out[blockID] = inner
	}
	return out
}

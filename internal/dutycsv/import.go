package dutycsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"dutyplan.onebusaway.org/internal/duty"
)

var ErrImportSchema = errors.New("duties csv schema error")

// ImportSchemaError reports a row that cannot be turned into a duty segment. Line is the 1-based
// line of the offending record, or 0 when the problem concerns a whole duty.
type ImportSchemaError struct {
	Line    int
	DutyID  string
	BlockID string
	Message string
}

func (e *ImportSchemaError) Error() string {
	var where []string
	if e.Line > 0 {
		where = append(where, fmt.Sprintf("line %d", e.Line))
	}
	if e.DutyID != "" {
		where = append(where, "duty_id="+e.DutyID)
	}
	if e.BlockID != "" {
		where = append(where, "block_id="+e.BlockID)
	}
	if len(where) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.Join(where, " "), e.Message)
}

func (e *ImportSchemaError) Unwrap() error { return ErrImportSchema }

var requiredColumns = []string{"duty_id", "seq", "block_id", "segment_start_trip_id", "segment_end_trip_id"}

// Parsed is the result of ParseCSV. SettingsHash and GeneratedAt come from the first row.
type Parsed struct {
	Duties       []duty.Duty `json:"duties"`
	SettingsHash string      `json:"settingsHash,omitempty"`
	GeneratedAt  string      `json:"generatedAt,omitempty"`
}

type draft struct {
	id       string
	driverID string
	emptyRow bool
	segments []draftSegment
}

type draftSegment struct {
	seq     int
	line    int
	segment duty.Segment
}

// ParseCSV reads a duties CSV and resolves every block and trip against index. Duties are returned
// sorted by id and each duty's segments are numbered SEG_001, SEG_002, ... in seq order.
func ParseCSV(r io.Reader, index duty.SequenceLookup) (*Parsed, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportSchemaError{Message: "csv is empty"}
	}
	if err != nil {
		return nil, readError("error reading duties csv header", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, &ImportSchemaError{Message: fmt.Sprintf("missing column %s", name)}
		}
	}
	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	parsed := &Parsed{}
	drafts := make(map[string]*draft)
	first := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError("error reading duties csv", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		dutyID := field(record, "duty_id")
		if dutyID == "" {
			return nil, &ImportSchemaError{Line: line, Message: "duty_id is empty"}
		}
		seq, err := strconv.Atoi(field(record, "seq"))
		if err != nil || seq < 1 {
			return nil, &ImportSchemaError{Line: line, DutyID: dutyID, Message: "seq must be an integer of at least 1"}
		}
		if first {
			parsed.SettingsHash = field(record, "settings_hash")
			parsed.GeneratedAt = field(record, "generated_at")
			first = false
		}

		d, ok := drafts[dutyID]
		if !ok {
			d = &draft{id: dutyID}
			drafts[dutyID] = d
		}
		if driverID := field(record, "driver_id"); driverID != "" {
			if d.driverID != "" && d.driverID != driverID {
				return nil, &ImportSchemaError{Line: line, DutyID: dutyID, Message: "driver_id differs between rows"}
			}
			d.driverID = driverID
		}

		blockID := field(record, "block_id")
		startTripID := field(record, "segment_start_trip_id")
		endTripID := field(record, "segment_end_trip_id")
		if blockID == "" && startTripID == "" && endTripID == "" {
			d.emptyRow = true
			continue
		}
		if blockID == "" || startTripID == "" || endTripID == "" {
			return nil, &ImportSchemaError{Line: line, DutyID: dutyID, BlockID: blockID,
				Message: "block_id, segment_start_trip_id and segment_end_trip_id must all be set"}
		}

		segment, err := resolveSegment(index, blockID, startTripID, endTripID)
		if err != nil {
			return nil, &ImportSchemaError{Line: line, DutyID: dutyID, BlockID: blockID, Message: err.Error()}
		}
		if err := applyKind(&segment, field(record, "segment_kind"), field(record, "deadhead_minutes")); err != nil {
			return nil, &ImportSchemaError{Line: line, DutyID: dutyID, BlockID: blockID, Message: err.Error()}
		}
		if segment.IsDeadhead() {
			segment.DeadheadFromStopID = field(record, "deadhead_from_stop_id")
			segment.DeadheadToStopID = field(record, "deadhead_to_stop_id")
		}
		d.segments = append(d.segments, draftSegment{seq: seq, line: line, segment: segment})
	}

	ids := make([]string, 0, len(drafts))
	for id := range drafts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parsed.Duties = make([]duty.Duty, 0, len(ids))
	for _, id := range ids {
		d, err := drafts[id].build()
		if err != nil {
			return nil, err
		}
		parsed.Duties = append(parsed.Duties, d)
	}
	return parsed, nil
}

func (d *draft) build() (duty.Duty, error) {
	if len(d.segments) == 0 && !d.emptyRow {
		return duty.Duty{}, &ImportSchemaError{DutyID: d.id, Message: "duty has no segments"}
	}

	sort.SliceStable(d.segments, func(i, j int) bool { return d.segments[i].seq < d.segments[j].seq })
	segments := make([]duty.Segment, 0, len(d.segments))
	for i, s := range d.segments {
		if i > 0 && d.segments[i-1].seq == s.seq {
			return duty.Duty{}, &ImportSchemaError{Line: s.line, DutyID: d.id, Message: fmt.Sprintf("seq %d is duplicated", s.seq)}
		}
		segment := s.segment
		segment.ID = duty.FormatSegmentID(i + 1)
		segments = append(segments, segment)
	}
	return duty.Duty{ID: d.id, DriverID: d.driverID, Segments: segments}, nil
}

func resolveSegment(index duty.SequenceLookup, blockID, startTripID, endTripID string) (duty.Segment, error) {
	if !index.HasBlock(blockID) {
		return duty.Segment{}, errors.New("block is not in the current schedule")
	}
	start, okStart := index.Sequence(blockID, startTripID)
	end, okEnd := index.Sequence(blockID, endTripID)
	if !okStart || !okEnd {
		return duty.Segment{}, fmt.Errorf("trip %s/%s not found in block", startTripID, endTripID)
	}
	if start > end {
		return duty.Segment{}, errors.New("segment start comes after its end")
	}
	return duty.Segment{
		BlockID:       blockID,
		StartTripID:   startTripID,
		EndTripID:     endTripID,
		StartSequence: start,
		EndSequence:   end,
	}, nil
}

func applyKind(segment *duty.Segment, kind, minutes string) error {
	switch duty.SegmentKind(kind) {
	case "", duty.KindTrip:
		return nil
	case duty.KindDeadhead:
		n, err := strconv.Atoi(minutes)
		if err != nil || n <= 0 {
			return fmt.Errorf("deadhead_minutes %q must be a positive integer", minutes)
		}
		segment.Kind = duty.KindDeadhead
		segment.DeadheadMinutes = n
		return nil
	default:
		return fmt.Errorf("unknown segment_kind %q", kind)
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readError turns malformed CSV syntax into an ImportSchemaError. I/O failures stay plain errors.
func readError(context string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &ImportSchemaError{Line: parseErr.Line, Message: parseErr.Err.Error()}
	}
	return fmt.Errorf("%s: %w", context, err)
}

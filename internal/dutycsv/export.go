package dutycsv

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"dutyplan.onebusaway.org/internal/duty"
)

// Header is the column layout of a duties CSV. Files holding deadheads append DeadheadColumns.
var Header = []string{
	"duty_id",
	"seq",
	"block_id",
	"segment_start_trip_id",
	"segment_end_trip_id",
	"driver_id",
	"generated_at",
	"settings_hash",
}

var DeadheadColumns = []string{
	"segment_kind",
	"deadhead_minutes",
	"deadhead_from_stop_id",
	"deadhead_to_stop_id",
}

// GeneratedAtLayout is the timestamp format of the generated_at column.
const GeneratedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type Export struct {
	CSV          string `json:"csv"`
	FileName     string `json:"fileName"`
	GeneratedAt  string `json:"generatedAt"`
	SettingsHash string `json:"settingsHash"`
	RowCount     int    `json:"rowCount"`
}

// BuildCSV renders duties as CSV, one row per segment in start-sequence order. A duty without
// segments is written as a single row with empty block and trip columns.
func BuildCSV(duties []duty.Duty, settings duty.Settings, generatedAt time.Time) (Export, error) {
	stamp := generatedAt.UTC().Format(GeneratedAtLayout)
	hash, err := SettingsHash(settings)
	if err != nil {
		return Export{}, err
	}

	withDeadheads := hasDeadheads(duties)
	header := Header
	if withDeadheads {
		header = append(append([]string{}, Header...), DeadheadColumns...)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return Export{}, fmt.Errorf("error writing duties csv header: %w", err)
	}

	rows := 0
	for _, d := range duties {
		segments := sortedSegments(d.Segments)
		if len(segments) == 0 {
			record := []string{d.ID, "1", "", "", "", d.DriverID, stamp, hash}
			if withDeadheads {
				record = append(record, "", "", "", "")
			}
			if err := w.Write(record); err != nil {
				return Export{}, fmt.Errorf("error writing duty %s: %w", d.ID, err)
			}
			rows++
			continue
		}
		for i, s := range segments {
			record := []string{d.ID, strconv.Itoa(i + 1), s.BlockID, s.StartTripID, s.EndTripID, d.DriverID, stamp, hash}
			if withDeadheads {
				record = append(record, deadheadFields(s)...)
			}
			if err := w.Write(record); err != nil {
				return Export{}, fmt.Errorf("error writing duty %s: %w", d.ID, err)
			}
			rows++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return Export{}, fmt.Errorf("error flushing duties csv: %w", err)
	}

	return Export{
		CSV:          buf.String(),
		FileName:     FileName(generatedAt),
		GeneratedAt:  stamp,
		SettingsHash: hash,
		RowCount:     rows,
	}, nil
}

// FileName returns duties-YYYYMMDD-HHMMSS.csv for the UTC time t.
func FileName(t time.Time) string {
	return "duties-" + t.UTC().Format("20060102-150405") + ".csv"
}

// SettingsHash fingerprints the labor thresholds and history limit as a 32-bit FNV-1a hex string.
func SettingsHash(settings duty.Settings) (string, error) {
	payload, err := json.Marshal(struct {
		MaxContinuousMinutes float64 `json:"maxContinuousMinutes"`
		MinBreakMinutes      float64 `json:"minBreakMinutes"`
		MaxDailyMinutes      float64 `json:"maxDailyMinutes"`
		UndoStackLimit       int     `json:"undoStackLimit"`
	}{
		MaxContinuousMinutes: settings.MaxContinuousMinutes,
		MinBreakMinutes:      settings.MinBreakMinutes,
		MaxDailyMinutes:      settings.MaxDailyMinutes,
		UndoStackLimit:       settings.UndoStackLimit,
	})
	if err != nil {
		return "", fmt.Errorf("error encoding settings: %w", err)
	}
	h := fnv.New32a()
	_, _ = h.Write(payload)
	return fmt.Sprintf("%08x", h.Sum32()), nil
}

func sortedSegments(segments []duty.Segment) []duty.Segment {
	out := make([]duty.Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartSequence != out[j].StartSequence {
			return out[i].StartSequence < out[j].StartSequence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func hasDeadheads(duties []duty.Duty) bool {
	for _, d := range duties {
		for _, s := range d.Segments {
			if s.IsDeadhead() {
				return true
			}
		}
	}
	return false
}

func deadheadFields(s duty.Segment) []string {
	if !s.IsDeadhead() {
		return []string{string(duty.KindTrip), "", "", ""}
	}
	return []string{string(duty.KindDeadhead), strconv.Itoa(s.DeadheadMinutes), s.DeadheadFromStopID, s.DeadheadToStopID}
}

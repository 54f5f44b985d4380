package tripindex

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var blocksCSVRequired = []string{"block_id", "seq", "trip_id", "trip_start", "trip_end"}

// ReadBlocksCSV reads block rows with the header
// block_id,seq,trip_id,trip_start,trip_end[,from_stop_id,to_stop_id,service_id].
func ReadBlocksCSV(r io.Reader) ([]BlockRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("blocks csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("error reading blocks csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range blocksCSVRequired {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("blocks csv is missing column %q", name)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []BlockRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading blocks csv line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		seq, err := strconv.Atoi(field(record, "seq"))
		if err != nil {
			return nil, fmt.Errorf("blocks csv line %d: invalid seq %q", line, field(record, "seq"))
		}
		row := BlockRow{
			BlockID:    field(record, "block_id"),
			Sequence:   seq,
			TripID:     field(record, "trip_id"),
			StartTime:  field(record, "trip_start"),
			EndTime:    field(record, "trip_end"),
			FromStopID: field(record, "from_stop_id"),
			ToStopID:   field(record, "to_stop_id"),
			ServiceID:  field(record, "service_id"),
		}
		if row.BlockID == "" || row.TripID == "" {
			return nil, fmt.Errorf("blocks csv line %d: block_id and trip_id are required", line)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

package duty

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	dutyIDPrefix    = "DUTY_"
	segmentIDPrefix = "SEG_"
)

// FormatDutyID renders the n-th duty id, e.g. DUTY_001.
func FormatDutyID(n int) string {
	return fmt.Sprintf("%s%03d", dutyIDPrefix, n)
}

// FormatSegmentID renders the n-th segment id, e.g. SEG_001.
func FormatSegmentID(n int) string {
	return fmt.Sprintf("%s%03d", segmentIDPrefix, n)
}

// idNumber extracts n from ids like PREFIX_nnn. Ids in any other shape yield 0.
func idNumber(id, prefix string) int {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || len(rest) < 3 {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func nextDutyNumber(counter int, duties []Duty) int {
	highest := counter
	for _, d := range duties {
		highest = max(highest, idNumber(d.ID, dutyIDPrefix))
	}
	return highest + 1
}

func nextSegmentNumber(counter int, duties []Duty) int {
	highest := counter
	for _, d := range duties {
		for _, s := range d.Segments {
			highest = max(highest, idNumber(s.ID, segmentIDPrefix))
		}
	}
	return highest + 1
}

package autocorrect

import (
	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/metrics"
)

// MaxIterations bounds the repair loop.
const MaxIterations = 10

// Result is the outcome of AutoCorrectDuty. Removed lists the dropped segment ids in removal order.
type Result struct {
	Duty    duty.Duty `json:"duty"`
	Changed bool      `json:"changed"`
	Removed []string  `json:"removed"`
}

// AutoCorrectDuty strips segments from a duty until it raises no warnings or MaxIterations passes
// have run. Each pass removes one segment for the first raised warning, in this order:
//
//   - exceeding continuous driving removes the longest segment
//   - an insufficient break removes the segment right after the shortest break
//   - exceeding the daily span removes the chronologically last segment
//
// Ties go to the chronologically earliest candidate. When the repaired duty would raise a
// warning the original did not, the original is returned unchanged.
func AutoCorrectDuty(d duty.Duty, lookup metrics.TripLookup, settings duty.Settings) Result {
	original := duty.CloneDuty(d)
	initial := metrics.ComputeDutyMetrics(original, lookup, settings).Warnings

	current := duty.CloneDuty(d)
	var removed []string

	for i := 0; i < MaxIterations; i++ {
		warnings := metrics.ComputeDutyMetrics(current, lookup, settings).Warnings
		if !warnings.Any() {
			break
		}

		segments := metrics.EnrichSegments(current, lookup)
		var target string
		switch {
		case warnings.ExceedsContinuous:
			target = longestSegment(segments)
		case warnings.InsufficientBreak:
			target = segmentAfterShortestBreak(segments)
		case warnings.ExceedsDailySpan:
			target = lastSegment(segments)
		}
		if target == "" {
			break
		}

		current = removeSegment(current, target)
		removed = append(removed, target)
	}

	if len(removed) == 0 {
		return Result{Duty: original, Removed: []string{}}
	}

	final := metrics.ComputeDutyMetrics(current, lookup, settings).Warnings
	if !subsetOf(final, initial) {
		return Result{Duty: original, Removed: []string{}}
	}
	return Result{Duty: current, Changed: true, Removed: removed}
}

func longestSegment(segments []metrics.TimedSegment) string {
	best, bestDuration := "", -1
	for _, s := range segments {
		if s.Duration() > bestDuration {
			best, bestDuration = s.ID, s.Duration()
		}
	}
	return best
}

func segmentAfterShortestBreak(segments []metrics.TimedSegment) string {
	runs := metrics.Runs(segments)
	best, bestGap := "", 0
	for i := 1; i < len(runs); i++ {
		gap := runs[i].StartMinutes - runs[i-1].EndMinutes
		if best == "" || gap < bestGap {
			best, bestGap = segments[runs[i].First].ID, gap
		}
	}
	return best
}

func lastSegment(segments []metrics.TimedSegment) string {
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1].ID
}

func removeSegment(d duty.Duty, segmentID string) duty.Duty {
	kept := make([]duty.Segment, 0, len(d.Segments))
	for _, s := range d.Segments {
		if s.ID != segmentID {
			kept = append(kept, s)
		}
	}
	return duty.Duty{ID: d.ID, DriverID: d.DriverID, Segments: kept}
}

func subsetOf(candidate, reference metrics.Warnings) bool {
	return (!candidate.ExceedsContinuous || reference.ExceedsContinuous) &&
		(!candidate.InsufficientBreak || reference.InsufficientBreak) &&
		(!candidate.ExceedsDailySpan || reference.ExceedsDailySpan)
}

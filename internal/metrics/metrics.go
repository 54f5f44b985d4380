package metrics

import (
	"fmt"
	"sort"

	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/tripindex"
)

// TripLookup resolves trip timings. *tripindex.Index satisfies it.
type TripLookup interface {
	Timing(blockID, tripID string) (tripindex.TripTiming, bool)
}

// Warning names, in the order Active reports them.
const (
	WarningExceedsContinuous = "exceedsContinuous"
	WarningInsufficientBreak = "insufficientBreak"
	WarningExceedsDailySpan  = "exceedsDailySpan"
)

type Warnings struct {
	ExceedsContinuous bool `json:"exceedsContinuous"`
	InsufficientBreak bool `json:"insufficientBreak"`
	ExceedsDailySpan  bool `json:"exceedsDailySpan"`
}

// Active lists the names of the raised warnings.
func (w Warnings) Active() []string {
	active := []string{}
	if w.ExceedsContinuous {
		active = append(active, WarningExceedsContinuous)
	}
	if w.InsufficientBreak {
		active = append(active, WarningInsufficientBreak)
	}
	if w.ExceedsDailySpan {
		active = append(active, WarningExceedsDailySpan)
	}
	return active
}

// Any reports whether at least one warning is raised.
func (w Warnings) Any() bool {
	return w.ExceedsContinuous || w.InsufficientBreak || w.ExceedsDailySpan
}

// Metrics holds the durations of one duty. A nil duration means it is undefined: a duty without
// timed segments has no span, and a duty with fewer than two segments has no break.
type Metrics struct {
	DutyID                   string   `json:"dutyId"`
	TotalSpanMinutes         *int     `json:"totalSpanMinutes"`
	LongestContinuousMinutes *int     `json:"longestContinuousMinutes"`
	ShortestBreakMinutes     *int     `json:"shortestBreakMinutes"`
	Warnings                 Warnings `json:"warnings"`
}

// TimedSegment is a segment with its resolved minute range.
type TimedSegment struct {
	duty.Segment
	StartMinutes int `json:"startMinutes"`
	EndMinutes   int `json:"endMinutes"`
}

func (s TimedSegment) Duration() int {
	return s.EndMinutes - s.StartMinutes
}

// EnrichSegments resolves the minute range of every segment and returns them ordered by start.
// Trip segments take the start of their first trip and the end of their last trip. A deadhead
// starts when its anchor trip ends, or right after the preceding segment when the anchor has no
// timing, and lasts DeadheadMinutes. Segments that cannot be timed are left out.
func EnrichSegments(d duty.Duty, lookup TripLookup) []TimedSegment {
	timed := make([]TimedSegment, 0, len(d.Segments))
	previousEnd, havePrevious := 0, false

	for _, segment := range d.Segments {
		var start, end int
		if segment.IsDeadhead() {
			if anchor, ok := lookup.Timing(segment.BlockID, segment.StartTripID); ok {
				start = anchor.EndMinutes
			} else if havePrevious {
				start = previousEnd
			} else {
				continue
			}
			end = start + segment.DeadheadMinutes
		} else {
			first, ok := lookup.Timing(segment.BlockID, segment.StartTripID)
			if !ok {
				continue
			}
			last, ok := lookup.Timing(segment.BlockID, segment.EndTripID)
			if !ok {
				continue
			}
			start, end = first.StartMinutes, last.EndMinutes
		}

		timed = append(timed, TimedSegment{Segment: segment, StartMinutes: start, EndMinutes: end})
		previousEnd, havePrevious = end, true
	}

	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].StartMinutes < timed[j].StartMinutes
	})
	return timed
}

// Run is a maximal chain of chronologically adjacent segments with no idle time between them.
type Run struct {
	StartMinutes int
	EndMinutes   int
	// First is the index, in the enriched slice, of the run's first segment.
	First int
}

// Runs splits chronologically ordered segments into continuous runs. A segment starting at or
// before the current run's end joins it; any positive gap starts a new run.
func Runs(segments []TimedSegment) []Run {
	var runs []Run
	for i, s := range segments {
		if len(runs) > 0 {
			current := &runs[len(runs)-1]
			if s.StartMinutes <= current.EndMinutes {
				current.EndMinutes = max(current.EndMinutes, s.EndMinutes)
				continue
			}
		}
		runs = append(runs, Run{StartMinutes: s.StartMinutes, EndMinutes: s.EndMinutes, First: i})
	}
	return runs
}

// ComputeDutyMetrics derives span, continuous driving and break durations for a duty and flags the
// thresholds it breaks. Minutes are compared on the uncapped service-day scale.
func ComputeDutyMetrics(d duty.Duty, lookup TripLookup, settings duty.Settings) Metrics {
	m := Metrics{DutyID: d.ID}
	segments := EnrichSegments(d, lookup)
	if len(segments) == 0 {
		return m
	}

	earliest, latest := segments[0].StartMinutes, segments[0].EndMinutes
	for _, s := range segments[1:] {
		earliest = min(earliest, s.StartMinutes)
		latest = max(latest, s.EndMinutes)
	}
	span := latest - earliest
	m.TotalSpanMinutes = &span

	runs := Runs(segments)
	longest := 0
	for _, r := range runs {
		longest = max(longest, r.EndMinutes-r.StartMinutes)
	}
	m.LongestContinuousMinutes = &longest

	for i := 1; i < len(runs); i++ {
		gap := runs[i].StartMinutes - runs[i-1].EndMinutes
		if m.ShortestBreakMinutes == nil || gap < *m.ShortestBreakMinutes {
			m.ShortestBreakMinutes = &gap
		}
	}

	m.Warnings = Warnings{
		ExceedsContinuous: float64(longest) > settings.MaxContinuousMinutes,
		InsufficientBreak: m.ShortestBreakMinutes != nil && float64(*m.ShortestBreakMinutes) < settings.MinBreakMinutes,
		ExceedsDailySpan:  float64(span) > settings.MaxDailyMinutes,
	}
	return m
}

// ComputeAll computes metrics for every duty, keyed by duty id.
func ComputeAll(duties []duty.Duty, lookup TripLookup, settings duty.Settings) map[string]Metrics {
	out := make(map[string]Metrics, len(duties))
	for _, d := range duties {
		out[d.ID] = ComputeDutyMetrics(d, lookup, settings)
	}
	return out
}

// FormatMinutes renders a duration such as "1h 30m". Undefined durations render as "-".
func FormatMinutes(minutes *int) string {
	if minutes == nil {
		return "-"
	}
	value := *minutes
	sign := ""
	if value < 0 {
		sign, value = "-", -value
	}
	hours, rest := value/60, value%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%s%dm", sign, rest)
	case rest == 0:
		return fmt.Sprintf("%s%dh", sign, hours)
	default:
		return fmt.Sprintf("%s%dh %dm", sign, hours, rest)
	}
}

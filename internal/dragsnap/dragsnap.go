package dragsnap

import (
	"fmt"
	"math"

	"dutyplan.onebusaway.org/internal/tripindex"
)

// Mode selects which edge of a segment a drag moves.
type Mode string

const (
	ModeMove        Mode = "move"
	ModeResizeStart Mode = "resize-start"
	ModeResizeEnd   Mode = "resize-end"
)

// ParseMode validates a drag mode name.
func ParseMode(value string) (Mode, error) {
	switch mode := Mode(value); mode {
	case ModeMove, ModeResizeStart, ModeResizeEnd:
		return mode, nil
	}
	return "", fmt.Errorf("unknown drag mode %q", value)
}

// Range is a trip range snapped to trip boundaries.
type Range struct {
	StartTripID string `json:"startTripId"`
	EndTripID   string `json:"endTripId"`
}

// DragContext is a pointer drag over a block's timeline. Trips are the block's trips in sequence
// order.
type DragContext struct {
	Trips        []tripindex.TripTiming
	StartTripID  string
	EndTripID    string
	Mode         Mode
	DeltaMinutes float64
}

// ApplySegmentDrag moves or resizes a trip range by a pointer delta, snapping each edge to the trip
// whose boundary is nearest the dragged position. A move keeps the number of trips and stays
// inside the block; a resize never lets the edges cross. Unknown trips leave the range unchanged.
func ApplySegmentDrag(ctx DragContext) Range {
	unchanged := Range{StartTripID: ctx.StartTripID, EndTripID: ctx.EndTripID}
	trips := ctx.Trips
	if len(trips) == 0 || math.IsNaN(ctx.DeltaMinutes) || math.IsInf(ctx.DeltaMinutes, 0) {
		return unchanged
	}

	startIndex := indexOf(trips, ctx.StartTripID)
	endIndex := indexOf(trips, ctx.EndTripID)
	if startIndex == -1 || endIndex == -1 || endIndex < startIndex {
		return unchanged
	}

	span := endIndex - startIndex
	nextStart, nextEnd := startIndex, endIndex

	switch ctx.Mode {
	case ModeMove:
		target := float64(trips[startIndex].StartMinutes) + ctx.DeltaMinutes
		candidate := nearestIndex(trips, target, startOf)
		nextStart = clamp(candidate, 0, max(0, len(trips)-(span+1)))
		nextEnd = nextStart + span
	case ModeResizeStart:
		target := float64(trips[startIndex].StartMinutes) + ctx.DeltaMinutes
		nextStart = clamp(nearestIndex(trips, target, startOf), 0, endIndex)
	case ModeResizeEnd:
		target := float64(trips[endIndex].EndMinutes) + ctx.DeltaMinutes
		nextEnd = clamp(nearestIndex(trips, target, endOf), startIndex, len(trips)-1)
	default:
		return unchanged
	}

	return Range{StartTripID: trips[nextStart].TripID, EndTripID: trips[nextEnd].TripID}
}

// ResolveDropRangeForTrips relocates a range so it starts at the trip containing minutes, or the
// trip starting nearest to it, keeping its length and staying inside the block.
func ResolveDropRangeForTrips(trips []tripindex.TripTiming, startTripID, endTripID string, minutes float64) Range {
	unchanged := Range{StartTripID: startTripID, EndTripID: endTripID}
	if len(trips) == 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return unchanged
	}

	span := 0
	startIndex, endIndex := indexOf(trips, startTripID), indexOf(trips, endTripID)
	if startIndex != -1 && endIndex != -1 && endIndex >= startIndex {
		span = endIndex - startIndex
	}

	target := -1
	for i, trip := range trips {
		if minutes >= float64(trip.StartMinutes) && minutes <= float64(trip.EndMinutes) {
			target = i
			break
		}
	}
	if target == -1 {
		target = nearestIndex(trips, minutes, startOf)
	}

	if target+span >= len(trips) {
		target = max(0, len(trips)-(span+1))
	}
	end := min(target+span, len(trips)-1)

	return Range{StartTripID: trips[target].TripID, EndTripID: trips[end].TripID}
}

// Gap is the idle time between two consecutive trips of a block.
type Gap struct {
	StartTripID string `json:"startTripId"`
	EndTripID   string `json:"endTripId"`
	GapMinutes  int    `json:"gapMinutes"`
}

// ResolveGapAroundMinutesForTrips finds the trips bracketing minutes: the last trip ending at or
// before it and the trip after that. It returns nil when there is no such pair or the trips leave
// no idle time between them.
func ResolveGapAroundMinutesForTrips(trips []tripindex.TripTiming, minutes float64) *Gap {
	if len(trips) < 2 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return nil
	}

	previous, next := -1, -1
	for i, trip := range trips {
		if float64(trip.EndMinutes) <= minutes {
			previous = i
			continue
		}
		next = i
		break
	}
	if previous == -1 || next == -1 {
		return nil
	}
	if trips[previous].TripID == trips[next].TripID {
		return nil
	}

	gap := trips[next].StartMinutes - trips[previous].EndMinutes
	if gap <= 0 {
		return nil
	}
	return &Gap{StartTripID: trips[previous].TripID, EndTripID: trips[next].TripID, GapMinutes: gap}
}

func startOf(trip tripindex.TripTiming) int { return trip.StartMinutes }

func endOf(trip tripindex.TripTiming) int { return trip.EndMinutes }

// nearestIndex returns the first trip whose boundary is closest to target.
func nearestIndex(trips []tripindex.TripTiming, target float64, boundary func(tripindex.TripTiming) int) int {
	nearest, nearestDiff := 0, math.Inf(1)
	for i, trip := range trips {
		diff := math.Abs(float64(boundary(trip)) - target)
		if diff < nearestDiff {
			nearest, nearestDiff = i, diff
		}
	}
	return nearest
}

func indexOf(trips []tripindex.TripTiming, tripID string) int {
	for i, trip := range trips {
		if trip.TripID == tripID {
			return i
		}
	}
	return -1
}

func clamp(value, lo, hi int) int {
	return max(lo, min(value, hi))
}

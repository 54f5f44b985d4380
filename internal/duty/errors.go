package duty

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrRange          = errors.New("range error")
	ErrOverlap        = errors.New("overlap error")
	ErrCrossBlockMove = errors.New("cross-block move")
	ErrNotFound       = errors.New("not found")
)

// ValidationError reports a missing or malformed selection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RangeReason explains why a trip range could not be resolved.
type RangeReason string

const (
	ReasonUnknownBlock         RangeReason = "unknown block"
	ReasonEndpointOutsideBlock RangeReason = "endpoint outside block"
	ReasonStartAfterEnd        RangeReason = "start after end"
	ReasonSequenceMismatch     RangeReason = "sequence mismatch"
)

// RangeError reports an unresolvable or inverted trip range.
type RangeError struct {
	Reason  RangeReason
	BlockID string
	TripID  string
}

func (e *RangeError) Error() string {
	switch e.Reason {
	case ReasonUnknownBlock:
		return fmt.Sprintf("block %s has no trips", e.BlockID)
	case ReasonEndpointOutsideBlock:
		return fmt.Sprintf("trip %s is not part of block %s", e.TripID, e.BlockID)
	case ReasonSequenceMismatch:
		return fmt.Sprintf("segment sequences starting at trip %s do not match block %s", e.TripID, e.BlockID)
	default:
		return fmt.Sprintf("segment start must not be after its end in block %s", e.BlockID)
	}
}

func (e *RangeError) Unwrap() error { return ErrRange }

// OverlapError reports that a range collides with a segment already assigned on the same block.
type OverlapError struct {
	BlockID           string
	ConflictDutyID    string
	ConflictSegmentID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("block %s range overlaps segment %s of duty %s", e.BlockID, e.ConflictSegmentID, e.ConflictDutyID)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// CrossBlockMoveError reports an attempt to move a segment onto another block.
type CrossBlockMoveError struct {
	SegmentID   string
	FromBlockID string
	ToBlockID   string
}

func (e *CrossBlockMoveError) Error() string {
	return fmt.Sprintf("segment %s cannot move from block %s to block %s", e.SegmentID, e.FromBlockID, e.ToBlockID)
}

func (e *CrossBlockMoveError) Unwrap() error { return ErrCrossBlockMove }

// NotFoundError reports an unknown duty or segment id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/persistence"
	"dutyplan.onebusaway.org/internal/tripindex"
)

func testIndex() *tripindex.Index {
	return tripindex.Build([]tripindex.BlockRow{
		{BlockID: "BLOCK_001", Sequence: 1, TripID: "T1", StartTime: "05:00", EndTime: "05:30"},
		{BlockID: "BLOCK_001", Sequence: 2, TripID: "T2", StartTime: "05:30", EndTime: "10:30"},
		{BlockID: "BLOCK_001", Sequence: 3, TripID: "T3", StartTime: "10:40", EndTime: "11:00"},
		{BlockID: "BLOCK_002", Sequence: 1, TripID: "U1", StartTime: "07:00", EndTime: "07:40"},
	})
}

func newTestSession(storage persistence.Storage) (*Session, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger(&buf, slog.LevelInfo)
	s := NewSession(testIndex(), duty.DefaultSettings(), storage, logger)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, &buf
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	storage := persistence.NewMemoryStorage()
	s, logs := newTestSession(storage)

	state, err := s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2"})
	require.NoError(t, err)
	require.Len(t, state.Duties, 1)
	assert.Contains(t, logs.String(), `"msg":"duty_add_segment"`)

	stored, ok, err := persistence.Load(ctx, storage)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state.Duties, stored.Duties)

	_, err = s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T2", EndTripID: "T3"})
	assert.ErrorIs(t, err, duty.ErrOverlap)
	assert.Same(t, state, s.State())

	state, err = s.MoveSegment(ctx, duty.MoveSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001", StartTripID: "T1", EndTripID: "T3"})
	require.NoError(t, err)
	assert.Equal(t, "T3", state.Duties[0].Segments[0].EndTripID)

	undone, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", undone.Duties[0].Segments[0].EndTripID)

	redone, err := s.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T3", redone.Duties[0].Segments[0].EndTripID)

	state, err = s.DeleteSegment(ctx, duty.DeleteSegmentInput{DutyID: "DUTY_001", SegmentID: "SEG_001"})
	require.NoError(t, err)
	assert.Empty(t, state.Duties)

	t.Run("undo on empty history keeps the state", func(t *testing.T) {
		fresh, _ := newTestSession(nil)
		before := fresh.State()
		after, err := fresh.Redo(ctx)
		require.NoError(t, err)
		assert.Same(t, before, after)
	})
}

func TestSessionAutoCorrect(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(nil)
	_, err := s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T2"})
	require.NoError(t, err)
	_, err = s.AddSegment(ctx, duty.AddSegmentInput{DutyID: "DUTY_001", BlockID: "BLOCK_001", StartTripID: "T3", EndTripID: "T3"})
	require.NoError(t, err)

	m, err := s.Metrics("DUTY_001")
	require.NoError(t, err)
	assert.True(t, m.Warnings.ExceedsContinuous)

	result, state, err := s.AutoCorrect(ctx, "DUTY_001")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.Len(t, state.Duties[0].Segments, 1)
	assert.Equal(t, "SEG_002", state.Duties[0].Segments[0].ID)

	undone, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Len(t, undone.Duties[0].Segments, 2)

	_, _, err = s.AutoCorrect(ctx, "DUTY_404")
	assert.ErrorIs(t, err, duty.ErrNotFound)

	_, err = s.Metrics("DUTY_404")
	assert.ErrorIs(t, err, duty.ErrNotFound)
}

func TestSessionCSV(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(nil)
	_, err := s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1", DriverID: "DRV"})
	require.NoError(t, err)

	export, err := s.ExportCSV()
	require.NoError(t, err)
	assert.Equal(t, "duties-20240102-030405.csv", export.FileName)

	other, _ := newTestSession(nil)
	parsed, state, err := other.ImportCSV(ctx, strings.NewReader(export.CSV))
	require.NoError(t, err)
	assert.Equal(t, export.SettingsHash, parsed.SettingsHash)
	assert.Equal(t, s.State().Duties, state.Duties)
	assert.True(t, state.CanUndo())

	_, _, err = other.ImportCSV(ctx, strings.NewReader("duty_id,seq,block_id,segment_start_trip_id,segment_end_trip_id\nD,1,NOPE,T1,T1\n"))
	assert.Error(t, err)
	assert.Equal(t, state, other.State())
}

func TestSessionUnassigned(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(nil)

	summary := s.Unassigned()
	assert.Equal(t, 4, summary.TotalTrips)
	assert.Equal(t, 4, summary.UnassignedTrips)
	assert.InDelta(t, 100.0, summary.Percentage, 0.001)
	assert.True(t, summary.ExceedsLimit)

	_, err := s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T3"})
	require.NoError(t, err)
	_, err = s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_002", StartTripID: "U1", EndTripID: "U1"})
	require.NoError(t, err)
	summary = s.Unassigned()
	assert.Empty(t, summary.Ranges)
	assert.False(t, summary.ExceedsLimit)
}

func TestSessionRestore(t *testing.T) {
	ctx := context.Background()
	storage := persistence.NewMemoryStorage()
	s, _ := newTestSession(storage)
	_, err := s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_002", StartTripID: "U1", EndTripID: "U1"})
	require.NoError(t, err)

	restored, _ := newTestSession(storage)
	ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.State().Duties, restored.State().Duties)
	assert.False(t, restored.State().CanUndo())

	// Counters resume past restored ids.
	state, err := restored.AddSegment(ctx, duty.AddSegmentInput{BlockID: "BLOCK_001", StartTripID: "T1", EndTripID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, "DUTY_002", state.Duties[1].ID)
	assert.Equal(t, "SEG_002", state.Duties[1].Segments[0].ID)
}

func TestSessionSettings(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(nil)
	settings := duty.DefaultSettings()
	settings.MaxContinuousMinutes = 400

	state, err := s.UpdateSettings(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, 400.0, state.Settings.MaxContinuousMinutes)
	assert.False(t, state.CanUndo())
}

func TestSessionConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	rows := make([]tripindex.BlockRow, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, tripindex.BlockRow{BlockID: "B", Sequence: i + 1, TripID: tripindex.FormatClock(i * 30),
			StartTime: tripindex.FormatClock(i * 30), EndTime: tripindex.FormatClock(i*30 + 20)})
	}
	s := NewSession(tripindex.Build(rows), duty.DefaultSettings(), nil, nil)

	var wg sync.WaitGroup
	for _, row := range rows {
		wg.Add(1)
		go func(tripID string) {
			defer wg.Done()
			_, err := s.AddSegment(ctx, duty.AddSegmentInput{BlockID: "B", StartTripID: tripID, EndTripID: tripID})
			assert.NoError(t, err)
		}(row.TripID)
	}
	wg.Wait()

	state := s.State()
	assert.Len(t, state.Duties, 20)
	assert.NoError(t, duty.CheckOverlaps(state.Duties))
}

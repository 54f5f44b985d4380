package gtfs

import (
	"context"
	"sort"
	"time"

	"github.com/jamespfennell/gtfs"

	"dutyplan.onebusaway.org/internal/tripindex"
)

// BlockRowsOptions filters the trips turned into block rows.
type BlockRowsOptions struct {
	// ServiceID keeps only trips of this service when set.
	ServiceID string
}

// LoadBlockRows reads a static feed from a file or URL and returns its block rows.
func LoadBlockRows(ctx context.Context, source string, opts BlockRowsOptions) ([]tripindex.BlockRow, error) {
	staticData, err := loadGTFSData(ctx, source)
	if err != nil {
		return nil, err
	}
	return BlockRowsFromStatic(staticData, opts), nil
}

type blockTrip struct {
	row       tripindex.BlockRow
	departure time.Duration
}

// BlockRowsFromStatic turns every trip with a block_id into a block row. Trips of a block are
// ordered by first departure, then trip id, and numbered from 1. Trips without stop times are
// skipped. Times past midnight keep counting hours, e.g. 25:10.
func BlockRowsFromStatic(staticData *gtfs.Static, opts BlockRowsOptions) []tripindex.BlockRow {
	blocks := make(map[string][]blockTrip)

	for _, trip := range staticData.Trips {
		if trip.BlockID == "" || len(trip.StopTimes) == 0 {
			continue
		}
		serviceID := ""
		if trip.Service != nil {
			serviceID = trip.Service.Id
		}
		if opts.ServiceID != "" && serviceID != opts.ServiceID {
			continue
		}

		stopTimes := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
		copy(stopTimes, trip.StopTimes)
		sort.SliceStable(stopTimes, func(i, j int) bool {
			return stopTimes[i].StopSequence < stopTimes[j].StopSequence
		})
		first, last := stopTimes[0], stopTimes[len(stopTimes)-1]

		departure := first.DepartureTime
		if departure == 0 {
			departure = first.ArrivalTime
		}
		arrival := last.ArrivalTime
		if arrival == 0 {
			arrival = last.DepartureTime
		}

		blocks[trip.BlockID] = append(blocks[trip.BlockID], blockTrip{
			departure: departure,
			row: tripindex.BlockRow{
				BlockID:    trip.BlockID,
				TripID:     trip.ID,
				StartTime:  tripindex.FormatClock(int(departure / time.Minute)),
				EndTime:    tripindex.FormatClock(int(arrival / time.Minute)),
				FromStopID: stopID(first),
				ToStopID:   stopID(last),
				ServiceID:  serviceID,
			},
		})
	}

	blockIDs := make([]string, 0, len(blocks))
	for blockID := range blocks {
		blockIDs = append(blockIDs, blockID)
	}
	sort.Strings(blockIDs)

	var rows []tripindex.BlockRow
	for _, blockID := range blockIDs {
		trips := blocks[blockID]
		sort.SliceStable(trips, func(i, j int) bool {
			if trips[i].departure != trips[j].departure {
				return trips[i].departure < trips[j].departure
			}
			return trips[i].row.TripID < trips[j].row.TripID
		})
		for i, t := range trips {
			t.row.Sequence = i + 1
			rows = append(rows, t.row)
		}
	}
	return rows
}

func stopID(st gtfs.ScheduledStopTime) string {
	if st.Stop == nil {
		return ""
	}
	return st.Stop.Id
}

package restapi

import (
	"net/http"
	"time"

	"dutyplan.onebusaway.org/internal/models"
)

type statusEntry struct {
	Env            string `json:"env"`
	BlockCount     int    `json:"blockCount"`
	TripCount      int    `json:"tripCount"`
	DutyCount      int    `json:"dutyCount"`
	StorageBackend string `json:"storageBackend"`
	ScheduleSource string `json:"scheduleSource"`
	ScheduleLoaded int64  `json:"scheduleLoadedAt,omitempty"`
}

func (api *RestAPI) statusHandler(w http.ResponseWriter, r *http.Request) {
	index := api.Session.Index()
	entry := statusEntry{
		Env:            string(api.Config.Env),
		DutyCount:      len(api.Session.State().Duties),
		StorageBackend: api.Config.Storage.Backend,
		ScheduleSource: "blocks_csv",
	}
	for _, blockID := range index.BlockIDs() {
		entry.BlockCount++
		entry.TripCount += len(index.Rows(blockID))
	}
	if api.GtfsManager != nil {
		entry.ScheduleSource = "gtfs"
		if loaded := api.GtfsManager.LastUpdated(); !loaded.IsZero() {
			entry.ScheduleLoaded = loaded.UnixNano() / int64(time.Millisecond)
		}
	}

	api.sendResponse(w, r, models.NewEntryResponse(entry))
}

package restapi

import (
	"net/http"

	"dutyplan.onebusaway.org/internal/dragsnap"
	"dutyplan.onebusaway.org/internal/models"
	"dutyplan.onebusaway.org/internal/tripindex"
	"dutyplan.onebusaway.org/internal/utils"
)

func (api *RestAPI) blocksHandler(w http.ResponseWriter, r *http.Request) {
	index := api.Session.Index()
	blockIDs := index.BlockIDs()
	entries := make([]models.BlockEntry, 0, len(blockIDs))
	for _, blockID := range blockIDs {
		rows := index.Rows(blockID)
		entry := models.BlockEntry{BlockID: blockID, TripCount: len(rows)}
		if len(rows) > 0 {
			entry.FirstDeparture = rows[0].StartTime
			entry.LastArrival = rows[len(rows)-1].EndTime
		}
		entries = append(entries, entry)
	}
	api.sendResponse(w, r, models.NewListResponse(entries))
}

// blockTrips resolves the :blockId parameter. It writes the error response itself and returns
// false when the block is invalid or unknown.
func (api *RestAPI) blockTrips(w http.ResponseWriter, r *http.Request) (string, *tripindex.Index, bool) {
	blockID := utils.ExtractParam(r, "blockId")
	if err := utils.ValidateID(blockID); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"blockId": {err.Error()}})
		return "", nil, false
	}
	index := api.Session.Index()
	if !index.HasBlock(blockID) {
		api.sendNotFound(w, r)
		return "", nil, false
	}
	return blockID, index, true
}

func (api *RestAPI) blockTripsHandler(w http.ResponseWriter, r *http.Request) {
	blockID, index, ok := api.blockTrips(w, r)
	if !ok {
		return
	}
	api.sendResponse(w, r, models.NewListResponse(index.Rows(blockID)))
}

type dragRequest struct {
	StartTripID  string  `json:"startTripId"`
	EndTripID    string  `json:"endTripId"`
	Mode         string  `json:"mode"`
	DeltaMinutes float64 `json:"deltaMinutes"`
}

func (api *RestAPI) dragHandler(w http.ResponseWriter, r *http.Request) {
	blockID, index, ok := api.blockTrips(w, r)
	if !ok {
		return
	}

	var req dragRequest
	if fieldErrors := decodeJSONBody(w, r, &req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	fieldErrors := utils.ValidateIDs(map[string]string{"startTripId": req.StartTripID, "endTripId": req.EndTripID})
	mode, err := dragsnap.ParseMode(req.Mode)
	if err != nil {
		fieldErrors["mode"] = append(fieldErrors["mode"], err.Error())
	}
	if err := utils.ValidateDeltaMinutes(req.DeltaMinutes); err != nil {
		fieldErrors["deltaMinutes"] = append(fieldErrors["deltaMinutes"], err.Error())
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	snapped := dragsnap.ApplySegmentDrag(dragsnap.DragContext{
		Trips:        index.Trips(blockID),
		StartTripID:  req.StartTripID,
		EndTripID:    req.EndTripID,
		Mode:         mode,
		DeltaMinutes: req.DeltaMinutes,
	})
	api.sendResponse(w, r, models.NewEntryResponse(snapped))
}

type dropRequest struct {
	StartTripID string  `json:"startTripId"`
	EndTripID   string  `json:"endTripId"`
	Minutes     float64 `json:"minutes"`
}

func (api *RestAPI) dropHandler(w http.ResponseWriter, r *http.Request) {
	blockID, index, ok := api.blockTrips(w, r)
	if !ok {
		return
	}

	var req dropRequest
	if fieldErrors := decodeJSONBody(w, r, &req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	fieldErrors := utils.ValidateIDs(map[string]string{"startTripId": req.StartTripID, "endTripId": req.EndTripID})
	if err := utils.ValidateMinutes(req.Minutes); err != nil {
		fieldErrors["minutes"] = append(fieldErrors["minutes"], err.Error())
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	snapped := dragsnap.ResolveDropRangeForTrips(index.Trips(blockID), req.StartTripID, req.EndTripID, req.Minutes)
	api.sendResponse(w, r, models.NewEntryResponse(snapped))
}

// gapHandler answers with the idle gap bracketing ?minutes=, or a null entry when there is none.
func (api *RestAPI) gapHandler(w http.ResponseWriter, r *http.Request) {
	blockID, index, ok := api.blockTrips(w, r)
	if !ok {
		return
	}

	minutes, fieldErrors := utils.RequireFloatParam(r.URL.Query(), "minutes", nil)
	if len(fieldErrors) == 0 {
		if err := utils.ValidateMinutes(minutes); err != nil {
			fieldErrors["minutes"] = append(fieldErrors["minutes"], err.Error())
		}
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	gap := dragsnap.ResolveGapAroundMinutesForTrips(index.Trips(blockID), minutes)
	api.sendResponse(w, r, models.NewEntryResponse(gap))
}

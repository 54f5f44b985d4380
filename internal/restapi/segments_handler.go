package restapi

import (
	"net/http"

	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/utils"
)

// checkIDs validates the character set of optional ids. Missing required ids are reported by the
// duty commands themselves.
func checkIDs(ids map[string]string) map[string][]string {
	fieldErrors := make(map[string][]string)
	for field, id := range ids {
		if err := utils.ValidateOptionalID(id); err != nil {
			fieldErrors[field] = append(fieldErrors[field], err.Error())
		}
	}
	return fieldErrors
}

func (api *RestAPI) addSegmentHandler(w http.ResponseWriter, r *http.Request) {
	var input duty.AddSegmentInput
	if fieldErrors := decodeJSONBody(w, r, &input); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	input.DriverID = utils.SanitizeInput(input.DriverID)

	fieldErrors := checkIDs(map[string]string{
		"dutyId":             input.DutyID,
		"blockId":            input.BlockID,
		"startTripId":        input.StartTripID,
		"endTripId":          input.EndTripID,
		"deadheadFromStopId": input.DeadheadFromStopID,
		"deadheadToStopId":   input.DeadheadToStopID,
	})
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	state, err := api.Session.AddSegment(r.Context(), input)
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendState(w, r, state)
}

type moveSegmentRequest struct {
	BlockID     string `json:"blockId,omitempty"`
	StartTripID string `json:"startTripId"`
	EndTripID   string `json:"endTripId"`
}

func (api *RestAPI) moveSegmentHandler(w http.ResponseWriter, r *http.Request) {
	dutyID := utils.ExtractParam(r, "dutyId")
	segmentID := utils.ExtractParam(r, "segmentId")
	if fieldErrors := utils.ValidateIDs(map[string]string{"dutyId": dutyID, "segmentId": segmentID}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	var req moveSegmentRequest
	if fieldErrors := decodeJSONBody(w, r, &req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	fieldErrors := checkIDs(map[string]string{
		"blockId":     req.BlockID,
		"startTripId": req.StartTripID,
		"endTripId":   req.EndTripID,
	})
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	state, err := api.Session.MoveSegment(r.Context(), duty.MoveSegmentInput{
		DutyID:      dutyID,
		SegmentID:   segmentID,
		BlockID:     req.BlockID,
		StartTripID: req.StartTripID,
		EndTripID:   req.EndTripID,
	})
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendState(w, r, state)
}

func (api *RestAPI) deleteSegmentHandler(w http.ResponseWriter, r *http.Request) {
	dutyID := utils.ExtractParam(r, "dutyId")
	segmentID := utils.ExtractParam(r, "segmentId")
	if fieldErrors := utils.ValidateIDs(map[string]string{"dutyId": dutyID, "segmentId": segmentID}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	state, err := api.Session.DeleteSegment(r.Context(), duty.DeleteSegmentInput{DutyID: dutyID, SegmentID: segmentID})
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendState(w, r, state)
}

func (api *RestAPI) undoHandler(w http.ResponseWriter, r *http.Request) {
	state, err := api.Session.Undo(r.Context())
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendState(w, r, state)
}

func (api *RestAPI) redoHandler(w http.ResponseWriter, r *http.Request) {
	state, err := api.Session.Redo(r.Context())
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendState(w, r, state)
}

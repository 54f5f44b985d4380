package restapi

import (
	"fmt"
	"math"
	"net/http"

	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/models"
	"dutyplan.onebusaway.org/internal/utils"
)

func (api *RestAPI) sendState(w http.ResponseWriter, r *http.Request, state *duty.EditState) {
	api.sendResponse(w, r, models.NewEntryResponse(models.NewDutyStateEntry(state)))
}

func (api *RestAPI) getDutiesHandler(w http.ResponseWriter, r *http.Request) {
	api.sendState(w, r, api.Session.State())
}

type replaceDutiesRequest struct {
	Duties []duty.Duty `json:"duties"`
}

func (api *RestAPI) replaceDutiesHandler(w http.ResponseWriter, r *http.Request) {
	var req replaceDutiesRequest
	if fieldErrors := decodeJSONBody(w, r, &req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if req.Duties == nil {
		api.validationErrorResponse(w, r, map[string][]string{"duties": {"duties must be present"}})
		return
	}
	if fieldErrors := validateDuties(req.Duties); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	state, err := api.Session.ReplaceDuties(r.Context(), req.Duties)
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendState(w, r, state)
}

func validateDuties(duties []duty.Duty) map[string][]string {
	fieldErrors := make(map[string][]string)
	seen := make(map[string]bool)
	for i, d := range duties {
		field := fmt.Sprintf("duties[%d]", i)
		if err := utils.ValidateID(d.ID); err != nil {
			fieldErrors[field+".id"] = append(fieldErrors[field+".id"], err.Error())
		}
		if seen[d.ID] {
			fieldErrors[field+".id"] = append(fieldErrors[field+".id"], "duplicate duty id")
		}
		seen[d.ID] = true
		if len(d.Segments) == 0 {
			fieldErrors[field+".segments"] = append(fieldErrors[field+".segments"], "a duty needs at least one segment")
		}
		segmentIDs := make(map[string]bool, len(d.Segments))
		for j, s := range d.Segments {
			segField := fmt.Sprintf("%s.segments[%d]", field, j)
			if segmentIDs[s.ID] {
				fieldErrors[segField+".id"] = append(fieldErrors[segField+".id"], "duplicate segment id")
			}
			segmentIDs[s.ID] = true
			for name, id := range map[string]string{"id": s.ID, "blockId": s.BlockID, "startTripId": s.StartTripID, "endTripId": s.EndTripID} {
				if err := utils.ValidateID(id); err != nil {
					fieldErrors[segField+"."+name] = append(fieldErrors[segField+"."+name], err.Error())
				}
			}
			if s.StartSequence > s.EndSequence {
				fieldErrors[segField] = append(fieldErrors[segField], "startSequence must not exceed endSequence")
			}
		}
	}
	return fieldErrors
}

func (api *RestAPI) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, models.NewEntryResponse(api.Session.State().Settings))
}

// updateSettingsHandler applies a partial update: fields missing from the body keep their
// current values.
func (api *RestAPI) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings := api.Session.State().Settings
	if fieldErrors := decodeJSONBody(w, r, &settings); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if fieldErrors := validateSettings(settings); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	state, err := api.Session.UpdateSettings(r.Context(), settings)
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(state.Settings))
}

func validateSettings(s duty.Settings) map[string][]string {
	fieldErrors := make(map[string][]string)
	positive := map[string]float64{
		"maxContinuousMinutes": s.MaxContinuousMinutes,
		"maxDailyMinutes":      s.MaxDailyMinutes,
	}
	for field, v := range positive {
		if math.IsNaN(v) || v <= 0 {
			fieldErrors[field] = append(fieldErrors[field], "must be greater than 0")
		}
	}
	nonNegative := map[string]float64{
		"minBreakMinutes":         s.MinBreakMinutes,
		"maxUnassignedPercentage": s.MaxUnassignedPercentage,
		"maxNightShiftVariance":   s.MaxNightShiftVariance,
	}
	for field, v := range nonNegative {
		if math.IsNaN(v) || v < 0 {
			fieldErrors[field] = append(fieldErrors[field], "must not be negative")
		}
	}
	if s.UndoStackLimit < 0 {
		fieldErrors["undoStackLimit"] = append(fieldErrors["undoStackLimit"], "must not be negative")
	}
	return fieldErrors
}

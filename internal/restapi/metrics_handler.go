package restapi

import (
	"net/http"

	"dutyplan.onebusaway.org/internal/models"
	"dutyplan.onebusaway.org/internal/utils"
)

func (api *RestAPI) allMetricsHandler(w http.ResponseWriter, r *http.Request) {
	all := api.Session.AllMetrics()
	entries := make([]models.DutyMetricsEntry, 0, len(all))
	for _, m := range all {
		entries = append(entries, models.NewDutyMetricsEntry(m))
	}
	api.sendResponse(w, r, models.NewListResponse(entries))
}

func (api *RestAPI) dutyMetricsHandler(w http.ResponseWriter, r *http.Request) {
	dutyID := utils.ExtractParam(r, "dutyId")
	if err := utils.ValidateID(dutyID); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"dutyId": {err.Error()}})
		return
	}

	m, err := api.Session.Metrics(dutyID)
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(models.NewDutyMetricsEntry(m)))
}

func (api *RestAPI) autoCorrectHandler(w http.ResponseWriter, r *http.Request) {
	dutyID := utils.ExtractParam(r, "dutyId")
	if err := utils.ValidateID(dutyID); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"dutyId": {err.Error()}})
		return
	}

	result, state, err := api.Session.AutoCorrect(r.Context(), dutyID)
	if err != nil {
		api.commandErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(models.NewAutoCorrectEntry(dutyID, result, state)))
}

func (api *RestAPI) unassignedHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, models.NewEntryResponse(api.Session.Unassigned()))
}

package restapi

import (
	"errors"
	"fmt"
	"net/http"

	"dutyplan.onebusaway.org/internal/dutycsv"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/models"
)

// SettingsHashHeader carries the settings fingerprint of an exported CSV.
const SettingsHashHeader = "X-Settings-Hash"

func (api *RestAPI) exportCSVHandler(w http.ResponseWriter, r *http.Request) {
	export, err := api.Session.ExportCSV()
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set(SettingsHashHeader, export.SettingsHash)
	if _, err := w.Write([]byte(export.CSV)); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to write csv export", err)
	}
}

func (api *RestAPI) importCSVHandler(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	parsed, state, err := api.Session.ImportCSV(r.Context(), body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			api.validationErrorResponse(w, r, map[string][]string{
				"body": {fmt.Sprintf("request body must not exceed %d bytes", maxBytesErr.Limit)},
			})
			return
		}
		api.commandErrorResponse(w, r, err)
		return
	}

	entry := models.ImportEntry{
		SettingsHash: parsed.SettingsHash,
		GeneratedAt:  parsed.GeneratedAt,
		DutyCount:    len(parsed.Duties),
		State:        models.NewDutyStateEntry(state),
	}
	if parsed.SettingsHash != "" {
		if current, err := dutycsv.SettingsHash(state.Settings); err == nil && current != parsed.SettingsHash {
			logging.FromContext(r.Context()).Warn("imported csv was exported with different settings",
				"csv_hash", parsed.SettingsHash, "current_hash", current)
		}
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry))
}

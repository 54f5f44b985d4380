package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/dutycsv"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/models"
)

type errorBody struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
}

func (api *RestAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, text string, version int) {
	response := errorBody{
		Code:        status,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        text,
		Version:     version,
	}

	setJSONResponseType(&w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.Logger, "failed to encode error response", err)
	}
}

// invalidAPIKeyResponse sends a 401 Unauthorized response with the required format
// for invalid API key errors
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	// Version 1 here, unlike successful responses, for client compatibility.
	api.errorResponse(w, r, http.StatusUnauthorized, "permission denied", 1)
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err)
	api.errorResponse(w, r, http.StatusInternalServerError, "internal server error", 1)
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	}

	setJSONResponseType(&w)
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.Logger, "failed to encode validation error response", err)
	}
}

// commandErrorResponse maps a rejected duty command onto a status code. Rejections are client
// errors; anything unrecognised is a server error.
func (api *RestAPI) commandErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *duty.ValidationError
	if errors.As(err, &validationErr) {
		api.validationErrorResponse(w, r, map[string][]string{validationErr.Field: {validationErr.Message}})
		return
	}

	switch {
	case errors.Is(err, duty.ErrNotFound):
		api.errorResponse(w, r, http.StatusNotFound, err.Error(), models.ResponseVersion)
	case errors.Is(err, duty.ErrOverlap):
		api.errorResponse(w, r, http.StatusConflict, err.Error(), models.ResponseVersion)
	case errors.Is(err, duty.ErrRange), errors.Is(err, duty.ErrCrossBlockMove), errors.Is(err, dutycsv.ErrImportSchema):
		api.errorResponse(w, r, http.StatusBadRequest, err.Error(), models.ResponseVersion)
	default:
		api.serverErrorResponse(w, r, err)
	}
}

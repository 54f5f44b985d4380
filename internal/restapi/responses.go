package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode response", err)
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, r, http.StatusNotFound, "resource not found", models.ResponseVersion)
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

// decodeJSONBody decodes a size-limited JSON body into dst. Failures come back as field errors
// keyed "body" so handlers can answer with validationErrorResponse.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) map[string][]string {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return map[string][]string{"body": {"request body must not be empty"}}
		case errors.As(err, &maxBytesErr):
			return map[string][]string{"body": {fmt.Sprintf("request body must not exceed %d bytes", maxBytesErr.Limit)}}
		default:
			return map[string][]string{"body": {err.Error()}}
		}
	}
	if decoder.More() {
		return map[string][]string{"body": {"request body must contain a single JSON value"}}
	}
	return nil
}

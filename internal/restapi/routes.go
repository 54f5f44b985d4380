package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	handle := func(method, path string, h handlerFunc) {
		router.Handler(method, path, validateAPIKey(api, h))
	}

	handle(http.MethodGet, "/api/status", api.statusHandler)

	handle(http.MethodGet, "/api/duties", api.getDutiesHandler)
	handle(http.MethodPut, "/api/duties", api.replaceDutiesHandler)
	handle(http.MethodGet, "/api/settings", api.getSettingsHandler)
	handle(http.MethodPut, "/api/settings", api.updateSettingsHandler)

	handle(http.MethodPost, "/api/segments", api.addSegmentHandler)
	handle(http.MethodPut, "/api/segments/:dutyId/:segmentId", api.moveSegmentHandler)
	handle(http.MethodDelete, "/api/segments/:dutyId/:segmentId", api.deleteSegmentHandler)

	handle(http.MethodPost, "/api/history/undo", api.undoHandler)
	handle(http.MethodPost, "/api/history/redo", api.redoHandler)

	handle(http.MethodGet, "/api/metrics", api.allMetricsHandler)
	handle(http.MethodGet, "/api/metrics/:dutyId", api.dutyMetricsHandler)
	handle(http.MethodPost, "/api/auto-correct/:dutyId", api.autoCorrectHandler)

	handle(http.MethodGet, "/api/export/duties.csv", api.exportCSVHandler)
	handle(http.MethodPost, "/api/import/duties.csv", api.importCSVHandler)

	handle(http.MethodGet, "/api/unassigned", api.unassignedHandler)

	handle(http.MethodGet, "/api/blocks", api.blocksHandler)
	handle(http.MethodGet, "/api/blocks/:blockId", api.blockTripsHandler)
	handle(http.MethodPost, "/api/blocks/:blockId/drag", api.dragHandler)
	handle(http.MethodPost, "/api/blocks/:blockId/drop", api.dropHandler)
	handle(http.MethodGet, "/api/blocks/:blockId/gap", api.gapHandler)

	router.NotFound = http.HandlerFunc(api.sendNotFound)
}

package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
}

// HealthEndpoint reports liveness together with datastore reachability.
func (h *AccountServer) HealthEndpoint(w http.ResponseWriter, r *http.Request) error {

	db := h.service.DB(r.Context(), true)
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, &healthResponse{Status: "degraded"})
		return nil
	}

	writeJSON(w, http.StatusOK, &healthResponse{Status: "ok"})
	return nil
}

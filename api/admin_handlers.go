package api

import (
	"net/http"
	"strconv"
)

// AuditTrailResponse lists persisted audit events, newest first.
type AuditTrailResponse struct {
	Events []auditRecord `json:"events"`
	Count  int           `json:"count"`
}

// AuditTrail returns recent persisted audit events. Available only when the
// server was started with an audit trail path.
func (a *API) AuditTrail(w http.ResponseWriter, r *http.Request) {
	if a.auditTrail == nil {
		writeError(w, http.StatusNotFound, "audit trail not enabled")
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	events, err := a.auditTrail.recent(limit)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditTrailResponse{Events: events, Count: len(events)})
}

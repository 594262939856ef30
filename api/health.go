package api

import (
	"context"
	"net/http"
	"time"
)

// Health is the liveness probe. It touches no dependencies.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

// Readiness reports dependency health. A missing keepassxc-cli makes the
// service not ready; an unreachable cache only degrades it, since rate
// limiting fails open.
func (a *API) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res := ReadinessResponse{
		Status:         "ready",
		ActiveSessions: a.sessions.ActiveCount(),
	}

	if version, err := a.repo.Version(ctx); err == nil {
		res.CLIAvailable = true
		res.CLIVersion = version
	}
	res.CacheReachable = a.cache.Ping(ctx) == nil

	status := http.StatusOK
	switch {
	case !res.CLIAvailable:
		res.Status = "not ready"
		status = http.StatusServiceUnavailable
	case !res.CacheReachable:
		res.Status = "degraded"
	}
	writeJSON(w, status, res)
}

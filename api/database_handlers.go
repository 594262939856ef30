package api

import (
	"encoding/json"
	"net/http"

	"github.com/kpgate/kpgate/keepass"
)

// ListGroups returns the database's group tree as a flat list.
func (a *API) ListGroups(w http.ResponseWriter, r *http.Request) {
	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	groups, err := a.repo.ListGroups(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupListResponse{Groups: groups, Count: len(groups)})
}

// DatabaseInfo returns the non-sensitive database summary.
func (a *API) DatabaseInfo(w http.ResponseWriter, r *http.Request) {
	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	info, err := a.repo.DatabaseInfo(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DatabaseInfoResponse{Database: info})
}

// GeneratePassword returns a freshly generated password. The result is not
// stored server-side; character classes default to all-on when the body is
// empty.
func (a *API) GeneratePassword(w http.ResponseWriter, r *http.Request) {
	opts := keepass.DefaultGenerateOptions()

	var req GeneratePasswordRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Length != 0 {
			if req.Length < 8 || req.Length > 128 {
				writeError(w, http.StatusBadRequest, "length must be between 8 and 128")
				return
			}
			opts = keepass.GenerateOptions{
				Length:       req.Length,
				Lowercase:    req.Lowercase,
				Uppercase:    req.Uppercase,
				Numbers:      req.Numbers,
				Special:      req.Special,
				ExcludeAlike: req.ExcludeAlike,
			}
			if !opts.Lowercase && !opts.Uppercase && !opts.Numbers && !opts.Special {
				writeError(w, http.StatusBadRequest, "at least one character class is required")
				return
			}
		}
	}

	password, err := a.repo.GeneratePassword(r.Context(), opts)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GeneratePasswordResponse{Password: password})
}

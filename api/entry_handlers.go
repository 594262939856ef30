package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kpgate/kpgate/keepass"
)

// entryName pulls the entry path from the route wildcard. Entry names are
// slash-separated paths, so a plain {name} parameter would not do.
func entryName(r *http.Request) string {
	return chi.URLParam(r, "*")
}

// ListEntries returns every entry path in the database.
func (a *API) ListEntries(w http.ResponseWriter, r *http.Request) {
	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	entries, err := a.repo.ListEntries(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Count: len(entries)})
}

// GetEntry returns one entry without its password. The password has its own
// endpoint so that reads of secret material are separately auditable.
func (a *API) GetEntry(w http.ResponseWriter, r *http.Request) {
	name := entryName(r)
	if name == "" {
		writeError(w, http.StatusBadRequest, "entry name is required")
		return
	}

	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	entry, err := a.repo.GetEntry(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	}, name, false)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditEntryAccessed, r, slog.String("entry", name))
	writeJSON(w, http.StatusOK, EntryResponse{Entry: entry})
}

// EntryPassword returns the password of the entry named by the ?name query
// parameter. Every call is audited.
func (a *API) EntryPassword(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	entry, err := a.repo.GetEntry(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	}, name, true)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditEntryPasswordRead, r, slog.String("entry", name))
	writeJSON(w, http.StatusOK, EntryPasswordResponse{Name: name, Password: entry.Password})
}

// CreateEntry adds a new entry to the database.
func (a *API) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	err := a.repo.CreateEntry(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	}, keepass.NewEntry{
		Path:     req.Path,
		Username: req.Username,
		Password: req.Password,
		URL:      req.URL,
		Notes:    req.Notes,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditEntryCreated, r, slog.String("entry", req.Path))
	writeJSON(w, http.StatusCreated, AckResponse{Success: true, Message: "entry created"})
}

// UpdateEntry changes the given fields of an entry; omitted fields keep
// their current value.
func (a *API) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	name := entryName(r)
	if name == "" {
		writeError(w, http.StatusBadRequest, "entry name is required")
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == nil && req.Password == nil && req.URL == nil && req.Notes == nil {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	err := a.repo.UpdateEntry(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	}, name, keepass.EntryUpdate{
		Username: req.Username,
		Password: req.Password,
		URL:      req.URL,
		Notes:    req.Notes,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditEntryUpdated, r, slog.String("entry", name))
	writeJSON(w, http.StatusOK, AckResponse{Success: true, Message: "entry updated"})
}

// DeleteEntry removes an entry (to the recycle bin when the database has one).
func (a *API) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	name := entryName(r)
	if name == "" {
		writeError(w, http.StatusBadRequest, "entry name is required")
		return
	}

	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	err := a.repo.DeleteEntry(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	}, name)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditEntryDeleted, r, slog.String("entry", name))
	writeJSON(w, http.StatusOK, AckResponse{Success: true, Message: "entry deleted"})
}

// SearchEntries returns entry paths matching the ?q term.
func (a *API) SearchEntries(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	dbPath, password, keyfile, ok := a.credentialsForRequest(w, r)
	if !ok {
		return
	}

	entries, err := a.repo.SearchEntries(r.Context(), keepass.Credentials{
		DatabasePath: dbPath, Password: password, Keyfile: keyfile,
	}, term)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Count: len(entries)})
}

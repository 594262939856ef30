package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess      AuditEvent = "login_success"
	AuditLoginFailure      AuditEvent = "login_failure"
	AuditLoginRateLimited  AuditEvent = "login_rate_limited"
	AuditLogout            AuditEvent = "logout"
	AuditSessionRefreshed  AuditEvent = "session_refreshed"
	AuditEntryAccessed     AuditEvent = "entry_accessed"
	AuditEntryPasswordRead AuditEvent = "entry_password_read"
	AuditEntryCreated      AuditEvent = "entry_created"
	AuditEntryUpdated      AuditEvent = "entry_updated"
	AuditEntryDeleted      AuditEvent = "entry_deleted"
	AuditSessionsCleared   AuditEvent = "sessions_cleared"
)

// auditLogger wraps slog.Logger for structured security audit logging.
// Events carry redacted session fragments and entry names, never passwords
// or envelopes.
type auditLogger struct {
	logger *slog.Logger
	store  *auditStore
}

func newAuditLogger(logger *slog.Logger, store *auditStore) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
		store:  store,
	}
}

// log writes a structured audit entry and, when a trail store is
// configured, persists the (non-sensitive) record.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)

	if al.store != nil {
		rec := auditRecord{
			Event:      string(event),
			RemoteAddr: r.RemoteAddr,
			CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		}
		for _, a := range attrs {
			switch a.Key {
			case "session_id":
				rec.SessionID = a.Value.String()
			case "entry":
				rec.Entry = a.Value.String()
			case "reason":
				rec.Reason = a.Value.String()
			}
		}
		if err := al.store.append(rec); err != nil {
			al.logger.Warn("audit trail write failed", "err", err)
		}
	}
}

// logSession is a convenience for events tied to a (redacted) session id.
func (al *auditLogger) logSession(event AuditEvent, r *http.Request, sessionID string, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("session_id", sessionID)}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a failed authentication or rate-limit decision.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("reason", reason)}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

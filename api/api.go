// Package api exposes the kpgate REST surface: authentication, entry and
// group access, database info, health, and the OpenAPI explorer.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-openapi/runtime/middleware"

	"github.com/kpgate/kpgate/cache"
	"github.com/kpgate/kpgate/keepass"
	"github.com/kpgate/kpgate/session"
)

// Version is the service version reported by the health endpoint.
const Version = "2.0.0"

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers.
type API struct {
	repo       keepass.Repository
	sessions   *session.Manager
	cache      cache.Cache
	limiter    *rateLimiter
	audit      *auditLogger
	auditTrail *auditStore
	logger     *slog.Logger

	corsOrigins    []string
	trustedProxies []netip.Prefix
	auditTrailPath string
	loginRule      limitRule
	apiRule        limitRule
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for handlers and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithCORSOrigins sets the browser origin allowlist.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) {
		a.corsOrigins = origins
	}
}

// WithTrustedProxies sets the peers whose proxy headers are believed when
// resolving the rate-limit client identity. With no trusted proxies the
// direct peer address is always used and proxy headers are ignored.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// WithRateLimits overrides the fixed-window policies for the login and
// general API classes.
func WithRateLimits(loginMax int64, loginWindow time.Duration, apiMax int64, apiWindow time.Duration) Option {
	return func(a *API) {
		a.loginRule = limitRule{Window: loginWindow, MaxAttempts: loginMax}
		a.apiRule = limitRule{Window: apiWindow, MaxAttempts: apiMax}
	}
}

// WithAuditTrail enables the persistent bbolt audit trail at path.
func WithAuditTrail(path string) Option {
	return func(a *API) {
		a.auditTrailPath = path
	}
}

// New creates the API. The cache backs rate limiting and the readiness
// probe; sessions and secrets never pass through it.
func New(repo keepass.Repository, sessions *session.Manager, c cache.Cache, opts ...Option) (*API, error) {
	a := &API{
		repo:      repo,
		sessions:  sessions,
		cache:     c,
		loginRule: limitRule{Window: time.Minute, MaxAttempts: 5},
		apiRule:   limitRule{Window: time.Minute, MaxAttempts: 100},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if a.auditTrailPath != "" {
		store, err := openAuditStore(a.auditTrailPath)
		if err != nil {
			return nil, err
		}
		a.auditTrail = store
	}
	a.audit = newAuditLogger(a.logger, a.auditTrail)
	a.limiter = newRateLimiter(c, map[limitClass]limitRule{
		classLogin: a.loginRule,
		classAPI:   a.apiRule,
	}, a.logger)
	return a, nil
}

// Close releases the audit trail, if any.
func (a *API) Close() error {
	if a.auditTrail != nil {
		return a.auditTrail.Close()
	}
	return nil
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	if len(a.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/health", a.Health)
	r.Get("/health/ready", a.Readiness)

	r.With(a.rateLimitMiddleware(classLogin)).Post("/auth/login", a.Login)
	r.Post("/auth/logout", a.Logout)
	r.Post("/auth/refresh", a.Refresh)
	r.With(a.AuthMiddleware).Get("/auth/session", a.SessionInfo)

	r.Group(func(r chi.Router) {
		r.Use(a.rateLimitMiddleware(classAPI))
		r.Use(a.AuthMiddleware)

		r.Get("/entries", a.ListEntries)
		r.Post("/entries", a.CreateEntry)
		r.Get("/entries/search", a.SearchEntries)
		r.Get("/entries/password", a.EntryPassword)
		r.Get("/entries/*", a.GetEntry)
		r.Put("/entries/*", a.UpdateEntry)
		r.Delete("/entries/*", a.DeleteEntry)

		r.Get("/groups", a.ListGroups)
		r.Get("/database/info", a.DatabaseInfo)
		r.Post("/generate/password", a.GeneratePassword)
		r.Get("/audit", a.AuditTrail)
	})

	return r
}

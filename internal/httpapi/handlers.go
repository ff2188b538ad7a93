package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/fleet"
	"vpfs.org/internal/guard"
	"vpfs.org/internal/obs"
	"vpfs.org/internal/store"
)

const serviceName = "vpfs-api"

// ReadyProbe checks the database answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return store.Ping(ctx, rp.DB)
}

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	DB       *sql.DB
	Auth     *auth.Service
	Aircraft *store.Records
	Pilots   *store.Records
	Audit    *audit.Engine
	Recorder *audit.Recorder
}

// Options tune the HTTP surface.
type Options struct {
	Version        string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	SecureCookies  bool

	// TrustProxy keys rate limits by the forwarded client address.
	TrustProxy bool
	// Now overrides the clock used for certificate status and stats.
	Now func() time.Time
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	readyProbe ReadyProbe
	auth       *auth.Service
	audit      *audit.Engine
	recorder   *audit.Recorder
	intercept  *audit.Interceptor
	aircraft   *entity
	pilots     *entity
	opts       Options
	now        func() time.Time
}

func New(deps Deps, opts Options) *API {
	a := &API{
		readyProbe: ReadyProbe{DB: deps.DB},
		auth:       deps.Auth,
		audit:      deps.Audit,
		recorder:   deps.Recorder,
		intercept:  audit.NewInterceptor(deps.Recorder),
		opts:       opts,
		now:        time.Now,
	}
	if opts.Now != nil {
		a.now = opts.Now
	}
	a.aircraft = &entity{
		records:     deps.Aircraft,
		schema:      fleet.Aircraft,
		table:       guard.Aircraft,
		resource:    audit.ResourceAircraft,
		key:         "aircraft",
		listKey:     "aircraft",
		searchParam: "registration",
		like:        []string{"registration"},
		createPerm:  auth.PermCreateAircraft,
		deletePerm:  auth.PermDeleteAircraft,
		patches: []patchRoute{
			{path: "debt", group: "debt"},
			{path: "insurance", group: "insurance"},
			{path: "airworthiness", group: "airworthiness"},
			{path: "radio", group: "radio"},
		},
		stats: func(recs []fleet.Record, now time.Time) any {
			return fleet.ComputeAircraftStats(recs, now)
		},
	}
	a.pilots = &entity{
		records:     deps.Pilots,
		schema:      fleet.Pilot,
		table:       guard.Pilot,
		resource:    audit.ResourcePilot,
		key:         "pilot",
		listKey:     "pilots",
		searchParam: "query",
		like:        []string{"name"},
		exact:       []string{"id_number"},
		createPerm:  auth.PermCreatePilot,
		deletePerm:  auth.PermDeletePilot,
		patches: []patchRoute{
			{path: "license", group: "pilot-license"},
			{path: "medical", group: "pilot-medical"},
		},
		stats: func(recs []fleet.Record, now time.Time) any {
			return fleet.ComputePilotStats(recs, now)
		},
	}
	a.router = a.routes()
	return a
}

// Handler returns the root http.Handler.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID, Logging, SecurityHeaders, CORS(a.opts.CORSOrigins), obs.Instrument)

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(a.opts.RateLimitBurst, a.opts.RateLimitRPS, a.opts.TrustProxy), MaxBodyBytes(a.opts.MaxBodyBytes))

		r.Get("/health", a.Health)
		r.Post("/auth/login", a.Login)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)

			r.Get("/auth/me", a.Me)
			r.Post("/auth/logout", a.Logout)

			r.Route("/aircraft", a.entityRoutes(a.aircraft))
			r.Route("/pilots", a.entityRoutes(a.pilots))

			r.Route("/users", func(r chi.Router) {
				r.Use(requirePermission(auth.PermManageUsers))
				a.userRoutes(r)
			})
			r.Route("/audit-logs", func(r chi.Router) {
				r.Use(requirePermission(auth.PermManageUsers))
				r.Get("/", a.ListAuditLogs)
				r.Get("/stats", a.AuditStats)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Health is the public liveness endpoint of the API itself.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"message":   "VPFS API running",
		"timestamp": a.now().UTC().Format(time.RFC3339),
	})
}

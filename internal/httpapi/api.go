package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/obs"
	"sevadarpan.org/internal/perf"
	"sevadarpan.org/internal/ratelimit"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Users    auth.UserStore
	Owners   auth.OwnerStore
	Perf     *perf.Service
	Recorder *audit.Recorder
	AuditLog audit.Lister
	Limiter  *ratelimit.SlidingWindow
	Ready    ReadyProbe
	Version  string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	users      auth.UserStore
	scope      *auth.Scope
	perf       *perf.Service
	recorder   *audit.Recorder
	auditLog   audit.Lister
	limiter    *ratelimit.SlidingWindow
	readyProbe ReadyProbe
	version    string
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		users:      cfg.Users,
		scope:      auth.NewScope(cfg.Users, cfg.Owners),
		perf:       cfg.Perf,
		recorder:   cfg.Recorder,
		auditLog:   cfg.AuditLog,
		limiter:    cfg.Limiter,
		readyProbe: cfg.Ready,
		version:    cfg.Version,
	}
	if a.limiter == nil {
		a.limiter = ratelimit.New(ratelimit.DefaultMax, ratelimit.DefaultWindow)
	}

	a.mux.HandleFunc("/api/health", a.Healthz)
	a.mux.HandleFunc("/api/ready", a.Ready)
	a.mux.HandleFunc("/api/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)
	a.mux.HandleFunc("/api/auth/2fa/setup", a.handle2FASetup)
	a.mux.HandleFunc("/api/auth/2fa/activate", a.handle2FAActivate)

	a.mux.HandleFunc("/api/users", a.handleUsersCollection)
	a.mux.HandleFunc("/api/users/", a.handleUserResource)

	a.mux.HandleFunc("/api/tasks", a.handleTasksCollection)
	a.mux.HandleFunc("/api/tasks/", a.handleTaskResource)
	a.mux.HandleFunc("/api/kpis", a.handleKPIs)
	a.mux.HandleFunc("/api/scores", a.handleScoresCollection)
	a.mux.HandleFunc("/api/scores/", a.handleScoreResource)
	a.mux.HandleFunc("/api/surveys", a.handleSurveysCollection)
	a.mux.HandleFunc("/api/surveys/", a.handleSurveyResource)
	a.mux.HandleFunc("/api/feedback", a.handleFeedback)

	a.mux.Handle("/api/audit", RequireRole(auth.RoleAdministrator)(http.HandlerFunc(a.handleAuditLog)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain. Order matters: authentication runs
// before the audit wrapper so entries carry the resolved actor, and the audit
// wrapper sits directly around the mux so it observes the final status code.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAudit(h)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = IPRateLimit(h, 20, 10)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

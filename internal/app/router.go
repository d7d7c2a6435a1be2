package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	audithttp "github.com/Ezrah1/orlando/internal/audit/http"
	"github.com/Ezrah1/orlando/internal/auth"
	"github.com/Ezrah1/orlando/internal/observability"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/roles"
	"github.com/Ezrah1/orlando/internal/shared"
	"github.com/Ezrah1/orlando/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	CSRFManager        *shared.CSRFManager
	SessionMiddleware  auth.Middleware
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.Handler
	AuditHandler       *audithttp.Handler
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Orlando defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		Session:     params.SessionMiddleware,
		CSRFManager: params.CSRFManager,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				params.Logger.Error("health check database ping", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/roles", params.RolesHandler.MountRoutes)
	r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	r.Route("/audit", params.AuditHandler.MountRoutes)

	return r
}

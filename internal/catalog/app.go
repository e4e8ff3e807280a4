package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"BookStore/internal/auth"
	"BookStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// Auth guards mutating routes and serves /auth/login. Nil disables both.
	Auth *auth.Server

	LoginLimit  int
	LoginWindow time.Duration
	// TrustProxy keys the login limit on X-Forwarded-For instead of the
	// connection address.
	TrustProxy bool
}

const (
	defaultLoginLimit  = 5
	defaultLoginWindow = time.Minute
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	var staff func(http.Handler) http.Handler
	if deps.Auth != nil {
		staff = auth.RequireStaff(deps.Auth.JWT)
		setupLogin(r, deps)
	}

	r.Mount("/", s.Routes(staff))
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func setupLogin(r *chi.Mux, deps HTTPDeps) {
	limit, window := deps.LoginLimit, deps.LoginWindow
	if limit <= 0 {
		limit = defaultLoginLimit
	}
	if window <= 0 {
		window = defaultLoginWindow
	}

	limiter := kit.NewIPRateLimiter(limit, window)
	limiter.TrustForwardedFor = deps.TrustProxy
	r.With(limiter.Middleware).Post("/auth/login", deps.Auth.HandleLogin)
}

package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"posd/services/admin"
	"posd/services/dashboard"
	"posd/services/logs"
	"posd/services/staff"
)

// rateWindow is the sliding window for the per-user limit.
const rateWindow = time.Minute

type routerDeps struct {
	cfg       Config
	staff     *staff.Handler
	issuer    *staff.TokenIssuer
	logsH     *logs.Handler
	adminH    *admin.Handler
	dashboard *dashboard.Handler
	ready     func(r *http.Request) error
}

// newRouter assembles the HTTP surface: public probes and login, then the
// JWT-protected v1 API.
func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if d.ready != nil {
			if err := d.ready(req); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		d.staff.PublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(staff.Auth(d.issuer))
			r.Use(httprate.Limit(d.cfg.RateLimit, rateWindow,
				httprate.WithKeyFuncs(staff.RateKey)))

			d.staff.Routes(r)
			d.logsH.Routes(r)
			d.adminH.Routes(r)
			d.dashboard.Routes(r)
		})
	})

	return r
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/api/handler"
	mw "github.com/kapu/trendformats-go/internal/api/middleware"
	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/metrics"
)

// Deps is everything the router mounts. Session is nil unless dev login is on.
type Deps struct {
	Trending       *handler.TrendingHandler
	Usage          *handler.UsageHandler
	Session        *handler.SessionHandler
	Health         *handler.HealthHandler
	Sessions       mw.SessionLookup
	CookieName     string
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	// RequestTimeout bounds plain HTTP routes. Zero uses the server default.
	RequestTimeout time.Duration
}

func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	requestTimeout := d.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = constants.ServerConfig.RequestTimeout
	}
	timeout := middleware.Timeout(requestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger, d.Metrics))
	r.Use(mw.Recovery(logger))
	r.Use(mw.CORS(d.AllowedOrigins))

	r.Group(func(r chi.Router) {
		r.Use(timeout)

		r.Get("/health", d.Health.Live)
		r.Get("/ready", d.Health.Ready)
		if d.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
		}
	})

	r.Route("/api", func(r chi.Router) {
		if d.Session != nil {
			r.With(timeout).Post("/session", d.Session.Create)
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.SessionAuth(d.Sessions, d.CookieName, logger))

			// The stream owns its connection after the upgrade and ends when
			// the pipeline does, so it stays outside the request timeout.
			r.Get("/formats/trending/ws", d.Trending.Stream)

			r.Group(func(r chi.Router) {
				r.Use(timeout)

				r.Get("/formats/trending", d.Trending.Get)
				r.Get("/usage", d.Usage.Get)
			})
		})
	})

	return r
}

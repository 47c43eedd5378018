package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
)

// Pinger reports storage liveness for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Logger      *slog.Logger
	Addr        string
	CORSOrigins []string

	HeartbeatService  *service.HeartbeatService
	AccessService     *service.AccessService
	EnrollmentService *service.EnrollmentCoordinator
	AdminService      *service.AdminService
	AnalyticsService  *service.AnalyticsService

	Bus      *notify.Bus
	Store    Pinger
	Gatherer prometheus.Gatherer // nil disables /metrics

	// EventsPingInterval overrides the WebSocket keepalive (tests).
	EventsPingInterval time.Duration
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	heartbeat  *service.HeartbeatService
	access     *service.AccessService
	enrollment *service.EnrollmentCoordinator
	admin      *service.AdminService
	analytics  *service.AnalyticsService
	bus        *notify.Bus
	store      Pinger

	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pingInterval := d.EventsPingInterval
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}

	s := &Server{
		logger:       logger,
		heartbeat:    d.HeartbeatService,
		access:       d.AccessService,
		enrollment:   d.EnrollmentService,
		admin:        d.AdminService,
		analytics:    d.AnalyticsService,
		bus:          d.Bus,
		store:        d.Store,
		pingInterval: pingInterval,
		upgrader:     newUpgrader(d.CORSOrigins),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealthz)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		// Reader protocol
		r.Post("/heartbeat", s.handleHeartbeat)
		r.Post("/access_request", s.handleAccessRequest)

		r.Route("/enrollments", func(r chi.Router) {
			r.Get("/", s.handleListEnrollments)
			r.Post("/card-read", s.handleCardRead)
			r.Post("/capture", s.handleCapture)
		})

		r.Get("/access-logs", s.handleListAccessLogs)
		r.Get("/analytics/access-stats", s.handleAccessStats)
		if s.bus != nil {
			r.Get("/events", s.handleEvents)
		}

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", s.handleListOrganizations)
			r.Post("/", s.handleCreateOrganization)
			r.Get("/{id}", s.handleGetOrganization)
			r.Put("/{id}", s.handleUpdateOrganization)
			r.Delete("/{id}", s.handleDeleteOrganization)
		})

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", s.handleListDepartments)
			r.Post("/", s.handleCreateDepartment)
			r.Get("/{id}", s.handleGetDepartment)
			r.Put("/{id}", s.handleUpdateDepartment)
			r.Delete("/{id}", s.handleDeleteDepartment)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Post("/", s.handleCreateCard)
			r.Get("/{cardID}", s.handleGetCard)
			r.Put("/{cardID}", s.handleUpdateCard)
			r.Patch("/{cardID}/status", s.handleSetCardStatus)
			r.Delete("/{cardID}", s.handleDeleteCard)
		})

		r.Route("/biometrics/{cardID}", func(r chi.Router) {
			r.Get("/", s.handleGetBiometric)
			r.Put("/", s.handleUpsertBiometric)
			r.Delete("/", s.handleDeleteBiometric)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/{deviceID}", s.handleGetDevice)
			r.Put("/{deviceID}", s.handleUpdateDevice)
			r.Delete("/{deviceID}", s.handleDeleteDevice)
			r.Put("/{deviceID}/registration-mode", s.handleSetRegistrationMode)
		})
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("healthz: store ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

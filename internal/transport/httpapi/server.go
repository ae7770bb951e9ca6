// Package httpapi is the thin JSON surface over the app facade. It carries
// no business logic: handlers decode, call one facade method and encode.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"iptvctl/internal/app"
	"iptvctl/internal/history"
	"iptvctl/internal/schedule"
	logx "iptvctl/pkg/logx"
)

// Backend is the slice of the app facade the handlers need.
type Backend interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	ArmTimer(ctx context.Context, minutes int) error
	CancelTimer(ctx context.Context) bool
	TimerPresets() []int
	Status(ctx context.Context) app.Status

	History(ctx context.Context, date *time.Time, page int) (history.Page, history.Aggregate, error)

	Schedules() []schedule.Annotated
	CreateSchedule(ctx context.Context, in schedule.Input) (schedule.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, in schedule.Input) (schedule.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	ToggleSchedule(ctx context.Context, id string) (schedule.Schedule, error)
}

type Config struct {
	Addr       string
	RatePerSec int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	return c
}

type Server struct {
	cfg     Config
	backend Backend
	log     logx.Logger

	router chi.Router
	srv    *http.Server
}

func NewServer(cfg Config, backend Backend, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:     cfg.withDefaults(),
		backend: backend,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	if s.cfg.RatePerSec > 0 {
		s.router.Use(rateLimit(s.cfg.RatePerSec))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/link/on", s.handleOn)
		r.Post("/link/off", s.handleOff)

		r.Post("/timer/{minutes}", s.handleArmTimer)
		r.Post("/timer/cancel", s.handleCancelTimer)

		r.Get("/history", s.handleHistory)

		r.Get("/schedules", s.handleListSchedules)
		r.Post("/schedules", s.handleCreateSchedule)
		r.Put("/schedules/{id}", s.handleUpdateSchedule)
		r.Delete("/schedules/{id}", s.handleDeleteSchedule)
		r.Post("/schedules/{id}/toggle", s.handleToggleSchedule)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start runs the listener in the background; errors other than a clean close
// are logged, not returned.
func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	go func() {
		s.log.Info("http api listening", logx.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http api failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

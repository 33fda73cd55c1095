package api

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/seoaudit/seoconsole/internal/app"
	"github.com/seoaudit/seoconsole/internal/config"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/state"
)

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	http   *http.Server
	logger *slog.Logger
	clock  clockwork.Clock

	app    *app.App
	feed   *changeFeed
	layout *template.Template
	ready  func(context.Context) error
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithClock(clock clockwork.Clock) ServerOption {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithReadiness sets the check behind /ready, usually a cheap backend call.
func WithReadiness(check func(context.Context) error) ServerOption {
	return func(s *Server) {
		s.ready = check
	}
}

func NewServer(cfg *config.Config, a *app.App, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: slog.Default(),
		clock:  clockwork.NewRealClock(),
		app:    a,
		layout: template.Must(template.New("layout").Parse(layoutHTML)),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.feed = newChangeFeed(s.clock, cfg.UI.Debounce, s.logger)
	a.Store().Subscribe("", func(ev state.Event) {
		s.feed.Add(ev.Path)
	})
	a.Toasts().OnPush(func(*notifications.Toast) {
		s.feed.Add(toastsPath)
	})

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(s.recoverer)
	s.router.Use(s.corsMiddleware())
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	allowOrigin := s.cfg.Server.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
		s.logger.Warn("CORS Allow-Origin set to '*' - configure server.cors_allow_origin in production")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Expose-Headers", "X-Target, X-Close-Modal")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// recoverer turns a panic into the generic error toast instead of a dropped
// connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			s.app.HandleUnexpected(fmt.Errorf("panic serving %s %s (request %s): %v",
				r.Method, r.URL.Path, middleware.GetReqID(r.Context()), rvr))
			w.WriteHeader(http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)
	s.router.Get("/ws", s.serveEvents)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", s.serveLayout)

		r.Route("/ui", func(r chi.Router) {
			r.Get("/sections/{section}", s.showSection)
			r.Post("/shortcut/{key}", s.shortcut)
			r.Get("/toasts", s.listToasts)
			r.Delete("/toasts/{toastID}", s.dismissToast)

			r.Route("/clients", func(r chi.Router) {
				s.mountModule(r, app.SectionClients)
			})

			r.Route("/websites", func(r chi.Router) {
				s.mountModule(r, app.SectionWebsites)
				r.Post("/{id}/scan", s.startScan)
			})

			r.Route("/scans", func(r chi.Router) {
				s.mountModule(r, app.SectionScans)
				r.Post("/{id}/retry", s.scanAction(s.app.Scans.Retry))
				r.Post("/{id}/cancel", s.scanAction(s.app.Scans.Cancel))
				r.Get("/{id}/report", s.downloadReport)
				r.Get("/{id}/results", s.openResults)
			})

			r.Route("/scheduler", func(r chi.Router) {
				s.mountModule(r, app.SectionScheduler)
				r.Post("/control/{command}", s.controlScheduler)
				r.Post("/{id}/pause", s.scheduleAction(s.app.Schedules.Pause))
				r.Post("/{id}/resume", s.scheduleAction(s.app.Schedules.Resume))
				r.Post("/{id}/run", s.scheduleAction(s.app.Schedules.RunNow))
			})

			r.Route("/issues", func(r chi.Router) {
				s.mountModule(r, app.SectionIssues)
			})

			r.Get("/scanIssues/table", s.table(s.app.Results.Issues.Name()))
			r.Get("/scanPages/table", s.table(s.app.Results.Pages.Name()))
		})
	})
}

// mountModule registers the table, modal and CRUD routes every editable list
// shares.
func (s *Server) mountModule(r chi.Router, name string) {
	r.Get("/table", s.table(name))
	r.Get("/modal", s.modal(name))
	r.Get("/modal/{id}", s.modal(name))
	r.Post("/", s.save(name))
	r.Post("/{id}", s.save(name))
	r.Delete("/{id}", s.remove(name))
}

// Run serves until ctx is cancelled and then shuts down, waiting for running
// periodic tasks. The startup load runs once the listener is up, so health
// checks answer while the backend is slow or down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.app.Start()

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		if err := s.app.Startup(ctx); err != nil {
			s.logger.Warn("initial load incomplete", "error", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.feed.Close()
		err := s.http.Shutdown(shutdownCtx)
		select {
		case <-s.app.Stop().Done():
		case <-shutdownCtx.Done():
			s.logger.Warn("periodic tasks still running at shutdown")
		}
		return err
	}
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "backend_unavailable", "SEO backend not available")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

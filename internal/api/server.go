package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/julianstephens/streaklit/internal/constants"
	"github.com/julianstephens/streaklit/internal/logger"
	"github.com/julianstephens/streaklit/internal/tracker"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options controls server behavior. Zero values select the defaults.
type Options struct {
	RequestTimeout time.Duration
	// Health is checked by /healthz; nil skips the store check.
	Health Pinger
}

// Server maps the habit operations onto HTTP routes.
type Server struct {
	router  chi.Router
	svc     *tracker.Service
	health  Pinger
	timeout time.Duration
}

func NewServer(svc *tracker.Service, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = constants.DefaultRequestTimeout
	}
	s := &Server{
		router:  chi.NewRouter(),
		svc:     svc,
		health:  opts.Health,
		timeout: opts.RequestTimeout,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestID)
	s.router.Use(logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.timeout))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/habits", func(r chi.Router) {
		r.Get("/", s.handleListHabits)
		r.Post("/", s.handleAddHabit)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteHabit)
			r.Post("/mark", s.handleMark)
			r.Post("/unmark", s.handleUnmark)
			r.Get("/timeline", s.handleTimeline)
		})
	})

	s.router.Get("/dashboard/chart", s.handleChart)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  constants.DefaultReadTimeout,
		WriteTimeout: constants.DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.With("request_id", RequestIDFrom(r.Context()), "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
	} else {
		log.Warn("Request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

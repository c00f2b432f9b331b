// Package server exposes the drill and account services over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/mux"

	"github.com/abhisek/drillsergeant/internal/auth"
	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/coach"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "GRE Drill Sergeant API"

// Version is the API version served, without the leading "v".
var Version = strings.TrimPrefix(backend.APIVersion, "v")

// Pruner removes expired drills.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Options struct {
	SessionTTL      time.Duration // zero disables pruning
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

type Server struct {
	coach  *coach.Service
	auth   *auth.Service
	pruner Pruner
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(coachSvc *coach.Service, authSvc *auth.Service, pruner Pruner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{coach: coachSvc, auth: authSvc, pruner: pruner, opts: opts, logger: logger, now: time.Now}
}

// Handler returns the routed handler wrapped as Logging → CORS → router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/generate-session", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/analyze-mistakes", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/session-summary", s.handleSummary).Methods(http.MethodPost)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	a.Handle("/me", requireBearer(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)
	a.Handle("/me", requireBearer(http.HandlerFunc(s.handleUpdateMe))).Methods(http.MethodPut)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return Logging(s.logger)(CORS(Recover(s.logger)(r)))
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// The pruning job runs for the lifetime of the call.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second, // generation waits on the LLM
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopJobs, err := s.startJobs()
	if err != nil {
		return err
	}
	defer stopJobs()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String(), "version", Version)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server forced to shutdown", "error", err)
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) startJobs() (func(), error) {
	if s.pruner == nil || s.opts.SessionTTL <= 0 {
		return func() {}, nil
	}
	sched := gocron.NewScheduler(time.UTC)
	if _, err := sched.Every(1).Hour().Do(s.pruneExpired); err != nil {
		return nil, fmt.Errorf("schedule drill pruning: %w", err)
	}
	sched.StartAsync()
	return sched.Stop, nil
}

// pruneExpired deletes drills older than the session TTL.
func (s *Server) pruneExpired() {
	cutoff := s.now().Add(-s.opts.SessionTTL)
	n, err := s.pruner.PruneBefore(context.Background(), cutoff)
	if err != nil {
		s.logger.Error("prune expired drills", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("pruned expired drills", "count", n, "cutoff", cutoff)
	}
}

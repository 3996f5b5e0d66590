// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

// Package httpapi exposes the authentication and workout services over
// JSON HTTP. Error taxonomy is mapped to status codes here and nowhere
// else; the services never see HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pulsefit/pulsefit/internal/auth"
	"github.com/pulsefit/pulsefit/internal/observability"
	"github.com/pulsefit/pulsefit/internal/workout"
)

// AuthService is the authentication surface the handlers call.
type AuthService interface {
	Signup(ctx context.Context, p auth.SignupParams) (*auth.PublicAccount, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	IssueSecondFactor(ctx context.Context, email string) error
	VerifySecondFactor(ctx context.Context, email, code string) (*auth.LoginResult, error)
}

// TokenValidator validates bearer tokens for the middleware.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// WorkoutService is the workout surface the handlers call.
type WorkoutService interface {
	Log(ctx context.Context, accountID ulid.ULID, exercise string, count int) (*workout.Entry, error)
	History(ctx context.Context, accountID ulid.ULID) ([]*workout.Entry, error)
	Leaderboard(ctx context.Context, exercise string, limit int) ([]*workout.LeaderboardRow, error)
}

// Server serves the public JSON API.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	router     *mux.Router
	validate   *validator.Validate
	logger     *slog.Logger
	metrics    *observability.Metrics
	running    atomic.Bool

	authSvc    AuthService
	tokens     TokenValidator
	workoutSvc WorkoutService
}

// NewServer creates a Server. metrics may be nil (no recording).
func NewServer(addr string, authSvc AuthService, tokens TokenValidator, workoutSvc WorkoutService, logger *slog.Logger, metrics *observability.Metrics) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token validator is required")
	}
	if workoutSvc == nil {
		return nil, oops.Errorf("workout service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:       addr,
		validate:   validator.New(),
		logger:     logger,
		metrics:    metrics,
		authSvc:    authSvc,
		tokens:     tokens,
		workoutSvc: workoutSvc,
	}
	s.router = s.buildRouter()
	return s, nil
}

// buildRouter wires routes and middleware.
func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	api := r.PathPrefix("/api").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRoutes.HandleFunc("/2fa/request", s.handleRequest2FA).Methods(http.MethodPost)
	authRoutes.HandleFunc("/2fa/verify", s.handleVerify2FA).Methods(http.MethodPost)

	workouts := api.PathPrefix("/workouts").Subrouter()
	workouts.Use(s.requireVerifiedToken)
	workouts.HandleFunc("", s.handleLogWorkout).Methods(http.MethodPost)
	workouts.HandleFunc("", s.handleWorkoutHistory).Methods(http.MethodGet)
	workouts.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)

	return r
}

// Handler returns the configured router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving the API. It returns an error channel that
// receives any error from the HTTP server after startup; the channel is
// closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listen address, or "" when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Package server exposes the chat, booking and OAuth endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/logger"
)

const maxBodyBytes = 1 << 20

// Chatter answers one chat turn.
type Chatter interface {
	Process(ctx context.Context, prompt string) (string, error)
}

// Booker commits a booking candidate.
type Booker interface {
	Schedule(ctx context.Context, c booking.Candidate, source booking.Source) (*booking.CommittedEvent, error)
}

// Authorizer drives the OAuth consent round trip.
type Authorizer interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, code, state string) error
}

// AuthStatus reports whether a calendar credential is held.
type AuthStatus interface {
	IsAuthenticated() bool
}

// Deps are the handlers' collaborators. Metrics and MCP are optional.
type Deps struct {
	Chat    Chatter
	Booker  Booker
	Auth    Authorizer
	Status  AuthStatus
	Metrics http.Handler
	MCP     http.Handler
}

// Server owns the HTTP listener.
type Server struct {
	cfg  config.ServerConfig
	deps Deps
	http *http.Server
}

func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /schedule", s.handleSchedule)
	mux.HandleFunc("GET /auth/google", s.handleAuthRedirect)
	mux.HandleFunc("GET /auth/google/callback", s.handleAuthCallback)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
	if s.deps.MCP != nil {
		mux.Handle("/mcp", s.deps.MCP)
	}

	var h http.Handler = mux
	h = withAccessLog(h)
	h = withCORS(s.cfg.AllowedOrigins, h)
	h = withRequestID(h)
	return h
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	logger.L.Info("starting server", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

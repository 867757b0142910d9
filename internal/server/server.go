// Package server implements the HTTP transport: the JSON API, the
// messaging webhooks and the health endpoints.
package server

import (
	"net/http"
	"time"

	"medidiet/internal/assistant"
	"medidiet/internal/auth"
	"medidiet/internal/config"
	"medidiet/internal/diet"
	"medidiet/internal/metrics"
	"medidiet/internal/telegram"
	"medidiet/internal/user"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Deps are the services the handlers call into.
type Deps struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Tokens    *auth.TokenService
	Users     *user.Service
	Diets     *diet.Service
	Responder *assistant.Responder
	Metrics   *metrics.Store
	// Bot is nil when the Telegram transport is disabled.
	Bot *telegram.Bot
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	cfg       *config.Config
	logger    zerolog.Logger
	tokens    *auth.TokenService
	users     *user.Service
	diets     *diet.Service
	responder *assistant.Responder
	metrics   *metrics.Store
	bot       *telegram.Bot
	started   time.Time

	// Echo is the underlying web framework instance.
	*echo.Echo
}

// New builds the server and registers every route.
func New(d Deps) *Server {
	s := &Server{
		cfg:       d.Config,
		logger:    d.Logger.With().Str("component", "http").Logger(),
		tokens:    d.Tokens,
		users:     d.Users,
		diets:     d.Diets,
		responder: d.Responder,
		metrics:   d.Metrics,
		bot:       d.Bot,
		started:   time.Now(),
	}
	s.Echo = s.RegisterRoutes()
	return s
}

// HTTPServer wraps the router in an http.Server with production timeouts.
// The write timeout leaves room for a plan generation and its one retry.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Echo,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*s.cfg.PlanTimeout + 15*time.Second,
	}
}

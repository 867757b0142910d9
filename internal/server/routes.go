package server

import (
	"net/http"
	"time"

	"medidiet/internal/auth"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	bodyLimit = "10K"

	// per client IP on the unauthenticated webhooks
	webhookRate  = rate.Limit(1)
	webhookBurst = 10
)

func (s *Server) RegisterRoutes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(s.requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data: https:",
	}))
	e.Use(middleware.CORSWithConfig(s.corsConfig()))
	e.Use(middleware.BodyLimit(bodyLimit))

	e.GET("/", s.handleIndex)
	e.GET("/health", s.handleHealth)

	api := e.Group("/api")

	// Account routes
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/auth/me", s.handleMe, auth.Middleware(s.tokens))

	// Diet plan routes, all protected
	plans := api.Group("/diet")
	plans.Use(auth.Middleware(s.tokens))
	plans.POST("/generate", s.handleGenerate)
	plans.GET("/latest", s.handleLatest)
	plans.GET("/history", s.handleHistory)
	plans.GET("/:id", s.handleGetPlan)
	plans.GET("/:id/pdf", s.handlePlanPDF)

	// Messaging webhooks
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      webhookRate,
			Burst:     webhookBurst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
	api.POST("/whatsapp/query", s.handleWhatsAppQuery, limiter)
	if s.bot != nil {
		e.POST("/telegram/webhook", s.handleTelegramWebhook, limiter)
	}

	return e
}

func (s *Server) corsConfig() middleware.CORSConfig {
	origins := []string{"*"}
	if s.cfg.IsProduction() && s.cfg.FrontendURL != "" {
		origins = []string{s.cfg.FrontendURL}
	}
	return middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		MaxAge:       300,
	}
}

package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const ctxLogger = "logger"

// requestLogger tags each request with an id, makes a request-scoped
// logger available to handlers and logs the outcome.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := s.logger.With().Str("request_id", requestID).Logger()
		c.Set(ctxLogger, logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		start := time.Now()
		err := next(c)
		if err != nil {
			// resolve the status now so it is logged correctly
			c.Error(err)
		}

		logger.Info().
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return nil
	}
}

// requestLog returns the logger set by requestLogger.
func requestLog(c echo.Context) *zerolog.Logger {
	l, ok := c.Get(ctxLogger).(zerolog.Logger)
	if !ok {
		l = zerolog.Nop()
	}
	return &l
}

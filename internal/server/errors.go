package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"medidiet/internal/apperr"

	"github.com/labstack/echo/v4"
)

const (
	msgGenerationTimeout = "Diet plan generation timed out. Please try again."
	msgGenerationFailed  = "Failed to generate a diet plan. Please try again."
	msgInternal          = "Internal Server Error"
)

type errorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// errorHandler renders every error as {status, message, timestamp}.
// Upstream generation failures are logged in full and answered with a
// generic message.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := http.StatusInternalServerError, msgInternal
	var appErr *apperr.Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status = apperr.HTTPStatus(appErr.Kind)
		switch {
		case appErr.Kind == apperr.KindGenerationTimeout:
			message = msgGenerationTimeout
		case apperr.IsUpstream(appErr.Kind):
			message = msgGenerationFailed
		case appErr.Kind != apperr.KindInternal:
			message = appErr.Message
		}
	case errors.As(err, &he):
		status = he.Code
		message = fmt.Sprint(he.Message)
		if he.Code == http.StatusNotFound {
			message = fmt.Sprintf("Cannot find %s on this server!", c.Request().URL.Path)
		}
	}

	log := requestLog(c)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Int("status", status).Str("kind", string(apperr.KindOf(err))).Msg("request failed")

	body := errorResponse{Status: "error", Message: message, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}

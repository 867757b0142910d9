package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"medidiet/internal/assistant"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

const msgQueryInternal = "Internal server error. Please try again later."

const headerTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

// handleWhatsAppQuery answers in plain text for messaging automation tools.
func (s *Server) handleWhatsAppQuery(c echo.Context) error {
	var q assistant.Query
	if err := json.NewDecoder(c.Request().Body).Decode(&q); err != nil {
		return c.String(http.StatusBadRequest, "Invalid input format. Issues: body - expected a JSON object with phone and message")
	}
	if issues := q.Validate(); issues != "" {
		return c.String(http.StatusBadRequest, issues)
	}

	log := requestLog(c)
	log.Info().Int("message_length", len(q.Message)).Msg("whatsapp query")

	answer := s.responder.Answer(c.Request().Context(), q.Phone, q.Message)
	if answer == "" {
		return c.String(http.StatusInternalServerError, msgQueryInternal)
	}
	return c.String(http.StatusOK, answer)
}

// handleTelegramWebhook acknowledges the update and handles it in the
// background. Only requests carrying the secret registered with setWebhook
// are accepted.
func (s *Server) handleTelegramWebhook(c echo.Context) error {
	if !s.validTelegramSecret(c.Request().Header.Get(headerTelegramSecret)) {
		requestLog(c).Warn().Str("remote_ip", c.RealIP()).Msg("rejected telegram update with a bad secret token")
		return c.NoContent(http.StatusUnauthorized)
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
		requestLog(c).Warn().Err(err).Msg("failed to parse telegram update")
		return c.NoContent(http.StatusBadRequest)
	}
	s.bot.Dispatch(context.WithoutCancel(c.Request().Context()), update)
	return c.NoContent(http.StatusOK)
}

func (s *Server) validTelegramSecret(got string) bool {
	want := s.cfg.TelegramWebhookSecret
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

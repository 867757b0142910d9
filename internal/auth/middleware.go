package auth

import (
	"strings"

	"medidiet/internal/apperr"

	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// Middleware requires a valid "Authorization: Bearer <token>" header and
// stores the caller's id and email on the context.
func Middleware(tokens *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return apperr.New(apperr.KindUnauthorized, msgNotAuthenticated)
			}

			claims, err := tokens.Verify(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				return err
			}

			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxEmail, claims.Email)
			return next(c)
		}
	}
}

// UserID returns the authenticated caller's id.
func UserID(c echo.Context) (string, error) {
	id, ok := c.Get(ctxUserID).(string)
	if !ok || id == "" {
		return "", apperr.New(apperr.KindUnauthorized, msgNotAuthenticated)
	}
	return id, nil
}

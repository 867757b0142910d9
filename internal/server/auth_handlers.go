package server

import (
	"net/http"

	"medidiet/internal/apperr"
	"medidiet/internal/auth"
	"medidiet/internal/user"

	"github.com/labstack/echo/v4"
)

type accountResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *user.Public `json:"user,omitempty"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var in user.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if _, err := s.users.Register(c.Request().Context(), in); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, accountResponse{Success: true, Message: "User registered successfully"})
}

func (s *Server) handleLogin(c echo.Context) error {
	var in user.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := s.users.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{
		Success: true,
		Message: "Logged in successfully",
		Token:   res.Token,
		User:    &res.User,
	})
}

func (s *Server) handleMe(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	me, err := s.users.Me(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{Success: true, User: &me})
}

// bind decodes the JSON body, reporting malformed input as InvalidInput.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "Invalid request body")
	}
	return nil
}

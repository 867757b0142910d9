package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"medidiet/internal/auth"
	"medidiet/internal/diet"
	"medidiet/internal/export"
	"medidiet/internal/profile"

	"github.com/labstack/echo/v4"
)

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// planView is a stored plan with its owner expanded. User falls back to
// the bare id when the owner cannot be loaded.
type planView struct {
	*diet.PersistedDietPlan
	User any `json:"user"`
}

type planData struct {
	DietPlan planView `json:"dietPlan"`
}

type historyData struct {
	Plans []diet.Summary `json:"plans"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var in profile.Input
	if err := bind(c, &in); err != nil {
		return err
	}

	ctx := c.Request().Context()
	plan, err := s.diets.Generate(ctx, userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, successResponse{
		Status:  "success",
		Message: "Diet plan generated successfully",
		Data:    planData{DietPlan: s.view(ctx, plan)},
	})
}

func (s *Server) handleLatest(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	plan, err := s.diets.Latest(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Status: "success", Data: planData{DietPlan: s.view(ctx, plan)}})
}

func (s *Server) handleHistory(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	plans, err := s.diets.History(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if plans == nil {
		plans = []diet.Summary{}
	}
	return c.JSON(http.StatusOK, successResponse{Status: "success", Data: historyData{Plans: plans}})
}

func (s *Server) handleGetPlan(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	plan, err := s.diets.Get(ctx, userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Status: "success", Data: planData{DietPlan: s.view(ctx, plan)}})
}

func (s *Server) handlePlanPDF(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	plan, err := s.diets.Get(ctx, userID, c.Param("id"))
	if err != nil {
		return err
	}
	owner, err := s.users.Me(ctx, userID)
	if err != nil {
		return err
	}

	// Render fully before writing so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := export.WritePlanPDF(&buf, owner.Name, plan.PlanData, plan.CreatedAt); err != nil {
		return fmt.Errorf("failed to render plan %s: %w", plan.ID, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName(owner.Name)))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) view(ctx context.Context, plan *diet.PersistedDietPlan) planView {
	v := planView{PersistedDietPlan: plan, User: plan.UserID}
	if owner, err := s.users.Me(ctx, plan.UserID); err == nil {
		v.User = owner
	}
	return v
}

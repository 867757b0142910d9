package diet

import (
	"context"
	"fmt"

	"medidiet/internal/profile"
	"medidiet/internal/shared"

	"github.com/rs/zerolog"
)

// MetricsRecorder persists per-attempt generation metadata.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Service orchestrates plan generation and retrieval for a user.
type Service struct {
	planner *Planner
	repo    *Repository
	metrics MetricsRecorder
	logger  zerolog.Logger
}

// NewService creates a new Service. metrics may be nil.
func NewService(planner *Planner, repo *Repository, metrics MetricsRecorder, logger zerolog.Logger) *Service {
	return &Service{
		planner: planner,
		repo:    repo,
		metrics: metrics,
		logger:  logger.With().Str("component", "diet").Logger(),
	}
}

// Generate validates the profile, generates a plan and stores it as the
// user's new active version. Invalid input fails before any generator call.
func (s *Service) Generate(ctx context.Context, userID string, in profile.Input) (*PersistedDietPlan, error) {
	prof, err := profile.Normalize(in)
	if err != nil {
		return nil, err
	}

	gen, err := s.planner.GeneratePlan(ctx, prof)
	s.record(ctx, gen.Attempts)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Int("attempts", len(gen.Attempts)).Msg("plan generation failed")
		return nil, fmt.Errorf("generate plan for user %s: %w", userID, err)
	}

	plan, err := s.repo.CreateVersion(ctx, userID, userID, WeeklyData(gen.Plan), prof)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("plan_id", plan.ID).
		Int("version", plan.Version).
		Int("attempts", len(gen.Attempts)).
		Msg("diet plan generated")
	return plan, nil
}

// Latest returns the user's active plan.
func (s *Service) Latest(ctx context.Context, userID string) (*PersistedDietPlan, error) {
	return s.repo.Latest(ctx, userID)
}

// Get returns one of the user's plans by id.
func (s *Service) Get(ctx context.Context, userID, planID string) (*PersistedDietPlan, error) {
	return s.repo.Get(ctx, userID, planID)
}

// History lists the user's plan versions.
func (s *Service) History(ctx context.Context, userID string) ([]Summary, error) {
	return s.repo.History(ctx, userID)
}

// FindActive returns the active plan without touching it, or nil.
func (s *Service) FindActive(ctx context.Context, userID string) (*PersistedDietPlan, error) {
	return s.repo.FindActive(ctx, userID)
}

func (s *Service) record(ctx context.Context, attempts []shared.AgentMeta) {
	if s.metrics == nil {
		return
	}
	for _, meta := range attempts {
		// Recording must not fail the request.
		if err := s.metrics.RecordMeta(context.WithoutCancel(ctx), meta); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record generation metric")
		}
	}
}

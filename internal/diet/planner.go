package diet

import (
	"context"
	"fmt"

	"medidiet/internal/apperr"
	"medidiet/internal/llm"
	"medidiet/internal/profile"
	"medidiet/internal/prompt"
	"medidiet/internal/shared"
)

// AgentPlanner labels plan generation attempts in metrics.
const AgentPlanner = "DietPlanner"

// Generation is a validated plan plus the attempts it took.
type Generation struct {
	Plan     GeneratedPlan
	Attempts []shared.AgentMeta
}

// Planner handles the generation of weekly diet plans.
type Planner struct {
	pipeline *Pipeline
}

// NewPlanner creates a new Planner over a bounded generator.
func NewPlanner(textGen llm.TextGenerator) *Planner {
	return &Planner{pipeline: NewPipeline(textGen, AgentPlanner)}
}

// GeneratePlan creates a weekly plan for a normalised profile. Attempts are
// returned even when generation fails so they can be recorded.
func (p *Planner) GeneratePlan(ctx context.Context, prof profile.HealthProfile) (Generation, error) {
	// 1. Render the prompt
	pr, err := prompt.BuildPlanPrompt(prof)
	if err != nil {
		return Generation{}, fmt.Errorf("failed to build plan prompt: %w", err)
	}

	// 2. Generate and repair
	res, err := p.pipeline.Run(ctx, llm.Request{System: pr.System, Prompt: pr.User})
	gen := Generation{Attempts: res.Attempts}
	if err != nil {
		return gen, err
	}

	// 3. Validate the shape
	plan, err := ValidatePlan(res.Value)
	if err != nil {
		if n := len(gen.Attempts); n > 0 {
			gen.Attempts[n-1].Outcome = string(apperr.KindSchemaViolation)
		}
		return gen, err
	}
	gen.Plan = plan
	return gen, nil
}

package llm

import (
	"context"

	"medidiet/internal/shared"
)

// Request is a single prompt with its system instruction.
type Request struct {
	System string
	Prompt string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req Request) (ContentResponse, error)
}

// Settings are the sampling parameters sent with every call of a generator.
type Settings struct {
	Model       string
	Temperature float32
	TopK        int32
	TopP        float32
}

// PlanSettings returns the sampling used for weekly plan generation.
func PlanSettings(model string) Settings {
	return Settings{Model: model, Temperature: 0.7, TopK: 40, TopP: 0.95}
}

// QASettings returns the sampling used for short question answering.
func QASettings(model string) Settings {
	return Settings{Model: model, Temperature: 0.4, TopK: 40, TopP: 0.95}
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

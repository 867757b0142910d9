package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medidiet/internal/apperr"
)

type boundedGenerator struct {
	next    TextGenerator
	timeout time.Duration
}

// WithTimeout bounds every call of next by a hard deadline and classifies
// failures: an expired deadline becomes GenerationTimeout, anything else
// GenerationFailed. It never retries.
func WithTimeout(next TextGenerator, timeout time.Duration) TextGenerator {
	return &boundedGenerator{next: next, timeout: timeout}
}

type generateResult struct {
	resp ContentResponse
	err  error
}

func (b *boundedGenerator) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Buffered so the call goroutine can always finish after we stop waiting.
	done := make(chan generateResult, 1)
	go func() {
		resp, err := b.next.GenerateContent(callCtx, req)
		done <- generateResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return ContentResponse{}, classify(callCtx, res.err, b.timeout)
		}
		return res.resp, nil
	case <-callCtx.Done():
		return ContentResponse{}, classify(callCtx, callCtx.Err(), b.timeout)
	}
}

func classify(callCtx context.Context, err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindGenerationTimeout, err,
			fmt.Sprintf("AI generation timed out after %s", timeout))
	}
	return apperr.Wrap(apperr.KindGenerationFailed, err, err.Error())
}

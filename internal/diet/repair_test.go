package diet

import (
	"context"
	"errors"
	"testing"

	"medidiet/internal/apperr"
	"medidiet/internal/llm"
	"medidiet/internal/shared"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"JSONTag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"NoTag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"UppercaseTag", "```JSON {\"a\":1}```", `{"a":1}`},
		{"LeadingOnly", "```json\n{\"a\":1", `{"a":1`},
		{"SurroundingWhitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
		{"NestedFences", "```json\n```\n{\"a\":1}\n```\n```", `{"a":1}`},
		{"PayloadUntouched", "{\"a\":\"x ``` y\"}", "{\"a\":\"x ``` y\"}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripFences(tc.in)
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
			if again := StripFences(got); again != got {
				t.Errorf("Expected stripping to be idempotent, got %q then %q", got, again)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("Window", func(t *testing.T) {
		got, err := ExtractJSONObject(`Here is your plan: {"a":{"b":1}} enjoy`)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got != `{"a":{"b":1}}` {
			t.Errorf("Unexpected window %q", got)
		}
	})

	for name, in := range map[string]string{
		"NoBraces":      "I cannot help with that.",
		"OnlyClosing":   "oops }",
		"ClosingFirst":  "} then {",
		"OnlyOpening":   `{"a":1`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractJSONObject(in)
			if !apperr.Is(err, apperr.KindNoJSONFound) {
				t.Errorf("Expected NoJsonFound, got %v", err)
			}
		})
	}
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	req := llm.Request{System: "sys", Prompt: "make a plan"}

	t.Run("FencedResponseParsesFirstTime", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"```json\n" + validPlanJSON(t) + "\n```"}}
		res, err := NewPipeline(gen, "test").Run(ctx, req)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if gen.calls != 1 {
			t.Errorf("Expected 1 generator call, got %d", gen.calls)
		}
		if _, ok := res.Value.(map[string]any); !ok {
			t.Errorf("Expected a JSON object, got %T", res.Value)
		}
		if len(res.Attempts) != 1 || res.Attempts[0].Outcome != shared.OutcomeOK {
			t.Errorf("Unexpected attempts %+v", res.Attempts)
		}
	})

	t.Run("TruncatedThenComplete", func(t *testing.T) {
		full := validPlanJSON(t)
		gen := &scriptedGenerator{responses: []string{full[:len(full)/2], full}}
		res, err := NewPipeline(gen, "test").Run(ctx, req)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if gen.calls != 2 {
			t.Errorf("Expected exactly 2 generator calls, got %d", gen.calls)
		}
		if gen.requests[1] != req {
			t.Errorf("Expected the retry to reuse the same request, got %+v", gen.requests[1])
		}
		if len(res.Attempts) != 2 || res.Attempts[0].Outcome != OutcomeRetried {
			t.Errorf("Expected the first attempt to be marked retried, got %+v", res.Attempts)
		}
	})

	t.Run("TruncatedTwiceFails", func(t *testing.T) {
		full := validPlanJSON(t)
		gen := &scriptedGenerator{responses: []string{full[:100], full[:200], full}}
		_, err := NewPipeline(gen, "test").Run(ctx, req)
		if !apperr.Is(err, apperr.KindNoJSONFound) && !apperr.Is(err, apperr.KindIncompleteOrMalformedJSON) {
			t.Fatalf("Expected a repair failure, got %v", err)
		}
		if gen.calls != 2 {
			t.Errorf("Expected exactly 2 generator calls, got %d", gen.calls)
		}
	})

	t.Run("NoBraceWithRetryAvailable", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"Sorry, I can't.", "Still no."}}
		res, err := NewPipeline(gen, "test").Run(ctx, req)
		if !apperr.Is(err, apperr.KindNoJSONFound) {
			t.Fatalf("Expected NoJsonFound, got %v", err)
		}
		if gen.calls != 2 {
			t.Errorf("Expected exactly one retry (2 calls), got %d", gen.calls)
		}
		if got := res.Attempts[1].Outcome; got != string(apperr.KindNoJSONFound) {
			t.Errorf("Expected last attempt outcome NoJsonFound, got %s", got)
		}
	})

	t.Run("NoBraceWithRetriesExhausted", func(t *testing.T) {
		gen := &scriptedGenerator{}
		_, err := NewPipeline(gen, "test").Parse(ctx, req, "Sorry, I can't.", false)
		if !apperr.Is(err, apperr.KindNoJSONFound) {
			t.Fatalf("Expected NoJsonFound, got %v", err)
		}
		if gen.calls != 0 {
			t.Errorf("Expected no generator call, got %d", gen.calls)
		}
	})

	t.Run("UnexpectedEndTriggersRetry", func(t *testing.T) {
		// Ends with a brace but an inner object is still open.
		gen := &scriptedGenerator{responses: []string{`{"a":{"b":1}`, `{"a":{"b":1}}`}}
		res, err := NewPipeline(gen, "test").Run(ctx, req)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if gen.calls != 2 {
			t.Errorf("Expected 2 generator calls, got %d", gen.calls)
		}
		if len(res.Attempts) != 2 {
			t.Errorf("Expected 2 recorded attempts, got %d", len(res.Attempts))
		}
	})

	t.Run("MalformedJSONIsNotRetried", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`{"a": 1,,}`}}
		_, err := NewPipeline(gen, "test").Run(ctx, req)
		if !apperr.Is(err, apperr.KindIncompleteOrMalformedJSON) {
			t.Fatalf("Expected IncompleteOrMalformedJson, got %v", err)
		}
		if gen.calls != 1 {
			t.Errorf("Expected no retry for a syntax error, got %d calls", gen.calls)
		}
	})

	t.Run("TrailingObjectIsMalformed", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`{"a":1} and also {"b":2}`}}
		_, err := NewPipeline(gen, "test").Run(ctx, req)
		if !apperr.Is(err, apperr.KindIncompleteOrMalformedJSON) {
			t.Fatalf("Expected IncompleteOrMalformedJson, got %v", err)
		}
	})

	t.Run("GeneratorErrorIsClassified", func(t *testing.T) {
		gen := &scriptedGenerator{errs: []error{errors.New("connection reset")}}
		res, err := NewPipeline(gen, "test").Run(ctx, req)
		if !apperr.Is(err, apperr.KindGenerationFailed) {
			t.Fatalf("Expected GenerationFailed, got %v", err)
		}
		if len(res.Attempts) != 1 || res.Attempts[0].Outcome != string(apperr.KindGenerationFailed) {
			t.Errorf("Unexpected attempts %+v", res.Attempts)
		}
	})

	t.Run("RetryTimeoutPropagates", func(t *testing.T) {
		timeout := apperr.New(apperr.KindGenerationTimeout, "AI generation timed out after 30s")
		gen := &scriptedGenerator{responses: []string{`{"a":`}, errs: []error{nil, timeout}}
		_, err := NewPipeline(gen, "test").Run(ctx, req)
		if !apperr.Is(err, apperr.KindGenerationTimeout) {
			t.Fatalf("Expected GenerationTimeout, got %v", err)
		}
		if gen.calls != 2 {
			t.Errorf("Expected 2 generator calls, got %d", gen.calls)
		}
	})
}

package diet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"medidiet/internal/apperr"
	"medidiet/internal/llm"
	"medidiet/internal/shared"
)

const (
	msgNoJSON         = "No JSON object found in AI response"
	msgIncompleteJSON = "AI returned incomplete JSON"

	// OutcomeRetried marks an attempt whose output triggered a regeneration.
	OutcomeRetried = "retried"
)

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_+-]*")
	trailingFence = regexp.MustCompile("```$")
)

// StripFences removes markdown code fences around a payload and trims it.
// It is idempotent.
func StripFences(s string) string {
	out := strings.TrimSpace(s)
	for {
		next := out
		if loc := leadingFence.FindStringIndex(next); loc != nil {
			next = strings.TrimSpace(next[loc[1]:])
		}
		if trailingFence.MatchString(next) {
			next = strings.TrimSpace(strings.TrimSuffix(next, "```"))
		}
		if next == out {
			return out
		}
		out = next
	}
}

// ExtractJSONObject returns the text from the first '{' to the last '}'.
func ExtractJSONObject(s string) (string, error) {
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first < 0 || last < 0 || last < first {
		return "", apperr.New(apperr.KindNoJSONFound, msgNoJSON)
	}
	return s[first : last+1], nil
}

// RepairResult is the parsed value plus one metadata entry per generator call.
type RepairResult struct {
	Value    any
	Attempts []shared.AgentMeta
}

// Pipeline turns raw generator output into a parsed JSON value. It never
// patches content: the only repair is one full regeneration.
type Pipeline struct {
	gen       llm.TextGenerator
	agentName string
}

// NewPipeline creates a Pipeline over gen. agentName labels the recorded attempts.
func NewPipeline(gen llm.TextGenerator, agentName string) *Pipeline {
	return &Pipeline{gen: gen, agentName: agentName}
}

// Run calls the generator and repairs its output, regenerating at most once.
func (p *Pipeline) Run(ctx context.Context, req llm.Request) (RepairResult, error) {
	var res RepairResult
	raw, err := p.call(ctx, req, &res)
	if err != nil {
		return res, err
	}
	return p.repair(ctx, req, raw, true, res)
}

// Parse repairs raw output that was already produced for req. allowRetry
// controls whether one regeneration may still be issued.
func (p *Pipeline) Parse(ctx context.Context, req llm.Request, raw string, allowRetry bool) (RepairResult, error) {
	return p.repair(ctx, req, raw, allowRetry, RepairResult{})
}

func (p *Pipeline) repair(ctx context.Context, req llm.Request, raw string, allowRetry bool, res RepairResult) (RepairResult, error) {
	for {
		text := StripFences(raw)

		if !strings.HasSuffix(text, "}") && allowRetry {
			allowRetry = false
			p.markLast(&res, OutcomeRetried)
			next, err := p.call(ctx, req, &res)
			if err != nil {
				return res, err
			}
			raw = next
			continue
		}

		window, err := ExtractJSONObject(text)
		if err != nil {
			p.markLast(&res, string(apperr.KindOf(err)))
			return res, err
		}

		value, err := decodeJSON(window)
		if err != nil {
			if isUnexpectedEnd(err) && allowRetry {
				allowRetry = false
				p.markLast(&res, OutcomeRetried)
				next, callErr := p.call(ctx, req, &res)
				if callErr != nil {
					return res, callErr
				}
				raw = next
				continue
			}
			p.markLast(&res, string(apperr.KindIncompleteOrMalformedJSON))
			return res, apperr.Wrap(apperr.KindIncompleteOrMalformedJSON, err, msgIncompleteJSON)
		}

		res.Value = value
		return res, nil
	}
}

func (p *Pipeline) call(ctx context.Context, req llm.Request, res *RepairResult) (string, error) {
	start := time.Now()
	resp, err := p.gen.GenerateContent(ctx, req)
	meta := shared.AgentMeta{
		AgentName: p.agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
		Outcome:   shared.OutcomeOK,
	}
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			err = apperr.Wrap(apperr.KindGenerationFailed, err, err.Error())
		}
		meta.Outcome = string(apperr.KindOf(err))
	}
	res.Attempts = append(res.Attempts, meta)
	return resp.Content, err
}

func (p *Pipeline) markLast(res *RepairResult, outcome string) {
	if n := len(res.Attempts); n > 0 {
		res.Attempts[n-1].Outcome = outcome
	}
}

// decodeJSON parses exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected content after JSON object")
	}
	return v, nil
}

func isUnexpectedEnd(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var syntaxErr *json.SyntaxError
	return errors.As(err, &syntaxErr) && strings.Contains(syntaxErr.Error(), "unexpected end")
}

// Package assistant answers free-text nutrition questions from a user's
// active plan for the messaging transports.
package assistant

import (
	"context"
	"strings"
	"time"

	"medidiet/internal/apperr"
	"medidiet/internal/diet"
	"medidiet/internal/llm"
	"medidiet/internal/prompt"
	"medidiet/internal/shared"
	"medidiet/internal/user"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// Fixed replies. Transports send them verbatim.
const (
	ReplyNotRegistered = "Sorry, I could not find an account associated with this phone number. Please register on the MediDiet platform first."
	ReplyNoActivePlan  = "You don't have an active diet plan yet. Please visit the MediDiet platform to generate a personalized diet plan."
	ReplyConfiguration = "Sorry, there is a configuration issue. Please try again later."
	ReplyRateLimited   = "Too many requests. Please wait a moment and try again."
	ReplyGeneric       = "Sorry, I encountered an error processing your request. Please try again in a moment."
)

// AgentResponder labels Q&A attempts in metrics.
const AgentResponder = "QAResponder"

const (
	phoneCacheSize = 1024
	phoneCacheTTL  = 10 * time.Minute
)

// UserFinder looks up accounts by exact phone number.
type UserFinder interface {
	FindByPhone(ctx context.Context, phone string) (*user.User, error)
}

// PlanFinder returns a user's active plan or nil.
type PlanFinder interface {
	FindActive(ctx context.Context, userID string) (*diet.PersistedDietPlan, error)
}

// Responder answers questions. It never returns technical errors.
type Responder struct {
	users   UserFinder
	plans   PlanFinder
	gen     llm.TextGenerator
	metrics diet.MetricsRecorder
	logger  zerolog.Logger
	// phone -> user id, positive lookups only
	cache *expirable.LRU[string, string]
}

// NewResponder creates a Responder. gen should already be bounded by
// llm.WithTimeout. metrics may be nil.
func NewResponder(users UserFinder, plans PlanFinder, gen llm.TextGenerator, metrics diet.MetricsRecorder, logger zerolog.Logger) *Responder {
	return &Responder{
		users:   users,
		plans:   plans,
		gen:     gen,
		metrics: metrics,
		logger:  logger.With().Str("component", "assistant").Logger(),
		cache:   expirable.NewLRU[string, string](phoneCacheSize, nil, phoneCacheTTL),
	}
}

// Answer returns the plain-text reply to message from the owner of phone.
func (r *Responder) Answer(ctx context.Context, phone, message string) string {
	log := r.logger.With().Str("phone", maskPhone(phone)).Logger()

	userID, err := r.lookupUser(ctx, phone)
	if err != nil {
		log.Error().Err(err).Msg("user lookup failed")
		return ReplyGeneric
	}
	if userID == "" {
		log.Warn().Msg("no account for phone")
		return ReplyNotRegistered
	}

	plan, err := r.plans.FindActive(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("active plan lookup failed")
		return ReplyGeneric
	}
	if plan == nil {
		return ReplyNoActivePlan
	}

	pr, err := prompt.BuildQAPrompt(plan.PlanData, message)
	if err != nil {
		log.Error().Err(err).Msg("failed to build question prompt")
		return ReplyGeneric
	}

	start := time.Now()
	resp, err := r.gen.GenerateContent(ctx, llm.Request{System: pr.System, Prompt: pr.User})
	r.record(ctx, resp.Usage, time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("question answering failed")
		return apologyFor(err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		log.Warn().Str("user_id", userID).Msg("generator returned an empty answer")
		return ReplyGeneric
	}
	log.Info().Str("user_id", userID).Int("plan_version", plan.Version).Msg("question answered")
	return answer
}

// lookupUser tries phone as given, then with its leading '+' toggled.
func (r *Responder) lookupUser(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if id, ok := r.cache.Get(phone); ok {
		return id, nil
	}

	for _, candidate := range phoneVariants(phone) {
		u, err := r.users.FindByPhone(ctx, candidate)
		if err != nil {
			return "", err
		}
		if u != nil {
			r.cache.Add(phone, u.ID)
			return u.ID, nil
		}
	}
	return "", nil
}

func phoneVariants(phone string) []string {
	if phone == "" {
		return nil
	}
	if strings.HasPrefix(phone, "+") {
		return []string{phone, strings.TrimPrefix(phone, "+")}
	}
	return []string{phone, "+" + phone}
}

func (r *Responder) record(ctx context.Context, usage shared.TokenUsage, latency time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	meta := shared.AgentMeta{AgentName: AgentResponder, Usage: usage, Latency: latency, Outcome: shared.OutcomeOK}
	if err != nil {
		meta.Outcome = string(apperr.KindOf(err))
	}
	if recErr := r.metrics.RecordMeta(context.WithoutCancel(ctx), meta); recErr != nil {
		r.logger.Warn().Err(recErr).Msg("failed to record generation metric")
	}
}

func apologyFor(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"):
		return ReplyConfiguration
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "status=429"):
		return ReplyRateLimited
	}
	return ReplyGeneric
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

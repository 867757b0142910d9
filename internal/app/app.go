// Package app wires configuration, storage, generators and services into a
// runnable application.
package app

import (
	"context"
	"errors"
	"fmt"

	"medidiet/internal/assistant"
	"medidiet/internal/auth"
	"medidiet/internal/config"
	"medidiet/internal/database"
	"medidiet/internal/diet"
	"medidiet/internal/llm"
	"medidiet/internal/metrics"
	"medidiet/internal/server"
	"medidiet/internal/telegram"
	"medidiet/internal/user"

	"github.com/rs/zerolog"
)

// Generators are the two configured text generators, already bounded by
// their per-purpose timeouts.
type Generators struct {
	Plan llm.TextGenerator
	QA   llm.TextGenerator

	closer llm.Closer
}

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	DB        *database.DB
	Metrics   *metrics.Store
	Users     *user.Service
	UserRepo  *user.Repository
	Plans     *diet.Repository
	Diets     *diet.Service
	Responder *assistant.Responder
	Bot       *telegram.Bot
	Server    *server.Server

	gens Generators
}

// NewGenerators builds the plan and Q&A generators for the configured provider.
func NewGenerators(ctx context.Context, cfg *config.Config) (Generators, error) {
	var plan, qa llm.TextGenerator
	var closer llm.Closer

	switch cfg.Provider {
	case config.ProviderGroq:
		plan = llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqAPIURL, llm.PlanSettings(cfg.GroqModel))
		qa = llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqAPIURL, llm.QASettings(cfg.GroqModel))
	default:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return Generators{}, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		plan = client.Model(llm.PlanSettings(cfg.GeminiModel))
		qa = client.Model(llm.QASettings(cfg.GeminiModel))
		closer = client
	}

	return Generators{
		Plan:   llm.WithTimeout(plan, cfg.PlanTimeout),
		QA:     llm.WithTimeout(qa, cfg.QATimeout),
		closer: closer,
	}, nil
}

// New opens the database and assembles every component.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	gens, err := NewGenerators(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		if gens.closer != nil {
			gens.closer.Close()
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a, err := Assemble(cfg, logger, db, gens)
	if err != nil {
		db.Close()
		if gens.closer != nil {
			gens.closer.Close()
		}
		return nil, err
	}
	return a, nil
}

// Assemble builds the services on an open database with the given
// generators. The Telegram bot is created only when it is configured.
func Assemble(cfg *config.Config, logger zerolog.Logger, db *database.DB, gens Generators) (*App, error) {
	a := &App{cfg: cfg, logger: logger, DB: db, gens: gens}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	a.Metrics = metrics.NewStore(db.SQL)
	a.UserRepo = user.NewRepository(db.SQL)
	a.Users = user.NewService(a.UserRepo, tokens, logger)
	a.Plans = diet.NewRepository(db.SQL)
	a.Diets = diet.NewService(diet.NewPlanner(gens.Plan), a.Plans, a.Metrics, logger)
	a.Responder = assistant.NewResponder(a.UserRepo, a.Plans, gens.QA, a.Metrics, logger)

	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg, telegram.NewLinkRepository(db.SQL), a.Responder, a.Metrics, logger)
		if err != nil {
			return nil, err
		}
		a.Bot = bot
	}

	a.Server = server.New(server.Deps{
		Config:    cfg,
		Logger:    logger,
		Tokens:    tokens,
		Users:     a.Users,
		Diets:     a.Diets,
		Responder: a.Responder,
		Metrics:   a.Metrics,
		Bot:       a.Bot,
	})
	return a, nil
}

// Close waits for background Telegram work and releases the database and
// generator clients.
func (a *App) Close() error {
	if a.Bot != nil {
		a.Bot.Wait()
	}
	var errs []error
	if a.gens.closer != nil {
		errs = append(errs, a.gens.closer.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}

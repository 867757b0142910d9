// Package user implements registration, login and account lookup.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medidiet/internal/apperr"
	"medidiet/internal/auth"
	"medidiet/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgEmailTaken         = "Email already registered"
	msgPhoneTaken         = "Phone number already registered"
	msgInvalidCredentials = "Invalid email or password"
	msgUserNotFound       = "User not found"

	// BcryptCost is the work factor for stored password hashes.
	BcryptCost = 12
)

// RegisterInput is the registration request body.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the issued token and the account it belongs to.
type LoginResult struct {
	Token string
	User  Public
}

// Service handles account operations.
type Service struct {
	repo     *Repository
	tokens   *auth.TokenService
	validate *validator.Validate
	logger   zerolog.Logger
	cost     int
}

// NewService creates a new Service.
func NewService(repo *Repository, tokens *auth.TokenService, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		validate: validation.New(),
		logger:   logger.With().Str("component", "user").Logger(),
		cost:     BcryptCost,
	}
}

// Register creates an account. Email is stored lower-cased.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "Validation error: "+validation.Describe(err))
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindConflict, msgEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Phone != "" {
		u.Phone = &in.Phone
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID).Msg("user registered")
	return u, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindInvalidInput, err, "Validation error: "+validation.Describe(err))
	}

	u, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if u == nil {
		s.logger.Warn().Msg("login failed: unknown email")
		return LoginResult{}, apperr.New(apperr.KindUnauthorized, msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return LoginResult{}, fmt.Errorf("failed to compare password: %w", err)
		}
		s.logger.Warn().Str("user_id", u.ID).Msg("login failed: wrong password")
		return LoginResult{}, apperr.New(apperr.KindUnauthorized, msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, User: u.Public()}, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID string) (Public, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return Public{}, err
	}
	if u == nil {
		return Public{}, apperr.New(apperr.KindUnauthorized, msgUserNotFound)
	}
	return u.Public(), nil
}

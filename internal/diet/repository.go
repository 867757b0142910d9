package diet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medidiet/internal/apperr"

	"github.com/google/uuid"
)

const (
	msgNoActivePlan = "No active diet plan found. Please generate one first."
	msgPlanNotFound = "Diet plan not found"
	msgPlanNotOwned = "You do not have permission to access this diet plan"

	// CreatedBySystem is recorded when no acting user is known.
	CreatedBySystem = "system"
)

// Repository is a database-backed store of versioned diet plans.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: func() time.Time { return time.Now().UTC() }}
}

const planColumns = `id, user_id, plan_data, plan_version, user_input, version, is_active, last_accessed_at, created_by, created_at`

// CreateVersion makes data the user's only active plan. Previous plans are
// deactivated and the new one gets the next version, all in one transaction.
func (r *Repository) CreateVersion(ctx context.Context, userID, createdBy string, data PlanData, input any) (*PersistedDietPlan, error) {
	if data.Weekly == nil {
		return nil, apperr.New(apperr.KindInvalidInput, "only weekly plans can be created")
	}
	planJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan input: %w", err)
	}
	if createdBy == "" {
		createdBy = CreatedBySystem
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE diet_plans SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous plans for user %s: %w", userID, err)
	}

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM diet_plans WHERE user_id = ?`, userID).Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to compute next version for user %s: %w", userID, err)
	}

	now := r.now()
	plan := &PersistedDietPlan{
		ID:             uuid.NewString(),
		UserID:         userID,
		PlanData:       data,
		PlanVersion:    data.SchemaVersion(),
		UserInput:      inputJSON,
		Version:        version,
		IsActive:       true,
		LastAccessedAt: now,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO diet_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		plan.ID, plan.UserID, string(planJSON), plan.PlanVersion, string(inputJSON),
		plan.Version, plan.LastAccessedAt, plan.CreatedBy, plan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert plan version %d for user %s: %w", version, userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan version: %w", err)
	}
	return plan, nil
}

// Latest returns the user's active plan and records the access.
func (r *Repository) Latest(ctx context.Context, userID string) (*PersistedDietPlan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	plan, err := scanPlan(tx.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM diet_plans WHERE user_id = ? AND is_active = 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, msgNoActivePlan)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active plan for user %s: %w", userID, err)
	}

	if err := r.touch(ctx, tx, plan); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan access: %w", err)
	}
	return plan, nil
}

// Get returns a plan to its owner and records the access. Other users get
// Forbidden and never see the plan.
func (r *Repository) Get(ctx context.Context, userID, planID string) (*PersistedDietPlan, error) {
	if _, err := uuid.Parse(planID); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "Invalid diet plan id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	plan, err := scanPlan(tx.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM diet_plans WHERE id = ?`, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, msgPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", planID, err)
	}
	if plan.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, msgPlanNotOwned)
	}

	if err := r.touch(ctx, tx, plan); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan access: %w", err)
	}
	return plan, nil
}

// FindActive returns the user's active plan without recording an access,
// or nil when there is none.
func (r *Repository) FindActive(ctx context.Context, userID string) (*PersistedDietPlan, error) {
	plan, err := scanPlan(r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM diet_plans WHERE user_id = ? AND is_active = 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active plan for user %s: %w", userID, err)
	}
	return plan, nil
}

// History lists the user's plan versions, newest first.
func (r *Repository) History(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, plan_version, is_active, created_at, last_accessed_at
		FROM diet_plans WHERE user_id = ? ORDER BY version DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Version, &s.PlanVersion, &s.IsActive, &s.CreatedAt, &s.LastAccessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *Repository) touch(ctx context.Context, tx *sql.Tx, plan *PersistedDietPlan) error {
	now := r.now()
	if _, err := tx.ExecContext(ctx, `UPDATE diet_plans SET last_accessed_at = ? WHERE id = ?`, now, plan.ID); err != nil {
		return fmt.Errorf("failed to record access to plan %s: %w", plan.ID, err)
	}
	plan.LastAccessedAt = now
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*PersistedDietPlan, error) {
	var (
		p         PersistedDietPlan
		planData  string
		userInput string
	)
	err := row.Scan(&p.ID, &p.UserID, &planData, &p.PlanVersion, &userInput,
		&p.Version, &p.IsActive, &p.LastAccessedAt, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.PlanData, err = DecodePlanData(p.PlanVersion, []byte(planData))
	if err != nil {
		return nil, err
	}
	p.UserInput = json.RawMessage(userInput)
	return &p, nil
}

package diet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"medidiet/internal/database"
	"medidiet/internal/llm"
	"medidiet/internal/shared"
)

// scriptedGenerator returns its responses in order and counts calls.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	requests  []llm.Request
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, req llm.Request) (llm.ContentResponse, error) {
	i := g.calls
	g.calls++
	g.requests = append(g.requests, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return llm.ContentResponse{}, g.errs[i]
	}
	if i >= len(g.responses) {
		return llm.ContentResponse{}, errors.New("scripted generator exhausted")
	}
	return llm.ContentResponse{
		Content: g.responses[i],
		Usage:   shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Model: "test-model"},
	}, nil
}

func validPlanMap() map[string]any {
	week := map[string]any{}
	for _, key := range DayKeys {
		day := map[string]any{}
		for _, slot := range MealSlots {
			day[slot.Key] = []any{"Poha with peanuts " + key}
		}
		week[key] = day
	}
	return map[string]any{
		"plan_type":         "weekly",
		"calories_per_day":  json.Number("1800"),
		"veg_or_nonveg":     "Vegetarian",
		"indian_foods_only": true,
		"weekly_plan":       week,
		"precautions":       []any{"Drink 3 litres of water daily"},
		"disclaimer":        "Consult your doctor before changing your diet.",
	}
}

func validPlanJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(validPlanMap())
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	return string(b)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	return string(b)
}

func validGeneratedPlan(t *testing.T) GeneratedPlan {
	t.Helper()
	plan, err := ValidatePlan(validPlanMap())
	if err != nil {
		t.Fatalf("Fixture should validate: %v", err)
	}
	return plan
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewDB(database.MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.SQL
}

func insertUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, "User "+id, id+"@example.com", "hash", now, now)
	if err != nil {
		t.Fatalf("Failed to insert user %s: %v", id, err)
	}
}

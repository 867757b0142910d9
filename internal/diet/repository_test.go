package diet

import (
	"context"
	"testing"
	"time"

	"medidiet/internal/apperr"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("VersionsAndSingleActivePlan", func(t *testing.T) {
		db := newTestDB(t)
		insertUser(t, db, "u1")
		repo := NewRepository(db)
		data := WeeklyData(validGeneratedPlan(t))

		const n = 4
		var last *PersistedDietPlan
		for i := 1; i <= n; i++ {
			plan, err := repo.CreateVersion(ctx, "u1", "u1", data, map[string]any{"age": 30})
			if err != nil {
				t.Fatalf("Generation %d failed: %v", i, err)
			}
			if plan.Version != i {
				t.Errorf("Expected version %d, got %d", i, plan.Version)
			}
			last = plan
		}

		var active int
		if err := db.QueryRow(`SELECT COUNT(*) FROM diet_plans WHERE user_id = 'u1' AND is_active = 1`).Scan(&active); err != nil {
			t.Fatalf("Failed to count active plans: %v", err)
		}
		if active != 1 {
			t.Errorf("Expected exactly one active plan, got %d", active)
		}

		latest, err := repo.Latest(ctx, "u1")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if latest.ID != last.ID || latest.Version != n || !latest.IsActive {
			t.Errorf("Expected latest to be version %d, got %+v", n, latest)
		}
		if latest.PlanVersion != SchemaWeekly || latest.CreatedBy != "u1" {
			t.Errorf("Unexpected metadata %+v", latest)
		}

		history, err := repo.History(ctx, "u1")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(history) != n || history[0].Version != n || !history[0].IsActive || history[1].IsActive {
			t.Errorf("Unexpected history %+v", history)
		}
	})

	t.Run("VersionsArePerUser", func(t *testing.T) {
		db := newTestDB(t)
		insertUser(t, db, "u1")
		insertUser(t, db, "u2")
		repo := NewRepository(db)
		data := WeeklyData(validGeneratedPlan(t))

		repo.CreateVersion(ctx, "u1", "", data, nil)
		repo.CreateVersion(ctx, "u1", "", data, nil)
		p, err := repo.CreateVersion(ctx, "u2", "", data, nil)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p.Version != 1 || p.CreatedBy != CreatedBySystem {
			t.Errorf("Expected u2's first plan to be version 1 by system, got %+v", p)
		}
		if _, err := repo.Latest(ctx, "u1"); err != nil {
			t.Errorf("u1 must keep its active plan, got %v", err)
		}
	})

	t.Run("LatestWithoutPlan", func(t *testing.T) {
		repo := NewRepository(newTestDB(t))
		_, err := repo.Latest(ctx, "nobody")
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("Expected NotFound, got %v", err)
		}
		if apperr.MessageOf(err) != "No active diet plan found. Please generate one first." {
			t.Errorf("Unexpected message %q", apperr.MessageOf(err))
		}
	})

	t.Run("LatestTouchesLastAccessed", func(t *testing.T) {
		db := newTestDB(t)
		insertUser(t, db, "u1")
		repo := NewRepository(db)
		created, _ := repo.CreateVersion(ctx, "u1", "u1", WeeklyData(validGeneratedPlan(t)), nil)

		later := created.CreatedAt.Add(time.Hour)
		repo.now = func() time.Time { return later }

		latest, err := repo.Latest(ctx, "u1")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !latest.LastAccessedAt.Equal(later) {
			t.Errorf("Expected lastAccessedAt %v, got %v", later, latest.LastAccessedAt)
		}

		active, _ := repo.FindActive(ctx, "u1")
		if !active.LastAccessedAt.Equal(later) {
			t.Errorf("Expected the access to be persisted, got %v", active.LastAccessedAt)
		}
	})

	t.Run("Ownership", func(t *testing.T) {
		db := newTestDB(t)
		insertUser(t, db, "owner")
		insertUser(t, db, "intruder")
		repo := NewRepository(db)
		plan, _ := repo.CreateVersion(ctx, "owner", "owner", WeeklyData(validGeneratedPlan(t)), nil)

		got, err := repo.Get(ctx, "intruder", plan.ID)
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("Expected Forbidden, got %v", err)
		}
		if got != nil {
			t.Error("Expected no plan data for another user")
		}

		got, err = repo.Get(ctx, "owner", plan.ID)
		if err != nil || got.ID != plan.ID {
			t.Errorf("Expected the owner to read the plan, got %v", err)
		}
	})

	t.Run("GetUnknownAndInvalidIDs", func(t *testing.T) {
		repo := NewRepository(newTestDB(t))
		if _, err := repo.Get(ctx, "u1", "4f3c1f8e-7d0a-4b8e-9d51-2b1c9a7e0f11"); !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, "u1", "not-an-id"); !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("Expected InvalidInput, got %v", err)
		}
	})

	t.Run("FindActiveWithoutPlan", func(t *testing.T) {
		repo := NewRepository(newTestDB(t))
		plan, err := repo.FindActive(ctx, "u1")
		if err != nil || plan != nil {
			t.Errorf("Expected nil plan and nil error, got %v, %v", plan, err)
		}
	})

	t.Run("LegacyPlansAreReadable", func(t *testing.T) {
		db := newTestDB(t)
		insertUser(t, db, "u1")
		now := time.Now().UTC()
		_, err := db.Exec(`INSERT INTO diet_plans (`+planColumns+`) VALUES (?, ?, ?, 1, '{}', 1, 1, ?, 'system', ?)`,
			"7a0c4f54-8a55-4d3c-a0f2-6a3f5b0e9c21", "u1",
			`{"daily_meals":{"early_morning":["Water"],"breakfast":["Idli"],"lunch":["Dal"],"snacks":["Nuts"],"dinner":["Khichdi"]},"calories_per_day":1500,"indian_foods_only":true,"veg_or_nonveg":"Veg","precautions":["Walk"],"disclaimer":"Info only"}`,
			now, now)
		if err != nil {
			t.Fatalf("Failed to seed legacy plan: %v", err)
		}

		repo := NewRepository(db)
		plan, err := repo.Latest(ctx, "u1")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if plan.PlanData.Legacy == nil || plan.PlanVersion != SchemaLegacy {
			t.Fatalf("Expected a legacy plan, got %+v", plan.PlanData)
		}

		// A new generation supersedes the legacy plan.
		next, err := repo.CreateVersion(ctx, "u1", "u1", WeeklyData(validGeneratedPlan(t)), nil)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if next.Version != 2 {
			t.Errorf("Expected version 2, got %d", next.Version)
		}
	})

	t.Run("LegacyPlansAreNeverCreated", func(t *testing.T) {
		repo := NewRepository(newTestDB(t))
		_, err := repo.CreateVersion(ctx, "u1", "u1", PlanData{Legacy: &LegacyPlan{}}, nil)
		if !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("Expected InvalidInput, got %v", err)
		}
	})

	t.Run("IndexRejectsSecondActivePlan", func(t *testing.T) {
		db := newTestDB(t)
		insertUser(t, db, "u1")
		repo := NewRepository(db)
		repo.CreateVersion(ctx, "u1", "u1", WeeklyData(validGeneratedPlan(t)), nil)

		now := time.Now().UTC()
		_, err := db.Exec(`INSERT INTO diet_plans (`+planColumns+`) VALUES (?, 'u1', '{}', 2, '{}', 99, 1, ?, 'system', ?)`,
			"0e6d3b1a-2c4f-4a8e-b7d9-5f1e2a3c4b5d", now, now)
		if err == nil {
			t.Fatal("Expected the partial unique index to reject a second active plan")
		}
	})
}

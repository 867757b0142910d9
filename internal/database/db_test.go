package database

import (
	"path/filepath"
	"testing"
)

func TestNewDB(t *testing.T) {
	t.Run("InMemoryHasSchema", func(t *testing.T) {
		db, err := NewDB(MemoryPath)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		defer db.Close()

		for _, table := range []string{"users", "diet_plans", "generation_metrics", "telegram_links"} {
			var name string
			err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %s to exist: %v", table, err)
			}
		}
	})

	t.Run("ReopenIsNoChange", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "medidiet.db")
		db, err := NewDB(path)
		if err != nil {
			t.Fatalf("Expected no error on first open, got %v", err)
		}
		db.Close()

		db, err = NewDB(path)
		if err != nil {
			t.Fatalf("Expected no error on reopen, got %v", err)
		}
		defer db.Close()
	})

	t.Run("ForeignKeysEnforced", func(t *testing.T) {
		db, err := NewDB(MemoryPath)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		defer db.Close()

		_, err = db.SQL.Exec(`INSERT INTO diet_plans (id, user_id, plan_data, plan_version, user_input, version, is_active, last_accessed_at, created_by, created_at)
			VALUES ('p1', 'missing-user', '{}', 2, '{}', 1, 1, CURRENT_TIMESTAMP, 'system', CURRENT_TIMESTAMP)`)
		if err == nil {
			t.Fatal("Expected a foreign key violation for an unknown user")
		}
	})
}

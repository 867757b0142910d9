package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"medidiet/internal/database"
	"medidiet/internal/diet"
	"medidiet/internal/export"
	"medidiet/internal/logging"
	"medidiet/internal/metrics"
	"medidiet/internal/user"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
)

const defaultDatabasePath = "data/db/medidiet.db"

var logger = logging.NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr}, os.Getenv("LOG_LEVEL"))

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Maintenance commands only need the database, not the full config.
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		db, err := database.NewDB(dbPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		db.Close()
		fmt.Printf("Database at %s is up to date.\n", dbPath)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		db := openDB(dbPath)
		defer db.Close()

		affected, err := metrics.NewStore(db.SQL).Cleanup(ctx, *days)
		if err != nil {
			logger.Fatal().Err(err).Msg("cleanup failed")
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	case "export-pdf":
		exportCmd := flag.NewFlagSet("export-pdf", flag.ExitOnError)
		userID := exportCmd.String("user", "", "Owner user id (required)")
		planID := exportCmd.String("plan", "", "Plan id; defaults to the active plan")
		out := exportCmd.String("out", "", "Output file; defaults to DietPlan_<name>.pdf")
		exportCmd.Parse(os.Args[2:])
		if *userID == "" {
			exportCmd.Usage()
			os.Exit(2)
		}

		db := openDB(dbPath)
		defer db.Close()

		path, err := exportPlan(ctx, db, *userID, *planID, *out)
		if err != nil {
			logger.Fatal().Err(err).Msg("export failed")
		}
		fmt.Printf("Wrote %s\n", path)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func exportPlan(ctx context.Context, db *database.DB, userID, planID, out string) (string, error) {
	owner, err := user.NewRepository(db.SQL).FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if owner == nil {
		return "", fmt.Errorf("user %s not found", userID)
	}

	plans := diet.NewRepository(db.SQL)
	var plan *diet.PersistedDietPlan
	if planID == "" {
		plan, err = plans.Latest(ctx, userID)
	} else {
		plan, err = plans.Get(ctx, userID, planID)
	}
	if err != nil {
		return "", err
	}

	if out == "" {
		out = export.FileName(owner.Name)
	}
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := export.WritePlanPDF(f, owner.Name, plan.PlanData, plan.CreatedAt); err != nil {
		f.Close()
		os.Remove(out)
		return "", err
	}
	return out, f.Close()
}

func openDB(path string) *database.DB {
	db, err := database.NewDB(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to open database")
	}
	return db
}

func printUsage() {
	fmt.Println("Usage: medidiet <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  migrate            Apply database migrations")
	fmt.Println("  metrics-cleanup    Remove old metric records (-days N)")
	fmt.Println("  export-pdf         Write a plan as PDF (-user ID [-plan ID] [-out FILE])")
}

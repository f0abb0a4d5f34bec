package main

// Manage the database schema:
//   go run ./cmd/migrate [up|down|status|version]

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/storage/db"
	"esign-backend/internal/shared/telemetry"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.OptionsFor(db.ProfileMigrate)))
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := run(ctx, cmd, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": cmd, "error": err})
		sqlDB.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, sqlDB *sql.DB) error {
	switch cmd {
	case "up":
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return err
		}
	case "down":
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			return err
		}
	case "status":
		return db.PrintMigrationStatus(ctx, sqlDB)
	case "version":
	default:
		return fmt.Errorf("unknown command %q (want up, down, status or version)", cmd)
	}
	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	telemetry.Info("migrate.completed", map[string]any{"command": cmd, "version": version})
	return nil
}

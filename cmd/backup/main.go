package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mathwizard/internal/config"
	"mathwizard/internal/database"
	"mathwizard/internal/logging"
	"mathwizard/internal/repository"
	"mathwizard/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	if len(os.Args) < 2 || os.Args[1] != "export" {
		printUsage()
		os.Exit(1)
	}
	if err := exportCmd.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	ctx := context.Background()

	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	backupService := service.NewBackupService(
		repository.NewParentRepository(db),
		repository.NewPartnerRepository(db),
		repository.NewSchoolRepository(db),
		repository.NewChildRepository(db),
		repository.NewSystemLogRepository(db),
		cfg.Database.Type,
	)

	if err := handleExport(ctx, backupService, *exportOutput); err != nil {
		logging.Fatal().Err(err).Msg("Export failed")
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logging.Info().Str("path", outputPath).Msg("Exporting database")
	if err := backupService.Export(ctx, outputPath); err != nil {
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup file: %w", err)
	}
	logging.Info().Str("path", outputPath).Int64("bytes", info.Size()).Msg("Export complete")
	return nil
}

func printUsage() {
	fmt.Println("MathWizard Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [-output <file>]    Export accounts and audit log to a JSON file")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./mathwizard.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  JWT_SECRET       Required by configuration validation")
}

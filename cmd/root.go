package cmd

import (
	"context"
	"fmt"
	"os"

	"labstock/internal/core/logger"
	"labstock/internal/database"
	"labstock/internal/database/migration"
	"labstock/internal/repository"
	"labstock/internal/seed"
	"labstock/internal/users"

	"github.com/spf13/cobra"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		migrationDir, _ := cmd.Flags().GetString("dir")

		log := logger.NewLogger()
		defer func() { _ = log.Sync() }()

		if err := migration.Migrate(dbURL, fmt.Sprintf("file://%s", migrationDir), true, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		return nil
	},
}

var SeedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the initial admin account if it does not exist.",
	Long:  `Reads ADMIN_EMAIL, ADMIN_PASSWORD and optionally ADMIN_NAME. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}

		email, name, password, err := seed.AdminFromEnv()
		if err != nil {
			return err
		}

		db, err := database.NewPostgresConnection(dbURL)
		if err != nil {
			return err
		}
		defer db.Close()

		log := logger.NewLogger()
		defer func() { _ = log.Sync() }()

		repo := users.NewRepository(repository.NewRepository(db))
		return seed.EnsureAdmin(repo, email, name, password, log)
	},
}

// Execute runs a subcommand when one was given and reports whether it did,
// so the caller knows not to start the server afterwards.
func Execute(ctx context.Context) bool {
	if len(os.Args) < 2 {
		return false
	}

	rootCmd := &cobra.Command{
		Use:   "labstock",
		Short: "Lab equipment inventory service",
	}
	MigrateCmd.Flags().String("dir", "./migrations", "Directory containing the migration files")
	rootCmd.AddCommand(MigrateCmd)
	rootCmd.AddCommand(SeedAdminCmd)

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return true
}

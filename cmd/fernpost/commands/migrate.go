package commands

import (
	"context"
	"fmt"
	"log"

	"fernpost/internal/config"
	"fernpost/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Apply pending schema migrations. Only the PostgreSQL backend uses versioned migrations; MongoDB builds its indexes at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if cfg.Database.Type != "postgres" {
		return fmt.Errorf("migrate only applies to the postgres backend, got %q", cfg.Database.Type)
	}

	db, err := database.NewPostgresDB(cfg.Database.URI)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	log.Printf("Migrations applied")
	return nil
}

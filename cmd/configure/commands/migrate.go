package commands

import (
	"context"
	"fmt"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long:  "Apply the idempotent schema used by the API server. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				if err := db.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				printf(cmd.OutOrStdout(), "Database schema is up to date.\n")
				return nil
			})
		},
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runtime settings",
		Long:  "List all settings stored in the database (rate limit, CORS origins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				settings, err := database.NewSettingsRepository(db).List(ctx)
				if err != nil {
					return fmt.Errorf("failed to list settings: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(settings) == 0 {
					printf(out, "No settings stored. The server uses its environment defaults.\n")
					return nil
				}

				printf(out, "Stored settings:\n")
				for _, s := range settings {
					printf(out, "  - %s = %s (updated %s)\n", s.Key, s.Value, s.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}

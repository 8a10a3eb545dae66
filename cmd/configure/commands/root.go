package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/benvon/carbon-tracker/internal/config"
	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the configure command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "carbon-tracker-configure",
		Short:         "Configuration tool for the Carbon Tracker API",
		Long:          "CLI tool for database migrations, runtime settings and offline emission estimates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewRatelimitCmd())
	rootCmd.AddCommand(NewCorsCmd())
	rootCmd.AddCommand(NewFactorsCmd())
	rootCmd.AddCommand(NewEstimateCmd())
	return rootCmd
}

// withDB loads configuration, connects to the database and runs fn
func withDB(ctx context.Context, fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()
	return fn(ctx, db)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

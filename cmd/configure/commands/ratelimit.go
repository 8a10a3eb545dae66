package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit configuration command with get and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "Show or update the per-client rate limit (e.g. 5-S, 100-M). Stored in database; the server reloads it every minute.",
	}
	cmd.AddCommand(newRatelimitGetCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				s, err := database.NewSettingsRepository(db).Get(ctx, models.SettingRateLimit)
				if err != nil {
					return fmt.Errorf("get ratelimit setting: %w", err)
				}
				if s == nil {
					printf(cmd.OutOrStdout(), "No rate limit in database. The server stores RATE_LIMIT_DEFAULT on start.\n")
					return nil
				}
				printf(cmd.OutOrStdout(), "Rate: %s\n", s.Value)
				return nil
			})
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the rate limit",
		Long:  "Update the rate limit (e.g. 5-S, 100-M, 1000-H). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := normalizeRate(rate)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				if err := database.NewSettingsRepository(db).Set(ctx, models.SettingRateLimit, normalized); err != nil {
					return fmt.Errorf("set ratelimit setting: %w", err)
				}
				printf(cmd.OutOrStdout(), "Rate limit updated to %s.\n", normalized)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}

// normalizeRate rejects rates the server could not parse
func normalizeRate(rate string) (string, error) {
	rate = strings.ToUpper(strings.TrimSpace(rate))
	if rate == "" {
		return "", fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return "", fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return rate, nil
}

package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with get and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "Show or update the allowed CORS origins (stored in database).",
	}
	cmd.AddCommand(newCorsGetCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the allowed origins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				s, err := database.NewSettingsRepository(db).Get(ctx, models.SettingAllowedOrigins)
				if err != nil {
					return fmt.Errorf("get cors setting: %w", err)
				}
				if s == nil {
					printf(cmd.OutOrStdout(), "No CORS origins in database. The server falls back to FRONTEND_URL.\n")
					return nil
				}
				printf(cmd.OutOrStdout(), "Allowed origins:\n")
				for _, origin := range database.SplitList(s.Value) {
					printf(cmd.OutOrStdout(), "  - %s\n", origin)
				}
				return nil
			})
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the allowed origins",
		Long:  "Replace the allowed origins with a comma-separated list (e.g. https://app.example.com,https://admin.example.com).",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := normalizeOrigins(origins)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				if err := database.NewSettingsRepository(db).Set(ctx, models.SettingAllowedOrigins, normalized); err != nil {
					return fmt.Errorf("set cors setting: %w", err)
				}
				printf(cmd.OutOrStdout(), "CORS origins updated.\n")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	return cmd
}

// normalizeOrigins validates each origin and returns the de-duplicated list
func normalizeOrigins(raw string) (string, error) {
	origins := database.SplitList(raw)
	if len(origins) == 0 {
		return "", fmt.Errorf("--origins is required")
	}
	for _, origin := range origins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
			return "", fmt.Errorf("invalid origin %q: expected scheme://host[:port]", origin)
		}
	}
	return strings.Join(origins, ","), nil
}

package commands

import (
	"fmt"

	"github.com/benvon/carbon-tracker/internal/config"
	"github.com/benvon/carbon-tracker/internal/services/emissions"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewFactorsCmd creates the factors command
func NewFactorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "Print the emission factor configuration",
		Long:  "Print the factor set the server would use (CLIMATIQ_CONTRACT and EMISSION_FACTORS_FILE) as YAML. No database needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadEstimator()
			est, err := emissions.NewFromConfig(cfg, nil)
			if err != nil {
				return fmt.Errorf("load factors: %w", err)
			}

			out, err := yaml.Marshal(est.Factors())
			if err != nil {
				return fmt.Errorf("encode factors: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

package commands

import (
	"fmt"
	"strconv"

	"github.com/benvon/carbon-tracker/internal/config"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/services/emissions"
	"github.com/benvon/carbon-tracker/internal/validation"
	"github.com/spf13/cobra"
)

// NewEstimateCmd creates the estimate command, which runs the estimator without the server
func NewEstimateCmd() *cobra.Command {
	var (
		activityType string
		distance     float64
		mode         string
		foodType     string
		quantity     float64
		unit         string
		energy       float64
		energyUnit   string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate emissions for one activity",
		Long: `Estimate kg CO2e for a single activity. Uses the remote estimator when
CLIMATIQ_API_KEY is set and the local fallback tables otherwise.`,
		Example: `  carbon-tracker-configure estimate --type commute --distance 50 --mode train
  carbon-tracker-configure estimate --type food --food beef --quantity 2 --unit kg
  carbon-tracker-configure estimate --type electricity --energy 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := validation.ValidateActivityType(activityType)
			if err != nil {
				return err
			}

			fields := models.EmissionFields{ActivityType: t}
			flags := cmd.Flags()
			if flags.Changed("distance") {
				fields.Distance = &distance
			}
			if flags.Changed("mode") {
				fields.TransportMode = &mode
			}
			if flags.Changed("food") {
				fields.FoodType = &foodType
			}
			if flags.Changed("quantity") {
				fields.Quantity = &quantity
			}
			if flags.Changed("unit") {
				fields.Unit = &unit
			}
			if flags.Changed("energy") {
				fields.EnergyConsumed = &energy
			}
			if flags.Changed("energy-unit") {
				fields.EnergyUnit = &energyUnit
			}

			est, err := emissions.NewFromConfig(config.LoadEstimator(), nil)
			if err != nil {
				return fmt.Errorf("create estimator: %w", err)
			}
			co2e, err := est.Estimate(cmd.Context(), fields)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s kg CO2e\n", strconv.FormatFloat(co2e, 'f', -1, 64))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&activityType, "type", "", "Activity type: commute, food or electricity (required)")
	flags.Float64Var(&distance, "distance", 0, "Distance travelled in km")
	flags.StringVar(&mode, "mode", "", "Transport mode (car, bus, train, plane, motorcycle, bicycle, walking)")
	flags.StringVar(&foodType, "food", "", "Food type (beef, chicken, vegetables, ...)")
	flags.Float64Var(&quantity, "quantity", 0, "Food quantity")
	flags.StringVar(&unit, "unit", "", "Food quantity unit (kg, g, lb)")
	flags.Float64Var(&energy, "energy", 0, "Electricity consumed")
	flags.StringVar(&energyUnit, "energy-unit", "", "Energy unit (kWh, MWh)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

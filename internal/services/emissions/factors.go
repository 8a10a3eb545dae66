package emissions

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport modes understood by the commute estimate
const (
	ModeCar        = "car"
	ModeBus        = "bus"
	ModeTrain      = "train"
	ModePlane      = "plane"
	ModeMotorcycle = "motorcycle"
	ModeBicycle    = "bicycle"
	ModeWalking    = "walking"
)

// Fallback emission rates used when the remote estimator cannot be reached.
var (
	// commuteFallbackKgPerKm is kg CO2e per kilometre travelled
	commuteFallbackKgPerKm = map[string]float64{
		ModeCar:        0.21,
		ModeBus:        0.089,
		ModeTrain:      0.041,
		ModePlane:      0.255,
		ModeMotorcycle: 0.113,
		ModeBicycle:    0,
		ModeWalking:    0,
	}

	// foodKgPerKg is kg CO2e per kilogram of food
	foodKgPerKg = map[string]float64{
		"beef":       27.0,
		"pork":       12.1,
		"chicken":    6.9,
		"fish":       5.1,
		"dairy":      3.2,
		"vegetables": 2.0,
		"fruits":     1.1,
		"grains":     2.7,
	}
)

const (
	defaultFoodKgPerKg = 2.0
	gridKgPerKWh       = 0.475

	poundsToKg = 0.453592
)

// Contract selects the request/response shape spoken to the remote estimation service
type Contract string

const (
	// ContractDataV1 posts to /data/v1/estimate with emission_factor.activity_id, data_version and region
	ContractDataV1 Contract = "data_v1"
	// ContractLegacy posts to /estimate with emission_factor.id
	ContractLegacy Contract = "legacy"
)

// FactorSet maps activities to remote emission factor identifiers.
// It is configuration: swapping identifiers never changes estimator behavior.
type FactorSet struct {
	Contract    Contract          `yaml:"contract" json:"contract"`
	Region      string            `yaml:"region,omitempty" json:"region,omitempty"`
	DataVersion string            `yaml:"data_version,omitempty" json:"dataVersion,omitempty"`
	Commute     map[string]string `yaml:"commute" json:"commute"`
	Electricity string            `yaml:"electricity" json:"electricity"`
}

// DefaultFactorSet returns the built-in identifiers for contract
func DefaultFactorSet(contract Contract) (*FactorSet, error) {
	switch contract {
	case ContractDataV1, "":
		return &FactorSet{
			Contract:    ContractDataV1,
			Region:      "US",
			DataVersion: "^21",
			Commute: map[string]string{
				ModeCar:        "passenger_vehicle-vehicle_type_car-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na",
				ModeBus:        "passenger_vehicle-vehicle_type_bus-fuel_source_na-distance_na-engine_size_na",
				ModeTrain:      "passenger_train-route_type_na-fuel_source_na",
				ModePlane:      "passenger_flight-route_type_domestic-aircraft_type_na-distance_na-class_na-rf_included-distance_uplift_included",
				ModeMotorcycle: "passenger_vehicle-vehicle_type_motorcycle-fuel_source_na-engine_size_na-vehicle_age_na-vehicle_weight_na",
			},
			Electricity: "electricity-supply_grid-source_supplier_mix",
		}, nil
	case ContractLegacy:
		return &FactorSet{
			Contract: ContractLegacy,
			Commute: map[string]string{
				ModeCar:        "passenger_vehicle-vehicle_type_car-fuel_source_petrol-engine_size_na-vehicle_age_na-vehicle_weight_na",
				ModeBus:        "passenger_vehicle-vehicle_type_local_bus-fuel_source_diesel-distance_na-engine_size_na",
				ModeTrain:      "passenger_train-route_type_national_rail-fuel_source_na",
				ModePlane:      "passenger_flight-route_type_na-aircraft_type_na-distance_short_haul_lt_3700km-class_economy-rf_na",
				ModeMotorcycle: "passenger_vehicle-vehicle_type_motorbike-fuel_source_petrol-engine_size_medium-vehicle_age_na-vehicle_weight_na",
			},
			Electricity: "electricity-energy_source_grid_mix",
		}, nil
	default:
		return nil, fmt.Errorf("unknown remote contract %q (must be %q or %q)", contract, ContractDataV1, ContractLegacy)
	}
}

// LoadFactorSet builds the factor set for contract, overlaying the YAML file at path when path is set.
// A contract named in the file takes precedence over the contract argument.
func LoadFactorSet(path string, contract Contract) (*FactorSet, error) {
	if path == "" {
		return DefaultFactorSet(contract)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read emission factors file: %w", err)
	}
	return ParseFactorSet(data, contract)
}

// ParseFactorSet overlays YAML-encoded identifiers on the built-in set for the selected contract
func ParseFactorSet(data []byte, contract Contract) (*FactorSet, error) {
	var override FactorSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse emission factors: %w", err)
	}

	if override.Contract != "" {
		contract = override.Contract
	}
	set, err := DefaultFactorSet(contract)
	if err != nil {
		return nil, err
	}

	if override.Region != "" {
		set.Region = override.Region
	}
	if override.DataVersion != "" {
		set.DataVersion = override.DataVersion
	}
	if override.Electricity != "" {
		set.Electricity = strings.TrimSpace(override.Electricity)
	}
	for mode, id := range override.Commute {
		mode = normalize(mode)
		if _, ok := commuteFallbackKgPerKm[mode]; !ok {
			return nil, fmt.Errorf("unknown transport mode %q in emission factors", mode)
		}
		set.Commute[mode] = strings.TrimSpace(id)
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate checks that every remotely estimated activity has an identifier
func (s *FactorSet) Validate() error {
	for _, mode := range []string{ModeCar, ModeBus, ModeTrain, ModePlane, ModeMotorcycle} {
		if s.Commute[mode] == "" {
			return fmt.Errorf("emission factor for transport mode %q is empty", mode)
		}
	}
	if s.Electricity == "" {
		return fmt.Errorf("electricity emission factor is empty")
	}
	return nil
}

// CommuteFactor resolves mode to its factor identifier and the mode actually used.
// Unrecognized modes resolve to car.
func (s *FactorSet) CommuteFactor(mode string) (string, string) {
	mode = resolveMode(mode)
	return s.Commute[mode], mode
}

// Modes returns the configured transport modes in a stable order
func (s *FactorSet) Modes() []string {
	modes := make([]string, 0, len(s.Commute))
	for mode := range s.Commute {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// FallbackRate returns the kg CO2e per km fallback rate for mode (car for unknown modes)
func FallbackRate(mode string) float64 {
	return commuteFallbackKgPerKm[resolveMode(mode)]
}

// FoodFactor returns the kg CO2e per kg factor for foodType and whether it was recognized
func FoodFactor(foodType string) (float64, bool) {
	if f, ok := foodKgPerKg[normalize(foodType)]; ok {
		return f, true
	}
	return defaultFoodKgPerKg, false
}

// FallbackRates returns a copy of the per-mode commute fallback rates in kg CO2e per km
func FallbackRates() map[string]float64 {
	return maps.Clone(commuteFallbackKgPerKm)
}

// FoodFactors returns a copy of the food factors in kg CO2e per kg
func FoodFactors() map[string]float64 {
	return maps.Clone(foodKgPerKg)
}

// GridFallbackRate returns the electricity fallback rate in kg CO2e per kWh
func GridFallbackRate() float64 {
	return gridKgPerKWh
}

func resolveMode(mode string) string {
	mode = normalize(mode)
	if _, ok := commuteFallbackKgPerKm[mode]; ok {
		return mode
	}
	return ModeCar
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

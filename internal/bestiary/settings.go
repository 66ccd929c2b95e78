package bestiary

import (
	"errors"
	"fmt"

	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

const (
	MinDanger      = 1
	MaxDanger      = 5
	MinTemperature = 0.3
	MaxTemperature = 1.0
)

// Settings are the user's choices for one generation.
type Settings struct {
	CreatureType string  `mapstructure:"creature_type" json:"creature_type"`
	Habitat      string  `mapstructure:"habitat" json:"habitat"`
	Role         string  `mapstructure:"role" json:"role"`
	Element      string  `mapstructure:"element" json:"element"`
	DangerLevel  int     `mapstructure:"danger_level" json:"danger_level"`
	Model        string  `mapstructure:"model" json:"model"`
	Temperature  float64 `mapstructure:"temperature" json:"temperature"`
}

// DefaultSettings returns the settings a new session starts with.
func DefaultSettings() Settings {
	return Settings{
		CreatureType: "beast",
		Habitat:      "brumesombre",
		Role:         "predator",
		Element:      "shadow",
		DangerLevel:  3,
		Model:        pricing.ModelSonnet,
		Temperature:  0.9,
	}
}

// WithDefaults fills zero fields from d.
func (s Settings) WithDefaults(d Settings) Settings {
	if s.CreatureType == "" {
		s.CreatureType = d.CreatureType
	}
	if s.Habitat == "" {
		s.Habitat = d.Habitat
	}
	if s.Role == "" {
		s.Role = d.Role
	}
	if s.Element == "" {
		s.Element = d.Element
	}
	if s.DangerLevel == 0 {
		s.DangerLevel = d.DangerLevel
	}
	if s.Model == "" {
		s.Model = d.Model
	}
	if s.Temperature == 0 {
		s.Temperature = d.Temperature
	}
	return s
}

// Validate reports every setting outside the catalogs or allowed ranges.
// The model is free-form: unknown models are billed at the default price.
func (s Settings) Validate() error {
	var errs []error
	if _, ok := findOption(CreatureTypes, s.CreatureType); !ok {
		errs = append(errs, fmt.Errorf("unknown creature type %q", s.CreatureType))
	}
	if _, ok := FindHabitat(s.Habitat); !ok {
		errs = append(errs, fmt.Errorf("unknown habitat %q", s.Habitat))
	}
	if _, ok := findOption(Roles, s.Role); !ok {
		errs = append(errs, fmt.Errorf("unknown role %q", s.Role))
	}
	if _, ok := FindElement(s.Element); !ok {
		errs = append(errs, fmt.Errorf("unknown element %q", s.Element))
	}
	if s.DangerLevel < MinDanger || s.DangerLevel > MaxDanger {
		errs = append(errs, fmt.Errorf("danger level %d outside %d..%d", s.DangerLevel, MinDanger, MaxDanger))
	}
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		errs = append(errs, fmt.Errorf("temperature %.2f outside %.1f..%.1f", s.Temperature, MinTemperature, MaxTemperature))
	}
	if s.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	return errors.Join(errs...)
}

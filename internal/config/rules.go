package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/questforge/internal/models"
)

//go:embed rules.yaml
var defaultRules []byte

// Scenario is the catalogue entry for a scenario kind.
type Scenario struct {
	Title         string `yaml:"title"`
	Theme         string `yaml:"theme"`
	StartLocation string `yaml:"start_location"`
	StartCategory string `yaml:"start_category"`
}

// Thresholds are the milestone trigger values.
type Thresholds struct {
	ExplorerNodes      int `yaml:"explorer_nodes"`
	CollectorItems     int `yaml:"collector_items"`
	SurvivorTurns      int `yaml:"survivor_turns"`
	BraveHeartVitality int `yaml:"brave_heart_vitality"`
}

// Rules are the game content settings.
type Rules struct {
	MaxTurns       int                              `yaml:"max_turns"`
	TurnScore      int                              `yaml:"turn_score"`
	MilestoneScore int                              `yaml:"milestone_score"`
	Thresholds     Thresholds                       `yaml:"thresholds"`
	Scenarios      map[models.ScenarioKind]Scenario `yaml:"scenarios"`
}

// DefaultRules returns the embedded rules.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return r
}

// LoadRules reads rules from path, or the embedded defaults when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes data on top of the embedded defaults, so an override
// file only needs the keys it changes.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(defaultRules, &r); err != nil {
		return nil, fmt.Errorf("parse default rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) Validate() error {
	if r.MaxTurns < 2 {
		return fmt.Errorf("max_turns must be at least 2, got %d", r.MaxTurns)
	}
	if r.TurnScore < 0 || r.MilestoneScore < 0 {
		return fmt.Errorf("scores must not be negative")
	}
	for kind, sc := range r.Scenarios {
		if !kind.Valid() {
			return fmt.Errorf("unknown scenario kind %q", kind)
		}
		if sc.StartLocation == "" {
			return fmt.Errorf("scenario %q has no start_location", kind)
		}
	}
	for _, kind := range models.Scenarios {
		if _, ok := r.Scenarios[kind]; !ok {
			return fmt.Errorf("scenario %q is missing", kind)
		}
	}
	return nil
}

// Scenario returns the catalogue entry for kind.
func (r *Rules) Scenario(kind models.ScenarioKind) (Scenario, bool) {
	sc, ok := r.Scenarios[kind]
	return sc, ok
}

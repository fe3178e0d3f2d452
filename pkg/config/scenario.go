package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario supplies device counts and topology overrides for one of the
// bundled demo graphs (ring/heat/sorter, see internal/scenario), loaded
// from a YAML file the way core/program.go's LoadProgramFileFromYAML reads
// a YAMLRoot.
type Scenario struct {
	Name    string         `yaml:"name"`
	BoardsX uint32         `yaml:"boards_x"`
	BoardsY uint32         `yaml:"boards_y"`
	Params  map[string]int `yaml:"params"`
}

// LoadScenarioFile reads and parses a Scenario from path.
func LoadScenarioFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("config: read scenario file: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("config: parse scenario file: %w", err)
	}
	return s, nil
}

// Param returns Params[key], or fallback if it isn't set.
func (s Scenario) Param(key string, fallback int) int {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return fallback
}

package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/standings"
)

// Scenario drives one gameday from template application to the last
// result. Slots are addressed by their 1-based position in the template
// document (field-major), which stays stable across stores.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Template is the template document path. Relative paths are resolved
	// against the scenario file location.
	Template string `yaml:"template"`

	Gameday GamedaySetup `yaml:"gameday"`

	// Teams are created in order before the template is applied.
	Teams []string `yaml:"teams"`

	// Mapping assigns team names to indexed placeholders ("0_0": Lions).
	Mapping map[string]string `yaml:"mapping"`

	// TieBreakers and StrictTies are stored as the imported template's tie
	// policy.
	TieBreakers []string `yaml:"tie_breakers,omitempty"`
	StrictTies  bool     `yaml:"strict_ties,omitempty"`

	Steps []Step `yaml:"steps"`
}

// GamedaySetup describes the gameday the template is applied to.
type GamedaySetup struct {
	Name string `yaml:"name"`

	// Start is an RFC 3339 instant; defaults to 2024-05-04T10:00:00Z.
	Start string `yaml:"start,omitempty"`

	// Fields defaults to the template's field count.
	Fields int `yaml:"fields,omitempty"`
}

// Step is one action or check. Exactly one of Finish, Status or Expect is
// set. ExpectError names the error code the action must fail with.
type Step struct {
	Finish      *FinishStep `yaml:"finish,omitempty"`
	Status      *StatusStep `yaml:"status,omitempty"`
	Expect      *ExpectStep `yaml:"expect,omitempty"`
	ExpectError string      `yaml:"expect_error,omitempty"`
}

// FinishStep records a final score and finishes the game.
type FinishStep struct {
	Slot int `yaml:"slot"`
	Home int `yaml:"home"`
	Away int `yaml:"away"`
}

// StatusStep moves a game to another status.
type StatusStep struct {
	Slot int    `yaml:"slot"`
	To   string `yaml:"to"`
}

// ExpectStep checks the current assignment of a game. Nil fields are not
// checked; "-" expects an unassigned role.
type ExpectStep struct {
	Slot     int     `yaml:"slot"`
	Home     *string `yaml:"home,omitempty"`
	Away     *string `yaml:"away,omitempty"`
	Official *string `yaml:"official,omitempty"`
	Status   *string `yaml:"status,omitempty"`
}

const defaultStart = "2024-05-04T10:00:00Z"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Template != "" && !filepath.IsAbs(scenario.Template) {
		scenario.Template = filepath.Join(filepath.Dir(path), scenario.Template)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Slot ranges are checked at run time against the loaded template.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Template == "" {
		return errors.New("template is required")
	}
	if _, err := os.Stat(s.Template); err != nil {
		return fmt.Errorf("template file not found: %s", s.Template)
	}
	if s.Gameday.Name == "" {
		return errors.New("gameday.name is required")
	}
	if s.Gameday.Start != "" {
		if _, err := time.Parse(time.RFC3339, s.Gameday.Start); err != nil {
			return fmt.Errorf("gameday.start: %w", err)
		}
	}
	if s.Gameday.Fields < 0 {
		return errors.New("gameday.fields must not be negative")
	}
	if len(s.Teams) == 0 {
		return errors.New("teams list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	known := make(map[string]bool, len(s.Teams))
	for i, name := range s.Teams {
		normalized := model.NormalizeLabel(name)
		if normalized == "" {
			return fmt.Errorf("teams[%d]: name is required", i)
		}
		if known[normalized] {
			return fmt.Errorf("teams[%d]: duplicate team %q", i, name)
		}
		known[normalized] = true
	}
	for key, name := range s.Mapping {
		if _, err := model.ParseTeamKey(key); err != nil {
			return fmt.Errorf("mapping[%s]: %w", key, err)
		}
		if !known[model.NormalizeLabel(name)] {
			return fmt.Errorf("mapping[%s]: unknown team %q", key, name)
		}
	}
	for _, name := range s.TieBreakers {
		if _, ok := standings.ByName(name); !ok {
			return fmt.Errorf("unknown tie-breaker %q", name)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	for _, present := range []bool{step.Finish != nil, step.Status != nil, step.Expect != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of finish, status or expect is required", index)
	}

	switch {
	case step.Finish != nil:
		if step.Finish.Home < 0 || step.Finish.Away < 0 {
			return fmt.Errorf("steps[%d].finish: scores must not be negative", index)
		}
	case step.Status != nil:
		if _, err := model.ParseGameStatus(step.Status.To); err != nil {
			return fmt.Errorf("steps[%d].status: %w", index, err)
		}
	case step.Expect != nil:
		if step.ExpectError != "" {
			return fmt.Errorf("steps[%d]: expect_error needs an action", index)
		}
		if step.Expect.Status != nil {
			if _, err := model.ParseGameStatus(*step.Expect.Status); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", index, err)
			}
		}
	}
	return nil
}

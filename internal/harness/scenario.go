package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/macrology/internal/library"
	"github.com/roach88/macrology/internal/macro"
)

// Scenario defines an engine test scenario.
// A scenario loads a macro library, drives the engine through a list of
// steps and asserts on what reached the sink.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Library is an optional path to a library file or directory.
	// Relative paths are resolved against the scenario file location.
	Library string `yaml:"library,omitempty"`

	// Macros are defined inline and appended after the library's nodes.
	Macros []MacroSpec `yaml:"macros,omitempty"`

	// Steps drive the engine, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the delivered commands and the final run state.
	Assertions []Assertion `yaml:"assertions"`

	// RunPrefix prefixes the sequential run IDs ("run" if empty).
	RunPrefix string `yaml:"run_prefix,omitempty"`
}

// MacroSpec is an inline macro. ID defaults to Name.
type MacroSpec struct {
	ID       string `yaml:"id,omitempty"`
	Name     string `yaml:"name"`
	Contents string `yaml:"contents"`
}

// Step is one action applied to the engine.
type Step struct {
	// Action is one of the Step* constants.
	Action string `yaml:"action"`

	// Macro is a macro ID or name (spawn, cancel_macro).
	Macro string `yaml:"macro,omitempty"`

	// Run is a run ID (cancel, pause, resume).
	Run string `yaml:"run,omitempty"`

	// Count is the number of commands to deliver (tick). Defaults to 1.
	Count int `yaml:"count,omitempty"`

	// Duration is how long to wait (sleep), as a Go duration string.
	Duration string `yaml:"duration,omitempty"`

	// Timeout bounds waiting steps (tick, drain). Defaults to DefaultStepTimeout.
	Timeout string `yaml:"timeout,omitempty"`
}

// Step action constants.
const (
	StepLogin       = "login"
	StepLogout      = "logout"
	StepSpawn       = "spawn"
	StepCancel      = "cancel"
	StepCancelMacro = "cancel_macro"
	StepPause       = "pause"
	StepResume      = "resume"
	StepTick        = "tick"
	StepSleep       = "sleep"
	StepDrain       = "drain"
)

// DefaultStepTimeout bounds tick and drain steps without an explicit timeout.
const DefaultStepTimeout = 5 * time.Second

// Assertion validates delivered commands or final run state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "delivered": the delivered commands are exactly Commands
	// - "delivered_contains": Command was delivered at least once
	// - "delivered_order": Commands were delivered in this order
	// - "delivered_count": Count commands were delivered (matching Command if set)
	// - "dropped_count": Count commands were dropped
	// - "running": Count runs were live after the last step
	// - "run_status": the journal recorded Status for Run
	Type string `yaml:"type"`

	// Command is a single command (delivered_contains, delivered_count).
	Command string `yaml:"command,omitempty"`

	// Commands is an ordered command list (delivered, delivered_order).
	Commands []string `yaml:"commands,omitempty"`

	// Count is the expected number (delivered_count, dropped_count, running).
	Count *int `yaml:"count,omitempty"`

	// Run is the run ID (run_status).
	Run string `yaml:"run,omitempty"`

	// Status is the expected final status (run_status).
	Status string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertDelivered         = "delivered"
	AssertDeliveredContains = "delivered_contains"
	AssertDeliveredOrder    = "delivered_order"
	AssertDeliveredCount    = "delivered_count"
	AssertDroppedCount      = "dropped_count"
	AssertRunning           = "running"
	AssertRunStatus         = "run_status"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the library path relative to basePath. An empty basePath
// leaves relative paths relative to the working directory.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the library path BEFORE validation
	if scenario.Library != "" && !filepath.IsAbs(scenario.Library) && basePath != "" {
		scenario.Library = filepath.Join(basePath, scenario.Library)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// Tree builds the scenario's macro tree: the library's nodes followed by the
// inline macros.
func (s *Scenario) Tree() (*macro.Tree, error) {
	tree := macro.NewTree()
	if s.Library != "" {
		loaded, err := library.Load(s.Library)
		if err != nil {
			return nil, err
		}
		tree = loaded
	}

	for _, spec := range s.Macros {
		id := spec.ID
		if id == "" {
			id = spec.Name
		}
		tree.Nodes = append(tree.Nodes, macro.MacroNode(&macro.Macro{
			ID:       id,
			Name:     spec.Name,
			Contents: spec.Contents,
		}))
	}

	if err := tree.Validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Library == "" && len(s.Macros) == 0 {
		return fmt.Errorf("library or macros is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Library != "" {
		if _, err := os.Stat(s.Library); os.IsNotExist(err) {
			return fmt.Errorf("library not found: %s", s.Library)
		}
	}

	for i, m := range s.Macros {
		if m.Name == "" {
			return fmt.Errorf("macros[%d]: name is required", i)
		}
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its action.
func validateStep(index int, st *Step) error {
	switch st.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case StepLogin, StepLogout:
	case StepSpawn, StepCancelMacro:
		if st.Macro == "" {
			return fmt.Errorf("steps[%d]: macro is required for %s", index, st.Action)
		}
	case StepCancel, StepPause, StepResume:
		if st.Run == "" {
			return fmt.Errorf("steps[%d]: run is required for %s", index, st.Action)
		}
	case StepTick:
		if st.Count < 0 {
			return fmt.Errorf("steps[%d]: count must not be negative", index)
		}
	case StepSleep:
		d, err := time.ParseDuration(st.Duration)
		if err != nil || d <= 0 {
			return fmt.Errorf("steps[%d]: sleep needs a positive duration, got %q", index, st.Duration)
		}
	case StepDrain:
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}

	if st.Timeout != "" {
		d, err := time.ParseDuration(st.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("steps[%d]: timeout must be a positive duration, got %q", index, st.Timeout)
		}
	}
	return nil
}

// timeout returns the step's timeout, or DefaultStepTimeout.
func (st Step) timeout() time.Duration {
	if d, err := time.ParseDuration(st.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultStepTimeout
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDelivered:
		if a.Commands == nil {
			return fmt.Errorf("assertions[%d]: commands list is required for delivered (use [] for none)", index)
		}
	case AssertDeliveredContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for delivered_contains", index)
		}
	case AssertDeliveredOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for delivered_order", index)
		}
	case AssertDeliveredCount, AssertDroppedCount, AssertRunning:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertRunStatus:
		if a.Run == "" {
			return fmt.Errorf("assertions[%d]: run is required for run_status", index)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for run_status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

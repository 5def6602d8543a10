package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// Struct field order fixes the JSON key order, so snapshots are
// byte-identical across runs.
type TraceSnapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Delivered    []string          `json:"delivered"`
	Runs         map[string]string `json:"runs"`
	Trace        []TraceEvent      `json:"trace"`
}

func newSnapshot(name string, result *Result) TraceSnapshot {
	delivered := result.Delivered()
	if delivered == nil {
		delivered = []string{}
	}
	return TraceSnapshot{
		ScenarioName: name,
		Delivered:    delivered,
		Runs:         result.Runs,
		Trace:        result.Trace,
	}
}

// MarshalSnapshot renders a result as the indented JSON stored in golden files.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	data, err := json.MarshalIndent(newSnapshot(name, result), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

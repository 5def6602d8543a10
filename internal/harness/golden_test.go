package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	path := filepath.Join("testdata", "scenarios", name+".yaml")
	scenario, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.NoError(t, err)
	return scenario
}

// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_GreetInOrder(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "greet_in_order"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_SpawnRequiresLogin(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "spawn_requires_login"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario := loadTestScenario(t, "greet_in_order")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "greet_in_order", result))
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "greet_in_order")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalSnapshot_Shape(t *testing.T) {
	r := NewResult()
	r.AddStepTrace(StepLogin, "", "")

	data, err := MarshalSnapshot("empty", r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "empty", decoded["scenario_name"])
	assert.Equal(t, []any{}, decoded["delivered"], "no deliveries render as an empty list, not null")
	assert.Equal(t, map[string]any{}, decoded["runs"])

	trace := decoded["trace"].([]any)
	require.Len(t, trace, 1)
	assert.Equal(t, map[string]any{"type": "step", "seq": float64(1), "action": "login"}, trace[0])
}

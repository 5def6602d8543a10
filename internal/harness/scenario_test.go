package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
macros:
  - id: greet
    name: Greet
    contents: /echo hi
steps:
  - action: login
  - action: spawn
    macro: Greet
  - action: drain
assertions:
  - type: delivered_contains
    command: /echo hi
`

// writeScenario writes content to a scenario file in a temp dir.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Macros, 1)
	assert.Equal(t, "greet", scenario.Macros[0].ID)
	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, StepSpawn, scenario.Steps[1].Action)
	assert.Equal(t, "Greet", scenario.Steps[1].Macro)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"top level typo", validScenario + "assertion: []\n"},
		{"step typo", `
name: s
description: d
macros: [{name: A, contents: /echo}]
steps:
  - action: spawn
    macros: A
assertions:
  - {type: running, count: 0}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to parse YAML")
		})
	}
}

func TestLoadScenario_Validation(t *testing.T) {
	const macros = "macros: [{name: A, contents: /echo}]\n"
	const steps = "steps: [{action: login}]\n"
	const assertions = "assertions: [{type: running, count: 0}]\n"

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "description: d\n" + macros + steps + assertions, "name is required"},
		{"missing description", "name: n\n" + macros + steps + assertions, "description is required"},
		{"no macros", "name: n\ndescription: d\n" + steps + assertions, "library or macros is required"},
		{"no steps", "name: n\ndescription: d\n" + macros + assertions, "steps list is required"},
		{"no assertions", "name: n\ndescription: d\n" + macros + steps, "assertions list is required"},
		{"missing library", "name: n\ndescription: d\nlibrary: /nope/lib.yaml\n" + steps + assertions, "library not found"},
		{"unnamed macro", "name: n\ndescription: d\nmacros: [{contents: /echo}]\n" + steps + assertions, "macros[0]: name is required"},
		{"step without action", "name: n\ndescription: d\n" + macros + "steps: [{macro: A}]\n" + assertions, "action is required"},
		{"unknown action", "name: n\ndescription: d\n" + macros + "steps: [{action: dance}]\n" + assertions, `unknown action "dance"`},
		{"spawn without macro", "name: n\ndescription: d\n" + macros + "steps: [{action: spawn}]\n" + assertions, "macro is required for spawn"},
		{"pause without run", "name: n\ndescription: d\n" + macros + "steps: [{action: pause}]\n" + assertions, "run is required for pause"},
		{"negative tick", "name: n\ndescription: d\n" + macros + "steps: [{action: tick, count: -1}]\n" + assertions, "count must not be negative"},
		{"sleep without duration", "name: n\ndescription: d\n" + macros + "steps: [{action: sleep}]\n" + assertions, "positive duration"},
		{"bad timeout", "name: n\ndescription: d\n" + macros + "steps: [{action: drain, timeout: soon}]\n" + assertions, "timeout must be a positive duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_AssertionTypes(t *testing.T) {
	header := `
name: n
description: d
macros: [{name: A, contents: /echo}]
steps: [{action: login}]
assertions:
`
	tests := []struct {
		name      string
		assertion string
		want      string
	}{
		{"delivered", "  - {type: delivered, commands: [/echo]}", ""},
		{"delivered none", "  - {type: delivered, commands: []}", ""},
		{"delivered missing commands", "  - {type: delivered}", "commands list is required for delivered"},
		{"contains", "  - {type: delivered_contains, command: /echo}", ""},
		{"contains missing command", "  - {type: delivered_contains}", "command is required"},
		{"order missing commands", "  - {type: delivered_order}", "commands list is required for delivered_order"},
		{"count zero allowed", "  - {type: delivered_count, count: 0}", ""},
		{"count missing", "  - {type: delivered_count}", "count is required"},
		{"count negative", "  - {type: dropped_count, count: -2}", "count must not be negative"},
		{"running", "  - {type: running, count: 1}", ""},
		{"run status", "  - {type: run_status, run: run-1, status: completed}", ""},
		{"run status missing status", "  - {type: run_status, run: run-1}", "status is required"},
		{"missing type", "  - {count: 1}", "type is required"},
		{"unknown type", "  - {type: trace_contains}", "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, header+tt.assertion+"\n"))
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.yaml"), []byte("nodes:\n  - name: A\n    contents: /echo a\n"), 0644))

	path := writeScenario(t, `
name: n
description: d
library: lib.yaml
steps: [{action: login}]
assertions: [{type: running, count: 0}]
`)

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib.yaml"), scenario.Library)

	_, err = LoadScenario(path)
	require.Error(t, err, "relative library path is not found without a base path")
}

func TestScenario_Tree(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.yaml")
	require.NoError(t, os.WriteFile(lib, []byte("nodes:\n  - name: A\n    id: a\n    contents: /echo a\n"), 0644))

	s := &Scenario{
		Library: lib,
		Macros:  []MacroSpec{{Name: "B", Contents: "/echo b"}},
	}
	tree, err := s.Tree()
	require.NoError(t, err)

	macros := tree.Macros()
	require.Len(t, macros, 2)
	assert.Equal(t, "a", macros[0].ID)
	assert.Equal(t, "B", macros[1].ID, "inline macros default their ID to the name")
}

func TestScenario_TreeDuplicateIDs(t *testing.T) {
	s := &Scenario{Macros: []MacroSpec{
		{ID: "x", Name: "A"},
		{ID: "x", Name: "B"},
	}}
	_, err := s.Tree()
	assert.Error(t, err)
}

func TestStepAndAssertionConstants(t *testing.T) {
	assert.Equal(t, "cancel_macro", StepCancelMacro)
	assert.Equal(t, "drain", StepDrain)
	assert.Equal(t, "delivered_order", AssertDeliveredOrder)
	assert.Equal(t, "run_status", AssertRunStatus)
}

// TestLoadExampleScenarios validates the scenario files in testdata/scenarios.
// These serve as documentation and regression tests.
func TestLoadExampleScenarios(t *testing.T) {
	tests := []struct {
		file           string
		wantSteps      int
		wantAssertions int
	}{
		{"greet_in_order.yaml", 3, 3},
		{"spawn_requires_login.yaml", 4, 3},
		{"loop_cancel.yaml", 5, 3},
		{"crafting_library.yaml", 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join("testdata", "scenarios", tt.file)
			scenario, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
			require.NoError(t, err)

			assert.Len(t, scenario.Steps, tt.wantSteps)
			assert.Len(t, scenario.Assertions, tt.wantAssertions)
		})
	}
}

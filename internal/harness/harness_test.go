package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PassingExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "single_child",
		Description: "one child bootstraps its parent",
		Steps: []Step{
			{Action: ActionConnect, Node: "a", HAID: "ha1", DBVersion: "1.0"},
			{Action: ActionPutNode, Node: "a/tor1", TunnelIPs: []string{"10.0.0.1"}},
		},
		Expect: []Expectation{
			{Type: ExpectNodeExists, Plane: "observed", Node: "ha:ha1"},
			{Type: ExpectDBVersion, Plane: "observed", Node: "ha:ha1", Value: "1.0"},
			{Type: ExpectTunnelIPs, Plane: "observed", Node: "ha:ha1/tor1", Values: []string{"10.0.0.1"}},
			{Type: ExpectConnectedChildren, Node: "ha:ha1", Values: []string{"a"}},
			{Type: ExpectEntityKeys, Plane: "observed", Node: "ha:ha1", Entity: "local-ucast-mac"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Positive(t, result.Revision)
	assert.Contains(t, result.Snapshot, "ha:ha1 global db_version=1.0 managers=tcp:a:6640\n")
	assert.Contains(t, result.Snapshot, "ha:ha1/tor1 physical-switch tunnel_ips=10.0.0.1\n")
}

func TestRun_FailingExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "every expectation is wrong",
		Steps: []Step{
			{Action: ActionConnect, Node: "a", HAID: "ha1", DBVersion: "1.0"},
		},
		Expect: []Expectation{
			{Type: ExpectNodeAbsent, Plane: "observed", Node: "ha:ha1"},
			{Type: ExpectDBVersion, Plane: "observed", Node: "ha:ha1", Value: "9.9"},
			{Type: ExpectConnectedChildren, Node: "ha:ha1", Values: []string{"a", "b"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected absent, got present")
	assert.Contains(t, result.Errors[1], `expected "9.9", got "1.0"`)
}

func TestRun_DeleteEntityPropagates(t *testing.T) {
	mac := &EntitySpec{Type: "local-ucast-mac", MAC: "00:00:00:00:00:01", LogicalSwitch: "ls1"}
	scenario := &Scenario{
		Name:        "delete_propagates",
		Description: "a record removed on a child leaves the parent and siblings",
		Steps: []Step{
			{Action: ActionConnect, Node: "a", HAID: "ha1"},
			{Action: ActionConnect, Node: "b", HAID: "ha1"},
			{Action: ActionPutEntity, Node: "a", Entity: mac},
			{Action: ActionDeleteEntity, Node: "a", Entity: mac},
		},
		Expect: []Expectation{
			{Type: ExpectEntityKeys, Node: "ha:ha1", Entity: "local-ucast-mac"},
			{Type: ExpectEntityKeys, Node: "b", Entity: "local-ucast-mac"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_LastChildDisconnect(t *testing.T) {
	scenario := &Scenario{
		Name:        "last_child",
		Description: "the parent's observed state goes with its last child",
		Steps: []Step{
			{Action: ActionConnect, Node: "a", HAID: "ha1"},
			{Action: ActionPutNode, Node: "a/tor1", TunnelIPs: []string{"10.0.0.1"}},
			{Action: ActionDisconnect, Node: "a"},
		},
		Expect: []Expectation{
			{Type: ExpectNodeAbsent, Plane: "observed", Node: "ha:ha1"},
			{Type: ExpectNodeAbsent, Plane: "observed", Node: "ha:ha1/tor1"},
			{Type: ExpectConnectedChildren, Node: "ha:ha1"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ScenarioFilesMatchGolden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

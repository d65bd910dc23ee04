package provenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionAccessorsForMethod(t *testing.T) {
	act, err := newAction([]byte(testRarefyActionYAML()), "test")
	require.NoError(t, err)

	assert.Equal(t, testTableActionID, act.ActionID())
	assert.Equal(t, "method", act.ActionType())
	assert.Equal(t, "rarefy", act.ActionName())
	assert.Equal(t, "feature-table", act.Plugin())
	assert.Equal(t, "rarefied_table", act.OutputName())
	assert.Empty(t, act.AliasOf())

	inputs := act.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "table", inputs[0].Name)
	assert.Equal(t, testImportUUID, inputs[0].UUID)
	assert.False(t, inputs[0].NoProvenance)

	params := act.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "sampling_depth", params[0].Name)
	assert.EqualValues(t, 100, params[0].Value)
	assert.Equal(t, "with_replacement", params[1].Name)
	assert.Equal(t, false, params[1].Value)
}

func TestActionAccessorsForImport(t *testing.T) {
	act, err := newAction([]byte(testImportActionYAML()), "test")
	require.NoError(t, err)

	assert.Equal(t, ActionTypeImport, act.ActionType())
	assert.Equal(t, "import", act.ActionName())
	assert.Equal(t, "framework", act.Plugin())
	assert.Equal(t, "BIOMV210DirFmt", act.Format())
	assert.Empty(t, act.Inputs())
}

func TestActionMetadataParameters(t *testing.T) {
	act, err := newAction([]byte(testVizActionYAML()), "test")
	require.NoError(t, err)

	files, artifactUUIDs := act.MetadataParameters()
	assert.Equal(t, map[string]string{"metadata": "metadata.tsv"}, files)
	assert.Empty(t, artifactUUIDs)
}

func TestActionMetadataParametersWithArtifacts(t *testing.T) {
	yaml := `action:
    type: method
    plugin: !ref 'environment:plugins:feature-table'
    action: filter_samples
    inputs:
    -   table: 89af91c0-033d-4e30-8ac4-f29a3b407dc1
    parameters:
    -   metadata: !metadata '415409a4-371d-4c69-9433-e3eaba5301b4:feature_metadata.tsv'
    output-name: filtered_table
execution:
    uuid: c51e1e7f-8b4e-4914-9aae-091b6c16ed3a
    runtime:
        start: '2020-01-14T17:21:58.298701-07:00'
        end: '2020-01-14T17:21:58.827295-07:00'
        duration: 528594 microseconds
environment:
    framework:
        version: 2019.10.0
`
	act, err := newAction([]byte(yaml), "test")
	require.NoError(t, err)

	files, artifactUUIDs := act.MetadataParameters()
	assert.Equal(t, map[string]string{"metadata": "feature_metadata.tsv"}, files)
	assert.Equal(t, []string{"415409a4-371d-4c69-9433-e3eaba5301b4"}, artifactUUIDs)
}

func TestActionCollectionInputsFlatten(t *testing.T) {
	yaml := `action:
    type: pipeline
    plugin: !ref 'environment:plugins:diversity'
    action: core_metrics
    inputs:
    -   tables:
        - 89af91c0-033d-4e30-8ac4-f29a3b407dc1
        - a35830e1-4535-47c6-aa23-be295a57ee1c
    -   optional_tree: null
    output-name: rarefied_table
execution:
    uuid: 3210fd0d-5e41-4b0e-a44e-9b8daa84b0cc
    runtime:
        start: '2020-01-14T17:21:58.298701-07:00'
        end: '2020-01-14T17:21:58.827295-07:00'
        duration: 528594 microseconds
environment:
    framework:
        version: 2019.10.0
`
	act, err := newAction([]byte(yaml), "test")
	require.NoError(t, err)

	inputs := act.Inputs()
	require.Len(t, inputs, 2, "nil optional inputs are skipped")
	assert.Equal(t, "tables_0", inputs[0].Name)
	assert.Equal(t, "89af91c0-033d-4e30-8ac4-f29a3b407dc1", inputs[0].UUID)
	assert.Equal(t, "tables_1", inputs[1].Name)
	assert.Equal(t, "a35830e1-4535-47c6-aa23-be295a57ee1c", inputs[1].UUID)
}

func TestActionNoProvenanceInput(t *testing.T) {
	yaml := `action:
    type: method
    plugin: !ref 'environment:plugins:feature-table'
    action: rarefy
    inputs:
    -   table: !no-provenance '34b07e56-27a5-4f03-ae57-ff427b50aaa1'
    output-name: rarefied_table
execution:
    uuid: c51e1e7f-8b4e-4914-9aae-091b6c16ed3a
    runtime:
        start: '2020-01-14T17:21:58.298701-07:00'
        end: '2020-01-14T17:21:58.827295-07:00'
        duration: 528594 microseconds
environment:
    framework:
        version: 2019.10.0
`
	act, err := newAction([]byte(yaml), "test")
	require.NoError(t, err)

	inputs := act.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "34b07e56-27a5-4f03-ae57-ff427b50aaa1", inputs[0].UUID)
	assert.True(t, inputs[0].NoProvenance)
}

func TestActionRuntime(t *testing.T) {
	act, err := newAction([]byte(testVizActionYAML()), "test")
	require.NoError(t, err)

	assert.Equal(t, "1 second, 975873 microseconds", act.RuntimeDuration())

	elapsed, err := act.Runtime()
	require.NoError(t, err)
	assert.Equal(t, 1975873*time.Microsecond, elapsed)
}

func TestActionSchemaRejectsMalformedRecords(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		expectedErr string
	}{
		{
			name:        "missing execution section",
			yaml:        "action:\n    type: method\nenvironment: {}\n",
			expectedErr: "schema validation",
		},
		{
			name:        "missing action type",
			yaml:        "action: {}\nexecution:\n    uuid: abc\n    runtime: {}\nenvironment: {}\n",
			expectedErr: "schema validation",
		},
		{
			name: "unknown action type",
			yaml: "action:\n    type: dance\nexecution:\n    uuid: abc\n    runtime: {}\nenvironment: {}\n",
			expectedErr: "schema validation",
		},
		{
			name:        "not a mapping",
			yaml:        "- just\n- a\n- list\n",
			expectedErr: "not a mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAction([]byte(tt.yaml), "test")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

package replay

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiime2/q2prov/pkg/provenance"
	"github.com/qiime2/q2prov/pkg/testutil"
)

func writeVizArchive(t *testing.T) string {
	t.Helper()
	dir := testutil.TempDir(t, "replay")
	return testutil.FixtureVizArchive().WriteTo(t, filepath.Join(dir, "beta_rarefaction.qzv"))
}

func parseVizArchive(t *testing.T) *provenance.DAG {
	t.Helper()
	d, err := provenance.ParseFile(writeVizArchive(t), provenance.DefaultConfig())
	require.NoError(t, err)
	return d
}

func assertMatches(t *testing.T, pattern, script string) {
	t.Helper()
	matched, err := regexp.MatchString(pattern, script)
	require.NoError(t, err)
	assert.True(t, matched, "pattern %q not found in script:\n%s", pattern, script)
}

func TestParseDriver(t *testing.T) {
	for _, valid := range []string{"python3", "cli"} {
		driver, err := ParseDriver(valid)
		require.NoError(t, err)
		assert.Equal(t, Driver(valid), driver)
	}

	_, err := ParseDriver("fortran")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown usage driver")
}

func TestRenderPythonScript(t *testing.T) {
	script, err := RenderDAG(parseVizArchive(t), DriverPython3)
	require.NoError(t, err)

	assertMatches(t, `from qiime2 import Artifact, Metadata`, script)
	assertMatches(t, `from qiime2\.plugins import diversity as diversity_actions`, script)
	assertMatches(t, `from qiime2\.plugins import feature_table as feature_table_actions`, script)

	// Commands appear in dependency order.
	assertMatches(t, `(?s)feature_table_0 = Artifact\.import_data\(\n`+
		`    'FeatureTable\[Frequency\]',\n`+
		`    <your data here>,`+
		`.*rarefied_table_0, = feature_table_actions\.rarefy\(`+
		`.*visualization_0, = diversity_actions\.beta_rarefaction\(`, script)

	assertMatches(t, `table=feature_table_0,`, script)
	assertMatches(t, `sampling_depth=100,`, script)
	assertMatches(t, `with_replacement=False,`, script)
	assertMatches(t, `metric='jaccard',`, script)

	// Metadata parameters render as placeholders naming the recorded file.
	assertMatches(t, `# The metadata below was recorded as 'metadata\.tsv'`, script)
	assertMatches(t, `metadata=Metadata\.load\('<your metadata filepath>'\),`, script)

	assertMatches(t, `# Checksums are valid for all archives\.`, script)
}

func TestRenderPythonLumpsManyOutputs(t *testing.T) {
	// Replaying several results of one execution collects them through a
	// single action_results variable instead of tuple unpacking.
	cmd := &command{
		actionType: "pipeline",
		plugin:     "diversity",
		actionName: "core_metrics",
		inputs:     []inputArg{{name: "table", varName: "table_0"}},
		outputs: []output{
			{name: "rarefied_table", varName: "rarefied_table_0"},
			{name: "observed_features_vector", varName: "observed_features_vector_0"},
			{name: "jaccard_distance_matrix", varName: "jaccard_distance_matrix_0"},
		},
	}
	script := renderPython(&plan{commands: []*command{cmd}})

	assertMatches(t, `(?s)action_results = diversity_actions\.core_metrics\(`+
		`.*rarefied_table_0 = action_results\.rarefied_table`+
		`.*observed_features_vector_0 = action_results\.observed_features_vector`+
		`.*jaccard_distance_matrix_0 = action_results\.jaccard_distance_matrix`, script)
}

func TestRenderPythonDoesNotLumpTwoOutputs(t *testing.T) {
	cmd := &command{
		actionType: "method",
		plugin:     "dada2",
		actionName: "denoise_single",
		inputs:     []inputArg{{name: "demultiplexed_seqs", varName: "demux_0"}},
		outputs: []output{
			{name: "table", varName: "table_0"},
			{name: "representative_sequences", varName: "representative_sequences_0"},
		},
	}
	script := renderPython(&plan{commands: []*command{cmd}})

	assertMatches(t, `table_0, representative_sequences_0 = dada2_actions\.denoise_single\(`, script)
	assert.NotContains(t, script, "action_results")
}

func TestRenderCLIScript(t *testing.T) {
	script, err := RenderDAG(parseVizArchive(t), DriverCLI)
	require.NoError(t, err)

	assertMatches(t, `(?s)qiime tools import \\\n`+
		`  --type 'FeatureTable\[Frequency\]' \\\n`+
		`  --input-path <your data here> \\\n`+
		`  --output-path feature-table-0\.qza`, script)

	assertMatches(t, `(?s)qiime feature-table rarefy \\\n`+
		`  --i-table feature-table-0\.qza \\\n`+
		`  --p-sampling-depth 100 \\\n`+
		`  --p-no-with-replacement \\\n`+
		`  --o-rarefied-table rarefied-table-0\.qza`, script)

	assertMatches(t, `(?s)qiime diversity beta-rarefaction \\\n`+
		`  --i-table rarefied-table-0\.qza`, script)
	assertMatches(t, `--m-metadata-file <your metadata filepath>`, script)
	assertMatches(t, `--o-visualization visualization-0\.qzv`, script)

	// The recorded metadata filename is referenced in a comment.
	assertMatches(t, `# --m-metadata-file was recorded as 'metadata\.tsv'`, script)
}

func TestRenderPipelineExecutionOnce(t *testing.T) {
	dir := testutil.TempDir(t, "replay-pipeline")
	testutil.FixturePipelineVizArchive().WriteTo(t, filepath.Join(dir, "jaccard_emperor.qzv"))
	testutil.FixturePipelineTableArchive().WriteTo(t, filepath.Join(dir, "rarefied_table.qza"))

	d, err := provenance.ParseDir(dir, provenance.DefaultConfig())
	require.NoError(t, err)

	script, err := RenderDAG(d, DriverPython3)
	require.NoError(t, err)

	// Both saved outputs came from one pipeline execution, so the pipeline
	// renders once with both results unpacked from the same call.
	assert.Equal(t, 1, strings.Count(script, "diversity_actions.core_metrics("))
	assertMatches(t, `rarefied_table_0, jaccard_emperor_0 = diversity_actions\.core_metrics\(`, script)
	assertMatches(t, `table=feature_table_0,`, script)

	// The actions the pipeline ran internally are not replayed.
	assert.NotContains(t, script, "emperor_actions")
	assert.NotContains(t, script, "feature_table_actions.rarefy(")
}

func TestRenderPipelineHidesInnerResults(t *testing.T) {
	dir := testutil.TempDir(t, "replay-pipeline-cli")
	fp := testutil.FixturePipelineVizArchive().WriteTo(t, filepath.Join(dir, "jaccard_emperor.qzv"))

	d, err := provenance.ParseFile(fp, provenance.DefaultConfig())
	require.NoError(t, err)

	script, err := RenderDAG(d, DriverCLI)
	require.NoError(t, err)

	assertMatches(t, `(?s)qiime diversity core-metrics \\\n`+
		`  --i-table feature-table-0\.qza \\\n`+
		`  --p-sampling-depth 100 \\\n`+
		`  --o-jaccard-emperor jaccard-emperor-0\.qzv`, script)

	assert.NotContains(t, script, "qiime emperor plot")
	assert.NotContains(t, script, testutil.FixtureInnerVizUUID)
	assert.NotContains(t, script, testutil.FixtureInnerTableUUID)
}

func TestNoProvenanceInputsRenderWarnings(t *testing.T) {
	orphanUUID := "34b07e56-27a5-4f03-ae57-ff427b50aaa1"
	actionYAML := `action:
    type: method
    plugin: !ref 'environment:plugins:feature-table'
    action: rarefy
    inputs:
    -   table: !no-provenance '` + orphanUUID + `'
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
	dir := testutil.TempDir(t, "replay-noprov")
	fp := testutil.NewArchiveBuilder(testutil.FixtureTableUUID).
		WithVersion("5", testutil.FixtureFramework).
		WithFile("metadata.yaml", testutil.MetadataYAML(testutil.FixtureTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("provenance/metadata.yaml", testutil.MetadataYAML(testutil.FixtureTableUUID, "FeatureTable[Frequency]", "BIOMV210DirFmt")).
		WithFile("provenance/VERSION", testutil.VersionFileContents("5", testutil.FixtureFramework)).
		WithFile("provenance/action/action.yaml", actionYAML).
		WithFile("provenance/citations.bib", testutil.FixtureCitationsBib).
		WithChecksums().
		WriteTo(t, filepath.Join(dir, "partial.qza"))

	d, err := provenance.ParseFile(fp, provenance.DefaultConfig())
	require.NoError(t, err)

	pyScript, err := RenderDAG(d, DriverPython3)
	require.NoError(t, err)
	assertMatches(t, `# Replay cannot reproduce results whose provenance was not recorded\.`, pyScript)
	assertMatches(t, `no_provenance_0 = Artifact\.load\('<your data here>'\)  # `+orphanUUID, pyScript)
	assertMatches(t, `table=no_provenance_0,  # no provenance recorded for this input`, pyScript)

	cliScript, err := RenderDAG(d, DriverCLI)
	require.NoError(t, err)
	assertMatches(t, `#   no-provenance-0\.qza  \(`+orphanUUID+`\)`, cliScript)
	assertMatches(t, `--i-table no-provenance-0\.qza`, cliScript)
}

func TestReplayWritesScript(t *testing.T) {
	dir := testutil.TempDir(t, "replay-out")
	outPath := filepath.Join(dir, "replay.py")

	err := Replay(writeVizArchive(t), outPath, DriverPython3, provenance.DefaultConfig())
	require.NoError(t, err)

	contents, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "from qiime2 import Artifact")
}

func TestReplayCitations(t *testing.T) {
	dir := testutil.TempDir(t, "replay-cite")
	outPath := filepath.Join(dir, "citations.bib")

	err := ReplayCitations(writeVizArchive(t), outPath, provenance.DefaultConfig())
	require.NoError(t, err)

	contents, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "@article{"+testutil.FixtureCitationKey+",")
	assert.Contains(t, string(contents), "journal = {Nature Biotechnology}")
}

func TestCollectCitationsDeduplicates(t *testing.T) {
	d := parseVizArchive(t)
	// Every node in the fixture carries the same citation.
	citations := CollectCitations(d)
	assert.Equal(t, []string{testutil.FixtureCitationKey}, citations.Keys())
}

package provenance

import (
	"path/filepath"
	"testing"

	"github.com/qiime2/q2prov/pkg/testutil"
)

// Aliases for the canonical fixture history, kept short for readability.
const (
	testVizUUID    = testutil.FixtureVizUUID
	testTableUUID  = testutil.FixtureTableUUID
	testImportUUID = testutil.FixtureImportUUID

	testVizActionID   = testutil.FixtureVizActionID
	testTableActionID = testutil.FixtureTableActionID

	testFrameworkVersion = testutil.FixtureFramework

	testCitationsBib     = testutil.FixtureCitationsBib
	testStudyMetadataTSV = testutil.FixtureStudyMetadataTSV
)

func metadataYAML(uuid, semanticType, format string) string {
	return testutil.MetadataYAML(uuid, semanticType, format)
}

func testImportActionYAML() string { return testutil.FixtureImportActionYAML() }
func testRarefyActionYAML() string { return testutil.FixtureRarefyActionYAML() }
func testVizActionYAML() string    { return testutil.FixtureVizActionYAML() }

// writeVizArchive writes the standard fixture archive into a temp dir and
// returns its path.
func writeVizArchive(t *testing.T) string {
	t.Helper()
	dir := testutil.TempDir(t, "provenance")
	return testutil.FixtureVizArchive().WriteTo(t, filepath.Join(dir, "beta_rarefaction.qzv"))
}

// writeV0Archive writes an archive that predates provenance tracking.
func writeV0Archive(t *testing.T, rootUUID string) string {
	t.Helper()
	dir := testutil.TempDir(t, "provenance-v0")
	return testutil.FixtureV0Archive(rootUUID).WriteTo(t, filepath.Join(dir, "table_v0.qza"))
}

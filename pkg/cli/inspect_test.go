package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiime2/q2prov/pkg/provenance"
	"github.com/qiime2/q2prov/pkg/testutil"
)

func TestInspectCommand(t *testing.T) {
	dir := testutil.TempDir(t, "cli-inspect")
	archivePath := testutil.FixtureVizArchive().WriteTo(t, filepath.Join(dir, "viz.qzv"))

	cmd := NewInspectCommand()
	cmd.SetArgs([]string{archivePath})
	require.NoError(t, cmd.Execute())
}

func TestInspectCommandMissingArchive(t *testing.T) {
	cmd := NewInspectCommand()
	cmd.SetArgs([]string{"/nonexistent/viz.qzv"})
	require.Error(t, cmd.Execute())
}

func TestRunInspectWithoutChecksumValidation(t *testing.T) {
	dir := testutil.TempDir(t, "cli-inspect-optout")
	archivePath := testutil.FixtureVizArchive().WriteTo(t, filepath.Join(dir, "viz.qzv"))

	cfg := provenance.DefaultConfig()
	cfg.PerformChecksumValidation = false
	assert.NoError(t, runInspect(archivePath, cfg))
}

func TestCitationsCommand(t *testing.T) {
	dir := testutil.TempDir(t, "cli-citations")
	archivePath := testutil.FixtureVizArchive().WriteTo(t, filepath.Join(dir, "viz.qzv"))
	outPath := filepath.Join(dir, "citations.bib")

	cmd := NewCitationsCommand()
	cmd.SetArgs([]string{archivePath, "--output", outPath})
	require.NoError(t, cmd.Execute())
}

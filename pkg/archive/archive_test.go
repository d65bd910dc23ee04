//go:build !integration

package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiime2/q2prov/pkg/testutil"
)

const testRootUUID = "8854f06a-872f-4762-87b7-4541d0f283d4"

func writeArchive(t *testing.T, b *testutil.ArchiveBuilder) string {
	t.Helper()
	dir := testutil.TempDir(t, "archive-*")
	return b.WriteTo(t, filepath.Join(dir, "test.qzv"))
}

func minimalBuilder() *testutil.ArchiveBuilder {
	return testutil.NewArchiveBuilder(testRootUUID).
		WithVersion("5", "2020.6.0.dev0").
		WithFile("metadata.yaml", "uuid: "+testRootUUID+"\ntype: Visualization\nformat: null\n")
}

func TestOpenSmoke(t *testing.T) {
	a, err := Open(writeArchive(t, minimalBuilder()))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, testRootUUID, a.RootUUID())
	assert.True(t, a.Contains(testRootUUID+"/VERSION"))
	assert.False(t, a.Contains(testRootUUID+"/nope.yaml"))
	assert.Len(t, a.Names(), 2)
}

func TestOpenNonexistentPath(t *testing.T) {
	_, err := Open(filepath.Join(testutil.TempDir(t, "archive-*"), "not_a_filepath.qza"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_filepath.qza")
}

func TestOpenDirectory(t *testing.T) {
	dir := testutil.TempDir(t, "archive-*")
	_, err := Open(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestOpenNotAZip(t *testing.T) {
	dir := testutil.TempDir(t, "archive-*")
	fp := filepath.Join(dir, "not_a_zip.txt")
	require.NoError(t, os.WriteFile(fp, []byte("This is just text.\n"), 0o644))

	_, err := Open(fp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip")
}

func TestOpenRootNotAUUID(t *testing.T) {
	fp := writeArchive(t, testutil.NewArchiveBuilder("gerbil").
		WithVersion("5", "2020.6.0.dev0"))

	_, err := Open(fp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a UUID")
}

func TestReadFile(t *testing.T) {
	a, err := Open(writeArchive(t, minimalBuilder()))
	require.NoError(t, err)
	defer a.Close()

	data, err := a.ReadFile(testRootUUID + "/VERSION")
	require.NoError(t, err)
	assert.Equal(t, "QIIME 2\narchive: 5\nframework: 2020.6.0.dev0\n", string(data))

	_, err = a.ReadFile(testRootUUID + "/missing")
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	a, err := Open(writeArchive(t, minimalBuilder()))
	require.NoError(t, err)
	defer a.Close()

	info, err := ParseVersion(a)
	require.NoError(t, err)
	assert.Equal(t, "5", info.ArchiveVersion)
	assert.Equal(t, "2020.6.0.dev0", info.FrameworkVersion)
}

func TestParseVersionMissing(t *testing.T) {
	fp := writeArchive(t, testutil.NewArchiveBuilder(testRootUUID).
		WithFile("metadata.yaml", "uuid: "+testRootUUID+"\n"))
	a, err := Open(fp)
	require.NoError(t, err)
	defer a.Close()

	_, err = ParseVersion(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestParseVersionMalformed(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad header", "QIIME 3\narchive: 5\nframework: 2020.6.0\n"},
		{"missing framework line", "QIIME 2\narchive: 5\n"},
		{"extra line", "QIIME 2\narchive: 5\nframework: 2020.6.0\nbonus: line\n"},
		{"archive version not numeric", "QIIME 2\narchive: five\nframework: 2020.6.0\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := writeArchive(t, testutil.NewArchiveBuilder(testRootUUID).
				WithFile("VERSION", tt.contents))
			a, err := Open(fp)
			require.NoError(t, err)
			defer a.Close()

			_, err = ParseVersion(a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "out of spec")
		})
	}
}

func TestNonRootUUID(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			"action yaml",
			testRootUUID + "/provenance/artifacts/706b6bce-8f19-4ae9-b8f5-21b14a814a1b/action/action.yaml",
			"706b6bce-8f19-4ae9-b8f5-21b14a814a1b",
		},
		{
			"metadata yaml",
			testRootUUID + "/provenance/artifacts/706b6bce-8f19-4ae9-b8f5-21b14a814a1b/metadata.yaml",
			"706b6bce-8f19-4ae9-b8f5-21b14a814a1b",
		},
		{
			"version file",
			testRootUUID + "/provenance/artifacts/706b6bce-8f19-4ae9-b8f5-21b14a814a1b/VERSION",
			"706b6bce-8f19-4ae9-b8f5-21b14a814a1b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NonRootUUID(tt.path))
		})
	}
}

package testutil

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"testing"
)

// ArchiveBuilder assembles a QIIME 2 result archive (a zip file whose member
// paths all begin with the root result's UUID) for use as a test fixture.
// Files are added by path relative to the root UUID directory.
type ArchiveBuilder struct {
	root  string
	files map[string]string
}

// NewArchiveBuilder creates a builder for an archive rooted at rootUUID.
func NewArchiveBuilder(rootUUID string) *ArchiveBuilder {
	return &ArchiveBuilder{
		root:  rootUUID,
		files: make(map[string]string),
	}
}

// Root returns the root UUID the builder was created with.
func (b *ArchiveBuilder) Root() string {
	return b.root
}

// WithFile adds a file with the given content at a path relative to the root
// UUID directory. Adding the same path twice overwrites the earlier content.
func (b *ArchiveBuilder) WithFile(relPath, content string) *ArchiveBuilder {
	b.files[relPath] = content
	return b
}

// WithVersion adds a root-level VERSION file for the given archive format and
// framework versions.
func (b *ArchiveBuilder) WithVersion(archiveVersion, frameworkVersion string) *ArchiveBuilder {
	return b.WithFile("VERSION", VersionFileContents(archiveVersion, frameworkVersion))
}

// WithChecksums computes MD5 digests for every file added so far and writes
// a root-level checksums.md5 in md5sum format. Call it last.
func (b *ArchiveBuilder) WithChecksums() *ArchiveBuilder {
	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	sort.Strings(names)

	var sums strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sums, "%x  %s\n", md5.Sum([]byte(b.files[name])), name)
	}
	return b.WithFile("checksums.md5", sums.String())
}

// Build returns the zip archive as a byte slice.
func (b *ArchiveBuilder) Build(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		w, err := zw.Create(path.Join(b.root, name))
		if err != nil {
			t.Fatalf("failed to add %s to archive: %v", name, err)
		}
		if _, err := w.Write([]byte(b.files[name])); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finalize archive: %v", err)
	}
	return buf.Bytes()
}

// WriteTo builds the archive and writes it to the given path.
func (b *ArchiveBuilder) WriteTo(t *testing.T, fp string) string {
	t.Helper()
	if err := os.WriteFile(fp, b.Build(t), 0o644); err != nil {
		t.Fatalf("failed to write archive to %s: %v", fp, err)
	}
	return fp
}

// VersionFileContents renders a VERSION file body for the given archive
// format and framework versions.
func VersionFileContents(archiveVersion, frameworkVersion string) string {
	return fmt.Sprintf("QIIME 2\narchive: %s\nframework: %s\n", archiveVersion, frameworkVersion)
}

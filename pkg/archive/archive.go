// Package archive provides read access to QIIME 2 result archives.
//
// A result archive (.qza or .qzv) is a zip file whose member paths all begin
// with the UUID of the root result, e.g.
//
//	<root-uuid>/VERSION
//	<root-uuid>/metadata.yaml
//	<root-uuid>/provenance/artifacts/<uuid>/action/action.yaml
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/qiime2/q2prov/pkg/logger"
)

var archiveLog = logger.New("archive:archive")

// Archive is an open QIIME 2 result archive.
type Archive struct {
	// Path is the filesystem path the archive was opened from.
	Path string

	zr      *zip.ReadCloser
	members map[string]*zip.File
	names   []string
	root    string
}

// Open opens the result archive at path. It rejects directories and files
// that are not zip archives.
func Open(path string) (*Archive, error) {
	archiveLog.Printf("Opening archive: %s", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("expected an archive file, got a directory: %s", path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%s is not a readable zip archive: %w", path, err)
	}

	a := &Archive{
		Path:    path,
		zr:      zr,
		members: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue // directory entries carry no data
		}
		a.members[f.Name] = f
		a.names = append(a.names, f.Name)
	}
	sort.Strings(a.names)

	if err := a.findRoot(); err != nil {
		zr.Close()
		return nil, err
	}
	archiveLog.Printf("Opened archive %s with root %s and %d members", path, a.root, len(a.names))
	return a, nil
}

// Close releases the underlying zip reader.
func (a *Archive) Close() error {
	return a.zr.Close()
}

// RootUUID returns the UUID of the archive's root result.
func (a *Archive) RootUUID() string {
	return a.root
}

// Names returns the sorted member paths of the archive, excluding directory
// entries.
func (a *Archive) Names() []string {
	return a.names
}

// Contains reports whether the archive has a member with the given path.
func (a *Archive) Contains(name string) bool {
	_, ok := a.members[name]
	return ok
}

// ReadFile returns the contents of the named member.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, ok := a.members[name]
	if !ok {
		return nil, fmt.Errorf("no such file in archive %s: %s", a.Path, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s from %s: %w", name, a.Path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s from %s: %w", name, a.Path, err)
	}
	return data, nil
}

// findRoot infers the root UUID from member paths. Every member must live
// under a single top-level UUID directory.
func (a *Archive) findRoot() error {
	if len(a.names) == 0 {
		return fmt.Errorf("archive %s is empty", a.Path)
	}

	roots := make(map[string]bool)
	for _, name := range a.names {
		top, _, found := strings.Cut(name, "/")
		if !found {
			return fmt.Errorf("malformed archive %s: member %s is not inside a root directory", a.Path, name)
		}
		roots[top] = true
	}
	if len(roots) != 1 {
		return fmt.Errorf("malformed archive %s: expected one root directory, found %d", a.Path, len(roots))
	}

	for root := range roots {
		if _, err := uuid.Parse(root); err != nil {
			return fmt.Errorf("malformed archive %s: root directory %q is not a UUID: %w", a.Path, root, err)
		}
		a.root = root
	}
	return nil
}

// NonRootUUID extracts the result UUID from a provenance member path below
// provenance/artifacts/. For action.yaml paths the UUID is two levels up;
// for everything else it is the parent directory.
func NonRootUUID(memberPath string) string {
	parts := strings.Split(memberPath, "/")
	if len(parts) < 2 {
		return ""
	}
	if parts[len(parts)-1] == "action.yaml" && len(parts) >= 3 {
		return parts[len(parts)-3]
	}
	return parts[len(parts)-2]
}

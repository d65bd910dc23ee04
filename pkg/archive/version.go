package archive

import (
	"fmt"
	"path"
	"regexp"

	"github.com/qiime2/q2prov/pkg/logger"
)

var versionLog = logger.New("archive:version")

// versionPattern matches a well-formed VERSION file:
//
//	QIIME 2
//	archive: <format version>
//	framework: <framework version>
//
// Anything else, including extra lines, is out of spec.
var versionPattern = regexp.MustCompile(`^QIIME 2\narchive: (\d+)\nframework: (\S+)\n?$`)

// VersionInfo holds the format and framework versions recorded in a VERSION
// file.
type VersionInfo struct {
	// ArchiveVersion is the archive format version, "0" through "5".
	ArchiveVersion string
	// FrameworkVersion is the framework release that wrote the archive,
	// e.g. "2020.6.0.dev0".
	FrameworkVersion string
}

// ParseVersion reads and parses the root VERSION file of the archive.
func ParseVersion(a *Archive) (VersionInfo, error) {
	return ParseVersionAt(a, path.Join(a.RootUUID(), "VERSION"))
}

// ParseVersionAt reads and parses the VERSION file at the given member path.
// Provenance records a VERSION file per result, so non-root results are
// versioned independently of the archive that contains them.
func ParseVersionAt(a *Archive, memberPath string) (VersionInfo, error) {
	versionLog.Printf("Parsing VERSION at %s", memberPath)
	if !a.Contains(memberPath) {
		return VersionInfo{}, fmt.Errorf(
			"malformed archive: VERSION file misplaced or nonexistent at %s in %s", memberPath, a.Path)
	}
	data, err := a.ReadFile(memberPath)
	if err != nil {
		return VersionInfo{}, err
	}
	return parseVersionContents(data, memberPath)
}

func parseVersionContents(data []byte, source string) (VersionInfo, error) {
	m := versionPattern.FindSubmatch(data)
	if m == nil {
		return VersionInfo{}, fmt.Errorf("malformed archive: VERSION file at %s is out of spec", source)
	}
	info := VersionInfo{
		ArchiveVersion:   string(m[1]),
		FrameworkVersion: string(m[2]),
	}
	versionLog.Printf("Parsed VERSION: archive=%s framework=%s", info.ArchiveVersion, info.FrameworkVersion)
	return info, nil
}

package provenance

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/checksum"
	"github.com/qiime2/q2prov/pkg/logger"
)

var parserLog = logger.New("provenance:parser")

// Config controls archive parsing.
type Config struct {
	// PerformChecksumValidation enables integrity checking against
	// checksums.md5 where the archive format supports it.
	PerformChecksumValidation bool
	// ParseStudyMetadata enables parsing of recorded study metadata TSV
	// files into tables.
	ParseStudyMetadata bool
	// Verbose enables extra user-facing output in commands.
	Verbose bool
}

// DefaultConfig returns the standard parsing configuration: checksums are
// validated, study metadata is skipped.
func DefaultConfig() Config {
	return Config{PerformChecksumValidation: true}
}

// ParserResults holds everything parsed from one archive.
type ParserResults struct {
	// RootMetadata identifies the archive's root result.
	RootMetadata ResultMetadata
	// Contents maps result UUIDs to parsed nodes.
	Contents map[string]*Node
	// ValidationCode reports archive integrity.
	ValidationCode checksum.ValidationCode
	// ChecksumDiff details integrity failures; nil unless validation ran
	// and found checksums.md5 present (or it was missing entirely).
	ChecksumDiff *checksum.Diff
	// Warnings holds non-fatal conditions encountered while parsing.
	Warnings []string
}

// formatSpec describes one archive format version.
type formatSpec struct {
	version string
	// hasActionRecords is true for formats that record action.yaml.
	hasActionRecords bool
	// hasCitationRecords is true for formats that record citations.bib.
	hasCitationRecords bool
	// hasChecksums is true for formats with a root checksums.md5.
	hasChecksums bool
}

// expectedNodeFiles lists the files every node of this format must provide,
// relative to the node's provenance directory.
func (s formatSpec) expectedNodeFiles() []string {
	files := []string{"metadata.yaml", "VERSION"}
	if s.hasActionRecords {
		files = append(files, "action/action.yaml")
	}
	if s.hasCitationRecords {
		files = append(files, "citations.bib")
	}
	return files
}

// formatRegistry maps archive format versions to their specs. New format
// versions belong here.
var formatRegistry = map[string]formatSpec{
	"0": {version: "0"},
	"1": {version: "1", hasActionRecords: true},
	"2": {version: "2", hasActionRecords: true},
	"3": {version: "3", hasActionRecords: true},
	"4": {version: "4", hasActionRecords: true, hasCitationRecords: true},
	"5": {version: "5", hasActionRecords: true, hasCitationRecords: true, hasChecksums: true},
}

// ParseArchive parses all provenance records in an open archive.
func ParseArchive(a *archive.Archive, cfg Config) (*ParserResults, error) {
	info, err := archive.ParseVersion(a)
	if err != nil {
		return nil, err
	}
	spec, ok := formatRegistry[info.ArchiveVersion]
	if !ok {
		return nil, fmt.Errorf("unsupported archive format version %s in %s", info.ArchiveVersion, a.Path)
	}
	parserLog.Printf("Parsing %s as format v%s", a.Path, spec.version)

	results := &ParserResults{Contents: make(map[string]*Node)}
	results.ValidationCode, results.ChecksumDiff = validateForSpec(cfg, spec, a, results)

	if spec.version == "0" {
		return parseV0(cfg, a, results)
	}
	return parseProvenanceTree(cfg, spec, a, results)
}

// validateForSpec applies the format-appropriate integrity check.
func validateForSpec(cfg Config, spec formatSpec, a *archive.Archive, results *ParserResults) (checksum.ValidationCode, *checksum.Diff) {
	if !cfg.PerformChecksumValidation {
		return checksum.ValidationOptOut, nil
	}
	if !spec.hasChecksums {
		return checksum.PredatesChecksums, nil
	}
	code, diff, err := checksum.Validate(a)
	if err != nil {
		results.Warnings = append(results.Warnings,
			fmt.Sprintf("checksum validation failed to run: %v", err))
		return checksum.Invalid, nil
	}
	if diff == nil {
		results.Warnings = append(results.Warnings,
			fmt.Sprintf("archive %s has no checksums.md5, provenance may be false", a.Path))
	}
	return code, diff
}

// parseV0 handles archives that predate provenance tracking: only the root
// result's identity is recoverable.
func parseV0(cfg Config, a *archive.Archive, results *ParserResults) (*ParserResults, error) {
	root := a.RootUUID()
	results.Warnings = append(results.Warnings, fmt.Sprintf(
		"artifact %s was created prior to provenance tracking, provenance data will be incomplete", root))

	md, err := parseResultMetadata(a, path.Join(root, "metadata.yaml"))
	if err != nil {
		return nil, fmt.Errorf("malformed archive: root metadata.yaml misplaced or nonexistent in %s: %w", a.Path, err)
	}
	info, err := archive.ParseVersion(a)
	if err != nil {
		return nil, err
	}

	results.RootMetadata = md
	results.Contents[root] = &Node{
		Metadata:         md,
		ArchiveVersion:   info.ArchiveVersion,
		FrameworkVersion: info.FrameworkVersion,
	}
	return results, nil
}

// parseProvenanceTree walks <root>/provenance/... and parses one node per
// result UUID found there.
func parseProvenanceTree(cfg Config, spec formatSpec, a *archive.Archive, results *ParserResults) (*ParserResults, error) {
	root := a.RootUUID()

	rootMD, err := parseResultMetadata(a, path.Join(root, "provenance", "metadata.yaml"))
	if err != nil {
		return nil, fmt.Errorf("malformed archive: root provenance metadata.yaml misplaced or nonexistent in %s: %w", a.Path, err)
	}
	results.RootMetadata = rootMD

	prefixes := provenancePrefixes(a)
	parserLog.Printf("Found %d provenance node directories in %s", len(prefixes), a.Path)

	for _, prefix := range prefixes {
		nodeUUID := root
		if strings.Contains(prefix, "/artifacts/") {
			nodeUUID = path.Base(prefix)
		}
		if _, done := results.Contents[nodeUUID]; done {
			continue
		}

		// Each node declares its own format version, so the expected
		// file set is resolved per node.
		nodeInfo, err := archive.ParseVersionAt(a, path.Join(prefix, "VERSION"))
		if err != nil {
			return nil, err
		}
		nodeSpec, ok := formatRegistry[nodeInfo.ArchiveVersion]
		if !ok {
			return nil, fmt.Errorf("unsupported archive format version %s for node %s in %s",
				nodeInfo.ArchiveVersion, nodeUUID, a.Path)
		}

		if err := requireNodeFiles(a, prefix, nodeUUID, nodeSpec, results); err != nil {
			return nil, err
		}

		files := nodeFiles{
			prefix:   prefix,
			metadata: path.Join(prefix, "metadata.yaml"),
			version:  path.Join(prefix, "VERSION"),
		}
		if nodeSpec.hasActionRecords {
			files.action = path.Join(prefix, "action", "action.yaml")
		}
		if nodeSpec.hasCitationRecords {
			files.citations = path.Join(prefix, "citations.bib")
		}

		node, err := parseNode(cfg, a, files)
		if err != nil {
			return nil, err
		}
		results.Contents[nodeUUID] = node
	}

	if len(results.Contents) == 0 {
		return nil, fmt.Errorf("malformed archive: no provenance records found in %s", a.Path)
	}
	return results, nil
}

// provenancePrefixes returns the sorted set of directories holding
// provenance records: the root provenance directory plus one directory per
// ancestor under provenance/artifacts/.
func provenancePrefixes(a *archive.Archive) []string {
	root := a.RootUUID()
	rootPrefix := path.Join(root, "provenance")
	artifactsPrefix := rootPrefix + "/artifacts/"

	seen := map[string]bool{}
	for _, name := range a.Names() {
		if !strings.HasPrefix(name, rootPrefix+"/") {
			continue
		}
		if !strings.HasPrefix(name, artifactsPrefix) {
			seen[rootPrefix] = true
			continue
		}
		rest := strings.TrimPrefix(name, artifactsPrefix)
		nodeUUID, _, found := strings.Cut(rest, "/")
		if found {
			seen[path.Join(artifactsPrefix, nodeUUID)] = true
		}
	}

	prefixes := make([]string, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

// requireNodeFiles verifies that every file the node's format expects is
// present, downgrading the validation code and failing hard when files are
// missing, since absent records mean the provenance cannot be trusted.
func requireNodeFiles(a *archive.Archive, prefix, nodeUUID string, spec formatSpec, results *ParserResults) error {
	var missing []string
	for _, rel := range spec.expectedNodeFiles() {
		if !a.Contains(path.Join(prefix, rel)) {
			missing = append(missing, rel)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	results.ValidationCode = checksum.Invalid
	return fmt.Errorf(
		"malformed archive: %s for node %s misplaced or nonexistent in %s; archive %s may be corrupt or provenance may be false",
		strings.Join(missing, ", "), nodeUUID, a.Path, a.RootUUID())
}

// Package checksum validates the integrity of result archives against the
// root-level checksums.md5 manifest written by archive format v5 and later.
package checksum

import (
	"crypto/md5"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/logger"
)

var checksumLog = logger.New("checksum:checksum")

// ValidationCode describes how trustworthy an archive's provenance is.
// Codes are ordered from worst to best so that combining results from many
// archives can keep the minimum.
type ValidationCode int

const (
	// Invalid means checksums were checked and did not match, or expected
	// provenance files were missing.
	Invalid ValidationCode = iota
	// ValidationOptOut means the user disabled checksum validation.
	ValidationOptOut
	// PredatesChecksums means the archive format is older than checksum
	// support, so integrity cannot be verified.
	PredatesChecksums
	// Valid means every recorded checksum matched the archive contents.
	Valid
)

// String implements fmt.Stringer.
func (c ValidationCode) String() string {
	switch c {
	case Invalid:
		return "INVALID"
	case ValidationOptOut:
		return "VALIDATION_OPTOUT"
	case PredatesChecksums:
		return "PREDATES_CHECKSUMS"
	case Valid:
		return "VALID"
	default:
		return fmt.Sprintf("ValidationCode(%d)", int(c))
	}
}

// Worst returns the lower (less trustworthy) of two codes.
func Worst(a, b ValidationCode) ValidationCode {
	if a < b {
		return a
	}
	return b
}

// ChangedDigests holds the recorded and observed digest for a modified file.
type ChangedDigests struct {
	Expected string
	Observed string
}

// Diff captures the difference between the checksums.md5 manifest and the
// archive's actual contents. Paths are relative to the archive root UUID.
type Diff struct {
	// Added lists files present in the archive but missing from the
	// manifest, with their observed digests.
	Added map[string]string
	// Removed lists files present in the manifest but missing from the
	// archive, with their recorded digests.
	Removed map[string]string
	// Changed lists files whose observed digest differs from the manifest.
	Changed map[string]ChangedDigests
}

// IsEmpty reports whether the diff records no differences.
func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Summary renders a short human-readable account of the diff, with file
// names sorted for stable output.
func (d *Diff) Summary() string {
	var b strings.Builder
	for _, name := range sortedKeys(d.Added) {
		fmt.Fprintf(&b, "added: %s\n", name)
	}
	for _, name := range sortedKeys(d.Removed) {
		fmt.Fprintf(&b, "removed: %s\n", name)
	}
	changed := make([]string, 0, len(d.Changed))
	for name := range d.Changed {
		changed = append(changed, name)
	}
	sort.Strings(changed)
	for _, name := range changed {
		fmt.Fprintf(&b, "changed: %s (expected %s, observed %s)\n",
			name, d.Changed[name].Expected, d.Changed[name].Observed)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks every archive member against the root checksums.md5
// manifest. It returns Valid with an empty diff when everything matches,
// Invalid with a populated diff on any mismatch, and Invalid with a nil diff
// when the manifest itself is missing.
func Validate(a *archive.Archive) (ValidationCode, *Diff, error) {
	manifestPath := path.Join(a.RootUUID(), "checksums.md5")
	checksumLog.Printf("Validating archive %s against %s", a.Path, manifestPath)

	if !a.Contains(manifestPath) {
		checksumLog.Print("checksums.md5 missing, archive is invalid")
		return Invalid, nil, nil
	}

	manifestData, err := a.ReadFile(manifestPath)
	if err != nil {
		return Invalid, nil, err
	}
	expected, err := ParseManifest(string(manifestData))
	if err != nil {
		return Invalid, nil, fmt.Errorf("malformed checksums.md5 in %s: %w", a.Path, err)
	}

	observed := make(map[string]string)
	prefix := a.RootUUID() + "/"
	for _, name := range a.Names() {
		if name == manifestPath {
			continue
		}
		data, err := a.ReadFile(name)
		if err != nil {
			return Invalid, nil, err
		}
		observed[strings.TrimPrefix(name, prefix)] = fmt.Sprintf("%x", md5.Sum(data))
	}

	diff := diffChecksums(expected, observed)
	if diff.IsEmpty() {
		checksumLog.Printf("Archive %s is valid (%d files)", a.Path, len(observed))
		return Valid, diff, nil
	}
	checksumLog.Printf("Archive %s is invalid: %d added, %d removed, %d changed",
		a.Path, len(diff.Added), len(diff.Removed), len(diff.Changed))
	return Invalid, diff, nil
}

// ManifestError reports a malformed line in a checksums.md5 manifest.
type ManifestError struct {
	// Line is the 1-based line number of the malformed entry.
	Line int
	// Text is the offending line.
	Text string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("line %d is not a digest/path pair: %q", e.Line, e.Text)
}

// ParseManifest parses checksums.md5 contents in md5sum format: one
// "<digest>  <path>" pair per line.
func ParseManifest(contents string) (map[string]string, error) {
	sums := make(map[string]string)
	for i, line := range strings.Split(contents, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		digest, name, found := strings.Cut(line, "  ")
		if !found || len(digest) != 32 {
			return nil, &ManifestError{Line: i + 1, Text: line}
		}
		// md5sum marks binary mode with a leading asterisk.
		name = strings.TrimPrefix(name, "*")
		sums[name] = digest
	}
	return sums, nil
}

func diffChecksums(expected, observed map[string]string) *Diff {
	diff := &Diff{
		Added:   make(map[string]string),
		Removed: make(map[string]string),
		Changed: make(map[string]ChangedDigests),
	}
	for name, digest := range observed {
		want, ok := expected[name]
		switch {
		case !ok:
			diff.Added[name] = digest
		case want != digest:
			diff.Changed[name] = ChangedDigests{Expected: want, Observed: digest}
		}
	}
	for name, digest := range expected {
		if _, ok := observed[name]; !ok {
			diff.Removed[name] = digest
		}
	}
	return diff
}

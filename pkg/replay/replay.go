// Package replay renders the provenance of QIIME 2 results as executable
// scripts that reproduce the recorded computation.
package replay

import (
	"fmt"
	"os"
	"sort"

	"github.com/qiime2/q2prov/pkg/checksum"
	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
)

var replayLog = logger.New("replay:replay")

// Driver names a supported script dialect.
type Driver string

const (
	// DriverPython3 renders a QIIME 2 Artifact API script.
	DriverPython3 Driver = "python3"
	// DriverCLI renders q2cli shell commands.
	DriverCLI Driver = "cli"
)

// ParseDriver validates a user-supplied driver name.
func ParseDriver(s string) (Driver, error) {
	switch Driver(s) {
	case DriverPython3, DriverCLI:
		return Driver(s), nil
	default:
		return "", fmt.Errorf("unknown usage driver %q (expected python3 or cli)", s)
	}
}

// Replay parses the archive or directory at inPath and writes a replay
// script for it to outPath.
func Replay(inPath, outPath string, driver Driver, cfg provenance.Config) error {
	replayLog.Printf("Replaying %s to %s with driver %s", inPath, outPath, driver)

	d, err := parsePath(inPath, cfg)
	if err != nil {
		return err
	}
	script, err := RenderDAG(d, driver)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("cannot write replay script: %w", err)
	}
	return nil
}

// RenderDAG renders a replay script for an already-parsed DAG.
func RenderDAG(d *provenance.DAG, driver Driver) (string, error) {
	plan, err := buildPlan(d)
	if err != nil {
		return "", err
	}
	switch driver {
	case DriverPython3:
		return renderPython(plan), nil
	case DriverCLI:
		return renderCLI(plan), nil
	default:
		return "", fmt.Errorf("unknown usage driver %q", driver)
	}
}

// ReplayCitations parses the archive or directory at inPath and writes the
// deduplicated citations of every result to a .bib file at outPath.
func ReplayCitations(inPath, outPath string, cfg provenance.Config) error {
	replayLog.Printf("Exporting citations for %s to %s", inPath, outPath)

	d, err := parsePath(inPath, cfg)
	if err != nil {
		return err
	}
	bib := CollectCitations(d)
	if err := os.WriteFile(outPath, []byte(provenance.RenderBibtex(bib)), 0o644); err != nil {
		return fmt.Errorf("cannot write citations: %w", err)
	}
	return nil
}

// CollectCitations gathers the citations of every result in the DAG,
// deduplicated by citation key.
func CollectCitations(d *provenance.DAG) provenance.Citations {
	merged := make(provenance.Citations)
	for _, uuid := range d.UUIDs() {
		data, err := d.GetNodeData(uuid)
		if err != nil || data.Node == nil {
			continue
		}
		for key, entry := range data.Node.Citations {
			merged[key] = entry
		}
	}
	return merged
}

func parsePath(inPath string, cfg provenance.Config) (*provenance.DAG, error) {
	single, err := provenance.IsSingleFile(inPath)
	if err != nil {
		return nil, err
	}
	if single {
		return provenance.ParseFile(inPath, cfg)
	}
	return provenance.ParseDir(inPath, cfg)
}

// validationNote renders the one-line integrity summary included in script
// headers.
func validationNote(code checksum.ValidationCode) string {
	switch code {
	case checksum.Valid:
		return "Checksums are valid for all archives."
	case checksum.ValidationOptOut:
		return "Checksum validation was disabled; provenance may be false."
	case checksum.PredatesChecksums:
		return "At least one archive predates checksums; provenance may be false."
	default:
		return "Checksums are INVALID for at least one archive; provenance may be false."
	}
}

// sortStringSet returns the sorted contents of a string set.
func sortStringSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Package cli implements the q2prov commands.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/console"
	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
)

var inspectLog = logger.New("cli:inspect")

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var noChecksumValidation bool

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Summarize a result archive and its provenance",
		Long: `Summarize a QIIME 2 result archive: its identity, format versions,
provenance size, and integrity.

Examples:
  # Inspect a visualization
  q2prov inspect beta_rarefaction.qzv

  # Skip checksum validation for a faster answer
  q2prov inspect --no-checksum-validation table.qza`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := provenance.DefaultConfig()
			cfg.PerformChecksumValidation = !noChecksumValidation
			return runInspect(args[0], cfg)
		},
	}

	cmd.Flags().BoolVar(&noChecksumValidation, "no-checksum-validation", false,
		"Skip checksum validation of the archive contents")
	return cmd
}

func runInspect(path string, cfg provenance.Config) error {
	inspectLog.Printf("Inspecting %s", path)

	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := archive.ParseVersion(a)
	if err != nil {
		return err
	}
	results, err := provenance.ParseArchive(a, cfg)
	if err != nil {
		return err
	}
	for _, warning := range results.Warnings {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(warning))
	}

	d := provenance.NewDAGFromResults(a.RootUUID(), results)
	terminal := d.TerminalUUIDs()

	rows := [][]string{
		{"Root UUID", results.RootMetadata.UUID},
		{"Semantic type", results.RootMetadata.Type},
		{"Format", results.RootMetadata.FormatString()},
		{"Archive version", info.ArchiveVersion},
		{"Framework version", info.FrameworkVersion},
		{"Provenance nodes", fmt.Sprintf("%d", d.Len())},
		{"Terminal results", strings.Join(terminal, ", ")},
		{"Validation", d.ValidationCode().String()},
	}
	fmt.Println(console.RenderTable(console.TableConfig{
		Headers: []string{"Field", "Value"},
		Rows:    rows,
	}))

	if diff := d.ChecksumDiff(); diff != nil && !diff.IsEmpty() {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage("archive contents do not match checksums.md5:"))
		for _, line := range strings.Split(strings.TrimRight(diff.Summary(), "\n"), "\n") {
			fmt.Fprintln(os.Stderr, "  "+line)
		}
	}
	return nil
}

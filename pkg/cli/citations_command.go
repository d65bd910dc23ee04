package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qiime2/q2prov/pkg/console"
	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
	"github.com/qiime2/q2prov/pkg/replay"
)

var citationsCmdLog = logger.New("cli:citations")

// NewCitationsCommand creates the citations command.
func NewCitationsCommand() *cobra.Command {
	var (
		outputPath           string
		noChecksumValidation bool
	)

	cmd := &cobra.Command{
		Use:   "citations <archive|directory>",
		Short: "Export the deduplicated citations behind one or more results",
		Long: `Collect every citation recorded in the provenance of one archive, or of
every archive under a directory, deduplicate them, and write a bibtex file.

Examples:
  q2prov citations beta_rarefaction.qzv --output citations.bib
  q2prov citations results/ -o citations.bib`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			citationsCmdLog.Printf("Exporting citations for %s", args[0])

			cfg := provenance.DefaultConfig()
			cfg.PerformChecksumValidation = !noChecksumValidation

			if err := replay.ReplayCitations(args[0], outputPath, cfg); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
				fmt.Sprintf("Wrote citations for %s to %s", args[0], outputPath)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "citations.bib",
		"Path for the rendered bibtex file")
	cmd.Flags().BoolVar(&noChecksumValidation, "no-checksum-validation", false,
		"Skip checksum validation of archive contents")
	return cmd
}

// q2prov inspects, validates, and replays the provenance of QIIME 2 result
// archives.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qiime2/q2prov/pkg/cli"
	"github.com/qiime2/q2prov/pkg/console"
	"github.com/qiime2/q2prov/pkg/logger"
)

var mainLog = logger.New("cmd:main")

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "q2prov",
	Short: "Inspect, validate, and replay QIIME 2 provenance",
	Long: `q2prov reads the provenance records inside QIIME 2 result archives
(.qza and .qzv files) and turns them into summaries, integrity reports,
citation exports, and executable replay scripts.

Set the DEBUG environment variable to enable verbose logging, e.g.
DEBUG='*' or DEBUG='provenance:*,-provenance:metadata'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("q2prov %s (commit %s, built %s)\n", version, commit, date)
	},
}

func main() {
	mainLog.Printf("Starting q2prov %s", version)

	rootCmd.AddCommand(
		cli.NewInspectCommand(),
		cli.NewValidateCommand(),
		cli.NewReplayCommand(),
		cli.NewCitationsCommand(),
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}

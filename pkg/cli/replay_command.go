package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/qiime2/q2prov/pkg/console"
	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
	"github.com/qiime2/q2prov/pkg/replay"
)

var replayCmdLog = logger.New("cli:replay")

// NewReplayCommand creates the replay command.
func NewReplayCommand() *cobra.Command {
	var (
		usageDriver          string
		outputPath           string
		noChecksumValidation bool
		parseMetadata        bool
		watch                bool
	)

	cmd := &cobra.Command{
		Use:   "replay <archive|directory>",
		Short: "Render an executable script that reproduces a result's provenance",
		Long: `Render the provenance of one archive, or of every archive under a
directory, as an executable script.

Examples:
  # Replay a single visualization as a python script
  q2prov replay beta_rarefaction.qzv --output replay.py

  # Replay a whole results directory as shell commands
  q2prov replay results/ --usage-driver cli --output replay.sh

  # Re-render whenever the archive changes
  q2prov replay table.qza --output replay.py --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := replay.ParseDriver(usageDriver)
			if err != nil {
				return err
			}

			cfg := provenance.DefaultConfig()
			cfg.PerformChecksumValidation = !noChecksumValidation
			cfg.ParseStudyMetadata = parseMetadata

			if outputPath == "" {
				outputPath = defaultReplayOutput(driver)
			}

			if err := replayOnce(args[0], outputPath, driver, cfg); err != nil {
				return err
			}
			if watch {
				return watchAndReplay(args[0], outputPath, driver, cfg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&usageDriver, "usage-driver", "python3",
		"Script dialect to render: python3 or cli")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Path for the rendered script (default replay.py or replay.sh)")
	cmd.Flags().BoolVar(&noChecksumValidation, "no-checksum-validation", false,
		"Skip checksum validation of archive contents")
	cmd.Flags().BoolVar(&parseMetadata, "parse-metadata", false,
		"Parse recorded study metadata files while replaying")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false,
		"Stay running and re-render whenever the input changes")
	return cmd
}

func defaultReplayOutput(driver replay.Driver) string {
	if driver == replay.DriverCLI {
		return "replay.sh"
	}
	return "replay.py"
}

func replayOnce(inPath, outPath string, driver replay.Driver, cfg provenance.Config) error {
	if err := replay.Replay(inPath, outPath, driver, cfg); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
		fmt.Sprintf("Wrote %s replay of %s to %s", driver, inPath, outPath)))
	return nil
}

// watchAndReplay re-renders the script whenever the watched archive, or any
// archive in the watched directory, changes. It blocks until interrupted.
func watchAndReplay(inPath, outPath string, driver replay.Driver, cfg provenance.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot start file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the containing directory: editors and the framework both
	// replace archives via rename, which drops watches on the file itself.
	single, err := provenance.IsSingleFile(inPath)
	if err != nil {
		return err
	}
	watchDir := inPath
	if single {
		watchDir = filepath.Dir(inPath)
	}
	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", watchDir, err)
	}
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(
		fmt.Sprintf("Watching %s for changes (ctrl-c to stop)", watchDir)))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Archive writes arrive as bursts of events; debounce them.
	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantReplayEvent(inPath, single, event) {
				continue
			}
			replayCmdLog.Printf("Change detected: %s", event)
			pending = time.After(250 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(
				fmt.Sprintf("watch error: %v", err)))
		case <-pending:
			pending = nil
			if err := replayOnce(inPath, outPath, driver, cfg); err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
			}
		case <-interrupt:
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Stopping watch"))
			return nil
		}
	}
}

// relevantReplayEvent filters watcher noise down to changes of the watched
// file, or of any archive when watching a directory.
func relevantReplayEvent(inPath string, singleFile bool, event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if singleFile {
		return filepath.Clean(event.Name) == filepath.Clean(inPath)
	}
	switch filepath.Ext(event.Name) {
	case ".qza", ".qzv":
		return true
	}
	return false
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/checksum"
	"github.com/qiime2/q2prov/pkg/console"
	"github.com/qiime2/q2prov/pkg/logger"
)

var validateLog = logger.New("cli:validate")

// validation is the outcome of checking one archive.
type validation struct {
	path string
	code checksum.ValidationCode
	diff *checksum.Diff
	err  error
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <archive>...",
		Short: "Validate archive contents against their recorded checksums",
		Long: `Validate one or more QIIME 2 result archives against their recorded
checksums.md5 manifests. Archives are checked concurrently. The command
exits non-zero when any archive is invalid or unreadable.

Examples:
  q2prov validate table.qza
  q2prov validate results/*.qza results/*.qzv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
	return cmd
}

func runValidate(paths []string) error {
	validateLog.Printf("Validating %d archives", len(paths))

	var mu sync.Mutex
	results := make(map[string]validation, len(paths))

	p := pool.New()
	for _, path := range paths {
		p.Go(func() {
			v := validateOne(path)
			mu.Lock()
			results[path] = v
			mu.Unlock()
		})
	}
	p.Wait()

	sorted := make([]string, 0, len(results))
	for path := range results {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)

	var rows [][]string
	failures := 0
	for _, path := range sorted {
		v := results[path]
		status := v.code.String()
		if v.err != nil {
			status = "ERROR"
			failures++
		} else if v.code == checksum.Invalid {
			failures++
		}
		rows = append(rows, []string{console.ToRelativePath(path), status})
	}
	fmt.Println(console.RenderTable(console.TableConfig{
		Headers: []string{"Archive", "Status"},
		Rows:    rows,
	}))

	for _, path := range sorted {
		v := results[path]
		var manifestErr *checksum.ManifestError
		if errors.As(v.err, &manifestErr) {
			fmt.Fprint(os.Stderr, console.FormatError(console.ParseError{
				Position: console.ErrorPosition{
					File: console.ToRelativePath(path) + ":checksums.md5",
					Line: manifestErr.Line,
				},
				Type:    "error",
				Message: "not a digest/path pair: " + manifestErr.Text,
			}))
			continue
		}
		if v.err != nil {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(
				fmt.Sprintf("%s: %v", console.ToRelativePath(path), v.err)))
			continue
		}
		if v.diff != nil && !v.diff.IsEmpty() {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(
				fmt.Sprintf("%s does not match its checksums.md5:", console.ToRelativePath(path))))
			for _, line := range strings.Split(strings.TrimRight(v.diff.Summary(), "\n"), "\n") {
				fmt.Fprintln(os.Stderr, "  "+line)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d archives failed validation", failures, len(paths))
	}
	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(
		fmt.Sprintf("All %d archives validated", len(paths))))
	return nil
}

func validateOne(path string) validation {
	validateLog.Printf("Validating %s", path)

	a, err := archive.Open(path)
	if err != nil {
		return validation{path: path, err: err}
	}
	defer a.Close()

	info, err := archive.ParseVersion(a)
	if err != nil {
		return validation{path: path, err: err}
	}
	// Formats before v5 have no checksums to validate against.
	switch info.ArchiveVersion {
	case "0", "1", "2", "3", "4":
		return validation{path: path, code: checksum.PredatesChecksums}
	}

	code, diff, err := checksum.Validate(a)
	return validation{path: path, code: code, diff: diff, err: err}
}

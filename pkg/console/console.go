// Package console provides styled terminal output for the q2prov CLI.
//
// All user-facing messages flow through the Format* helpers so that icons,
// colors, and accessibility handling stay consistent across commands. Colors
// are disabled automatically when stderr is not a terminal, when NO_COLOR is
// set, or when an accessible mode is requested.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "3", Dark: "11"})
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
	verboseStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "8", Dark: "8"})
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// IsAccessibleMode reports whether decorated output should be avoided.
// Respects ACCESSIBLE (any non-empty value) and NO_COLOR.
func IsAccessibleMode() bool {
	return os.Getenv("ACCESSIBLE") != "" || os.Getenv("NO_COLOR") != ""
}

// isTerminal reports whether stderr is attached to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// colorize applies style to text unless color output is disabled.
func colorize(style lipgloss.Style, text string) string {
	if IsAccessibleMode() || !isTerminal() {
		return text
	}
	return style.Render(text)
}

// FormatErrorMessage formats an error message with the standard icon.
func FormatErrorMessage(msg string) string {
	return colorize(errorStyle, "✗ "+msg)
}

// FormatWarningMessage formats a warning message with the standard icon.
func FormatWarningMessage(msg string) string {
	return colorize(warningStyle, "⚠ "+msg)
}

// FormatSuccessMessage formats a success message with the standard icon.
func FormatSuccessMessage(msg string) string {
	return colorize(successStyle, "✓ "+msg)
}

// FormatInfoMessage formats an informational message with the standard icon.
func FormatInfoMessage(msg string) string {
	return colorize(infoStyle, "ℹ "+msg)
}

// FormatVerboseMessage formats a low-priority message shown in verbose mode.
func FormatVerboseMessage(msg string) string {
	return colorize(verboseStyle, "  "+msg)
}

// FormatErrorWithSuggestions formats an error message followed by a bulleted
// list of suggested next steps. The suggestions section is omitted when the
// list is empty.
func FormatErrorWithSuggestions(msg string, suggestions []string) string {
	var b strings.Builder
	b.WriteString(FormatErrorMessage(msg))
	if len(suggestions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(colorize(boldStyle, "Suggestions:"))
		for _, s := range suggestions {
			b.WriteString("\n  • " + s)
		}
	}
	return b.String()
}

// TableConfig describes a table rendered with RenderTable.
type TableConfig struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders a simple aligned text table.
func RenderTable(config TableConfig) string {
	widths := make([]int, len(config.Headers))
	for i, h := range config.Headers {
		widths[i] = len(h)
	}
	for _, row := range config.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	if config.Title != "" {
		b.WriteString(colorize(boldStyle, config.Title))
		b.WriteString("\n")
	}
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		}
		b.WriteString("\n")
	}
	writeRow(config.Headers)
	separators := make([]string, len(config.Headers))
	for i := range separators {
		separators[i] = strings.Repeat("-", widths[i])
	}
	writeRow(separators)
	for _, row := range config.Rows {
		writeRow(row)
	}
	return b.String()
}

package console

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrorPosition identifies where in a file an error occurred.
type ErrorPosition struct {
	File   string
	Line   int
	Column int
}

// ParseError represents a positioned error produced while reading an archive
// or one of its provenance files. Type is "error" or "warning".
type ParseError struct {
	Position ErrorPosition
	Type     string
	Message  string
	Context  []string
	Hint     string
}

// FormatError renders a ParseError in compiler style:
//
//	file.qzv:5:10: error: message
//	  4 | previous line
//	  5 | offending line
//	  6 | next line
func FormatError(e ParseError) string {
	var b strings.Builder

	location := e.Position.File
	if e.Position.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d", e.Position.File, e.Position.Line, e.Position.Column)
	}
	kind := e.Type
	if kind == "" {
		kind = "error"
	}
	style := errorStyle
	if kind == "warning" {
		style = warningStyle
	}
	b.WriteString(colorize(boldStyle, location+":"))
	b.WriteString(" ")
	b.WriteString(colorize(style, kind+":"))
	b.WriteString(" ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if len(e.Context) > 0 {
		// Context lines are numbered around the error line.
		start := e.Position.Line - len(e.Context)/2
		if start < 1 {
			start = 1
		}
		for i, line := range e.Context {
			fmt.Fprintf(&b, "  %d | %s\n", start+i, line)
		}
	}
	return b.String()
}

// ToRelativePath converts an absolute path to one relative to the working
// directory when possible, for more compact error output.
func ToRelativePath(path string) string {
	wd, err := filepath.Abs(".")
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

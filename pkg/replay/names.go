package replay

import (
	"fmt"
	"strings"
)

// nameRegistry hands out unique snake_case variable names by suffixing each
// base name with its occurrence index.
type nameRegistry struct {
	counts map[string]int
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{counts: make(map[string]int)}
}

func (r *nameRegistry) claim(base string) string {
	n := r.counts[base]
	r.counts[base]++
	return fmt.Sprintf("%s_%d", base, n)
}

// toSnake normalizes a recorded name to a python identifier.
func toSnake(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "result"
	}
	return b.String()
}

// toKebab converts a variable name to the dashed form used for CLI flags
// and output filenames.
func toKebab(s string) string {
	return strings.ReplaceAll(toSnake(s), "_", "-")
}

// typeBaseName derives a variable base name from a semantic type
// expression, e.g. "FeatureTable[Frequency]" becomes "feature_table".
func typeBaseName(semanticType string) string {
	base, _, _ := strings.Cut(semanticType, "[")
	base = strings.TrimSpace(base)
	if base == "" {
		return "result"
	}

	// Split CamelCase words.
	var words []string
	var current strings.Builder
	for _, r := range base {
		if r >= 'A' && r <= 'Z' && current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return toSnake(strings.Join(words, "_"))
}

package provenance

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/logger"
)

var citationsLog = logger.New("provenance:citations")

// Citations holds the bibtex entries recorded for one result, keyed by
// citation ID.
type Citations map[string]*bibtex.BibEntry

// Keys returns the citation IDs in sorted order.
func (c Citations) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c Citations) String() string {
	return fmt.Sprintf("Citations(%v)", c.Keys())
}

// parseCitations reads and parses a citations.bib member.
func parseCitations(a *archive.Archive, memberPath string) (Citations, error) {
	citationsLog.Printf("Parsing citations at %s", memberPath)
	data, err := a.ReadFile(memberPath)
	if err != nil {
		return nil, err
	}
	citations, err := parseBibtex(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s in %s: %w", memberPath, a.Path, err)
	}
	return citations, nil
}

// citeNamePattern matches an entry header up to its cite key. Keys stop at
// the first comma, so @string/@preamble bodies never match.
var citeNamePattern = regexp.MustCompile(`(@\s*\w+\s*\{\s*)([^,{}\s]+)(\s*,)`)

// parseBibtex parses a citations.bib body. The framework records cite keys
// like "framework|qiime2:2019.10.0|0", and the bibtex lexer rejects the |
// and : characters, so keys are swapped for placeholder tokens before
// parsing and restored on the parsed entries afterward.
func parseBibtex(data []byte) (Citations, error) {
	recorded := make(map[string]string)
	safe := citeNamePattern.ReplaceAllFunc(data, func(header []byte) []byte {
		parts := citeNamePattern.FindSubmatch(header)
		token := fmt.Sprintf("q2provcite%d", len(recorded))
		recorded[token] = string(parts[2])

		rewritten := append([]byte{}, parts[1]...)
		rewritten = append(rewritten, token...)
		return append(rewritten, parts[3]...)
	})

	bib, err := bibtex.Parse(bytes.NewReader(safe))
	if err != nil {
		return nil, err
	}
	citations := make(Citations, len(bib.Entries))
	for _, entry := range bib.Entries {
		if key, ok := recorded[entry.CiteName]; ok {
			entry.CiteName = key
		}
		citations[entry.CiteName] = entry
	}
	return citations, nil
}

// RenderBibtex renders the given entries as a .bib document with entries
// ordered by citation ID and fields ordered by name.
func RenderBibtex(citations Citations) string {
	var b strings.Builder
	for _, key := range citations.Keys() {
		entry := citations[key]
		fmt.Fprintf(&b, "@%s{%s,\n", entry.Type, entry.CiteName)

		fields := make([]string, 0, len(entry.Fields))
		for name := range entry.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, name := range fields {
			fmt.Fprintf(&b, "  %s = {%s},\n", name, entry.Fields[name].String())
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

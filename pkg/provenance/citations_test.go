package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiime2/q2prov/pkg/testutil"
)

func TestParseBibtex(t *testing.T) {
	citations, err := parseBibtex([]byte(testCitationsBib))
	require.NoError(t, err)
	require.Len(t, citations, 1)

	assert.Equal(t, []string{testutil.FixtureCitationKey}, citations.Keys())
	entry := citations[testutil.FixtureCitationKey]
	assert.Equal(t, "article", entry.Type)
	assert.Contains(t, entry.Fields["journal"].String(), "Nature Biotechnology")
}

// The framework records cite keys containing | and :, which the bibtex
// lexer rejects when fed raw. They must round-trip intact.
func TestParseBibtexFrameworkKeys(t *testing.T) {
	body := `@article{framework|qiime2:2019.10.0|0,
  title = {Reproducible, interactive, scalable and extensible microbiome data science using QIIME 2},
  year = {2019},
}

@article{plugin|feature-table:2019.10.0|0,
  title = {Scaling and normalizing},
  year = {2013},
}
`
	citations, err := parseBibtex([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"framework|qiime2:2019.10.0|0",
		"plugin|feature-table:2019.10.0|0",
	}, citations.Keys())
	assert.Contains(t, citations["plugin|feature-table:2019.10.0|0"].Fields["title"].String(), "Scaling")
}

func TestParseBibtexMalformed(t *testing.T) {
	_, err := parseBibtex([]byte("@article{unterminated,\n"))
	require.Error(t, err)
}

func TestRenderBibtex(t *testing.T) {
	citations, err := parseBibtex([]byte(testCitationsBib))
	require.NoError(t, err)

	rendered := RenderBibtex(citations)
	assert.Contains(t, rendered, "@article{"+testutil.FixtureCitationKey+",")
	assert.Contains(t, rendered, "journal = {Nature Biotechnology}")
	assert.Contains(t, rendered, "year = {2019}")
}

func TestRenderBibtexEmptySet(t *testing.T) {
	assert.Empty(t, RenderBibtex(make(Citations)))
}

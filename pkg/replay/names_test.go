package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"rarefied_table", "rarefied_table"},
		{"feature-table", "feature_table"},
		{"Beta Rarefaction", "beta_rarefaction"},
		{"", "result"},
		{"!!!", "result"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, toSnake(tt.input), "toSnake(%q)", tt.input)
	}
}

func TestToKebab(t *testing.T) {
	assert.Equal(t, "rarefied-table", toKebab("rarefied_table"))
	assert.Equal(t, "feature-table", toKebab("feature-table"))
}

func TestTypeBaseName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"FeatureTable[Frequency]", "feature_table"},
		{"Visualization", "visualization"},
		{"SampleData[SequencesWithQuality]", "sample_data"},
		{"Phylogeny[Rooted]", "phylogeny"},
		{"", "result"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, typeBaseName(tt.input), "typeBaseName(%q)", tt.input)
	}
}

func TestNameRegistryCountsPerBase(t *testing.T) {
	names := newNameRegistry()
	assert.Equal(t, "table_0", names.claim("table"))
	assert.Equal(t, "table_1", names.claim("table"))
	assert.Equal(t, "tree_0", names.claim("tree"))
	assert.Equal(t, "table_2", names.claim("table"))
}

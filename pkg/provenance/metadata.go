package provenance

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/logger"
)

var metadataLog = logger.New("provenance:metadata")

// ResultMetadata holds the identity of one result, from its metadata.yaml.
type ResultMetadata struct {
	UUID   string  `yaml:"uuid"`
	Type   string  `yaml:"type"`
	Format *string `yaml:"format"`
}

// FormatString returns the data format, or "None" when no format is
// recorded (Visualizations have none).
func (m ResultMetadata) FormatString() string {
	if m.Format == nil {
		return "None"
	}
	return *m.Format
}

func (m ResultMetadata) String() string {
	return fmt.Sprintf("ResultMetadata(UUID: %s, Semantic Type: %s, Format: %s)",
		m.UUID, m.Type, m.FormatString())
}

// parseResultMetadata reads and parses a metadata.yaml member.
func parseResultMetadata(a *archive.Archive, memberPath string) (ResultMetadata, error) {
	metadataLog.Printf("Parsing result metadata at %s", memberPath)
	data, err := a.ReadFile(memberPath)
	if err != nil {
		return ResultMetadata{}, err
	}
	var md ResultMetadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return ResultMetadata{}, fmt.Errorf("cannot parse %s in %s: %w", memberPath, a.Path, err)
	}
	if md.UUID == "" {
		return ResultMetadata{}, fmt.Errorf("metadata.yaml at %s in %s has no uuid", memberPath, a.Path)
	}
	return md, nil
}

// MetadataTable is a column-oriented view of one study metadata file (a TSV
// with a header row), as captured in provenance for Metadata parameters.
type MetadataTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnValues returns the values of the named column in row order, or nil
// if the column does not exist.
func (t *MetadataTable) ColumnValues(name string) []string {
	idx := -1
	for i, col := range t.Columns {
		if col == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		}
	}
	return values
}

// parseMetadataTable parses TSV study metadata contents.
func parseMetadataTable(data []byte, source string) (*MetadataTable, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.Comma = '\t'
	r.FieldsPerRecord = -1 // metadata files are untrusted input, tolerate ragged rows
	r.Comment = '#'

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse study metadata %s: %w", source, err)
	}
	if len(records) == 0 {
		return &MetadataTable{}, nil
	}
	return &MetadataTable{
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}

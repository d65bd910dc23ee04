package provenance

import (
	"fmt"
	"path"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/logger"
)

var nodeLog = logger.New("provenance:node")

// Node describes one result in a provenance DAG.
type Node struct {
	Metadata         ResultMetadata
	ArchiveVersion   string
	FrameworkVersion string

	// Action is nil for v0 results, which predate provenance tracking.
	Action *Action

	// Citations holds the result's recorded citations (v4+ archives).
	Citations Citations

	// StudyMetadata maps parameter names to parsed metadata tables. It is
	// nil unless study metadata parsing was enabled in the Config.
	StudyMetadata map[string]*MetadataTable

	// artifactsPassedAsMD lists UUIDs of parent artifacts that reached
	// this action as metadata.
	artifactsPassedAsMD []string
}

// UUID returns the result's UUID.
func (n *Node) UUID() string {
	return n.Metadata.UUID
}

// Type returns the result's semantic type.
func (n *Node) Type() string {
	return n.Metadata.Type
}

// Format returns the result's data format, or "" when none is recorded.
func (n *Node) Format() string {
	if n.Metadata.Format == nil {
		return ""
	}
	return *n.Metadata.Format
}

// HasProvenance reports whether the result carries provenance. Archive
// format v0 predates provenance tracking.
func (n *Node) HasProvenance() bool {
	return n.ArchiveVersion != "0"
}

// Parents returns references to this result's parent artifacts: the
// action's inputs plus any artifacts passed as metadata. Returns nil for
// results without provenance and an empty slice for imports.
func (n *Node) Parents() []InputRef {
	if !n.HasProvenance() || n.Action == nil {
		return nil
	}
	parents := append([]InputRef{}, n.Action.Inputs()...)
	for _, u := range n.artifactsPassedAsMD {
		parents = append(parents, InputRef{Name: artifactPassedAsMetadata, UUID: u})
	}
	return parents
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%s, %s, fmt=%s)", n.UUID(), n.Type(), n.Metadata.FormatString())
}

// nodeFiles lists the member paths holding one result's provenance records.
type nodeFiles struct {
	prefix    string // directory holding this node's provenance files
	metadata  string
	version   string
	action    string // "" when the format predates action records
	citations string // "" when the format predates citation records
}

// parseNode assembles a Node from its provenance files.
func parseNode(cfg Config, a *archive.Archive, files nodeFiles) (*Node, error) {
	nodeLog.Printf("Parsing node at %s", files.prefix)

	md, err := parseResultMetadata(a, files.metadata)
	if err != nil {
		return nil, err
	}
	info, err := archive.ParseVersionAt(a, files.version)
	if err != nil {
		return nil, err
	}

	node := &Node{
		Metadata:         md,
		ArchiveVersion:   info.ArchiveVersion,
		FrameworkVersion: info.FrameworkVersion,
	}

	if files.action != "" && a.Contains(files.action) {
		act, err := parseAction(a, files.action)
		if err != nil {
			return nil, err
		}
		node.Action = act

		mdFiles, artifactUUIDs := act.MetadataParameters()
		node.artifactsPassedAsMD = artifactUUIDs
		if cfg.ParseStudyMetadata && len(mdFiles) > 0 {
			node.StudyMetadata, err = parseStudyMetadata(a, files.prefix, mdFiles)
			if err != nil {
				return nil, err
			}
		}
	}

	if files.citations != "" && a.Contains(files.citations) {
		citations, err := parseCitations(a, files.citations)
		if err != nil {
			return nil, err
		}
		node.Citations = citations
	}

	return node, nil
}

// parseStudyMetadata parses the metadata TSV files recorded alongside an
// action, keyed by the parameter name they were passed to.
func parseStudyMetadata(a *archive.Archive, prefix string, mdFiles map[string]string) (map[string]*MetadataTable, error) {
	tables := make(map[string]*MetadataTable, len(mdFiles))
	for param, relFP := range mdFiles {
		memberPath := path.Join(prefix, "action", relFP)
		data, err := a.ReadFile(memberPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read study metadata for parameter %s: %w", param, err)
		}
		table, err := parseMetadataTable(data, memberPath)
		if err != nil {
			return nil, err
		}
		tables[param] = table
	}
	return tables, nil
}

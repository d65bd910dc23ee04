// Package provenance parses the provenance records inside QIIME 2 result
// archives and assembles them into a DAG of results.
package provenance

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/qiime2/q2prov/pkg/logger"
)

var yamlTagsLog = logger.New("provenance:yamltags")

// MetadataInfo is the decoded form of a !metadata tag. The framework records
// Metadata and MetadataColumn parameters as
//
//	some_metadata: !metadata 'sample_metadata.tsv'
//	other_metadata: !metadata '4154...301b4:feature_metadata.tsv'
//
// where the optional prefix lists the UUIDs of Artifacts viewed as metadata,
// comma-separated.
type MetadataInfo struct {
	InputArtifactUUIDs []string
	RelativeFP         string
}

// NoProvenanceUUID is the decoded form of a !no-provenance tag: the UUID of
// an input whose own provenance was never captured.
type NoProvenanceUUID string

// Ref is the decoded form of a !ref tag, a colon-separated pointer into the
// environment section such as "environment:plugins:diversity".
type Ref string

// Name returns the final segment of the reference, which for plugin refs is
// the plugin name.
func (r Ref) Name() string {
	parts := strings.Split(string(r), ":")
	return parts[len(parts)-1]
}

// CitationKey is the decoded form of a !cite tag: a key into citations.bib.
type CitationKey string

// decodeYAMLDocument parses a YAML document whose scalars may carry the
// framework's custom tags. Mappings decode to map[string]any, sequences
// (including !set) to []any, and scalars to string/int64/float64/bool/nil.
func decodeYAMLDocument(data []byte, source string) (any, error) {
	f, err := parser.ParseBytes(data, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot parse YAML in %s: %w", source, err)
	}
	if len(f.Docs) == 0 || f.Docs[0].Body == nil {
		return nil, nil
	}
	if len(f.Docs) > 1 {
		yamlTagsLog.Printf("%s contains %d YAML documents, using the first", source, len(f.Docs))
	}
	return decodeNode(f.Docs[0].Body)
}

func decodeNode(n ast.Node) (any, error) {
	switch v := n.(type) {
	case *ast.TagNode:
		return decodeTagged(v)
	case *ast.MappingNode:
		m := make(map[string]any, len(v.Values))
		for _, kv := range v.Values {
			key, value, err := decodeMappingValue(kv)
			if err != nil {
				return nil, err
			}
			m[key] = value
		}
		return m, nil
	case *ast.MappingValueNode:
		// A single-pair mapping is represented without a wrapping
		// MappingNode.
		key, value, err := decodeMappingValue(v)
		if err != nil {
			return nil, err
		}
		return map[string]any{key: value}, nil
	case *ast.SequenceNode:
		items := make([]any, 0, len(v.Values))
		for _, item := range v.Values {
			decoded, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, decoded)
		}
		return items, nil
	case *ast.StringNode:
		return v.Value, nil
	case *ast.LiteralNode:
		return v.Value.Value, nil
	case *ast.IntegerNode:
		return v.Value, nil
	case *ast.FloatNode:
		return v.Value, nil
	case *ast.BoolNode:
		return v.Value, nil
	case *ast.NullNode:
		return nil, nil
	case *ast.AnchorNode:
		return decodeNode(v.Value)
	case *ast.AliasNode:
		return decodeNode(v.Value)
	case nil:
		return nil, nil
	default:
		tok := n.GetToken()
		if tok != nil && tok.Position != nil {
			return nil, fmt.Errorf("unsupported YAML node %T at line %d, column %d",
				n, tok.Position.Line, tok.Position.Column)
		}
		return nil, fmt.Errorf("unsupported YAML node %T", n)
	}
}

func decodeMappingValue(kv *ast.MappingValueNode) (string, any, error) {
	key, err := decodeNode(kv.Key)
	if err != nil {
		return "", nil, err
	}
	keyStr, ok := key.(string)
	if !ok {
		keyStr = fmt.Sprint(key)
	}
	value, err := decodeNode(kv.Value)
	if err != nil {
		return "", nil, err
	}
	return keyStr, value, nil
}

// decodeTagged resolves the framework's custom YAML tags. Standard tags fall
// through to plain decoding of the tagged value.
func decodeTagged(v *ast.TagNode) (any, error) {
	tag := v.Start.Value
	inner, err := decodeNode(v.Value)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "!metadata":
		s, ok := inner.(string)
		if !ok {
			return nil, fmt.Errorf("!metadata tag requires a scalar value, got %T", inner)
		}
		return parseMetadataTag(s), nil
	case "!no-provenance":
		s, ok := inner.(string)
		if !ok {
			return nil, fmt.Errorf("!no-provenance tag requires a scalar value, got %T", inner)
		}
		yamlTagsLog.Printf("Encountered !no-provenance input %s", s)
		return NoProvenanceUUID(s), nil
	case "!ref":
		s, ok := inner.(string)
		if !ok {
			return nil, fmt.Errorf("!ref tag requires a scalar value, got %T", inner)
		}
		return Ref(s), nil
	case "!cite":
		s, ok := inner.(string)
		if !ok {
			return nil, fmt.Errorf("!cite tag requires a scalar value, got %T", inner)
		}
		return CitationKey(s), nil
	case "!set":
		// Sets decode as slices; callers treat them as unordered.
		if inner == nil {
			return []any{}, nil
		}
		items, ok := inner.([]any)
		if !ok {
			return nil, fmt.Errorf("!set tag requires a sequence, got %T", inner)
		}
		return items, nil
	case "!color":
		return inner, nil
	default:
		if strings.HasPrefix(tag, "!!") {
			// Standard YAML tags keep their plainly decoded value.
			return inner, nil
		}
		yamlTagsLog.Printf("Passing through unrecognized tag %s", tag)
		return inner, nil
	}
}

func parseMetadataTag(value string) MetadataInfo {
	uuids, fp, found := strings.Cut(value, ":")
	if !found {
		return MetadataInfo{InputArtifactUUIDs: []string{}, RelativeFP: value}
	}
	info := MetadataInfo{InputArtifactUUIDs: []string{}, RelativeFP: fp}
	for _, u := range strings.Split(uuids, ",") {
		if u = strings.TrimSpace(u); u != "" {
			info.InputArtifactUUIDs = append(info.InputArtifactUUIDs, u)
		}
	}
	return info
}

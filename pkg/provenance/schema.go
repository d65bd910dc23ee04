package provenance

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/qiime2/q2prov/pkg/logger"
)

var schemaLog = logger.New("provenance:schema")

//go:embed action_schema.json
var actionSchemaJSON string

var (
	actionSchemaOnce sync.Once
	actionSchema     *jsonschema.Schema
	actionSchemaErr  error
)

func loadActionSchema() (*jsonschema.Schema, error) {
	actionSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(actionSchemaJSON))
		if err != nil {
			actionSchemaErr = fmt.Errorf("cannot load embedded action schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("action.schema.json", doc); err != nil {
			actionSchemaErr = fmt.Errorf("cannot register action schema: %w", err)
			return
		}
		actionSchema, actionSchemaErr = compiler.Compile("action.schema.json")
	})
	return actionSchema, actionSchemaErr
}

// validateActionShape checks the overall structure of a decoded action.yaml
// document against the embedded JSON schema. Violations are reported with
// their JSON path for easier debugging of malformed archives.
func validateActionShape(raw map[string]any, source string) error {
	schema, err := loadActionSchema()
	if err != nil {
		return err
	}

	err = schema.Validate(sanitizeForJSON(raw))
	if err == nil {
		schemaLog.Printf("action.yaml at %s matches schema", source)
		return nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("action.yaml at %s failed schema validation: %w", source, err)
	}

	var details []string
	for _, cause := range validationErr.Causes {
		details = append(details, fmt.Sprintf("%s: %s",
			instanceLocationToJSONPath(cause.InstanceLocation), cause.Error()))
	}
	if len(details) == 0 {
		details = append(details, validationErr.Error())
	}
	return fmt.Errorf("action.yaml at %s failed schema validation:\n  %s",
		source, strings.Join(details, "\n  "))
}

// instanceLocationToJSONPath converts a jsonschema instance location to a
// JSON path string like "/action/inputs/1".
func instanceLocationToJSONPath(location []string) string {
	if len(location) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, part := range location {
		b.WriteString("/" + part)
	}
	return b.String()
}

// sanitizeForJSON converts decoded YAML values, including this package's
// tag types, into the plain JSON value types the schema validator expects.
func sanitizeForJSON(v any) any {
	switch value := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(value))
		for k, item := range value {
			m[k] = sanitizeForJSON(item)
		}
		return m
	case []any:
		s := make([]any, len(value))
		for i, item := range value {
			s[i] = sanitizeForJSON(item)
		}
		return s
	case MetadataInfo:
		return map[string]any{
			"input_artifact_uuids": sanitizeForJSON(toAnySlice(value.InputArtifactUUIDs)),
			"relative_fp":          value.RelativeFP,
		}
	case NoProvenanceUUID:
		return string(value)
	case Ref:
		return string(value)
	case CitationKey:
		return string(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case uint64:
		return float64(value)
	default:
		return value
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

package provenance

import (
	"fmt"
	"time"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/logger"
)

var actionLog = logger.New("provenance:action")

// ActionTypeImport marks results produced by importing external data rather
// than by running a plugin action.
const ActionTypeImport = "import"

// artifactPassedAsMetadata is the filler input name recorded for parent
// artifacts that reached an action as metadata instead of as regular inputs.
// Their true semantic type lives on the parent node itself.
const artifactPassedAsMetadata = "artifact_passed_as_metadata"

// Action holds the provenance recorded in one action/action.yaml file.
type Action struct {
	raw         map[string]any
	details     map[string]any
	execution   map[string]any
	environment map[string]any
}

// InputRef names one artifact input to an action.
type InputRef struct {
	Name string
	UUID string
	// NoProvenance marks inputs recorded with a !no-provenance tag.
	NoProvenance bool
}

// Parameter names one parameter passed to an action. Value may be any
// decoded YAML value, including MetadataInfo for metadata parameters.
type Parameter struct {
	Name  string
	Value any
}

// parseAction reads and parses an action.yaml member.
func parseAction(a *archive.Archive, memberPath string) (*Action, error) {
	actionLog.Printf("Parsing action at %s", memberPath)
	data, err := a.ReadFile(memberPath)
	if err != nil {
		return nil, err
	}
	return newAction(data, fmt.Sprintf("%s in %s", memberPath, a.Path))
}

func newAction(data []byte, source string) (*Action, error) {
	decoded, err := decodeYAMLDocument(data, source)
	if err != nil {
		return nil, err
	}
	raw, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("action.yaml at %s is not a mapping", source)
	}
	if err := validateActionShape(raw, source); err != nil {
		return nil, err
	}

	act := &Action{raw: raw}
	act.details, _ = raw["action"].(map[string]any)
	act.execution, _ = raw["execution"].(map[string]any)
	act.environment, _ = raw["environment"].(map[string]any)
	return act, nil
}

// ActionID returns the UUID assigned to the action execution (not to any of
// its results).
func (a *Action) ActionID() string {
	s, _ := a.execution["uuid"].(string)
	return s
}

// ActionType returns the kind of action recorded: "method", "visualizer",
// "pipeline", or "import".
func (a *Action) ActionType() string {
	s, _ := a.details["type"].(string)
	return s
}

// ActionName returns the registered name of the action, or "import" for
// imports.
func (a *Action) ActionName() string {
	if a.ActionType() == ActionTypeImport {
		return "import"
	}
	s, _ := a.details["action"].(string)
	return s
}

// Plugin returns the plugin that executed the action, or "framework" for
// imports. Plugin fields recorded as !ref tags resolve to the plugin name.
func (a *Action) Plugin() string {
	if a.ActionType() == ActionTypeImport {
		return "framework"
	}
	switch v := a.details["plugin"].(type) {
	case Ref:
		return v.Name()
	case string:
		return v
	default:
		return ""
	}
}

// OutputName returns the name of the output this result was registered
// under, or "" when not recorded (imports).
func (a *Action) OutputName() string {
	s, _ := a.details["output-name"].(string)
	return s
}

// Format returns the action's format field, recorded for imports.
func (a *Action) Format() string {
	s, _ := a.details["format"].(string)
	return s
}

// AliasOf returns the UUID of the inner pipeline result this result is an
// alias for, or "" for non-pipeline results.
func (a *Action) AliasOf() string {
	s, _ := a.details["alias-of"].(string)
	return s
}

// Transformers returns the action's transformers section if recorded.
func (a *Action) Transformers() map[string]any {
	m, _ := a.raw["transformers"].(map[string]any)
	return m
}

// Inputs returns the action's artifact inputs in recorded order. Inputs are
// stored as a sequence of single-pair mappings; collection inputs flatten to
// one entry per element with an index-suffixed name. Optional inputs left as
// nil are skipped.
func (a *Action) Inputs() []InputRef {
	seq, _ := a.details["inputs"].([]any)
	var refs []InputRef
	for _, item := range seq {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for name, value := range pair {
			refs = append(refs, flattenInput(name, value)...)
		}
	}
	return refs
}

func flattenInput(name string, value any) []InputRef {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []InputRef{{Name: name, UUID: v}}
	case NoProvenanceUUID:
		return []InputRef{{Name: name, UUID: string(v), NoProvenance: true}}
	case []any:
		// Collections of inputs get index-suffixed names so entries stay
		// unique when merged downstream.
		var refs []InputRef
		for i, item := range v {
			for _, ref := range flattenInput(fmt.Sprintf("%s_%d", name, i), item) {
				refs = append(refs, ref)
			}
		}
		return refs
	default:
		actionLog.Printf("Skipping input %s with unexpected type %T", name, value)
		return nil
	}
}

// Parameters returns the action's parameters in recorded order.
func (a *Action) Parameters() []Parameter {
	seq, _ := a.details["parameters"].([]any)
	var params []Parameter
	for _, item := range seq {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for name, value := range pair {
			params = append(params, Parameter{Name: name, Value: value})
		}
	}
	return params
}

// MetadataParameters returns the relative filenames of all recorded metadata
// files keyed by parameter name, plus the UUIDs of artifacts that were
// passed as metadata.
func (a *Action) MetadataParameters() (map[string]string, []string) {
	files := make(map[string]string)
	var artifactUUIDs []string
	for _, p := range a.Parameters() {
		info, ok := p.Value.(MetadataInfo)
		if !ok {
			continue
		}
		files[p.Name] = info.RelativeFP
		artifactUUIDs = append(artifactUUIDs, info.InputArtifactUUIDs...)
	}
	return files, artifactUUIDs
}

// RuntimeDuration returns the recorded human-readable elapsed time, e.g.
// "1 second, 92803 microseconds".
func (a *Action) RuntimeDuration() string {
	runtime, _ := a.execution["runtime"].(map[string]any)
	s, _ := runtime["duration"].(string)
	return s
}

// Runtime computes the elapsed run time from the recorded start and end
// timestamps.
func (a *Action) Runtime() (time.Duration, error) {
	runtime, _ := a.execution["runtime"].(map[string]any)
	start, err := parseExecutionTime(runtime["start"])
	if err != nil {
		return 0, fmt.Errorf("cannot parse runtime start: %w", err)
	}
	end, err := parseExecutionTime(runtime["end"])
	if err != nil {
		return 0, fmt.Errorf("cannot parse runtime end: %w", err)
	}
	return end.Sub(start), nil
}

func parseExecutionTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp missing or not a scalar: %v", v)
	}
	// Timestamps are RFC 3339 with optional fractional seconds.
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (a *Action) String() string {
	return fmt.Sprintf("Action(action_id=%s, type=%s, plugin=%s, action=%s)",
		a.ActionID(), a.ActionType(), a.Plugin(), a.ActionName())
}

package replay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
)

var pythonLog = logger.New("replay:python")

// renderPython renders a plan as a QIIME 2 Artifact API script.
func renderPython(p *plan) string {
	pythonLog.Printf("Rendering python3 script for %d commands", len(p.commands))
	var b strings.Builder

	b.WriteString("# This script was generated by replaying the provenance of one or more\n")
	b.WriteString("# QIIME 2 results. Review it carefully and replace all placeholders before\n")
	b.WriteString("# running it.\n")
	if p.framework != "" {
		fmt.Fprintf(&b, "# The results were produced with QIIME 2 %s.\n", p.framework)
	}
	fmt.Fprintf(&b, "# %s\n\n", validationNote(p.validation))

	if p.usesMetadata {
		b.WriteString("from qiime2 import Artifact, Metadata\n")
	} else {
		b.WriteString("from qiime2 import Artifact\n")
	}
	for _, module := range pluginModules(p) {
		fmt.Fprintf(&b, "from qiime2.plugins import %s as %s_actions\n", module, module)
	}
	b.WriteString("\n")

	if len(p.stubs) > 0 {
		b.WriteString("# Replay cannot reproduce results whose provenance was not recorded.\n")
		b.WriteString("# Load each of the following artifacts yourself before running the rest\n")
		b.WriteString("# of this script.\n")
		for _, s := range p.stubs {
			fmt.Fprintf(&b, "%s = Artifact.load('<your data here>')  # %s\n", s.varName, s.uuid)
		}
		b.WriteString("\n")
	}

	for _, cmd := range p.commands {
		if cmd.isImport() {
			renderPythonImport(&b, cmd)
		} else {
			renderPythonAction(&b, cmd)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// pluginModules returns the sorted python module names of every plugin the
// plan touches.
func pluginModules(p *plan) []string {
	modules := make(map[string]struct{})
	for _, cmd := range p.commands {
		if cmd.isImport() || cmd.plugin == "" {
			continue
		}
		modules[toSnake(cmd.plugin)] = struct{}{}
	}
	return sortStringSet(modules)
}

func renderPythonImport(b *strings.Builder, cmd *command) {
	for _, out := range cmd.outputs {
		fmt.Fprintf(b, "%s = Artifact.import_data(\n", out.varName)
		fmt.Fprintf(b, "    %s,\n", pyLiteral(out.semanticType))
		b.WriteString("    <your data here>,\n")
		b.WriteString(")\n")
	}
}

func renderPythonAction(b *strings.Builder, cmd *command) {
	lump := cmd.lumpOutputs()
	if lump {
		b.WriteString("action_results = ")
	} else {
		vars := make([]string, len(cmd.outputs))
		for i, out := range cmd.outputs {
			vars[i] = out.varName
		}
		if len(vars) == 1 {
			fmt.Fprintf(b, "%s, = ", vars[0])
		} else {
			fmt.Fprintf(b, "%s = ", strings.Join(vars, ", "))
		}
	}
	fmt.Fprintf(b, "%s_actions.%s(\n", toSnake(cmd.plugin), toSnake(cmd.actionName))

	for _, in := range cmd.inputs {
		comment := ""
		if in.noProvenance {
			comment = "  # no provenance recorded for this input"
		}
		fmt.Fprintf(b, "    %s=%s,%s\n", toSnake(in.name), in.varName, comment)
	}
	for _, param := range cmd.params {
		if param.isMetadata {
			fmt.Fprintf(b, "    # The metadata below was recorded as %s; substitute your own\n",
				pyLiteral(param.metadataFile))
			fmt.Fprintf(b, "    %s=Metadata.load('<your metadata filepath>'),\n", toSnake(param.name))
			continue
		}
		fmt.Fprintf(b, "    %s=%s,\n", toSnake(param.name), pyLiteral(param.value))
	}
	b.WriteString(")\n")

	if lump {
		for _, out := range cmd.outputs {
			attr := toSnake(out.name)
			if attr == "result" {
				attr = toSnake(out.varName)
			}
			fmt.Fprintf(b, "%s = action_results.%s\n", out.varName, attr)
		}
	}
}

// pyLiteral renders a decoded parameter value as a python literal.
func pyLiteral(v any) string {
	switch value := v.(type) {
	case nil:
		return "None"
	case bool:
		if value {
			return "True"
		}
		return "False"
	case string:
		return "'" + strings.ReplaceAll(value, "'", "\\'") + "'"
	case provenance.Ref:
		return pyLiteral(string(value))
	case provenance.CitationKey:
		return pyLiteral(string(value))
	case provenance.NoProvenanceUUID:
		return pyLiteral(string(value))
	case []any:
		items := make([]string, len(value))
		for i, item := range value {
			items[i] = pyLiteral(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s: %s", pyLiteral(k), pyLiteral(value[k]))
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	default:
		return fmt.Sprintf("%v", value)
	}
}

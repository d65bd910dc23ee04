package replay

import (
	"fmt"
	"strings"

	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
)

var cliLog = logger.New("replay:cli")

// renderCLI renders a plan as q2cli shell commands.
func renderCLI(p *plan) string {
	cliLog.Printf("Rendering cli script for %d commands", len(p.commands))
	var b strings.Builder

	b.WriteString("# This script was generated by replaying the provenance of one or more\n")
	b.WriteString("# QIIME 2 results. Review it carefully and replace all placeholders before\n")
	b.WriteString("# running it.\n")
	if p.framework != "" {
		fmt.Fprintf(&b, "# The results were produced with QIIME 2 %s.\n", p.framework)
	}
	fmt.Fprintf(&b, "# %s\n\n", validationNote(p.validation))

	// Filenames for every variable, assigned as outputs render.
	filenames := make(map[string]string, len(p.stubs))

	if len(p.stubs) > 0 {
		b.WriteString("# Replay cannot reproduce results whose provenance was not recorded.\n")
		b.WriteString("# Provide each of the following files yourself before running the rest\n")
		b.WriteString("# of this script.\n")
		for _, s := range p.stubs {
			fn := toKebab(s.varName) + ".qza"
			filenames[s.varName] = fn
			fmt.Fprintf(&b, "#   %s  (%s)\n", fn, s.uuid)
		}
		b.WriteString("\n")
	}

	for _, cmd := range p.commands {
		if cmd.isImport() {
			renderCLIImport(&b, cmd, filenames)
		} else {
			renderCLIAction(&b, cmd, filenames)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func outputFilename(out output) string {
	ext := ".qza"
	if strings.HasPrefix(out.semanticType, "Visualization") {
		ext = ".qzv"
	}
	return toKebab(out.varName) + ext
}

func renderCLIImport(b *strings.Builder, cmd *command, filenames map[string]string) {
	for _, out := range cmd.outputs {
		fn := outputFilename(out)
		filenames[out.varName] = fn

		b.WriteString("qiime tools import \\\n")
		fmt.Fprintf(b, "  --type '%s' \\\n", out.semanticType)
		b.WriteString("  --input-path <your data here> \\\n")
		fmt.Fprintf(b, "  --output-path %s\n", fn)
	}
}

func renderCLIAction(b *strings.Builder, cmd *command, filenames map[string]string) {
	for _, in := range cmd.inputs {
		if in.noProvenance {
			fmt.Fprintf(b, "# input %s has no recorded provenance; confirm %s holds the right data\n",
				toKebab(in.name), inputFilename(in, filenames))
		}
	}
	for _, param := range cmd.params {
		if param.isMetadata {
			fmt.Fprintf(b, "# --m-%s-file was recorded as '%s'; substitute your own metadata file\n",
				toKebab(param.name), param.metadataFile)
		}
	}

	fmt.Fprintf(b, "qiime %s %s \\\n", toKebab(cmd.plugin), toKebab(cmd.actionName))
	for _, in := range cmd.inputs {
		fmt.Fprintf(b, "  --i-%s %s \\\n", toKebab(in.name), inputFilename(in, filenames))
	}
	for _, param := range cmd.params {
		for _, flag := range cliParamFlags(param) {
			fmt.Fprintf(b, "  %s \\\n", flag)
		}
	}

	for i, out := range cmd.outputs {
		fn := outputFilename(out)
		filenames[out.varName] = fn

		terminator := " \\"
		if i == len(cmd.outputs)-1 {
			terminator = ""
		}
		name := out.name
		if name == "" {
			name = out.varName
		}
		fmt.Fprintf(b, "  --o-%s %s%s\n", toKebab(name), fn, terminator)
	}
}

func inputFilename(in inputArg, filenames map[string]string) string {
	if fn, ok := filenames[in.varName]; ok {
		return fn
	}
	return toKebab(in.varName) + ".qza"
}

// cliParamFlags renders one parameter as q2cli flags. Collection parameters
// repeat the flag per element.
func cliParamFlags(param paramArg) []string {
	if param.isMetadata {
		return []string{fmt.Sprintf("--m-%s-file <your metadata filepath>", toKebab(param.name))}
	}

	flag := "--p-" + toKebab(param.name)
	switch value := param.value.(type) {
	case nil:
		return nil
	case bool:
		if value {
			return []string{flag}
		}
		return []string{"--p-no-" + toKebab(param.name)}
	case []any:
		flags := make([]string, 0, len(value))
		for _, item := range value {
			flags = append(flags, fmt.Sprintf("%s %s", flag, cliScalar(item)))
		}
		return flags
	default:
		return []string{fmt.Sprintf("%s %s", flag, cliScalar(value))}
	}
}

func cliScalar(v any) string {
	switch value := v.(type) {
	case string:
		if strings.ContainsAny(value, " \t'\"") {
			return "'" + strings.ReplaceAll(value, "'", "'\\''") + "'"
		}
		return value
	case provenance.Ref:
		return cliScalar(string(value))
	case provenance.CitationKey:
		return cliScalar(string(value))
	case provenance.NoProvenanceUUID:
		return cliScalar(string(value))
	default:
		return fmt.Sprintf("%v", value)
	}
}

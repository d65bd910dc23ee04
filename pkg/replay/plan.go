package replay

import (
	"fmt"

	"github.com/qiime2/q2prov/pkg/checksum"
	"github.com/qiime2/q2prov/pkg/logger"
	"github.com/qiime2/q2prov/pkg/provenance"
)

var planLog = logger.New("replay:plan")

// output is one replayed result of a command.
type output struct {
	name         string // registered output name
	uuid         string
	varName      string
	semanticType string
}

// inputArg is one artifact input to a command, resolved to the variable
// holding the parent result.
type inputArg struct {
	name         string
	varName      string
	noProvenance bool
}

// paramArg is one non-artifact parameter. Metadata parameters carry the
// recorded filename and render as placeholders.
type paramArg struct {
	name         string
	value        any
	metadataFile string
	isMetadata   bool
}

// command is one action execution to replay. Several results of the same
// execution collapse into one command with several outputs.
type command struct {
	actionID   string
	actionType string
	plugin     string
	actionName string
	inputs     []inputArg
	params     []paramArg
	outputs    []output
}

// isImport reports whether the command replays an import.
func (c *command) isImport() bool {
	return c.actionType == provenance.ActionTypeImport
}

// lumpOutputs reports whether the python3 driver should collect this
// command's results into a single action_results variable instead of tuple
// unpacking. Plugin manifests are not recorded in provenance, so the
// replayed outputs stand in for the action's full signature.
func (c *command) lumpOutputs() bool {
	return len(c.outputs) >= 3
}

// stub is a result that must be supplied by hand because its provenance was
// never recorded.
type stub struct {
	uuid    string
	varName string
}

// plan is a replayable ordering of every action in a DAG.
type plan struct {
	commands   []*command
	stubs      []stub
	validation checksum.ValidationCode
	framework  string
	// usesMetadata is true when any command takes a metadata parameter.
	usesMetadata bool
}

// buildPlan orders the DAG's visible results and groups them into one
// command per action execution.
func buildPlan(d *provenance.DAG) (*plan, error) {
	order, err := d.TopologicalSort()
	if err != nil {
		return nil, err
	}
	visible := visibleUUIDs(d)

	p := &plan{validation: d.ValidationCode()}
	names := newNameRegistry()
	varNames := make(map[string]string)
	commands := make(map[string]*command)

	for _, uuid := range order {
		if _, ok := visible[uuid]; !ok {
			continue
		}
		data, err := d.GetNodeData(uuid)
		if err != nil {
			return nil, err
		}

		if data.Node == nil || !data.HasProvenance {
			varName := names.claim("no_provenance")
			varNames[uuid] = varName
			p.stubs = append(p.stubs, stub{uuid: uuid, varName: varName})
			continue
		}

		node := data.Node
		if p.framework == "" {
			p.framework = node.FrameworkVersion
		}
		act := node.Action
		if act == nil {
			// v0 results carry no action record.
			varName := names.claim("no_provenance")
			varNames[uuid] = varName
			p.stubs = append(p.stubs, stub{uuid: uuid, varName: varName})
			continue
		}

		cmd, ok := commands[act.ActionID()]
		if !ok {
			cmd = newCommand(act, varNames)
			commands[act.ActionID()] = cmd
			p.commands = append(p.commands, cmd)
			for _, param := range cmd.params {
				if param.isMetadata {
					p.usesMetadata = true
				}
			}
		}

		base := act.OutputName()
		if base == "" {
			base = typeBaseName(node.Type())
		}
		varName := names.claim(toSnake(base))
		varNames[uuid] = varName
		cmd.outputs = append(cmd.outputs, output{
			name:         act.OutputName(),
			uuid:         uuid,
			varName:      varName,
			semanticType: node.Type(),
		})
	}

	planLog.Printf("Planned %d commands, %d stubs", len(p.commands), len(p.stubs))
	return p, nil
}

func newCommand(act *provenance.Action, varNames map[string]string) *command {
	cmd := &command{
		actionID:   act.ActionID(),
		actionType: act.ActionType(),
		plugin:     act.Plugin(),
		actionName: act.ActionName(),
	}

	for _, ref := range act.Inputs() {
		varName, ok := varNames[ref.UUID]
		if !ok {
			// Parents precede children in topological order, so this
			// means the input's records are missing entirely.
			varName = fmt.Sprintf("<missing %s>", ref.UUID)
		}
		cmd.inputs = append(cmd.inputs, inputArg{
			name:         ref.Name,
			varName:      varName,
			noProvenance: ref.NoProvenance,
		})
	}

	for _, param := range act.Parameters() {
		if info, ok := param.Value.(provenance.MetadataInfo); ok {
			cmd.params = append(cmd.params, paramArg{
				name:         param.Name,
				metadataFile: info.RelativeFP,
				isMetadata:   true,
			})
			continue
		}
		cmd.params = append(cmd.params, paramArg{name: param.Name, value: param.Value})
	}
	return cmd
}

// visibleUUIDs walks inputs backwards from the parsed archives, which hides
// results internal to collapsed pipelines.
func visibleUUIDs(d *provenance.DAG) map[string]struct{} {
	visible := make(map[string]struct{})
	stack := d.ParsedArtifactUUIDs()
	for len(stack) > 0 {
		uuid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visible[uuid]; seen {
			continue
		}
		visible[uuid] = struct{}{}
		stack = append(stack, d.Parents(uuid)...)
	}
	return visible
}

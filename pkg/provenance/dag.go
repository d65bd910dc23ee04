package provenance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/qiime2/q2prov/pkg/archive"
	"github.com/qiime2/q2prov/pkg/checksum"
	"github.com/qiime2/q2prov/pkg/envutil"
	"github.com/qiime2/q2prov/pkg/logger"
)

var dagLog = logger.New("provenance:dag")

// ErrCycleDetected is returned when a provenance graph contains a cycle,
// which only happens with corrupt or hand-edited records.
var ErrCycleDetected = errors.New("cycle detected in provenance graph")

// NodeData carries the per-node attributes of a provenance DAG.
type NodeData struct {
	// Node holds the parsed records, nil for results known only as inputs
	// to other results (no-provenance stubs).
	Node *Node
	// HasProvenance is false for stubs and for results captured before
	// provenance tracking existed.
	HasProvenance bool
}

// DAG is a directed acyclic graph of provenance records. Edges run from
// parent results to the results computed from them.
type DAG struct {
	nodes    map[string]*NodeData
	children map[string]map[string]struct{}
	parents  map[string]map[string]struct{}

	// parsedArtifactUUIDs holds the root UUID of every archive merged
	// into this DAG.
	parsedArtifactUUIDs map[string]struct{}

	code checksum.ValidationCode
	diff *checksum.Diff

	// Warnings holds non-fatal conditions from parsing.
	Warnings []string

	terminalCache []string
}

// NewDAG returns an empty DAG that validates as intact.
func NewDAG() *DAG {
	return &DAG{
		nodes:               make(map[string]*NodeData),
		children:            make(map[string]map[string]struct{}),
		parents:             make(map[string]map[string]struct{}),
		parsedArtifactUUIDs: make(map[string]struct{}),
		code:                checksum.Valid,
	}
}

// ParseFile parses one .qza or .qzv archive into a DAG.
func ParseFile(path string, cfg Config) (*DAG, error) {
	dagLog.Printf("Parsing archive %s", path)

	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	results, err := ParseArchive(a, cfg)
	if err != nil {
		return nil, err
	}

	d := NewDAGFromResults(a.RootUUID(), results)
	dagLog.Printf("Parsed %s: %d nodes", path, d.Len())
	return d, nil
}

// NewDAGFromResults builds a DAG from one archive's parsed contents.
func NewDAGFromResults(rootUUID string, results *ParserResults) *DAG {
	d := NewDAG()
	d.code = results.ValidationCode
	d.diff = results.ChecksumDiff
	d.Warnings = results.Warnings
	d.parsedArtifactUUIDs[rootUUID] = struct{}{}

	for uuid, node := range results.Contents {
		d.addNode(uuid, &NodeData{Node: node, HasProvenance: node.HasProvenance()})
	}
	for uuid, node := range results.Contents {
		for _, parent := range node.Parents() {
			if _, known := d.nodes[parent.UUID]; !known {
				// Inputs without records of their own become stubs
				// so ancestry stays visible.
				d.addNode(parent.UUID, &NodeData{HasProvenance: false})
			}
			d.addEdge(parent.UUID, uuid)
		}
	}
	return d
}

// ParseDir parses every .qza and .qzv under dir, in parallel, and merges
// the results into one DAG.
func ParseDir(dir string, cfg Config) (*DAG, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".qza" || ext == ".qzv" {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .qza or .qzv archives found under %s", dir)
	}
	sort.Strings(paths)
	dagLog.Printf("Parsing %d archives under %s", len(paths), dir)

	workers := envutil.GetIntFromEnv("Q2PROV_MAX_PARALLEL", 8, 1, 64, dagLog)
	p := pool.NewWithResults[*DAG]().WithErrors().WithMaxGoroutines(workers)
	for _, path := range paths {
		p.Go(func() (*DAG, error) {
			return ParseFile(path, cfg)
		})
	}
	dags, err := p.Wait()
	if err != nil {
		return nil, err
	}
	return Union(dags)
}

// Union merges DAGs into one. Shared nodes are deduplicated, preferring
// whichever copy has provenance, and the merged validation code is the
// worst across inputs.
func Union(dags []*DAG) (*DAG, error) {
	if len(dags) == 0 {
		return nil, errors.New("nothing to union: no DAGs given")
	}

	merged := NewDAG()
	for _, d := range dags {
		merged.code = checksum.Worst(merged.code, d.code)
		if merged.diff == nil {
			merged.diff = d.diff
		}
		merged.Warnings = append(merged.Warnings, d.Warnings...)
		for uuid := range d.parsedArtifactUUIDs {
			merged.parsedArtifactUUIDs[uuid] = struct{}{}
		}
		for uuid, data := range d.nodes {
			existing, ok := merged.nodes[uuid]
			if !ok || (!existing.HasProvenance && data.HasProvenance) {
				merged.addNode(uuid, data)
			}
		}
		for parent, kids := range d.children {
			for child := range kids {
				merged.addEdge(parent, child)
			}
		}
	}

	merged.terminalCache = nil
	dagLog.Printf("Union of %d DAGs: %d nodes, %d parsed artifacts",
		len(dags), len(merged.nodes), len(merged.parsedArtifactUUIDs))
	return merged, nil
}

func (d *DAG) addNode(uuid string, data *NodeData) {
	d.nodes[uuid] = data
	d.terminalCache = nil
}

func (d *DAG) addEdge(parent, child string) {
	if d.children[parent] == nil {
		d.children[parent] = make(map[string]struct{})
	}
	d.children[parent][child] = struct{}{}
	if d.parents[child] == nil {
		d.parents[child] = make(map[string]struct{})
	}
	d.parents[child][parent] = struct{}{}
	d.terminalCache = nil
}

// Len returns the number of results in the DAG, stubs included.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// UUIDs returns every result UUID in sorted order.
func (d *DAG) UUIDs() []string {
	uuids := make([]string, 0, len(d.nodes))
	for uuid := range d.nodes {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return uuids
}

// ParsedArtifactUUIDs returns the root UUIDs of the archives merged into
// this DAG, sorted.
func (d *DAG) ParsedArtifactUUIDs() []string {
	uuids := make([]string, 0, len(d.parsedArtifactUUIDs))
	for uuid := range d.parsedArtifactUUIDs {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return uuids
}

// ValidationCode reports the integrity of the archives behind this DAG.
func (d *DAG) ValidationCode() checksum.ValidationCode {
	return d.code
}

// ChecksumDiff details integrity failures; nil unless a checksums.md5 was
// present and mismatched.
func (d *DAG) ChecksumDiff() *checksum.Diff {
	return d.diff
}

// GetNodeData returns the attributes of one result.
func (d *DAG) GetNodeData(uuid string) (*NodeData, error) {
	data, ok := d.nodes[uuid]
	if !ok {
		return nil, fmt.Errorf("result %s is not in this provenance graph", uuid)
	}
	return data, nil
}

// NodeHasProvenance reports whether a result has its own provenance
// records. Unknown results report false.
func (d *DAG) NodeHasProvenance(uuid string) bool {
	data, ok := d.nodes[uuid]
	return ok && data.HasProvenance
}

// HasEdge reports whether child was computed from parent.
func (d *DAG) HasEdge(parent, child string) bool {
	_, ok := d.children[parent][child]
	return ok
}

// Parents returns the sorted UUIDs of the results a result was computed
// from.
func (d *DAG) Parents(uuid string) []string {
	return sortedSet(d.parents[uuid])
}

// Children returns the sorted UUIDs of the results computed from a result.
func (d *DAG) Children(uuid string) []string {
	return sortedSet(d.children[uuid])
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for uuid := range set {
		out = append(out, uuid)
	}
	sort.Strings(out)
	return out
}

// nestedUUIDs returns the results visible in the nested view: everything
// reachable by walking inputs backwards from the parsed archives. Results
// internal to a pipeline are only reachable through alias records, never
// through inputs, so this walk hides them.
func (d *DAG) nestedUUIDs() map[string]struct{} {
	visible := make(map[string]struct{})
	stack := make([]string, 0, len(d.parsedArtifactUUIDs))
	for uuid := range d.parsedArtifactUUIDs {
		stack = append(stack, uuid)
	}
	for len(stack) > 0 {
		uuid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visible[uuid]; seen {
			continue
		}
		visible[uuid] = struct{}{}
		for parent := range d.parents[uuid] {
			stack = append(stack, parent)
		}
	}
	return visible
}

// TerminalUUIDs returns the sorted UUIDs of the results nothing else was
// computed from, considering only the nested view.
func (d *DAG) TerminalUUIDs() []string {
	if d.terminalCache != nil {
		return d.terminalCache
	}

	visible := d.nestedUUIDs()
	var terminal []string
	for uuid := range visible {
		hasVisibleChild := false
		for child := range d.children[uuid] {
			if _, ok := visible[child]; ok {
				hasVisibleChild = true
				break
			}
		}
		if !hasVisibleChild {
			terminal = append(terminal, uuid)
		}
	}
	sort.Strings(terminal)
	d.terminalCache = terminal
	return terminal
}

// TerminalNodes returns the parsed records of every terminal result.
func (d *DAG) TerminalNodes() ([]*Node, error) {
	var nodes []*Node
	for _, uuid := range d.TerminalUUIDs() {
		data := d.nodes[uuid]
		if data == nil || data.Node == nil {
			return nil, fmt.Errorf("terminal result %s has no parsed records", uuid)
		}
		nodes = append(nodes, data.Node)
	}
	return nodes, nil
}

// RelabelNodes renames results throughout the DAG. UUIDs absent from the
// mapping keep their names.
func (d *DAG) RelabelNodes(mapping map[string]string) {
	rename := func(uuid string) string {
		if newName, ok := mapping[uuid]; ok {
			return newName
		}
		return uuid
	}

	nodes := make(map[string]*NodeData, len(d.nodes))
	for uuid, data := range d.nodes {
		nodes[rename(uuid)] = data
	}
	d.nodes = nodes

	children := make(map[string]map[string]struct{}, len(d.children))
	parents := make(map[string]map[string]struct{}, len(d.parents))
	for parent, kids := range d.children {
		for child := range kids {
			p, c := rename(parent), rename(child)
			if children[p] == nil {
				children[p] = make(map[string]struct{})
			}
			children[p][c] = struct{}{}
			if parents[c] == nil {
				parents[c] = make(map[string]struct{})
			}
			parents[c][p] = struct{}{}
		}
	}
	d.children = children
	d.parents = parents

	parsed := make(map[string]struct{}, len(d.parsedArtifactUUIDs))
	for uuid := range d.parsedArtifactUUIDs {
		parsed[rename(uuid)] = struct{}{}
	}
	d.parsedArtifactUUIDs = parsed
	d.terminalCache = nil
}

// TopologicalSort returns every result ordered so parents precede the
// results computed from them, ties broken by UUID for stable output.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for uuid := range d.nodes {
		inDegree[uuid] = len(d.parents[uuid])
	}

	var ready []string
	for uuid, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, uuid)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		uuid := ready[0]
		ready = ready[1:]
		order = append(order, uuid)

		released := false
		for child := range d.children[uuid] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(d.nodes) {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// IsSingleFile reports whether path names a regular file rather than a
// directory.
func IsSingleFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

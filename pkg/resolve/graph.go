package resolve

import "github.com/workpipe/workpipe/pkg/sliceutil"

// ImportGraph is the non-transitive "imports" relation between files:
// edges[a] holds exactly the paths a's own `import ... from "..."`
// declarations name, never anything a's imports themselves import.
type ImportGraph struct {
	edges map[string][]string
	nodes map[string]bool
}

func NewImportGraph() *ImportGraph {
	return &ImportGraph{edges: map[string][]string{}, nodes: map[string]bool{}}
}

func (g *ImportGraph) AddNode(path string) {
	g.nodes[path] = true
	if _, ok := g.edges[path]; !ok {
		g.edges[path] = nil
	}
}

func (g *ImportGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if sliceutil.Contains(g.edges[from], to) {
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

// Imports returns the direct (non-transitive) imports of path.
func (g *ImportGraph) Imports(path string) []string { return g.edges[path] }

// Dependents returns every path that directly imports path, used to find
// the invalidation set when path's content changes.
func (g *ImportGraph) Dependents(path string) []string {
	var out []string
	for from, tos := range g.edges {
		for _, t := range tos {
			if t == path {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// dependentsOf computes the full transitive closure of files that must be
// invalidated and reprocessed when path's content changes: path itself,
// every direct importer, every importer of those, and so on.
func (g *ImportGraph) dependentsOf(path string) []string {
	seen := map[string]bool{path: true}
	queue := []string{path}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g.Dependents(cur) {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

// Cycle describes a set of files that import one another, directly or
// transitively, through `import ... from` declarations. This is always an
// error: WorkPipe's "cycle" construct is an in-language control-flow
// feature, not a license for circular modules.
type Cycle struct {
	Members []string
}

// tarjan finds the strongly connected components of g. A component with
// more than one member, or a single member with a self-edge, is an
// import cycle.
func (g *ImportGraph) tarjan() []Cycle {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var cycles []Cycle

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, ok := indices[w]; !ok {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) > 1 || (len(comp) == 1 && hasSelfEdge(g, comp[0])) {
				cycles = append(cycles, Cycle{Members: comp})
			}
		}
	}

	for v := range g.nodes {
		if _, ok := indices[v]; !ok {
			strongconnect(v)
		}
	}
	return cycles
}

func hasSelfEdge(g *ImportGraph, v string) bool {
	return sliceutil.Contains(g.edges[v], v)
}

// TopoOrder returns the graph's nodes in an order where every file
// appears after everything it imports, or ok=false if the graph contains
// a cycle (callers should report Cycles() instead of trusting the order).
func (g *ImportGraph) TopoOrder() (order []string, ok bool) {
	if len(g.tarjan()) > 0 {
		return nil, false
	}
	visited := map[string]bool{}
	var visit func(v string)
	for v := range g.nodes {
		visited[v] = false
	}
	visit = func(v string) {
		if visited[v] {
			return
		}
		visited[v] = true
		for _, w := range g.edges[v] {
			visit(w)
		}
		order = append(order, v)
	}
	for v := range g.nodes {
		visit(v)
	}
	return order, true
}

// Cycles reports every import cycle present in the graph.
func (g *ImportGraph) Cycles() []Cycle { return g.tarjan() }

package resolve

import (
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/cst"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/logger"
	"github.com/workpipe/workpipe/pkg/source"
)

var log = logger.New("resolve")

// FileState is everything derived from one source file: its text, concrete
// tree, typed AST, and any problems discovered while producing them. It is
// the unit the ImportContext caches and invalidates.
type FileState struct {
	Path string
	Map  *source.Map
	Tree *cst.Tree
	File *ast.File
	Diag *diag.Collector
}

// ImportContext is the batch-scoped cache every pass shares for one
// compile: parsed files, the import graph between them, and a slot other
// passes (pkg/types' registries, in particular) can stash their own
// per-file derived state in, so it gets invalidated for free alongside the
// file it was computed from.
type ImportContext struct {
	resolver FileResolver

	mu    sync.RWMutex
	files map[string]*FileState
	graph *ImportGraph
	extra map[string]map[string]any
}

func NewImportContext(resolver FileResolver) *ImportContext {
	return &ImportContext{
		resolver: resolver,
		files:    map[string]*FileState{},
		graph:    NewImportGraph(),
		extra:    map[string]map[string]any{},
	}
}

func (c *ImportContext) Graph() *ImportGraph { return c.graph }

// Get returns a cached FileState without triggering a load.
func (c *ImportContext) Get(path string) (*FileState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fs, ok := c.files[path]
	return fs, ok
}

// Attach stores arbitrary pass-computed state (e.g. a type registry)
// against a path, so Invalidate clears it along with the file it depends
// on.
func (c *ImportContext) Attach(path, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.extra[path]
	if !ok {
		m = map[string]any{}
		c.extra[path] = m
	}
	m[key] = value
}

func (c *ImportContext) AttachedGet(path, key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.extra[path]
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// load parses a single file (uncached) and returns its FileState plus any
// syntax/read diagnostics, without recursing into its imports.
func (c *ImportContext) load(path string) *FileState {
	fs := &FileState{Path: path, Diag: diag.NewCollector()}
	text, err := c.resolver.Read(path)
	if err != nil {
		fs.Diag.Errorf(diag.CodeInternal, path, source.Span{}, err.Error())
		return fs
	}
	fs.Map = source.NewMap(path, text)
	tree, syntaxErrs := cst.Parse(path, text)
	fs.Tree = tree
	for _, se := range syntaxErrs {
		fs.Diag.Errorf(diag.CodeUnexpectedChar, path, se.Span, se.Message)
	}
	file, readErrs := ast.Read(tree)
	fs.File = file
	for _, re := range readErrs {
		fs.Diag.Errorf(diag.CodeMalformedLiteral, path, re.Span, re.Message)
	}
	return fs
}

// Build discovers and parses the full import closure reachable from
// roots. Discovery is inherently sequential (a file's edges are unknown
// until it is parsed), but Build is the only place that pays that cost:
// once the closure is cached, Recompute reprocesses dirty subsets in
// parallel.
func (c *ImportContext) Build(roots []string) *diag.Collector {
	log.Printf("build roots=%v", roots)
	out := diag.NewCollector()
	queue := append([]string(nil), roots...)
	seen := map[string]bool{}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if seen[path] {
			continue
		}
		seen[path] = true

		fs := c.load(path)
		c.mu.Lock()
		c.files[path] = fs
		c.mu.Unlock()
		c.graph.AddNode(path)
		out.Merge(fs.Diag)

		if fs.File == nil {
			continue
		}
		for _, imp := range fs.File.Imports {
			target := resolveImportPath(path, imp.Path)
			c.graph.AddEdge(path, target)
			if !seen[target] {
				queue = append(queue, target)
			}
		}
	}

	for _, cyc := range c.graph.Cycles() {
		for _, member := range cyc.Members {
			out.Errorf(diag.CodeCircularImport, member, source.Span{}, "circular import involving "+joinCycle(cyc.Members))
		}
	}
	log.Printf("build done files=%d errors=%d", len(c.files), len(out.All()))
	return out
}

func joinCycle(members []string) string {
	s := ""
	for i, m := range members {
		if i > 0 {
			s += " -> "
		}
		s += m
	}
	return s
}

// Invalidate drops cached state for path and every file that transitively
// depends on it (through import edges), so the next Build/Recompute call
// reparses exactly the files that could have changed meaning.
func (c *ImportContext) Invalidate(path string) []string {
	affected := c.graph.dependentsOf(path)
	c.mu.Lock()
	for _, p := range affected {
		delete(c.files, p)
		delete(c.extra, p)
	}
	c.mu.Unlock()
	return affected
}

// Recompute reparses exactly the given paths, in parallel, assuming the
// import graph's edges for files outside this set are still valid (i.e.
// their content has not changed). Use after Invalidate.
func (c *ImportContext) Recompute(paths []string) *diag.Collector {
	log.Printf("recompute dirty=%d", len(paths))
	out := diag.NewCollector()
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(8)
	for _, path := range paths {
		path := path
		p.Go(func() {
			fs := c.load(path)
			c.mu.Lock()
			c.files[path] = fs
			c.mu.Unlock()
			mu.Lock()
			out.Merge(fs.Diag)
			mu.Unlock()
		})
	}
	p.Wait()

	c.mu.Lock()
	for _, path := range paths {
		fs := c.files[path]
		if fs == nil || fs.File == nil {
			continue
		}
		for _, imp := range fs.File.Imports {
			c.graph.AddEdge(path, resolveImportPath(path, imp.Path))
		}
	}
	c.mu.Unlock()

	for _, cyc := range c.graph.Cycles() {
		for _, member := range cyc.Members {
			out.Errorf(diag.CodeCircularImport, member, source.Span{}, "circular import involving "+joinCycle(cyc.Members))
		}
	}
	return out
}

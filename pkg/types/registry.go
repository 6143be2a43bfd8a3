// Package types builds the per-file symbol table WorkPipe's import system
// needs: every type, job_fragment, and steps_fragment a file declares or
// imports, with import resolution strictly non-transitive — a file only
// ever sees names another file declares locally, never names that file
// itself imported.
package types

import (
	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/constants"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/resolve"
	"github.com/workpipe/workpipe/pkg/source"
)

// SymbolKind distinguishes the three kinds of name a file can declare or
// import.
type SymbolKind int

const (
	SymbolType SymbolKind = iota
	SymbolJobFragment
	SymbolStepsFragment
)

// Symbol is one resolvable name in a file's scope, whether declared
// locally or brought in by an import.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       ast.Type             // populated when Kind == SymbolType
	JobFrag    *ast.JobFragmentDecl  // populated when Kind == SymbolJobFragment
	StepsFrag  *ast.StepsFragmentDecl
	FromImport bool
	DeclPath   string // file that declared the name locally
}

// Registry is one file's resolved scope: every symbol it can reference by
// bare name, whether declared here or imported.
type Registry struct {
	Path    string
	Symbols map[string]Symbol
}

func newRegistry(path string) *Registry {
	return &Registry{Path: path, Symbols: map[string]Symbol{}}
}

// localSymbols collects every name a file declares at top level, without
// consulting its own imports — this is exactly the surface another file
// is allowed to import from it.
func localSymbols(f *ast.File) map[string]Symbol {
	out := map[string]Symbol{}
	for _, t := range f.Types {
		out[t.Name] = Symbol{Name: t.Name, Kind: SymbolType, Type: t.Type, DeclPath: f.Path}
	}
	for _, jf := range f.JobFrags {
		out[jf.Name] = Symbol{Name: jf.Name, Kind: SymbolJobFragment, JobFrag: jf, DeclPath: f.Path}
	}
	for _, sf := range f.StepFrags {
		out[sf.Name] = Symbol{Name: sf.Name, Kind: SymbolStepsFragment, StepsFrag: sf, DeclPath: f.Path}
	}
	return out
}

// BuildRegistry resolves path's full scope: its own local declarations
// plus, for each import, exactly the named symbols from the imported
// file's local declarations (never that file's own imports).
func BuildRegistry(ctx *resolve.ImportContext, path string) (*Registry, *diag.Collector) {
	out := diag.NewCollector()
	fs, ok := ctx.Get(path)
	if !ok || fs.File == nil {
		return newRegistry(path), out
	}

	reg := newRegistry(path)
	local := localSymbols(fs.File)

	seenTypeNames := map[string]source.Span{}
	for _, t := range fs.File.Types {
		if prev, dup := seenTypeNames[t.Name]; dup {
			out.Errorf(diag.CodeDuplicateTypeName, path, t.Span, "duplicate type name '"+t.Name+"' (first declared at "+prev.String()+")")
			continue
		}
		seenTypeNames[t.Name] = t.Span
		reg.Symbols[t.Name] = local[t.Name]
	}
	for _, jf := range fs.File.JobFrags {
		reg.Symbols[jf.Name] = local[jf.Name]
	}
	for _, sf := range fs.File.StepFrags {
		reg.Symbols[sf.Name] = local[sf.Name]
	}

	effectiveNames := map[string]source.Span{}
	for name, span := range seenTypeNames {
		effectiveNames[name] = span
	}

	for _, imp := range fs.File.Imports {
		targetPath := resolvePathForImport(path, imp.Path)
		targetFS, ok := ctx.Get(targetPath)
		if !ok || targetFS.File == nil {
			out.Errorf(diag.CodeImportNameNotFound, path, imp.Span, "cannot resolve import path '"+imp.Path+"'")
			continue
		}
		targetLocal := localSymbols(targetFS.File)
		var candidates []string
		for n := range targetLocal {
			candidates = append(candidates, n)
		}

		seenInThisImport := map[string]bool{}
		for _, item := range imp.Items {
			if seenInThisImport[item.Name] {
				out.Errorf(diag.CodeDuplicateImportItem, path, item.Span, "'"+item.Name+"' imported more than once from '"+imp.Path+"'")
				continue
			}
			seenInThisImport[item.Name] = true

			sym, found := targetLocal[item.Name]
			if !found {
				msg := "'" + item.Name + "' is not exported by '" + imp.Path + "'"
				if hint, ok := suggest(item.Name, candidates, constants.LevenshteinSuggestionDistance); ok {
					out.Add(diag.Diagnostic{Code: diag.CodeImportNameNotFound, Severity: diag.SeverityError, Message: msg, Path: path, Span: item.Span, Hint: "did you mean '" + hint + "'?"})
				} else {
					out.Errorf(diag.CodeImportNameNotFound, path, item.Span, msg)
				}
				continue
			}

			effective := item.EffectiveName()
			sym.FromImport = true
			sym.Name = effective
			if prevSpan, collide := effectiveNames[effective]; collide {
				out.Errorf(diag.CodeImportCollision, path, item.Span, "'"+effective+"' collides with a name already in scope (declared at "+prevSpan.String()+")")
				continue
			}
			effectiveNames[effective] = item.Span
			reg.Symbols[effective] = sym
		}
	}

	return reg, out
}

func resolvePathForImport(fromPath, importPath string) string {
	return resolve.ResolveImportPath(fromPath, importPath)
}

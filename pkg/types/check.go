package types

import (
	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/constants"
	"github.com/workpipe/workpipe/pkg/diag"
)

var primitives = map[string]bool{
	constants.TypeString: true,
	constants.TypeInt:    true,
	constants.TypeFloat:  true,
	constants.TypeBool:   true,
	constants.TypeJSON:   true,
	"null":               true,
}

// ResolveTypeRef reports whether name is a known type: a primitive, or a
// symbol declared/imported into reg.
func ResolveTypeRef(reg *Registry, name string) (ast.Type, bool) {
	if primitives[name] {
		return ast.PrimitiveType{Name: name}, true
	}
	sym, ok := reg.Symbols[name]
	if !ok || sym.Kind != SymbolType {
		return nil, false
	}
	return sym.Type, true
}

// CheckTypeRefs walks every type expression reachable from file's type
// declarations, job/agent/matrix job outputs, and fragment params,
// reporting a diagnostic for any named reference that resolves to neither
// a primitive nor a symbol in reg.
func CheckTypeRefs(reg *Registry, file *ast.File) *diag.Collector {
	out := diag.NewCollector()
	var walk func(t ast.Type)
	walk = func(t ast.Type) {
		switch v := t.(type) {
		case ast.PrimitiveType:
			if _, ok := ResolveTypeRef(reg, v.Name); !ok {
				msg := "unknown type '" + v.Name + "'"
				var candidates []string
				for n, s := range reg.Symbols {
					if s.Kind == SymbolType {
						candidates = append(candidates, n)
					}
				}
				if hint, ok := suggest(v.Name, candidates, constants.LevenshteinSuggestionDistance); ok {
					out.Add(diag.Diagnostic{Code: diag.CodeUnknownTypeRef, Severity: diag.SeverityError, Message: msg, Path: file.Path, Span: v.Span, Hint: "did you mean '" + hint + "'?"})
				} else {
					out.Errorf(diag.CodeUnknownTypeRef, file.Path, v.Span, msg)
				}
			}
		case ast.ListType:
			if v.Elem != nil {
				walk(v.Elem)
			}
		case ast.ObjectType:
			for _, f := range v.Fields {
				if f.Type != nil {
					walk(f.Type)
				}
			}
		case ast.UnionType:
			for _, m := range v.Members {
				walk(m)
			}
		}
	}

	for _, td := range file.Types {
		if td.Type != nil {
			walk(td.Type)
		}
	}
	walkJob := func(jb *ast.JobBody) {
		for _, f := range jb.Outputs {
			if f.Type != nil {
				walk(f.Type)
			}
		}
	}
	for _, jf := range file.JobFrags {
		for _, p := range jf.Params {
			if p.Type != nil {
				walk(p.Type)
			}
		}
		walkJob(&jf.Body)
	}
	for _, sf := range file.StepFrags {
		for _, p := range sf.Params {
			if p.Type != nil {
				walk(p.Type)
			}
		}
	}
	if file.Workflow != nil {
		for _, j := range file.Workflow.Jobs {
			walkJob(j.Common())
		}
		for _, c := range file.Workflow.Cycles {
			for _, j := range c.Body {
				walkJob(j.Common())
			}
		}
	}
	return out
}

package types

import (
	"regexp"
	"strings"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/source"
)

// needsExprPattern matches `${{ needs.<job>.outputs.<output>.<prop>... }}`
// expressions embedded in guard code, shell scripts, and if-conditions.
var needsExprPattern = regexp.MustCompile(`\$\{\{\s*needs\.([A-Za-z0-9_]+)\.outputs\.([A-Za-z0-9_]+)((?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// CheckPropertyAccess validates every `needs.<job>.outputs.<output>.<...>`
// expression found anywhere in wf's string-valued fields: the named job
// must be a sibling in scope, the output must exist on it, and any
// further property path must resolve through that output's declared
// object type. A `json`-typed output terminates static checking, per the
// same escape hatch untyped external payloads need everywhere else.
func CheckPropertyAccess(reg *Registry, path string, wf *ast.WorkflowDecl) *diag.Collector {
	out := diag.NewCollector()
	if wf == nil {
		return out
	}

	outputs := map[string][]ast.FieldDecl{}
	collect := func(jobs []ast.JobLike) {
		for _, j := range jobs {
			outputs[j.JobName()] = j.Common().Outputs
		}
	}
	collect(wf.Jobs)
	for _, c := range wf.Cycles {
		collect(c.Body)
	}

	scan := func(text string, span source.Span) {
		for _, m := range needsExprPattern.FindAllStringSubmatch(text, -1) {
			jobName, outName, rest := m[1], m[2], m[3]
			fields, ok := outputs[jobName]
			if !ok {
				out.Errorf(diag.CodePropertyAccessError, path, span, "needs."+jobName+" does not name a job in scope")
				continue
			}
			var outType ast.Type
			found := false
			for _, f := range fields {
				if f.Name == outName {
					outType = f.Type
					found = true
					break
				}
			}
			if !found {
				out.Errorf(diag.CodePropertyAccessError, path, span, "job '"+jobName+"' has no output '"+outName+"'")
				continue
			}
			if rest == "" {
				continue
			}
			segments := strings.Split(strings.TrimPrefix(rest, "."), ".")
			cur := outType
			for _, seg := range segments {
				if cur == nil {
					break
				}
				prim, isPrim := cur.(ast.PrimitiveType)
				if isPrim && prim.Name == "json" {
					cur = nil // json terminates static checking
					break
				}
				obj, isObj := cur.(ast.ObjectType)
				if !isObj {
					out.Errorf(diag.CodePropertyAccessError, path, span, "'"+seg+"' accessed on non-object output '"+outName+"'")
					cur = nil
					break
				}
				var next ast.Type
				ok := false
				for _, f := range obj.Fields {
					if f.Name == seg {
						next = f.Type
						ok = true
						break
					}
				}
				if !ok {
					msg := "output '" + outName + "' has no field '" + seg + "'"
					out.Add(diag.Diagnostic{Code: diag.CodePropertyAccessError, Severity: diag.SeverityError, Message: msg, Path: path, Span: span, Hint: "present fields: " + presentFields(obj)})
					cur = nil
					break
				}
				cur = next
			}
		}
	}

	scanJob := func(jb *ast.JobBody) {
		if jb.If != "" {
			scan(jb.If, jb.Span)
		}
		for _, s := range jb.Steps {
			switch v := s.(type) {
			case ast.RunStep:
				scan(v.Command, v.Span)
			case ast.ShellStep:
				scan(v.Script, v.Span)
			case ast.GuardStep:
				scan(v.Code, v.Span)
			case ast.AgentTaskStep:
				scan(v.Prompt, v.Span)
			case ast.UsesStep:
				for _, a := range v.With {
					if sv, ok := a.Value.(ast.StringValue); ok {
						scan(sv.Value, sv.Span)
					}
				}
			}
		}
	}
	for _, j := range wf.Jobs {
		scanJob(j.Common())
	}
	for _, c := range wf.Cycles {
		if c.HasUntil {
			scan(c.UntilGuard, c.Span)
		}
		for _, j := range c.Body {
			scanJob(j.Common())
		}
	}
	return out
}

// presentFields renders obj's field names for a WP5003 hint, the way
// spec.md's scenario S3 requires: naming the field that doesn't exist
// alongside the ones that do.
func presentFields(obj ast.ObjectType) string {
	names := make([]string, len(obj.Fields))
	for i, f := range obj.Fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

// Package fragment instantiates job_fragment and steps_fragment
// declarations: substituting `${{ params.X }}` placeholders with the
// arguments a call site supplies, and splicing a steps_fragment's
// expansion into the step list that spreads it.
package fragment

import (
	"regexp"
	"strconv"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/types"
)

var paramPattern = regexp.MustCompile(`\$\{\{\s*params\.(\w+)\s*\}\}`)

// Expand rewrites every fragment-instantiated job and fragment-spread step
// in wf's jobs and cycle bodies into its fully-substituted inline form, in
// place. It is idempotent: a workflow with no fragment usage is returned
// unchanged.
func Expand(reg *types.Registry, path string, wf *ast.WorkflowDecl) *diag.Collector {
	out := diag.NewCollector()
	if wf == nil {
		return out
	}
	for i, j := range wf.Jobs {
		if job, ok := j.(*ast.Job); ok && job.FromFragment != "" {
			wf.Jobs[i] = instantiateJobFragment(reg, path, job, out)
		}
	}
	for _, c := range wf.Cycles {
		for i, j := range c.Body {
			if job, ok := j.(*ast.Job); ok && job.FromFragment != "" {
				c.Body[i] = instantiateJobFragment(reg, path, job, out)
			}
		}
	}
	for _, j := range wf.Jobs {
		expandSteps(reg, path, j.Common(), out)
	}
	for _, c := range wf.Cycles {
		for _, j := range c.Body {
			expandSteps(reg, path, j.Common(), out)
		}
	}
	return out
}

func instantiateJobFragment(reg *types.Registry, path string, job *ast.Job, out *diag.Collector) *ast.Job {
	sym, ok := reg.Symbols[job.FromFragment]
	if !ok || sym.Kind != types.SymbolJobFragment {
		out.Errorf(diag.CodeUnknownFragmentRef, path, job.Span, "unknown job fragment '"+job.FromFragment+"'")
		return job
	}
	frag := sym.JobFrag
	argMap := validateArgs(path, frag.Params, job.Args, out)

	body := substituteJobBody(frag.Body, argMap)
	return &ast.Job{Name: job.Name, Body: body, Span: job.Span}
}

// validateArgs checks a call site's arguments against a fragment's formal
// parameters: every required (no-default) param must be supplied, every
// supplied name must be a real param, and builds the name->value map used
// for substitution (falling back to each param's default).
func validateArgs(path string, params []ast.Param, args []ast.Arg, out *diag.Collector) map[string]ast.Value {
	byName := map[string]ast.Param{}
	for _, p := range params {
		byName[p.Name] = p
	}
	supplied := map[string]ast.Value{}
	for _, a := range args {
		p, ok := byName[a.Name]
		if !ok {
			out.Errorf(diag.CodeUnknownFragmentArg, path, a.Span, "unknown argument '"+a.Name+"'")
			continue
		}
		if !valueMatchesType(a.Value, p.Type) {
			out.Errorf(diag.CodeFragmentArgTypeMismatch, path, a.Span, "argument '"+a.Name+"' does not match its declared type")
		}
		supplied[a.Name] = a.Value
	}
	result := map[string]ast.Value{}
	for _, p := range params {
		if v, ok := supplied[p.Name]; ok {
			result[p.Name] = v
			continue
		}
		if p.Default != nil {
			result[p.Name] = p.Default
			continue
		}
		out.Errorf(diag.CodeMissingFragmentArg, path, p.Span, "missing required argument '"+p.Name+"'")
	}
	return result
}

func valueMatchesType(v ast.Value, t ast.Type) bool {
	prim, ok := t.(ast.PrimitiveType)
	if !ok {
		return true // only scalar primitives are checked; structural types pass through
	}
	switch prim.Name {
	case "string":
		_, ok := v.(ast.StringValue)
		if !ok {
			_, ok = v.(ast.TripleStringValue)
		}
		return ok
	case "int":
		_, ok := v.(ast.IntValue)
		return ok
	case "float":
		_, ok := v.(ast.FloatValue)
		return ok
	case "bool":
		_, ok := v.(ast.BoolValue)
		return ok
	default:
		return true
	}
}

func valueText(v ast.Value) string {
	switch t := v.(type) {
	case ast.StringValue:
		return t.Value
	case ast.TripleStringValue:
		return t.Value
	case ast.IntValue:
		return strconv.Itoa(t.Value)
	case ast.FloatValue:
		return t.Value
	case ast.BoolValue:
		return strconv.FormatBool(t.Value)
	case ast.IdentValue:
		return t.Name
	default:
		return ""
	}
}

// substText performs the non-recursive scalar substitution WorkPipe's
// param expansion is defined to do: a literal text replace of
// `${{ params.X }}` occurrences, never a structural re-typing of the
// surrounding expression.
func substText(text string, args map[string]ast.Value) string {
	return paramPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := paramPattern.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		if v, ok := args[sub[1]]; ok {
			return valueText(v)
		}
		return m
	})
}

func substituteJobBody(body ast.JobBody, args map[string]ast.Value) ast.JobBody {
	out := body
	out.RunsOn = substText(body.RunsOn, args)
	out.If = substText(body.If, args)
	out.Environment = substText(body.Environment, args)
	out.Steps = make([]ast.Step, len(body.Steps))
	for i, s := range body.Steps {
		out.Steps[i] = substituteStep(s, args)
	}
	return out
}

func substituteStep(s ast.Step, args map[string]ast.Value) ast.Step {
	switch v := s.(type) {
	case ast.RunStep:
		v.Command = substText(v.Command, args)
		return v
	case ast.ShellStep:
		v.Script = substText(v.Script, args)
		return v
	case ast.GuardStep:
		v.Code = substText(v.Code, args)
		return v
	case ast.UsesStep:
		v.Action = substText(v.Action, args)
		for i, a := range v.With {
			if sv, ok := a.Value.(ast.StringValue); ok {
				sv.Value = substText(sv.Value, args)
				v.With[i].Value = sv
			}
		}
		return v
	case ast.AgentTaskStep:
		v.Prompt = substText(v.Prompt, args)
		v.Model = substText(v.Model, args)
		v.OutputArtifact = substText(v.OutputArtifact, args)
		return v
	default:
		return s
	}
}

// expandSteps replaces every SpreadStep in body's step list with the
// fully-substituted steps of the steps_fragment it names.
func expandSteps(reg *types.Registry, path string, body *ast.JobBody, out *diag.Collector) {
	var expanded []ast.Step
	for _, s := range body.Steps {
		spread, ok := s.(ast.SpreadStep)
		if !ok {
			expanded = append(expanded, s)
			continue
		}
		sym, ok := reg.Symbols[spread.Fragment]
		if !ok || sym.Kind != types.SymbolStepsFragment {
			out.Errorf(diag.CodeUnknownFragmentRef, path, spread.Span, "unknown steps fragment '"+spread.Fragment+"'")
			continue
		}
		frag := sym.StepsFrag
		argMap := validateArgs(path, frag.Params, spread.Args, out)
		for _, fs := range frag.Steps {
			expanded = append(expanded, substituteStep(fs, argMap))
		}
	}
	body.Steps = expanded
}

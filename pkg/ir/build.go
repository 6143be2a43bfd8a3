package ir

import (
	"strconv"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/diag"
)

// Build converts an expanded, validated workflow into target IR. Cycle
// lowering is injected by the caller (pkg/compiler), which appends the
// cycle-derived jobs pkg/cycle produces to the returned WorkflowIR before
// emission; Build itself only handles the workflow's ordinary jobs.
func Build(path string, wf *ast.WorkflowDecl) (*WorkflowIR, *diag.Collector) {
	out := diag.NewCollector()
	ir := &WorkflowIR{Name: wf.Name, On: buildTrigger(wf.Trigger)}
	for _, j := range wf.Jobs {
		ir.Jobs = append(ir.Jobs, buildJob(j))
	}
	return ir, out
}

func buildTrigger(t ast.Trigger) TriggerIR {
	if t.Raw != "" {
		return TriggerIR{Raw: t.Raw}
	}
	return TriggerIR{Simple: t.Simple}
}

func buildJob(j ast.JobLike) *JobIR {
	body := j.Common()
	jir := &JobIR{
		ID:          j.JobName(),
		Name:        j.JobName(),
		RunsOn:      body.RunsOn,
		Needs:       body.Needs,
		If:          body.If,
		Environment: body.Environment,
		Outputs:     buildOutputs(body.Outputs, body.Steps),
	}
	for _, s := range body.Steps {
		jir.Steps = append(jir.Steps, buildStep(s))
	}
	if mj, ok := j.(*ast.MatrixJob); ok {
		jir.Strategy = buildStrategy(mj.Matrix)
	}
	return jir
}

// buildOutputs wires a job's declared `outputs:` fields to the
// step-output expressions GitHub Actions uses to surface them, assuming
// each output is produced by an identically-named `id`-tagged step. This
// mirrors the convention spec.md's examples use throughout.
func buildOutputs(fields []ast.FieldDecl, steps []ast.Step) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := map[string]string{}
	for _, f := range fields {
		out[f.Name] = "${{ steps." + f.Name + ".outputs." + f.Name + " }}"
	}
	return out
}

func buildStep(s ast.Step) StepIR {
	switch v := s.(type) {
	case ast.UsesStep:
		step := StepIR{Uses: v.Action}
		if len(v.With) > 0 {
			step.With = map[string]string{}
			for _, a := range v.With {
				step.With[a.Name] = valueToString(a.Value)
			}
		}
		return step
	case ast.ShellStep:
		return StepIR{Run: v.Script, Shell: "bash"}
	case ast.RunStep:
		return StepIR{Run: v.Command}
	case ast.GuardStep:
		return StepIR{Name: v.Name, ID: sanitizeID(v.Name), Run: guardRunExpression(v.Code)}
	case ast.AgentTaskStep:
		return buildAgentTaskStep(v)
	default:
		return StepIR{}
	}
}

// guardRunExpression wraps a guard_js predicate body in a node invocation
// that surfaces its boolean result as a step output named "result", so
// downstream `if:` conditions can reference `steps.<id>.outputs.result`.
func guardRunExpression(code string) string {
	return "node -e \"const result = (() => { " + code + " })(); console.log('result=' + !!result);\" >> \"$GITHUB_OUTPUT\""
}

func buildAgentTaskStep(v ast.AgentTaskStep) StepIR {
	with := map[string]string{
		"prompt": v.Prompt,
		"model":  v.Model,
	}
	if v.HasMaxTurns {
		with["max-turns"] = strconv.Itoa(v.MaxTurns)
	}
	if v.OutputArtifact != "" {
		with["output-artifact"] = v.OutputArtifact
	}
	return StepIR{Uses: "anthropics/claude-code-action@v1", With: with}
}

func sanitizeID(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func valueToString(v ast.Value) string {
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

func buildStrategy(m ast.Matrix) map[string]any {
	strategy := map[string]any{}
	for _, axis := range m.Axes {
		var vals []any
		for _, v := range axis.Values {
			vals = append(vals, valueToString(v))
		}
		strategy[axis.Name] = vals
	}
	if len(m.Include) > 0 {
		strategy["include"] = convertEntryMaps(m.Include)
	}
	if len(m.Exclude) > 0 {
		strategy["exclude"] = convertEntryMaps(m.Exclude)
	}
	return strategy
}

func convertEntryMaps(entries []map[string]ast.Value) []map[string]any {
	var out []map[string]any
	for _, e := range entries {
		m := map[string]any{}
		for k, v := range e {
			m[k] = valueToString(v)
		}
		out = append(out, m)
	}
	return out
}

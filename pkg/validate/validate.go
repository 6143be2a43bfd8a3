// Package validate runs WorkPipe's semantic checks over an expanded
// workflow: everything that needs the full job graph in view at once,
// which the earlier per-construct passes (pkg/types, pkg/fragment) cannot
// see on their own.
package validate

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/constants"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/sliceutil"
)

var knownRunnerPattern = regexp.MustCompile(`^(ubuntu|windows|macos)-[\w.]+$|^self-hosted$|^self-hosted-[\w.-]+$`)

// Validate runs every semantic check over wf and returns the accumulated
// diagnostics. It never mutates wf.
func Validate(path string, wf *ast.WorkflowDecl) *diag.Collector {
	out := diag.NewCollector()
	if wf == nil {
		return out
	}

	names := map[string]bool{}
	for _, j := range wf.Jobs {
		names[j.JobName()] = true
	}
	for _, c := range wf.Cycles {
		validateCycleShape(path, c, out)
		for _, j := range c.Body {
			names[j.JobName()] = true
		}
	}

	checkJob := func(j ast.JobLike) {
		body := j.Common()
		checkRunner(path, j.JobName(), body, out)
		checkNeeds(path, j.JobName(), body, names, out)
		checkSteps(path, j.JobName(), body.Steps, out)
	}
	for _, j := range wf.Jobs {
		checkJob(j)
		if mj, ok := j.(*ast.MatrixJob); ok {
			checkMatrix(path, mj, out)
		}
	}
	for _, c := range wf.Cycles {
		for _, j := range c.Body {
			checkJob(j)
		}
	}

	return out
}

func checkRunner(path, jobName string, body *ast.JobBody, out *diag.Collector) {
	if body.RunsOn == "" {
		out.Errorf(diag.CodeMissingRunsOn, path, body.Span, "job '"+jobName+"' has no runs_on")
		return
	}
	if !knownRunnerPattern.MatchString(body.RunsOn) {
		out.Warnf(diag.CodeUnknownRunner, path, body.Span, "job '"+jobName+"' uses an unrecognized runner '"+body.RunsOn+"'")
	}
}

func checkNeeds(path, jobName string, body *ast.JobBody, names map[string]bool, out *diag.Collector) {
	var seen []string
	for _, n := range body.Needs {
		if n == jobName {
			out.Errorf(diag.CodeUnknownNeeds, path, body.Span, "job '"+jobName+"' cannot depend on itself")
			continue
		}
		if !names[n] {
			out.Errorf(diag.CodeUnknownNeeds, path, body.Span, "job '"+jobName+"' needs unknown job '"+n+"'")
			continue
		}
		if sliceutil.Contains(seen, n) {
			out.Errorf(diag.CodeUnknownNeeds, path, body.Span, "job '"+jobName+"' lists '"+n+"' in needs more than once")
			continue
		}
		seen = append(seen, n)
	}
}

func checkSteps(path, jobName string, steps []ast.Step, out *diag.Collector) {
	for _, s := range steps {
		at, ok := s.(ast.AgentTaskStep)
		if !ok {
			continue
		}
		if at.Model == "" {
			out.Errorf(diag.CodeMissingAgentField, path, at.Span, "agent_task in job '"+jobName+"' is missing required field 'model'")
		}
		if !at.HasMaxTurns {
			out.Errorf(diag.CodeMissingAgentField, path, at.Span, "agent_task in job '"+jobName+"' is missing required field 'max_turns'")
		}
		if at.OutputSchema != nil {
			validateOutputSchema(path, jobName, at, out)
		}
	}
}

// validateOutputSchema compiles the agent task's declared output_schema as
// a JSON Schema document, catching malformed schemas before they reach
// emission rather than failing opaquely at workflow run time.
func validateOutputSchema(path, jobName string, at ast.AgentTaskStep, out *diag.Collector) {
	doc := typeToJSONSchema(at.OutputSchema)
	compiler := jsonschema.NewCompiler()
	var schemaDoc any
	if err := json.Unmarshal([]byte(toJSONText(doc)), &schemaDoc); err != nil {
		out.Errorf(diag.CodeMissingAgentField, path, at.Span, "agent_task in job '"+jobName+"' has an invalid output_schema: "+err.Error())
		return
	}
	schemaURL := "workpipe://" + jobName + "/output_schema"
	if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
		out.Errorf(diag.CodeMissingAgentField, path, at.Span, "agent_task in job '"+jobName+"' has an invalid output_schema: "+err.Error())
		return
	}
	if _, err := compiler.Compile(schemaURL); err != nil {
		out.Errorf(diag.CodeMissingAgentField, path, at.Span, "agent_task in job '"+jobName+"' has an invalid output_schema: "+err.Error())
	}
}

// checkMatrix bounds the matrix_job's Cartesian product size on the raw
// product of axis lengths, ignoring include/exclude, matching GitHub
// Actions' own accounting (SPEC_FULL.md). It also flags two narrower
// shape errors the bound alone can't catch: an exclude entry that
// doesn't narrow any combination the axes actually generate, and an
// include entry whose keys contradict an axis (naming a value the axis
// never declares).
func checkMatrix(path string, mj *ast.MatrixJob, out *diag.Collector) {
	if len(mj.Matrix.Axes) == 0 {
		return
	}
	total := 1
	axisValues := map[string]map[string]bool{}
	for _, axis := range mj.Matrix.Axes {
		total *= len(axis.Values)
		values := map[string]bool{}
		for _, v := range axis.Values {
			values[valueKey(v)] = true
		}
		axisValues[axis.Name] = values
	}
	if total > constants.MaxMatrixCombinations {
		out.Errorf(diag.CodeMatrixTooLarge, path, mj.Matrix.Span, "matrix job '"+mj.Name+"' expands to too many combinations")
	}

	for _, excl := range mj.Matrix.Exclude {
		if !narrowsSomeCombination(excl, axisValues) {
			out.Errorf(diag.CodeMatrixTooLarge, path, mj.Matrix.Span, "matrix job '"+mj.Name+"' has an exclude entry that does not narrow any generated combination")
		}
	}
	for _, incl := range mj.Matrix.Include {
		for axisName, v := range incl {
			values, ok := axisValues[axisName]
			if !ok {
				continue
			}
			if !values[valueKey(v)] {
				out.Errorf(diag.CodeMatrixTooLarge, path, mj.Matrix.Span, "matrix job '"+mj.Name+"' has an include entry whose '"+axisName+"' value contradicts the axis")
			}
		}
	}
}

// narrowsSomeCombination reports whether excl names only axes that exist
// and, for each, only a value that axis actually declares — i.e. it could
// possibly match and remove at least one generated combination.
func narrowsSomeCombination(excl map[string]ast.Value, axisValues map[string]map[string]bool) bool {
	if len(excl) == 0 {
		return false
	}
	for axisName, v := range excl {
		values, ok := axisValues[axisName]
		if !ok || !values[valueKey(v)] {
			return false
		}
	}
	return true
}

func valueKey(v ast.Value) string {
	switch sv := v.(type) {
	case ast.StringValue:
		return "s:" + sv.Value
	case ast.IntValue:
		return "i:" + strconv.Itoa(sv.Value)
	case ast.BoolValue:
		return "b:" + strconv.FormatBool(sv.Value)
	default:
		return ""
	}
}

func validateCycleShape(path string, c *ast.Cycle, out *diag.Collector) {
	for _, suffix := range constants.ReservedJobSuffixes {
		if strings.HasSuffix(c.Name, suffix) {
			out.Errorf(diag.CodeReservedJobSuffix, path, c.Span, "cycle '"+c.Name+"' must not end in reserved suffix '"+suffix+"'")
		}
	}
	for _, j := range c.Body {
		for _, suffix := range constants.ReservedJobSuffixes {
			if strings.HasSuffix(j.JobName(), suffix) {
				out.Errorf(diag.CodeReservedJobSuffix, path, j.Common().Span, "job '"+j.JobName()+"' in cycle '"+c.Name+"' must not end in reserved suffix '"+suffix+"'")
			}
		}
	}
	if !c.HasUntil && !c.HasMaxIters {
		out.Errorf(diag.CodeCycleMissingGuard, path, c.Span, "cycle '"+c.Name+"' has neither an until guard nor max_iters; it would run unboundedly")
	} else if c.HasUntil && !c.HasMaxIters {
		out.Warnf(diag.CodeCycleUnreachableJob, path, c.Span, "cycle '"+c.Name+"' specifies only an until guard; consider adding max_iters as a safety limit")
	}
	if c.RetryPolicy != "" && c.RetryPolicy != constants.RetryPolicyStop && c.RetryPolicy != constants.RetryPolicyContinue {
		out.Errorf(diag.CodeCycleBadRetryPolicy, path, c.Span, "cycle '"+c.Name+"' has unknown retry_policy '"+c.RetryPolicy+"'")
	}
}

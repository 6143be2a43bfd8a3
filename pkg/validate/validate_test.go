package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/diag"
)

func TestValidateMissingRunsOn(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeMissingRunsOn, all[0].Code)
}

func TestValidateUnknownRunnerWarns(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{RunsOn: "bsd-latest"}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeUnknownRunner, all[0].Code)
	assert.Equal(t, diag.SeverityWarning, all[0].Severity)
}

func TestValidateSelfNeedsRejected(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest", Needs: []string{"build"}}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeUnknownNeeds, all[0].Code)
	assert.Contains(t, all[0].Message, "cannot depend on itself")
}

func TestValidateDuplicateNeedsRejected(t *testing.T) {
	lint := &ast.Job{Name: "lint", Body: ast.JobBody{RunsOn: "ubuntu-latest"}}
	build := &ast.Job{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest", Needs: []string{"lint", "lint"}}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{lint, build}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeUnknownNeeds, all[0].Code)
	assert.Contains(t, all[0].Message, "more than once")
}

func TestValidateUnknownNeedsRejected(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest", Needs: []string{"ghost"}}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeUnknownNeeds, all[0].Code)
}

func TestValidateAgentTaskMissingModelAndMaxTurns(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		RunsOn: "ubuntu-latest",
		Steps:  []ast.Step{ast.AgentTaskStep{Prompt: "do work"}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 2)
	assert.Equal(t, diag.CodeMissingAgentField, all[0].Code)
	assert.Equal(t, diag.CodeMissingAgentField, all[1].Code)
}

func TestValidateAgentTaskValidOutputSchemaPasses(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		RunsOn: "ubuntu-latest",
		Steps: []ast.Step{ast.AgentTaskStep{
			Prompt: "do work", Model: "claude", HasMaxTurns: true, MaxTurns: 3,
			OutputSchema: ast.ObjectType{Fields: []ast.FieldDecl{
				{Name: "summary", Type: ast.PrimitiveType{Name: "string"}},
			}},
		}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	diags := Validate("f.workpipe", wf)
	assert.Empty(t, diags.All())
}

func TestValidateMatrixTooLarge(t *testing.T) {
	axes := []ast.MatrixAxis{
		{Name: "os", Values: make([]ast.Value, 20)},
		{Name: "node", Values: make([]ast.Value, 20)},
	}
	mj := &ast.MatrixJob{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest"}, Matrix: ast.Matrix{Axes: axes}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{mj}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeMatrixTooLarge, all[0].Code)
}

func TestValidateMatrixExcludeThatNarrowsNothingRejected(t *testing.T) {
	axes := []ast.MatrixAxis{
		{Name: "os", Values: []ast.Value{ast.StringValue{Value: "ubuntu"}, ast.StringValue{Value: "macos"}}},
	}
	mj := &ast.MatrixJob{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest"}, Matrix: ast.Matrix{
		Axes:    axes,
		Exclude: []map[string]ast.Value{{"os": ast.StringValue{Value: "windows"}}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{mj}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeMatrixTooLarge, all[0].Code)
	assert.Contains(t, all[0].Message, "exclude")
}

func TestValidateMatrixIncludeContradictingAxisRejected(t *testing.T) {
	axes := []ast.MatrixAxis{
		{Name: "os", Values: []ast.Value{ast.StringValue{Value: "ubuntu"}, ast.StringValue{Value: "macos"}}},
	}
	mj := &ast.MatrixJob{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest"}, Matrix: ast.Matrix{
		Axes:    axes,
		Include: []map[string]ast.Value{{"os": ast.StringValue{Value: "windows"}}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{mj}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeMatrixTooLarge, all[0].Code)
	assert.Contains(t, all[0].Message, "include")
}

func TestValidateCycleMissingGuardRejected(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{RunsOn: "ubuntu-latest"}}
	c := &ast.Cycle{Name: "refine", Body: []ast.JobLike{build}}
	wf := &ast.WorkflowDecl{Cycles: []*ast.Cycle{c}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeCycleMissingGuard, all[0].Code)
}

func TestValidateCycleReservedSuffixRejected(t *testing.T) {
	build := &ast.Job{Name: "build_hydrate", Body: ast.JobBody{RunsOn: "ubuntu-latest"}}
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 3, Body: []ast.JobLike{build}}
	wf := &ast.WorkflowDecl{Cycles: []*ast.Cycle{c}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeReservedJobSuffix, all[0].Code)
}

func TestValidateCycleNameReservedSuffixRejected(t *testing.T) {
	c := &ast.Cycle{Name: "refine_decide", HasMaxIters: true, MaxIters: 3}
	wf := &ast.WorkflowDecl{Cycles: []*ast.Cycle{c}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeReservedJobSuffix, all[0].Code)
}

func TestValidateCycleUntilOnlyWarnsForSafetyLimit(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasUntil: true, UntilGuard: "return true"}
	wf := &ast.WorkflowDecl{Cycles: []*ast.Cycle{c}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeCycleUnreachableJob, all[0].Code)
	assert.Equal(t, diag.SeverityWarning, all[0].Severity)
}

func TestValidateCycleBadRetryPolicyRejected(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 3, RetryPolicy: "explode"}
	wf := &ast.WorkflowDecl{Cycles: []*ast.Cycle{c}}
	diags := Validate("f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, diag.CodeCycleBadRetryPolicy, all[0].Code)
}

func TestValidateNilWorkflowIsNoop(t *testing.T) {
	diags := Validate("f.workpipe", nil)
	assert.Empty(t, diags.All())
}

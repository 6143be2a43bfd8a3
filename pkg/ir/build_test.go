package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpipe/workpipe/pkg/ast"
)

func TestBuildTriggerSimple(t *testing.T) {
	wf := &ast.WorkflowDecl{Name: "CI", Trigger: ast.Trigger{Simple: "push"}}
	out, diags := Build("f.workpipe", wf)
	assert.Empty(t, diags.All())
	assert.Equal(t, "push", out.On.Simple)
	assert.Empty(t, out.On.Raw)
}

func TestBuildTriggerRawTakesPrecedence(t *testing.T) {
	wf := &ast.WorkflowDecl{Name: "CI", Trigger: ast.Trigger{Raw: "push:\n  branches: [main]"}}
	out, _ := Build("f.workpipe", wf)
	assert.Equal(t, "push:\n  branches: [main]", out.On.Raw)
	assert.Empty(t, out.On.Simple)
}

func TestBuildJobBasicFields(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		RunsOn: "ubuntu-latest",
		Needs:  []string{"lint"},
		If:     "${{ success() }}",
		Steps:  []ast.Step{ast.RunStep{Command: "make"}},
	}}
	wf := &ast.WorkflowDecl{Name: "CI", Jobs: []ast.JobLike{job}}
	out, _ := Build("f.workpipe", wf)
	require.Len(t, out.Jobs, 1)
	j := out.Jobs[0]
	assert.Equal(t, "build", j.ID)
	assert.Equal(t, "ubuntu-latest", j.RunsOn)
	assert.Equal(t, []string{"lint"}, j.Needs)
	assert.Equal(t, "${{ success() }}", j.If)
	require.Len(t, j.Steps, 1)
	assert.Equal(t, "make", j.Steps[0].Run)
}

func TestBuildOutputsReferenceStepIDs(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		RunsOn:  "ubuntu-latest",
		Outputs: []ast.FieldDecl{{Name: "version", Type: ast.PrimitiveType{Name: "string"}}},
	}}
	wf := &ast.WorkflowDecl{Name: "CI", Jobs: []ast.JobLike{job}}
	out, _ := Build("f.workpipe", wf)
	assert.Equal(t, "${{ steps.version.outputs.version }}", out.Jobs[0].Outputs["version"])
}

func TestBuildUsesStepWithArgs(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		RunsOn: "ubuntu-latest",
		Steps: []ast.Step{ast.UsesStep{
			Action: "actions/setup-go@v5",
			With:   []ast.Arg{{Name: "go-version", Value: ast.StringValue{Value: "1.25"}}},
		}},
	}}
	wf := &ast.WorkflowDecl{Name: "CI", Jobs: []ast.JobLike{job}}
	out, _ := Build("f.workpipe", wf)
	step := out.Jobs[0].Steps[0]
	assert.Equal(t, "actions/setup-go@v5", step.Uses)
	assert.Equal(t, "1.25", step.With["go-version"])
}

func TestBuildAgentTaskStepBecomesActionUse(t *testing.T) {
	job := &ast.Job{Name: "review", Body: ast.JobBody{
		RunsOn: "ubuntu-latest",
		Steps: []ast.Step{ast.AgentTaskStep{
			Prompt: "review the diff", Model: "claude", HasMaxTurns: true, MaxTurns: 5,
			OutputArtifact: "review.json",
		}},
	}}
	wf := &ast.WorkflowDecl{Name: "CI", Jobs: []ast.JobLike{job}}
	out, _ := Build("f.workpipe", wf)
	step := out.Jobs[0].Steps[0]
	assert.Equal(t, "anthropics/claude-code-action@v1", step.Uses)
	assert.Equal(t, "review the diff", step.With["prompt"])
	assert.Equal(t, "claude", step.With["model"])
	assert.Equal(t, "5", step.With["max-turns"])
	assert.Equal(t, "review.json", step.With["output-artifact"])
}

func TestBuildGuardStepProducesSanitizedID(t *testing.T) {
	job := &ast.Job{Name: "gate", Body: ast.JobBody{
		RunsOn: "ubuntu-latest",
		Steps:  []ast.Step{ast.GuardStep{Name: "has changes?", Code: "return true"}},
	}}
	wf := &ast.WorkflowDecl{Name: "CI", Jobs: []ast.JobLike{job}}
	out, _ := Build("f.workpipe", wf)
	step := out.Jobs[0].Steps[0]
	assert.Equal(t, "has changes?", step.Name)
	assert.Equal(t, "has_changes_", step.ID)
	assert.Contains(t, step.Run, "return true")
}

func TestBuildMatrixStrategyIncludesAxesAndAdjustments(t *testing.T) {
	mj := &ast.MatrixJob{Name: "test", Body: ast.JobBody{RunsOn: "ubuntu-latest"}, Matrix: ast.Matrix{
		Axes: []ast.MatrixAxis{{Name: "os", Values: []ast.Value{ast.StringValue{Value: "ubuntu-latest"}, ast.StringValue{Value: "macos-latest"}}}},
		Include: []map[string]ast.Value{{"os": ast.StringValue{Value: "windows-latest"}}},
		Exclude: []map[string]ast.Value{{"os": ast.StringValue{Value: "macos-latest"}}},
	}}
	wf := &ast.WorkflowDecl{Name: "CI", Jobs: []ast.JobLike{mj}}
	out, _ := Build("f.workpipe", wf)
	strategy := out.Jobs[0].Strategy
	require.NotNil(t, strategy)
	assert.Contains(t, strategy, "os")
	assert.Contains(t, strategy, "include")
	assert.Contains(t, strategy, "exclude")
}

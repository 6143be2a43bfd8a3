package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpipe/workpipe/pkg/ast"
)

func workflowWithJobs(jobs ...ast.JobLike) *ast.WorkflowDecl {
	return &ast.WorkflowDecl{Jobs: jobs}
}

func TestCheckPropertyAccessUnknownJob(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "version", Type: ast.PrimitiveType{Name: "string"}}},
	}}
	deploy := &ast.Job{Name: "deploy", Body: ast.JobBody{
		If: `${{ needs.missing.outputs.version }}`,
	}}
	wf := workflowWithJobs(build, deploy)
	diags := CheckPropertyAccess(newRegistry("f.workpipe"), "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP5003", all[0].Code)
	assert.Contains(t, all[0].Message, "does not name a job")
}

func TestCheckPropertyAccessUnknownOutput(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "version", Type: ast.PrimitiveType{Name: "string"}}},
	}}
	deploy := &ast.Job{Name: "deploy", Body: ast.JobBody{
		If: `${{ needs.build.outputs.sha }}`,
	}}
	wf := workflowWithJobs(build, deploy)
	diags := CheckPropertyAccess(newRegistry("f.workpipe"), "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Message, "no output 'sha'")
}

func TestCheckPropertyAccessNestedObjectPath(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "info", Type: ast.ObjectType{Fields: []ast.FieldDecl{
			{Name: "sha", Type: ast.PrimitiveType{Name: "string"}},
		}}}},
	}}
	ok := &ast.Job{Name: "ok", Body: ast.JobBody{
		If: `${{ needs.build.outputs.info.sha }}`,
	}}
	bad := &ast.Job{Name: "bad", Body: ast.JobBody{
		If: `${{ needs.build.outputs.info.missing }}`,
	}}
	wf := workflowWithJobs(build, ok, bad)
	diags := CheckPropertyAccess(newRegistry("f.workpipe"), "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Message, "no field 'missing'")
}

func TestCheckPropertyAccessNestedObjectPathHintListsPresentFields(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "info", Type: ast.ObjectType{Fields: []ast.FieldDecl{
			{Name: "x", Type: ast.PrimitiveType{Name: "string"}},
		}}}},
	}}
	bad := &ast.Job{Name: "bad", Body: ast.JobBody{
		If: `${{ needs.build.outputs.info.y }}`,
	}}
	wf := workflowWithJobs(build, bad)
	diags := CheckPropertyAccess(newRegistry("f.workpipe"), "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Message, "no field 'y'")
	assert.Contains(t, all[0].Hint, "x")
}

func TestCheckPropertyAccessJSONTerminatesChecking(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "payload", Type: ast.PrimitiveType{Name: "json"}}},
	}}
	deploy := &ast.Job{Name: "deploy", Body: ast.JobBody{
		If: `${{ needs.build.outputs.payload.anything.goes.here }}`,
	}}
	wf := workflowWithJobs(build, deploy)
	diags := CheckPropertyAccess(newRegistry("f.workpipe"), "f.workpipe", wf)
	assert.Empty(t, diags.All())
}

func TestCheckPropertyAccessScansCycleBody(t *testing.T) {
	build := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "version", Type: ast.PrimitiveType{Name: "string"}}},
	}}
	bad := &ast.Job{Name: "bad", Body: ast.JobBody{
		If: `${{ needs.build.outputs.missing }}`,
	}}
	wf := &ast.WorkflowDecl{
		Cycles: []*ast.Cycle{{Name: "refine", Body: []ast.JobLike{build, bad}}},
	}
	diags := CheckPropertyAccess(newRegistry("f.workpipe"), "f.workpipe", wf)
	require.Len(t, diags.All(), 1)
}

package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/types"
)

func regWithJobFrag(name string, frag *ast.JobFragmentDecl) *types.Registry {
	reg := &types.Registry{Path: "f.workpipe", Symbols: map[string]types.Symbol{}}
	reg.Symbols[name] = types.Symbol{Name: name, Kind: types.SymbolJobFragment, JobFrag: frag}
	return reg
}

func regWithStepsFrag(name string, frag *ast.StepsFragmentDecl) *types.Registry {
	reg := &types.Registry{Path: "f.workpipe", Symbols: map[string]types.Symbol{}}
	reg.Symbols[name] = types.Symbol{Name: name, Kind: types.SymbolStepsFragment, StepsFrag: frag}
	return reg
}

func TestExpandInstantiatesJobFragmentWithDefault(t *testing.T) {
	frag := &ast.JobFragmentDecl{
		Name: "Build",
		Params: []ast.Param{
			{Name: "ref", Type: ast.PrimitiveType{Name: "string"}, Default: ast.StringValue{Value: "main"}},
		},
		Body: ast.JobBody{
			RunsOn: "ubuntu-latest",
			Steps:  []ast.Step{ast.RunStep{Command: "checkout ${{ params.ref }}"}},
		},
	}
	reg := regWithJobFrag("Build", frag)
	job := &ast.Job{Name: "build", FromFragment: "Build"}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	assert.Empty(t, diags.All())

	built := wf.Jobs[0].(*ast.Job)
	assert.Equal(t, "ubuntu-latest", built.Body.RunsOn)
	run := built.Body.Steps[0].(ast.RunStep)
	assert.Equal(t, "checkout main", run.Command)
}

func TestExpandInstantiatesJobFragmentWithSuppliedArg(t *testing.T) {
	frag := &ast.JobFragmentDecl{
		Name: "Build",
		Params: []ast.Param{
			{Name: "ref", Type: ast.PrimitiveType{Name: "string"}},
		},
		Body: ast.JobBody{
			Steps: []ast.Step{ast.RunStep{Command: "checkout ${{ params.ref }}"}},
		},
	}
	reg := regWithJobFrag("Build", frag)
	job := &ast.Job{Name: "build", FromFragment: "Build", Args: []ast.Arg{
		{Name: "ref", Value: ast.StringValue{Value: "develop"}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	assert.Empty(t, diags.All())
	run := wf.Jobs[0].(*ast.Job).Body.Steps[0].(ast.RunStep)
	assert.Equal(t, "checkout develop", run.Command)
}

func TestExpandMissingRequiredArgProducesDiagnostic(t *testing.T) {
	frag := &ast.JobFragmentDecl{
		Name:   "Build",
		Params: []ast.Param{{Name: "ref", Type: ast.PrimitiveType{Name: "string"}}},
		Body:   ast.JobBody{},
	}
	reg := regWithJobFrag("Build", frag)
	job := &ast.Job{Name: "build", FromFragment: "Build"}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP7012", all[0].Code)
}

func TestExpandUnknownArgProducesDiagnostic(t *testing.T) {
	frag := &ast.JobFragmentDecl{Name: "Build", Body: ast.JobBody{}}
	reg := regWithJobFrag("Build", frag)
	job := &ast.Job{Name: "build", FromFragment: "Build", Args: []ast.Arg{
		{Name: "bogus", Value: ast.StringValue{Value: "x"}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP7011", all[0].Code)
}

func TestExpandArgTypeMismatch(t *testing.T) {
	frag := &ast.JobFragmentDecl{
		Name:   "Build",
		Params: []ast.Param{{Name: "count", Type: ast.PrimitiveType{Name: "int"}}},
		Body:   ast.JobBody{},
	}
	reg := regWithJobFrag("Build", frag)
	job := &ast.Job{Name: "build", FromFragment: "Build", Args: []ast.Arg{
		{Name: "count", Value: ast.StringValue{Value: "not-an-int"}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP7013", all[0].Code)
}

func TestExpandUnknownJobFragmentRef(t *testing.T) {
	reg := &types.Registry{Path: "f.workpipe", Symbols: map[string]types.Symbol{}}
	job := &ast.Job{Name: "build", FromFragment: "Nope"}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP7010", all[0].Code)
}

func TestSubstTextDoesNotReExpandSubstitutedValue(t *testing.T) {
	args := map[string]ast.Value{"x": ast.StringValue{Value: "${{ params.x }}"}}
	got := substText("echo ${{ params.x }}", args)
	assert.Equal(t, "echo ${{ params.x }}", got)
}

func TestExpandSplicesStepsFragmentSpread(t *testing.T) {
	stepsFrag := &ast.StepsFragmentDecl{
		Name:   "CheckoutAndBuild",
		Params: []ast.Param{{Name: "ref", Type: ast.PrimitiveType{Name: "string"}, Default: ast.StringValue{Value: "main"}}},
		Steps: []ast.Step{
			ast.UsesStep{Action: "actions/checkout@v4"},
			ast.RunStep{Command: "build ${{ params.ref }}"},
		},
	}
	reg := regWithStepsFrag("CheckoutAndBuild", stepsFrag)
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		Steps: []ast.Step{ast.SpreadStep{Fragment: "CheckoutAndBuild"}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	assert.Empty(t, diags.All())
	steps := wf.Jobs[0].Common().Steps
	require.Len(t, steps, 2)
	assert.Equal(t, "actions/checkout@v4", steps[0].(ast.UsesStep).Action)
	assert.Equal(t, "build main", steps[1].(ast.RunStep).Command)
}

func TestExpandUnknownStepsFragmentSpread(t *testing.T) {
	reg := &types.Registry{Path: "f.workpipe", Symbols: map[string]types.Symbol{}}
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		Steps: []ast.Step{ast.SpreadStep{Fragment: "Nope"}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}

	diags := Expand(reg, "f.workpipe", wf)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP7010", all[0].Code)
}

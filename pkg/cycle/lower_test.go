package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpipe/workpipe/pkg/ast"
)

func TestLowerProducesHydrateDecideDispatchAndBodyJobs(t *testing.T) {
	body := &ast.Job{Name: "step1", Body: ast.JobBody{RunsOn: "ubuntu-latest", Steps: []ast.Step{ast.RunStep{Command: "echo hi"}}}}
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, Body: []ast.JobLike{body}}

	jobs, diags := Lower("f.workpipe", "CI", c)
	assert.Empty(t, diags.All())
	require.Len(t, jobs, 4)
	assert.Equal(t, "refine_hydrate", jobs[0].ID)
	assert.Equal(t, "refine_step1", jobs[1].ID)
	assert.Equal(t, "refine_decide", jobs[2].ID)
	assert.Equal(t, "refine_dispatch", jobs[3].ID)
}

func TestLowerBodyJobNeedsHydrateAndOwnDeps(t *testing.T) {
	body := &ast.Job{Name: "step1", Body: ast.JobBody{RunsOn: "ubuntu-latest", Needs: []string{"other"}}}
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, Body: []ast.JobLike{body}}

	jobs, _ := Lower("f.workpipe", "CI", c)
	bodyJ := jobs[1]
	assert.Contains(t, bodyJ.Needs, "refine_hydrate")
	assert.Contains(t, bodyJ.Needs, "other")
}

func TestLowerBodyJobUploadsContribArtifact(t *testing.T) {
	body := &ast.Job{Name: "step1", Body: ast.JobBody{RunsOn: "ubuntu-latest"}}
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, Body: []ast.JobLike{body}}

	jobs, _ := Lower("f.workpipe", "CI", c)
	last := jobs[1].Steps[len(jobs[1].Steps)-1]
	assert.Equal(t, "actions/upload-artifact@v4", last.Uses)
	assert.Contains(t, last.With["name"], "refine-contrib-step1")
}

func TestLowerDecideJobUsesCustomUntilGuard(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, HasUntil: true, UntilGuard: "return state.done"}
	jobs, _ := Lower("f.workpipe", "CI", c)
	decide := jobs[len(jobs)-2]
	assert.Equal(t, "refine_decide", decide.ID)
	assert.Contains(t, decide.Steps[len(decide.Steps)-2].Run, "return state.done")
}

func TestLowerIterationBoundCapsAtHardLimitWhenMaxItersTooLarge(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 10000}
	bound := iterationBound(c)
	assert.Equal(t, 100, bound)
}

func TestLowerIterationBoundUsesMaxItersWhenUnderCap(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 7}
	assert.Equal(t, 7, iterationBound(c))
}

func TestLowerIterationBoundDefaultsToHardCapWhenOnlyUntil(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasUntil: true}
	assert.Equal(t, 100, iterationBound(c))
}

func TestLowerDispatchJobGatesOnDecideDone(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5}
	jobs, _ := Lower("f.workpipe", "CI", c)
	dispatch := jobs[len(jobs)-1]
	assert.Equal(t, []string{"refine_decide"}, dispatch.Needs)
	assert.Equal(t, "needs.refine_decide.outputs.done == 'false'", dispatch.If)
}

func TestLowerDecideJobRunsAlwaysAndEmitsStateAndDoneOutputs(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5}
	jobs, _ := Lower("f.workpipe", "CI", c)
	decide := jobs[len(jobs)-2]
	assert.Equal(t, "always()", decide.If)
	assert.Equal(t, "${{ steps.decide.outputs.done }}", decide.Outputs["done"])
	assert.Equal(t, "${{ steps.decide.outputs.state }}", decide.Outputs["state"])
}

func TestLowerHydrateJobEmitsStateOutput(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5}
	jobs, _ := Lower("f.workpipe", "CI", c)
	hydrate := jobs[0]
	assert.Equal(t, "${{ steps.state.outputs.state }}", hydrate.Outputs["state"])
}

func TestLowerDecideJobBindsStateIntoGuardClosure(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, HasUntil: true, UntilGuard: "return state.done"}
	jobs, _ := Lower("f.workpipe", "CI", c)
	decide := jobs[len(jobs)-2]
	assert.Contains(t, decide.Steps[len(decide.Steps)-2].Run, "(function(state) { return state.done })(JSON.parse(process.argv[1]))")
}

func TestLowerDecideJobStopRetryPolicyMarksStateDoneAndFailedOnFailure(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, RetryPolicy: "stop"}
	jobs, _ := Lower("f.workpipe", "CI", c)
	decide := jobs[len(jobs)-2]
	run := decide.Steps[len(decide.Steps)-2].Run
	assert.Contains(t, run, "\"stop\" ]; then")
	assert.Contains(t, run, "s.failed = true; s.done = true;")
}

func TestLowerDecideJobContinueRetryPolicyRecordsLastErrorInsteadOfStopping(t *testing.T) {
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, RetryPolicy: "continue"}
	jobs, _ := Lower("f.workpipe", "CI", c)
	decide := jobs[len(jobs)-2]
	run := decide.Steps[len(decide.Steps)-2].Run
	assert.Contains(t, run, "\"continue\"")
	assert.Contains(t, run, "s.lastError = true;")
}

func TestLowerDefaultRunnerFallsBackWhenBodyHasNone(t *testing.T) {
	body := &ast.Job{Name: "step1", Body: ast.JobBody{}}
	c := &ast.Cycle{Name: "refine", HasMaxIters: true, MaxIters: 5, Body: []ast.JobLike{body}}
	jobs, _ := Lower("f.workpipe", "CI", c)
	assert.Equal(t, "ubuntu-latest", jobs[0].RunsOn)
}

func TestLowerKeyDefaultsToCycleNameWhenNoExplicitKey(t *testing.T) {
	c := &ast.Cycle{Name: "retry loop", HasMaxIters: true, MaxIters: 5}
	jobs, _ := Lower("f.workpipe", "CI", c)
	hydrateDownload := jobs[0].Steps[1]
	assert.Contains(t, hydrateDownload.With["name"], "retry_loop")
}

func TestStepFromASTHandlesAgentTaskStep(t *testing.T) {
	step := stepFromAST(ast.AgentTaskStep{Prompt: "do it", Model: "claude", HasMaxTurns: true, MaxTurns: 2})
	assert.Equal(t, "anthropics/claude-code-action@v1", step.Uses)
	assert.Equal(t, "do it", step.With["prompt"])
	assert.Equal(t, "2", step.With["max-turns"])
}

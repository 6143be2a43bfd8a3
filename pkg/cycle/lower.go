// Package cycle lowers WorkPipe's bounded iterative loop construct into an
// ordinary GitHub Actions job DAG. GitHub Actions has no native looping
// primitive across jobs, so one cycle iteration runs to completion inside
// a single workflow run, and the loop itself is carried across separate
// runs: a hydrate job restores the previous iteration's accumulated
// state from an artifact, the cycle's body jobs run once, a decide job
// evaluates the until guard (and the iteration bound), and a dispatch job
// re-triggers the same workflow via workflow_dispatch for the next
// iteration when the guard says to continue.
package cycle

import (
	"strconv"

	"github.com/workpipe/workpipe/pkg/ast"
	"github.com/workpipe/workpipe/pkg/constants"
	"github.com/workpipe/workpipe/pkg/diag"
	"github.com/workpipe/workpipe/pkg/ir"
	"github.com/workpipe/workpipe/pkg/stringutil"
)

const dispatchIterationInput = "iteration"

// Lower produces the hydrate/body/decide/dispatch job set for one cycle.
// It does not touch the workflow's triggers: callers append the jobs to
// the workflow's own and enable workflow_dispatch with an "iteration"
// input themselves.
func Lower(path, workflowName string, c *ast.Cycle) ([]*ir.JobIR, *diag.Collector) {
	out := diag.NewCollector()
	key := c.Key
	if !c.HasKey {
		key = c.Name
	}
	key = stringutil.SanitizeArtifactComponent(key)
	bound := iterationBound(c)

	hydrateID := c.Name + constants.HydrateSuffix
	decideID := c.Name + constants.DecideSuffix
	dispatchID := c.Name + constants.DispatchSuffix

	runner := defaultRunner(c)

	var jobs []*ir.JobIR
	jobs = append(jobs, hydrateJob(hydrateID, runner, workflowName, key))

	var bodyIDs []string
	for _, j := range c.Body {
		bj := bodyJob(c.Name, hydrateID, key, j)
		jobs = append(jobs, bj)
		bodyIDs = append(bodyIDs, bj.ID)
	}

	jobs = append(jobs, decideJob(decideID, runner, workflowName, key, hydrateID, bodyIDs, c, bound))
	jobs = append(jobs, dispatchJob(dispatchID, runner, decideID))

	return jobs, out
}

func defaultRunner(c *ast.Cycle) string {
	for _, j := range c.Body {
		if r := j.Common().RunsOn; r != "" {
			return r
		}
	}
	return "ubuntu-latest"
}

// iterationBound computes the effective cap on iterations: max_iters when
// given (capped at the hard cap), else the hard cap, so an until-only
// cycle can never run forever even if its guard is wrong.
func iterationBound(c *ast.Cycle) int {
	if c.HasMaxIters {
		if c.MaxIters < constants.DefaultHardIterationCap {
			return c.MaxIters
		}
		return constants.DefaultHardIterationCap
	}
	return constants.DefaultHardIterationCap
}

// stateArtifactDir is where a hydrated/merged state JSON blob lives on
// disk within a job's workspace, read by hydrate and written by decide.
const stateArtifactDir = "./.workpipe-cycle-state"

// hydrateJob restores the previous iteration's merged state (or the empty
// object on iteration 0) and republishes it as the `state` job output, per
// spec.md §4.5 step 1: body jobs and the guard both need this value in
// scope, not just the bare iteration counter.
func hydrateJob(id, runner, workflowName, key string) *ir.JobIR {
	iterStep := ir.StepIR{
		ID: "iter",
		Run: "iter=\"${{ github.event.inputs." + dispatchIterationInput + " }}\"\n" +
			"if [ -z \"$iter\" ]; then iter=0; fi\n" +
			"echo \"iteration=$iter\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"prev=$((iter-1))\" >> \"$GITHUB_OUTPUT\"\n",
	}
	restoreStep := ir.StepIR{
		Uses: "actions/download-artifact@v4",
		If:   "steps.iter.outputs.iteration != '0'",
		With: map[string]string{
			"name": workflowName + "-" + key + "-${{ steps.iter.outputs.prev }}",
			"path": stateArtifactDir,
		},
	}
	stateStep := ir.StepIR{
		ID: "state",
		Run: "if [ -f " + stateArtifactDir + "/state.json ]; then\n" +
			"  state=$(cat " + stateArtifactDir + "/state.json)\n" +
			"else\n" +
			"  state='{}'\n" +
			"fi\n" +
			"echo \"state<<WORKPIPE_EOF\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"$state\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"WORKPIPE_EOF\" >> \"$GITHUB_OUTPUT\"\n",
	}
	return &ir.JobIR{
		ID:     id,
		Name:   id,
		RunsOn: runner,
		Steps:  []ir.StepIR{iterStep, restoreStep, stateStep},
		Outputs: map[string]string{
			"iteration": "${{ steps.iter.outputs.iteration }}",
			"state":     "${{ steps.state.outputs.state }}",
		},
	}
}

func bodyJob(cycleName, hydrateID, key string, j ast.JobLike) *ir.JobIR {
	body := j.Common()
	id := cycleName + "_" + j.JobName()
	needs := append([]string{hydrateID}, body.Needs...)

	jir := &ir.JobIR{
		ID:          id,
		Name:        j.JobName(),
		RunsOn:      body.RunsOn,
		Needs:       needs,
		If:          body.If,
		Environment: body.Environment,
		Outputs:     map[string]string{},
	}
	for _, s := range body.Steps {
		jir.Steps = append(jir.Steps, stepFromAST(s))
	}

	contribArtifact := cycleName + "-contrib-" + stringutil.SanitizeArtifactComponent(j.JobName()) + "-${{ needs." + hydrateID + ".outputs.iteration }}"
	jir.Steps = append(jir.Steps, ir.StepIR{
		Uses: "actions/upload-artifact@v4",
		With: map[string]string{
			"name": contribArtifact,
			"path": "./.workpipe-cycle-state/contrib-" + stringutil.SanitizeArtifactComponent(j.JobName()) + ".json",
		},
	})
	return jir
}

// stepFromAST re-derives a StepIR from an ast.Step the way pkg/ir/build.go
// does. Kept local because pkg/ir's step builder is unexported; pkg/compiler,
// not ir.Build, calls Lower.
func stepFromAST(s ast.Step) ir.StepIR {
	switch v := s.(type) {
	case ast.UsesStep:
		step := ir.StepIR{Uses: v.Action}
		if len(v.With) > 0 {
			step.With = map[string]string{}
			for _, a := range v.With {
				if sv, ok := a.Value.(ast.StringValue); ok {
					step.With[a.Name] = sv.Value
				}
			}
		}
		return step
	case ast.ShellStep:
		return ir.StepIR{Run: v.Script, Shell: "bash"}
	case ast.RunStep:
		return ir.StepIR{Run: v.Command}
	case ast.AgentTaskStep:
		with := map[string]string{"prompt": v.Prompt, "model": v.Model}
		if v.HasMaxTurns {
			with["max-turns"] = strconv.Itoa(v.MaxTurns)
		}
		return ir.StepIR{Uses: "anthropics/claude-code-action@v1", With: with}
	default:
		return ir.StepIR{}
	}
}

// decideJob merges every body job's contribution artifact into the
// hydrated state, evaluates the until guard with that merged state bound
// into scope, and applies the iteration bound and retry_policy to produce
// the `done` output §4.5 step 3 and S6 require by name, plus the `state`
// blob body jobs in the next iteration read back via <C>_hydrate. It runs
// with `if: always()` so a failing body job still reaches a decision,
// per the Failure model in spec.md §4.5.
func decideJob(id, runner, workflowName, key, hydrateID string, bodyIDs []string, c *ast.Cycle, bound int) *ir.JobIR {
	needs := append([]string{hydrateID}, bodyIDs...)

	contribDir := stateArtifactDir + "/contrib"
	downloadContrib := ir.StepIR{
		Uses: "actions/download-artifact@v4",
		With: map[string]string{
			"name": c.Name + "-contrib-*-${{ needs." + hydrateID + ".outputs.iteration }}",
			"path": contribDir,
		},
	}

	guard := c.UntilGuard
	if guard == "" {
		guard = "false"
	}
	retryPolicy := c.RetryPolicy
	if retryPolicy == "" {
		retryPolicy = constants.DefaultRetryPolicy
	}

	decideStep := ir.StepIR{
		ID: "decide",
		Run: "" +
			"mkdir -p " + stateArtifactDir + "\n" +
			"iter=\"${{ needs." + hydrateID + ".outputs.iteration }}\"\n" +
			"prev_state='${{ needs." + hydrateID + ".outputs.state }}'\n" +
			"job_failed=\"${{ contains(join(needs.*.result, ','), 'failure') || contains(join(needs.*.result, ','), 'cancelled') }}\"\n" +
			"merged=$(node -e \"\n" +
			"  const fs = require('fs');\n" +
			"  const state = JSON.parse(process.argv[1] || '{}');\n" +
			"  const dir = '" + contribDir + "';\n" +
			"  if (fs.existsSync(dir)) {\n" +
			"    for (const f of fs.readdirSync(dir)) {\n" +
			"      if (!f.endsWith('.json')) continue;\n" +
			"      Object.assign(state, JSON.parse(fs.readFileSync(dir + '/' + f, 'utf8')));\n" +
			"    }\n" +
			"  }\n" +
			"  console.log(JSON.stringify(state));\n" +
			"\" \"$prev_state\")\n" +
			"next=$((iter+1))\n" +
			"done=\"false\"\n" +
			"if [ \"$job_failed\" = \"true\" ] && [ \"" + retryPolicy + "\" = \"" + constants.RetryPolicyStop + "\" ]; then\n" +
			"  merged=$(node -e \"const s = JSON.parse(process.argv[1]); s.failed = true; s.done = true; console.log(JSON.stringify(s));\" \"$merged\")\n" +
			"  done=\"true\"\n" +
			"else\n" +
			"  if [ \"$job_failed\" = \"true\" ]; then\n" +
			"    merged=$(node -e \"const s = JSON.parse(process.argv[1]); s.lastError = true; console.log(JSON.stringify(s));\" \"$merged\")\n" +
			"  fi\n" +
			"  guard_result=$(node -e \"const result = (function(state) { " + guard + " })(JSON.parse(process.argv[1])); console.log(!!result);\" \"$merged\")\n" +
			"  if [ \"$guard_result\" = \"true\" ] || [ \"$next\" -ge " + strconv.Itoa(bound) + " ]; then done=\"true\"; fi\n" +
			"fi\n" +
			"echo \"$merged\" > " + stateArtifactDir + "/state.json\n" +
			"echo \"done=$done\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"next_iteration=$next\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"state<<WORKPIPE_EOF\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"$merged\" >> \"$GITHUB_OUTPUT\"\n" +
			"echo \"WORKPIPE_EOF\" >> \"$GITHUB_OUTPUT\"\n",
	}
	uploadState := ir.StepIR{
		Uses: "actions/upload-artifact@v4",
		With: map[string]string{
			"name": workflowName + "-" + key + "-${{ needs." + hydrateID + ".outputs.iteration }}",
			"path": stateArtifactDir,
		},
	}

	return &ir.JobIR{
		ID:     id,
		Name:   id,
		RunsOn: runner,
		Needs:  needs,
		If:     "always()",
		Steps:  []ir.StepIR{downloadContrib, decideStep, uploadState},
		Outputs: map[string]string{
			"done":           "${{ steps.decide.outputs.done }}",
			"next_iteration": "${{ steps.decide.outputs.next_iteration }}",
			"state":          "${{ steps.decide.outputs.state }}",
		},
	}
}

func dispatchJob(id, runner, decideID string) *ir.JobIR {
	step := ir.StepIR{
		Uses: "actions/github-script@v7",
		With: map[string]string{
			"script": "await github.rest.actions.createWorkflowDispatch({owner: context.repo.owner, repo: context.repo.repo, workflow_id: context.workflow, ref: context.ref, inputs: {" + dispatchIterationInput + ": '${{ needs." + decideID + ".outputs.next_iteration }}'}})",
		},
	}
	return &ir.JobIR{
		ID:     id,
		Name:   id,
		RunsOn: runner,
		Needs:  []string{decideID},
		If:     "needs." + decideID + ".outputs.done == 'false'",
		Steps:  []ir.StepIR{step},
	}
}

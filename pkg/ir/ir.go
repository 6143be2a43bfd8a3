// Package ir defines WorkPipe's target intermediate representation: a
// direct model of a GitHub Actions workflow document, shaped so pkg/emit
// can walk it into YAML without re-deriving any compiler semantics.
package ir

// WorkflowIR is one compiled workflow, ready for YAML emission.
type WorkflowIR struct {
	Name    string
	On      TriggerIR
	Jobs    []*JobIR // emission order; callers must pass an order that respects Needs
}

// TriggerIR is the `on:` clause. Raw, when non-empty, is emitted verbatim
// (already valid YAML-shaped text reconstructed from a brace-delimited
// trigger spec); Simple is emitted as a bare event name.
type TriggerIR struct {
	Simple            string
	Raw               string
	WorkflowDispatch  bool // forced on for any workflow containing a cycle
	DispatchIterInput string // name of the workflow_dispatch input carrying the resume iteration, "" if WorkflowDispatch is false
}

// JobIR is one GitHub Actions job.
type JobIR struct {
	ID          string
	Name        string
	RunsOn      string
	Needs       []string
	If          string
	Environment string
	Outputs     map[string]string // output name -> step-output expression
	Steps       []StepIR

	// Strategy, when non-nil, emits a `strategy: matrix:` block. Keys are
	// axis names mapped to their value lists, plus the reserved
	// "include"/"exclude" keys mapped to []map[string]any.
	Strategy map[string]any
}

// StepIR is one step within a job.
type StepIR struct {
	Name string
	Uses string
	With map[string]string
	Run  string
	Shell string
	If   string
	Env  map[string]string
	ID   string
}

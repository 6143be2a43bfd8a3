// Package ast defines the typed tree WorkPipe's later passes operate on,
// and the pass-1 reader that builds it from a pkg/cst.Tree. This is the
// boundary spec.md §1 describes: everything past this package never looks
// at source bytes again, only at these structs.
package ast

import "github.com/workpipe/workpipe/pkg/source"

// File is one parsed WorkPipe source file.
type File struct {
	Path      string
	Imports   []*Import
	Types     []*TypeDecl
	JobFrags  []*JobFragmentDecl
	StepFrags []*StepsFragmentDecl
	Workflow  *WorkflowDecl // nil if the file declares no workflow
	Span      source.Span
}

// Import is one `import { a, b as c } from "path"` declaration.
type Import struct {
	Items []ImportItem
	Path  string
	Span  source.Span
}

// ImportItem is a single imported name, optionally aliased.
type ImportItem struct {
	Name  string
	Alias string // "" if not aliased
	Span  source.Span
}

// EffectiveName returns Alias if set, else Name.
func (i ImportItem) EffectiveName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}

// TypeDecl is a top-level `type Name = ...` or `type Name { ... }` declaration.
type TypeDecl struct {
	Name string
	Type Type
	Span source.Span
}

// Type is the closed set of type expressions WorkPipe supports.
type Type interface{ typeNode() }

// PrimitiveType is one of string, int, float, bool, json, or a reference to
// another named type declared or imported into scope.
type PrimitiveType struct {
	Name string // "string" | "int" | "float" | "bool" | "json" | <named reference>
	Span source.Span
}

// StringLitType is a string-literal member of a union (an enum tag).
type StringLitType struct {
	Value string
	Span  source.Span
}

// UnionType is a `A | B | null` alternation.
type UnionType struct {
	Members  []Type
	Nullable bool // true if one member was the `null` literal
	Span     source.Span
}

// ListType is `[T]`.
type ListType struct {
	Elem Type
	Span source.Span
}

// ObjectType is `{ field: T, ... }`.
type ObjectType struct {
	Fields []FieldDecl
	Span   source.Span
}

// FieldDecl is one field of an ObjectType.
type FieldDecl struct {
	Name string
	Type Type
	Span source.Span
}

func (PrimitiveType) typeNode()  {}
func (StringLitType) typeNode()  {}
func (UnionType) typeNode()      {}
func (ListType) typeNode()       {}
func (ObjectType) typeNode()     {}

// Param is a fragment formal parameter.
type Param struct {
	Name    string
	Type    Type
	Default Value // nil if no default
	Span    source.Span
}

// JobFragmentDecl is a reusable job body parameterized by Params.
type JobFragmentDecl struct {
	Name   string
	Params []Param
	Body   JobBody
	Span   source.Span
}

// StepsFragmentDecl is a reusable step sequence parameterized by Params.
type StepsFragmentDecl struct {
	Name   string
	Params []Param
	Steps  []Step
	Span   source.Span
}

// WorkflowDecl is the single `workflow Name { ... }` a file may declare.
type WorkflowDecl struct {
	Name    string
	Trigger Trigger
	Jobs    []JobLike
	Cycles  []*Cycle
	Span    source.Span
}

// Trigger carries the `on:` clause. Raw holds the reconstructed source of a
// brace-delimited trigger spec verbatim, since the core only needs to
// re-emit it faithfully, never interpret it.
type Trigger struct {
	Simple string // set when `on: <ident>` form was used
	Raw    string // set when `on: { ... }` form was used
	Span   source.Span
}

// JobKind distinguishes the three job flavors a workflow or cycle body may
// contain.
type JobKind int

const (
	KindJob JobKind = iota
	KindAgentJob
	KindMatrixJob
)

// JobLike is implemented by Job, AgentJob, and MatrixJob so callers that
// only need the common shape (name, needs, outputs, steps) can treat all
// three uniformly.
type JobLike interface {
	JobName() string
	Kind() JobKind
	Common() *JobBody
}

// JobBody holds the fields common to job, agent_job, matrix_job, and
// job_fragment bodies.
type JobBody struct {
	RunsOn      string
	Needs       []string
	Outputs     []FieldDecl
	If          string
	Environment string
	RetryPolicy string // only meaningful inside a cycle body; "" outside
	Steps       []Step
	Span        source.Span
}

// Job is a plain job, either declared inline or instantiated from a
// job_fragment.
type Job struct {
	Name        string
	Body        JobBody
	FromFragment string // "" unless this job instantiates a job_fragment
	Args        []Arg   // arguments supplied when FromFragment != ""
	Span        source.Span
}

func (j *Job) JobName() string    { return j.Name }
func (j *Job) Kind() JobKind      { return KindJob }
func (j *Job) Common() *JobBody   { return &j.Body }

// AgentJob is a job expected to carry an agent_task step.
type AgentJob struct {
	Name string
	Body JobBody
	Span source.Span
}

func (j *AgentJob) JobName() string  { return j.Name }
func (j *AgentJob) Kind() JobKind    { return KindAgentJob }
func (j *AgentJob) Common() *JobBody { return &j.Body }

// MatrixJob is a job that fans out over a Matrix's combinations.
type MatrixJob struct {
	Name   string
	Body   JobBody
	Matrix Matrix
	Span   source.Span
}

func (j *MatrixJob) JobName() string  { return j.Name }
func (j *MatrixJob) Kind() JobKind    { return KindMatrixJob }
func (j *MatrixJob) Common() *JobBody { return &j.Body }

// Matrix is a matrix_job's axis/include/exclude specification.
type Matrix struct {
	Axes    []MatrixAxis
	Include []map[string]Value
	Exclude []map[string]Value
	Span    source.Span
}

// MatrixAxis is one `name: [v1, v2, ...]` axis.
type MatrixAxis struct {
	Name   string
	Values []Value
	Span   source.Span
}

// Arg is one `name: value` pair supplied to a fragment instantiation, a
// `with { ... }` block, or an agent_task field list.
type Arg struct {
	Name  string
	Value Value
	Span  source.Span
}

// Value is the closed set of literal/reference value forms a field may be
// assigned in source.
type Value interface{ valueNode() }

type StringValue struct {
	Value string
	Span  source.Span
}
type TripleStringValue struct {
	Value string
	Span  source.Span
}
type IntValue struct {
	Value int
	Span  source.Span
}
type FloatValue struct {
	Value string // kept as literal text to avoid float round-trip drift
	Span  source.Span
}
type BoolValue struct {
	Value bool
	Span  source.Span
}
type NullValue struct {
	Span source.Span
}
type IdentValue struct {
	Name string
	Span source.Span
}
type ListValue struct {
	Items []Value
	Span  source.Span
}
type MapValue struct {
	Entries []Arg
	Span    source.Span
}

func (StringValue) valueNode()       {}
func (TripleStringValue) valueNode() {}
func (IntValue) valueNode()          {}
func (FloatValue) valueNode()        {}
func (BoolValue) valueNode()         {}
func (NullValue) valueNode()         {}
func (IdentValue) valueNode()        {}
func (ListValue) valueNode()         {}
func (MapValue) valueNode()          {}

// Step is the closed set of step kinds.
type Step interface{ stepNode() }

// UsesStep runs a published action.
type UsesStep struct {
	Action string
	With   []Arg
	Span   source.Span
}

// ShellStep runs an inline multi-line script.
type ShellStep struct {
	Script string
	Span   source.Span
}

// RunStep runs a single shell command.
type RunStep struct {
	Command string
	Span    source.Span
}

// GuardStep is a named step whose body is a guard_js predicate, used
// outside of cycles as an ordinary conditional step.
type GuardStep struct {
	Name string
	Code string
	Span source.Span
}

// AgentTaskStep dispatches a prompt to an AI agent runner.
type AgentTaskStep struct {
	Prompt         string
	Model          string
	MaxTurns       int
	HasMaxTurns    bool
	Tools          []string
	OutputSchema   Type
	OutputArtifact string
	Span           source.Span
}

// SpreadStep splices a steps_fragment's expansion into the enclosing list.
type SpreadStep struct {
	Fragment string
	Args     []Arg
	Span     source.Span
}

func (UsesStep) stepNode()     {}
func (ShellStep) stepNode()    {}
func (RunStep) stepNode()      {}
func (GuardStep) stepNode()    {}
func (AgentTaskStep) stepNode() {}
func (SpreadStep) stepNode()   {}

// Cycle is a bounded iterative loop, lowered by pkg/cycle into a DAG of
// ordinary jobs before emission.
type Cycle struct {
	Name        string
	MaxIters    int
	HasMaxIters bool
	Key         string
	HasKey      bool
	UntilGuard  string
	HasUntil    bool
	RetryPolicy string
	Body        []JobLike
	Span        source.Span
}

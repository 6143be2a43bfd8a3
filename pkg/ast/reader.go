package ast

import (
	"strconv"
	"strings"

	"github.com/workpipe/workpipe/pkg/cst"
	"github.com/workpipe/workpipe/pkg/source"
)

// ReadError is a problem discovered while building the typed tree from a
// concrete tree that was itself free of syntax errors (e.g. a malformed
// integer literal). Higher passes wrap these into full diagnostics.
type ReadError struct {
	Message string
	Span    source.Span
}

// argMapKind is the synthetic kind parser.go uses for brace-delimited
// value maps (`{ key: value, ... }` used as a plain Value rather than an
// Arg list owner). Kept in sync with pkg/cst/parser.go's parseValue.
const argMapKind = cst.KArg + "Map"

// Read walks a concrete tree produced by pkg/cst into the typed File this
// package defines. It assumes the tree is structurally well-formed (i.e.
// cst.Parse reported no syntax errors) but still guards against impossible
// shapes defensively, reporting them as ReadErrors instead of panicking.
func Read(tree *cst.Tree) (*File, []ReadError) {
	r := &reader{}
	f := &File{Path: tree.Path, Span: tree.Root.Span}
	for _, child := range tree.Root.Children {
		switch child.Kind {
		case cst.KImport:
			f.Imports = append(f.Imports, r.readImport(child))
		case cst.KTypeDecl:
			f.Types = append(f.Types, r.readTypeDecl(child))
		case cst.KJobFragmentDecl:
			f.JobFrags = append(f.JobFrags, r.readJobFragmentDecl(child))
		case cst.KStepsFragmentDecl:
			f.StepFrags = append(f.StepFrags, r.readStepsFragmentDecl(child))
		case cst.KWorkflowDecl:
			f.Workflow = r.readWorkflowDecl(child)
		}
	}
	return f, r.errs
}

type reader struct {
	errs []ReadError
}

func (r *reader) errorf(span source.Span, msg string) {
	r.errs = append(r.errs, ReadError{Message: msg, Span: span})
}

func (r *reader) readImport(n *cst.Node) *Import {
	imp := &Import{Span: n.Span}
	for _, c := range n.Children {
		if c.Kind == cst.KImportItem {
			item := ImportItem{Name: c.Text, Span: c.Span}
			if len(c.Children) > 0 {
				item.Alias = c.Children[0].Text
			}
			imp.Items = append(imp.Items, item)
		}
		if c.Kind == cst.KString {
			imp.Path = c.Text
		}
	}
	return imp
}

func (r *reader) readTypeDecl(n *cst.Node) *TypeDecl {
	decl := &TypeDecl{Name: n.Text, Span: n.Span}
	if len(n.Children) > 0 {
		decl.Type = r.convertType(n.Children[0])
	}
	return decl
}

func (r *reader) convertType(n *cst.Node) Type {
	switch n.Kind {
	case cst.KTypeName:
		return PrimitiveType{Name: n.Text, Span: n.Span}
	case cst.KTypeStrLit:
		return StringLitType{Value: n.Text, Span: n.Span}
	case cst.KTypeList:
		var elem Type
		if len(n.Children) > 0 {
			elem = r.convertType(n.Children[0])
		}
		return ListType{Elem: elem, Span: n.Span}
	case cst.KTypeObject:
		var fields []FieldDecl
		for _, c := range n.Children {
			fields = append(fields, r.convertField(c))
		}
		return ObjectType{Fields: fields, Span: n.Span}
	case cst.KTypeUnion:
		u := UnionType{Span: n.Span}
		for _, c := range n.Children {
			if c.Kind == cst.KTypeName && c.Text == "null" {
				u.Nullable = true
				continue
			}
			u.Members = append(u.Members, r.convertType(c))
		}
		return u
	default:
		r.errorf(n.Span, "unrecognized type node")
		return PrimitiveType{Name: "json", Span: n.Span}
	}
}

func (r *reader) convertField(n *cst.Node) FieldDecl {
	fd := FieldDecl{Span: n.Span}
	if len(n.Children) > 0 {
		fd.Name = n.Children[0].Text
	}
	if len(n.Children) > 1 {
		fd.Type = r.convertType(n.Children[1])
	}
	return fd
}

func (r *reader) readParams(nodes []*cst.Node) []Param {
	var params []Param
	for _, c := range nodes {
		if c.Kind != cst.KParam {
			continue
		}
		p := Param{Name: c.Text, Span: c.Span}
		if len(c.Children) > 0 {
			p.Type = r.convertType(c.Children[0])
		}
		if len(c.Children) > 1 {
			p.Default = r.convertValue(c.Children[1])
		}
		params = append(params, p)
	}
	return params
}

func (r *reader) readJobFragmentDecl(n *cst.Node) *JobFragmentDecl {
	decl := &JobFragmentDecl{Name: n.Text, Span: n.Span}
	decl.Params = r.readParams(n.ChildrenOf(cst.KParam))
	decl.Body = r.readJobBody(n.Children)
	return decl
}

func (r *reader) readStepsFragmentDecl(n *cst.Node) *StepsFragmentDecl {
	decl := &StepsFragmentDecl{Name: n.Text, Span: n.Span}
	decl.Params = r.readParams(n.ChildrenOf(cst.KParam))
	if block := n.Child(cst.KStepsBlock); block != nil {
		for _, s := range block.Children {
			decl.Steps = append(decl.Steps, r.readStep(s))
		}
	}
	return decl
}

func (r *reader) readWorkflowDecl(n *cst.Node) *WorkflowDecl {
	wf := &WorkflowDecl{Name: n.Text, Span: n.Span}
	for _, c := range n.Children {
		switch c.Kind {
		case cst.KTrigger:
			wf.Trigger = r.readTrigger(c)
		case cst.KJob:
			wf.Jobs = append(wf.Jobs, r.readJob(c))
		case cst.KAgentJob:
			wf.Jobs = append(wf.Jobs, r.readAgentJob(c))
		case cst.KMatrixJob:
			wf.Jobs = append(wf.Jobs, r.readMatrixJob(c))
		case cst.KCycle:
			wf.Cycles = append(wf.Cycles, r.readCycle(c))
		}
	}
	return wf
}

func (r *reader) readTrigger(n *cst.Node) Trigger {
	if strings.HasPrefix(n.Text, "{") {
		return Trigger{Raw: n.Text, Span: n.Span}
	}
	return Trigger{Simple: n.Text, Span: n.Span}
}

// splitPrefixed splits the "field:value" encoding parser.go uses for
// scalar job fields back into its two halves.
func splitPrefixed(text string) (field, value string) {
	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return text, ""
	}
	return text[:idx], text[idx+1:]
}

func (r *reader) readJobBody(nodes []*cst.Node) JobBody {
	body := JobBody{}
	for _, c := range nodes {
		switch c.Kind {
		case cst.KIdent:
			field, value := splitPrefixed(c.Text)
			switch field {
			case "runs_on":
				body.RunsOn = value
			case "if":
				body.If = value
			case "environment":
				body.Environment = value
			case "retry_policy":
				body.RetryPolicy = value
			}
		case cst.KNeeds:
			for _, id := range c.Children {
				body.Needs = append(body.Needs, id.Text)
			}
		case cst.KOutputs:
			for _, f := range c.Children {
				body.Outputs = append(body.Outputs, r.convertField(f))
			}
		case cst.KStepsBlock:
			for _, s := range c.Children {
				body.Steps = append(body.Steps, r.readStep(s))
			}
			body.Span = body.Span.Merge(c.Span)
		}
	}
	return body
}

func (r *reader) readJob(n *cst.Node) *Job {
	job := &Job{Name: n.Text, Span: n.Span}
	if ref := n.Child(cst.KFragmentRef); ref != nil {
		job.FromFragment = ref.Text
		for _, a := range ref.Children {
			job.Args = append(job.Args, r.convertArg(a))
		}
		return job
	}
	job.Body = r.readJobBody(n.Children)
	return job
}

func (r *reader) readAgentJob(n *cst.Node) *AgentJob {
	return &AgentJob{Name: n.Text, Body: r.readJobBody(n.Children), Span: n.Span}
}

func (r *reader) readMatrixJob(n *cst.Node) *MatrixJob {
	mj := &MatrixJob{Name: n.Text, Span: n.Span}
	mj.Body = r.readJobBody(n.Children)
	if m := n.Child(cst.KMatrixAxis); m != nil {
		mj.Matrix = r.readMatrix(m)
	}
	return mj
}

func (r *reader) readMatrix(n *cst.Node) Matrix {
	m := Matrix{Span: n.Span}
	for _, c := range n.Children {
		switch c.Kind {
		case cst.KField:
			axis := MatrixAxis{Name: c.Text, Span: c.Span}
			if len(c.Children) > 1 {
				axis.Values = r.convertValueList(c.Children[1])
			}
			m.Axes = append(m.Axes, axis)
		case cst.KMatrixInclude:
			for _, e := range c.Children {
				m.Include = append(m.Include, r.convertArgMap(e))
			}
		case cst.KMatrixExclude:
			for _, e := range c.Children {
				m.Exclude = append(m.Exclude, r.convertArgMap(e))
			}
		}
	}
	return m
}

func (r *reader) convertValueList(n *cst.Node) []Value {
	if n.Kind != cst.KList {
		return []Value{r.convertValue(n)}
	}
	var out []Value
	for _, c := range n.Children {
		out = append(out, r.convertValue(c))
	}
	return out
}

func (r *reader) convertArgMap(n *cst.Node) map[string]Value {
	out := map[string]Value{}
	for _, a := range n.Children {
		arg := r.convertArg(a)
		out[arg.Name] = arg.Value
	}
	return out
}

func (r *reader) convertArg(n *cst.Node) Arg {
	arg := Arg{Span: n.Span}
	if len(n.Children) > 0 {
		arg.Name = n.Children[0].Text
	}
	if len(n.Children) > 1 {
		arg.Value = r.convertValue(n.Children[1])
	}
	return arg
}

func (r *reader) convertValue(n *cst.Node) Value {
	switch n.Kind {
	case cst.KString:
		return StringValue{Value: n.Text, Span: n.Span}
	case cst.KTriple:
		return TripleStringValue{Value: n.Text, Span: n.Span}
	case cst.KInt:
		iv, err := strconv.Atoi(n.Text)
		if err != nil {
			r.errorf(n.Span, "malformed integer literal: "+n.Text)
		}
		return IntValue{Value: iv, Span: n.Span}
	case cst.KFloat:
		return FloatValue{Value: n.Text, Span: n.Span}
	case cst.KBool:
		return BoolValue{Value: n.Text == "true", Span: n.Span}
	case cst.KNull:
		return NullValue{Span: n.Span}
	case cst.KIdent:
		return IdentValue{Name: n.Text, Span: n.Span}
	case cst.KList:
		lv := ListValue{Span: n.Span}
		for _, c := range n.Children {
			lv.Items = append(lv.Items, r.convertValue(c))
		}
		return lv
	case argMapKind:
		mv := MapValue{Span: n.Span}
		for _, c := range n.Children {
			mv.Entries = append(mv.Entries, r.convertArg(c))
		}
		return mv
	default:
		r.errorf(n.Span, "unrecognized value node")
		return NullValue{Span: n.Span}
	}
}

func (r *reader) readStep(n *cst.Node) Step {
	switch n.Kind {
	case cst.KStepUses:
		us := UsesStep{Action: n.Text, Span: n.Span}
		if with := n.Child(cst.KStepWith); with != nil {
			for _, a := range with.Children {
				us.With = append(us.With, r.convertArg(a))
			}
		}
		return us
	case cst.KStepShell:
		return ShellStep{Script: n.Text, Span: n.Span}
	case cst.KStepRun:
		return RunStep{Command: n.Text, Span: n.Span}
	case cst.KStepGuard:
		name, code := "", ""
		if len(n.Children) > 0 {
			name = n.Children[0].Text
		}
		if len(n.Children) > 1 {
			code = n.Children[1].Text
		}
		return GuardStep{Name: name, Code: code, Span: n.Span}
	case cst.KAgentTask:
		return r.readAgentTask(n)
	case cst.KSpread:
		sp := SpreadStep{Fragment: n.Text, Span: n.Span}
		for _, a := range n.Children {
			sp.Args = append(sp.Args, r.convertArg(a))
		}
		return sp
	default:
		r.errorf(n.Span, "unrecognized step node")
		return RunStep{Command: "", Span: n.Span}
	}
}

func (r *reader) readAgentTask(n *cst.Node) AgentTaskStep {
	at := AgentTaskStep{Span: n.Span}
	if len(n.Children) > 0 {
		at.Prompt = n.Children[0].Text
	}
	for _, a := range n.Children[1:] {
		arg := r.convertArg(a)
		switch arg.Name {
		case "model":
			if sv, ok := arg.Value.(StringValue); ok {
				at.Model = sv.Value
			}
		case "max_turns":
			if iv, ok := arg.Value.(IntValue); ok {
				at.MaxTurns = iv.Value
				at.HasMaxTurns = true
			}
		case "tools":
			if lv, ok := arg.Value.(ListValue); ok {
				for _, item := range lv.Items {
					if sv, ok := item.(StringValue); ok {
						at.Tools = append(at.Tools, sv.Value)
					}
				}
			}
		case "output_artifact":
			if sv, ok := arg.Value.(StringValue); ok {
				at.OutputArtifact = sv.Value
			}
		case "output_schema":
			// Only the named-type-reference form (output_schema: SomeType)
			// is representable through the generic arg-value grammar; an
			// inline object literal would need type syntax where agent_task
			// only accepts values.
			if iv, ok := arg.Value.(IdentValue); ok {
				at.OutputSchema = PrimitiveType{Name: iv.Name, Span: iv.Span}
			}
		}
	}
	return at
}

func (r *reader) readCycle(n *cst.Node) *Cycle {
	c := &Cycle{Name: n.Text, Span: n.Span}
	for _, child := range n.Children {
		switch child.Kind {
		case cst.KInt:
			field, value := splitPrefixed(child.Text)
			if field == "max_iters" {
				iv, err := strconv.Atoi(value)
				if err != nil {
					r.errorf(child.Span, "malformed max_iters: "+value)
				}
				c.MaxIters = iv
				c.HasMaxIters = true
			}
		case cst.KString:
			field, value := splitPrefixed(child.Text)
			if field == "key" {
				c.Key = value
				c.HasKey = true
			}
		case cst.KTriple:
			field, value := splitPrefixed(child.Text)
			if field == "until" {
				c.UntilGuard = value
				c.HasUntil = true
			}
		case cst.KIdent:
			field, value := splitPrefixed(child.Text)
			if field == "retry_policy" {
				c.RetryPolicy = value
			}
		case cst.KCycleBody:
			for _, jn := range child.Children {
				switch jn.Kind {
				case cst.KJob:
					c.Body = append(c.Body, r.readJob(jn))
				case cst.KAgentJob:
					c.Body = append(c.Body, r.readAgentJob(jn))
				}
			}
		}
	}
	return c
}

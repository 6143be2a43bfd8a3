// Package cst implements the concrete-syntax boundary for WorkPipe source:
// a lexer and recursive-descent parser that turn source text into a
// generic, semantics-free tree plus a list of syntax errors. Nothing in
// this package knows what a "cycle" or a "job fragment" means — it only
// knows it saw the keyword "cycle" followed by a brace-delimited block.
// That semantic knowledge belongs to pkg/ast, which walks this tree.
//
// Per spec.md §1, a real WorkPipe implementation treats this boundary as
// an external collaborator (its own grammar/tokenizer project). This
// package exists so the core is runnable end-to-end in one module; the
// architectural boundary is preserved by keeping pass 1 (pkg/ast) ignorant
// of bytes and the lexer/parser here ignorant of semantics.
package cst

import "github.com/workpipe/workpipe/pkg/source"

// Kind identifies the grammar production a Node was built from.
type Kind string

const (
	KFile      Kind = "File"
	KImport    Kind = "Import"
	KImportItem Kind = "ImportItem"
	KTypeDecl  Kind = "TypeDecl"

	KTypeName     Kind = "TypeName"     // leaf: primitive or reference identifier
	KTypeStrLit   Kind = "TypeStrLit"   // leaf: string literal used in a union
	KTypeUnion    Kind = "TypeUnion"    // children: alternatives (incl. a trailing "null")
	KTypeList     Kind = "TypeList"     // single child: element type
	KTypeObject   Kind = "TypeObject"   // children: Field*
	KField        Kind = "Field"        // children: [name leaf, Type]

	KJobFragmentDecl   Kind = "JobFragmentDecl"
	KStepsFragmentDecl Kind = "StepsFragmentDecl"
	KParam             Kind = "Param" // children: [name, Type, default?]

	KWorkflowDecl Kind = "WorkflowDecl"
	KTrigger      Kind = "Trigger" // leaf or children of idents

	KJob       Kind = "Job"
	KAgentJob  Kind = "AgentJob"
	KMatrixJob Kind = "MatrixJob"

	KFragmentRef  Kind = "FragmentRef"  // job <name> = <fragment> { args }
	KArg          Kind = "Arg"          // children: [name, value]
	KNeeds        Kind = "Needs"        // children: name leaves
	KOutputs      Kind = "Outputs"      // children: Field*
	KMatrixAxis   Kind = "MatrixAxis"   // children: [name, value*]
	KMatrixInclude Kind = "MatrixInclude"
	KMatrixExclude Kind = "MatrixExclude"

	KCycle     Kind = "Cycle"
	KCycleBody Kind = "CycleBody" // children: Job|AgentJob*

	KStepsBlock Kind = "StepsBlock" // children: Step*
	KStepUses   Kind = "StepUses"
	KStepWith   Kind = "StepWith"   // children: Arg*
	KStepShell  Kind = "StepShell"
	KStepRun    Kind = "StepRun"
	KStepGuard  Kind = "StepGuard" // children: [name leaf, code leaf]
	KAgentTask  Kind = "AgentTask" // children: [prompt leaf, Arg*]
	KSpread     Kind = "Spread"    // children: [fragment name, Arg*]

	KIdent  Kind = "Ident"
	KString Kind = "String"
	KTriple Kind = "Triple"
	KInt    Kind = "Int"
	KFloat  Kind = "Float"
	KBool   Kind = "Bool"
	KNull   Kind = "Null"
	KList   Kind = "List" // list literal, children are leaves
)

// Node is one element of the concrete syntax tree. Leaf nodes carry Text;
// interior nodes carry Children. Every node carries the byte span it was
// parsed from.
type Node struct {
	Kind     Kind
	Text     string
	Span     source.Span
	Children []*Node
}

// Tree is the top-level result of parsing one file.
type Tree struct {
	Root *Node // always KFile
	Path string
}

// Child returns the first child of the given kind, or nil.
func (n *Node) Child(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOf returns every child of the given kind, in order.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

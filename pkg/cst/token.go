package cst

import "github.com/workpipe/workpipe/pkg/source"

// TokenKind classifies a lexical token of the WorkPipe surface syntax
// (spec.md §6).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokString       // "..."
	TokTripleString // """...""" (multi-line, including guard bodies)
	TokInt
	TokFloat
	TokLBrace       // {
	TokRBrace       // }
	TokLBracket     // [
	TokRBracket     // ]
	TokLParen       // (
	TokRParen       // )
	TokColon        // :
	TokComma        // ,
	TokDot          // .
	TokEquals       // =
	TokPipe         // |
	TokQuestion     // ?
	TokEllipsis     // ...
	TokArrow        // =>
	TokInvalid
)

var keywords = map[string]bool{
	"workflow": true, "job": true, "agent_job": true, "matrix": true,
	"cycle": true, "body": true, "type": true, "import": true, "from": true,
	"as": true, "job_fragment": true, "steps_fragment": true, "params": true,
	"uses": true, "shell": true, "run": true, "step": true, "guard_js": true,
	"agent_task": true, "needs": true, "runs_on": true, "outputs": true,
	"if": true, "until": true, "max_iters": true, "key": true, "on": true,
	"null": true, "true": true, "false": true, "steps": true, "triggers": true,
	"retry_policy": true, "model": true, "max_turns": true, "tools": true,
	"output_schema": true, "output_artifact": true, "environment": true,
	"matrix_job": true, "include": true, "exclude": true, "default": true,
}

// IsKeyword reports whether ident is a reserved keyword of the surface
// grammar.
func IsKeyword(ident string) bool {
	return keywords[ident]
}

// Token is one lexical unit together with its source span.
type Token struct {
	Kind TokenKind
	Text string
	Span source.Span
}

package cst

import (
	"strconv"

	"github.com/workpipe/workpipe/pkg/source"
)

// Parse lexes and parses WorkPipe source text into a concrete tree plus any
// syntax errors encountered. Parsing never panics on malformed input: it
// records a SyntaxError and recovers by skipping to the next plausible
// statement boundary, so callers always get a best-effort tree.
func Parse(path, text string) (*Tree, []SyntaxError) {
	tokens, errs := NewLexer(text).Lex()
	p := &parser{tokens: tokens, path: path}
	root := p.parseFile()
	errs = append(errs, p.errs...)
	return &Tree{Root: root, Path: path}, errs
}

type parser struct {
	tokens []Token
	pos    int
	path   string
	errs   []SyntaxError
}

func (p *parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) at(kind TokenKind) bool { return p.cur().Kind == kind }

func (p *parser) atKeyword(word string) bool {
	t := p.cur()
	return t.Kind == TokKeyword && t.Text == word
}

func (p *parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) errorf(span source.Span, msg string) {
	p.errs = append(p.errs, SyntaxError{Message: msg, Span: span})
}

// expect consumes a token of the given kind, or records an error and
// returns the current token without consuming it.
func (p *parser) expect(kind TokenKind, what string) Token {
	if p.at(kind) {
		return p.advance()
	}
	p.errorf(p.cur().Span, "expected "+what)
	return p.cur()
}

func (p *parser) expectKeyword(word string) Token {
	if p.atKeyword(word) {
		return p.advance()
	}
	p.errorf(p.cur().Span, "expected keyword '"+word+"'")
	return p.cur()
}

// recoverTo skips tokens until one of the given kinds or EOF, for
// panic-mode error recovery after a malformed construct.
func (p *parser) recoverTo(kinds ...TokenKind) {
	for !p.at(TokEOF) {
		for _, k := range kinds {
			if p.at(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseFile() *Node {
	start := p.cur().Span
	file := &Node{Kind: KFile}
	for !p.at(TokEOF) {
		switch {
		case p.atKeyword("import"):
			file.Children = append(file.Children, p.parseImport())
		case p.atKeyword("type"):
			file.Children = append(file.Children, p.parseTypeDecl())
		case p.atKeyword("job_fragment"):
			file.Children = append(file.Children, p.parseJobFragmentDecl())
		case p.atKeyword("steps_fragment"):
			file.Children = append(file.Children, p.parseStepsFragmentDecl())
		case p.atKeyword("workflow"):
			file.Children = append(file.Children, p.parseWorkflowDecl())
		default:
			p.errorf(p.cur().Span, "unexpected token at top level: "+p.cur().Text)
			p.advance()
		}
	}
	end := p.cur().Span
	file.Span = start.Merge(end)
	return file
}

// import { a, b as c } from "./path.workpipe"
func (p *parser) parseImport() *Node {
	start := p.expectKeyword("import").Span
	n := &Node{Kind: KImport}
	p.expect(TokLBrace, "'{'")
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		itemStart := p.cur().Span
		name := p.expect(TokIdent, "import name")
		item := &Node{Kind: KImportItem, Span: name.Span, Text: name.Text}
		if p.atKeyword("as") {
			p.advance()
			alias := p.expect(TokIdent, "alias")
			item.Children = append(item.Children, &Node{Kind: KIdent, Text: alias.Text, Span: alias.Span})
		}
		item.Span = itemStart.Merge(p.cur().Span)
		n.Children = append(n.Children, item)
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokRBrace, "'}'")
	p.expectKeyword("from")
	pathTok := p.expect(TokString, "import path string")
	pathNode := &Node{Kind: KString, Text: pathTok.Text, Span: pathTok.Span}
	n.Children = append(n.Children, pathNode)
	n.Span = start.Merge(p.cur().Span)
	return n
}

// type Name = Type
// type Name { field: Type, ... }   (object shorthand)
func (p *parser) parseTypeDecl() *Node {
	start := p.expectKeyword("type").Span
	name := p.expect(TokIdent, "type name")
	n := &Node{Kind: KTypeDecl, Text: name.Text}
	switch {
	case p.at(TokEquals):
		p.advance()
		n.Children = append(n.Children, p.parseType())
	case p.at(TokLBrace):
		n.Children = append(n.Children, p.parseObjectType())
	default:
		p.errorf(p.cur().Span, "expected '=' or '{' after type name")
		p.recoverTo(TokKeyword)
	}
	n.Span = start.Merge(p.cur().Span)
	return n
}

// Type := UnionMember ('|' UnionMember)*
func (p *parser) parseType() *Node {
	first := p.parseTypePrimary()
	if !p.at(TokPipe) {
		return first
	}
	union := &Node{Kind: KTypeUnion, Span: first.Span}
	union.Children = append(union.Children, first)
	for p.at(TokPipe) {
		p.advance()
		member := p.parseTypePrimary()
		union.Children = append(union.Children, member)
	}
	union.Span = union.Span.Merge(p.cur().Span)
	return union
}

func (p *parser) parseTypePrimary() *Node {
	switch {
	case p.at(TokLBracket):
		start := p.advance().Span
		elem := p.parseType()
		end := p.expect(TokRBracket, "']'").Span
		return &Node{Kind: KTypeList, Span: start.Merge(end), Children: []*Node{elem}}
	case p.at(TokLBrace):
		return p.parseObjectType()
	case p.at(TokString):
		tok := p.advance()
		return &Node{Kind: KTypeStrLit, Text: tok.Text, Span: tok.Span}
	case p.at(TokIdent) || p.at(TokKeyword):
		tok := p.advance()
		return &Node{Kind: KTypeName, Text: tok.Text, Span: tok.Span}
	default:
		p.errorf(p.cur().Span, "expected a type")
		tok := p.cur()
		return &Node{Kind: KTypeName, Text: "", Span: tok.Span}
	}
}

func (p *parser) parseObjectType() *Node {
	start := p.expect(TokLBrace, "'{'").Span
	obj := &Node{Kind: KTypeObject}
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		obj.Children = append(obj.Children, p.parseField())
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	end := p.expect(TokRBrace, "'}'").Span
	obj.Span = start.Merge(end)
	return obj
}

func (p *parser) parseField() *Node {
	name := p.expect(TokIdent, "field name")
	p.expect(TokColon, "':'")
	typ := p.parseType()
	nameNode := &Node{Kind: KIdent, Text: name.Text, Span: name.Span}
	return &Node{Kind: KField, Span: name.Span.Merge(typ.Span), Children: []*Node{nameNode, typ}}
}

// job_fragment Name(param: Type = default, ...) { JobBody }
func (p *parser) parseJobFragmentDecl() *Node {
	start := p.expectKeyword("job_fragment").Span
	name := p.expect(TokIdent, "fragment name")
	n := &Node{Kind: KJobFragmentDecl, Text: name.Text}
	n.Children = append(n.Children, p.parseParamList()...)
	n.Children = append(n.Children, p.parseJobFieldsBlock()...)
	n.Span = start.Merge(p.cur().Span)
	return n
}

// steps_fragment Name(param: Type, ...) { Step* }
func (p *parser) parseStepsFragmentDecl() *Node {
	start := p.expectKeyword("steps_fragment").Span
	name := p.expect(TokIdent, "fragment name")
	n := &Node{Kind: KStepsFragmentDecl, Text: name.Text}
	n.Children = append(n.Children, p.parseParamList()...)
	block := &Node{Kind: KStepsBlock}
	p.expect(TokLBrace, "'{'")
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		block.Children = append(block.Children, p.parseStep())
	}
	end := p.expect(TokRBrace, "'}'").Span
	block.Span = block.Span.Merge(end)
	n.Children = append(n.Children, block)
	n.Span = start.Merge(end)
	return n
}

func (p *parser) parseParamList() []*Node {
	p.expect(TokLParen, "'('")
	var params []*Node
	for !p.at(TokRParen) && !p.at(TokEOF) {
		pstart := p.cur().Span
		name := p.expect(TokIdent, "param name")
		p.expect(TokColon, "':'")
		typ := p.parseType()
		param := &Node{Kind: KParam, Text: name.Text}
		param.Children = append(param.Children, typ)
		if p.at(TokEquals) {
			p.advance()
			param.Children = append(param.Children, p.parseValue())
		}
		param.Span = pstart.Merge(p.cur().Span)
		params = append(params, param)
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokRParen, "')'")
	return params
}

// workflow Name { on: Trigger  (Job|Cycle)* }
func (p *parser) parseWorkflowDecl() *Node {
	start := p.expectKeyword("workflow").Span
	name := p.expect(TokIdent, "workflow name")
	n := &Node{Kind: KWorkflowDecl, Text: name.Text}
	p.expect(TokLBrace, "'{'")
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		switch {
		case p.atKeyword("on"):
			n.Children = append(n.Children, p.parseTrigger())
		case p.atKeyword("job"):
			n.Children = append(n.Children, p.parseJob())
		case p.atKeyword("agent_job"):
			n.Children = append(n.Children, p.parseAgentJob())
		case p.atKeyword("matrix_job"):
			n.Children = append(n.Children, p.parseMatrixJob())
		case p.atKeyword("cycle"):
			n.Children = append(n.Children, p.parseCycle())
		default:
			p.errorf(p.cur().Span, "unexpected token in workflow body: "+p.cur().Text)
			p.advance()
		}
	}
	end := p.expect(TokRBrace, "'}'").Span
	n.Span = start.Merge(end)
	return n
}

// on: <ident>  |  on: { raw captured block }
func (p *parser) parseTrigger() *Node {
	start := p.expectKeyword("on").Span
	p.expect(TokColon, "':'")
	if p.at(TokLBrace) {
		raw, end := p.captureRawBlock()
		return &Node{Kind: KTrigger, Text: raw, Span: start.Merge(end)}
	}
	tok := p.advance()
	return &Node{Kind: KTrigger, Text: tok.Text, Span: start.Merge(tok.Span)}
}

// captureRawBlock consumes a balanced {...} and returns its literal text
// reconstructed from token text (used for trigger specs whose internal
// shape the core does not need to validate structurally).
func (p *parser) captureRawBlock() (string, source.Span) {
	start := p.expect(TokLBrace, "'{'").Span
	depth := 1
	var out []byte
	out = append(out, '{')
	for depth > 0 && !p.at(TokEOF) {
		t := p.advance()
		switch t.Kind {
		case TokLBrace:
			depth++
		case TokRBrace:
			depth--
		}
		if depth == 0 {
			break
		}
		out = append(out, []byte(t.Text)...)
		out = append(out, ' ')
	}
	out = append(out, '}')
	return string(out), start.Merge(p.tokens[p.pos-1].Span)
}

func (p *parser) parseJob() *Node {
	start := p.expectKeyword("job").Span
	name := p.expect(TokIdent, "job name")
	n := &Node{Kind: KJob, Text: name.Text}
	if p.at(TokEquals) {
		// Fragment instantiation: job Name = Fragment { args }
		p.advance()
		fragName := p.expect(TokIdent, "fragment name")
		args := p.parseArgBlock()
		ref := &Node{Kind: KFragmentRef, Text: fragName.Text, Children: args}
		n.Children = append(n.Children, ref)
		n.Span = start.Merge(p.cur().Span)
		return n
	}
	n.Children = append(n.Children, p.parseJobFieldsBlock()...)
	n.Span = start.Merge(p.cur().Span)
	return n
}

func (p *parser) parseAgentJob() *Node {
	start := p.expectKeyword("agent_job").Span
	name := p.expect(TokIdent, "agent job name")
	n := &Node{Kind: KAgentJob, Text: name.Text}
	n.Children = append(n.Children, p.parseJobFieldsBlock()...)
	n.Span = start.Merge(p.cur().Span)
	return n
}

func (p *parser) parseMatrixJob() *Node {
	start := p.expectKeyword("matrix_job").Span
	name := p.expect(TokIdent, "matrix job name")
	n := &Node{Kind: KMatrixJob, Text: name.Text}
	n.Children = append(n.Children, p.parseJobFieldsBlock()...)
	n.Span = start.Merge(p.cur().Span)
	return n
}

// parseArgBlock parses `{ name: value, ... }` and returns the KArg nodes.
func (p *parser) parseArgBlock() []*Node {
	p.expect(TokLBrace, "'{'")
	var args []*Node
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		args = append(args, p.parseArg())
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokRBrace, "'}'")
	return args
}

func (p *parser) parseArg() *Node {
	// Field names such as model, max_turns, and tools are keywords, so an
	// argument name may be either an identifier or a keyword.
	var name Token
	if p.at(TokKeyword) {
		name = p.advance()
	} else {
		name = p.expect(TokIdent, "argument name")
	}
	p.expect(TokColon, "':'")
	val := p.parseValue()
	nameNode := &Node{Kind: KIdent, Text: name.Text, Span: name.Span}
	return &Node{Kind: KArg, Span: name.Span.Merge(val.Span), Children: []*Node{nameNode, val}}
}

func (p *parser) parseValue() *Node {
	switch {
	case p.at(TokString):
		t := p.advance()
		return &Node{Kind: KString, Text: t.Text, Span: t.Span}
	case p.at(TokTripleString):
		t := p.advance()
		return &Node{Kind: KTriple, Text: t.Text, Span: t.Span}
	case p.at(TokInt):
		t := p.advance()
		return &Node{Kind: KInt, Text: t.Text, Span: t.Span}
	case p.at(TokFloat):
		t := p.advance()
		return &Node{Kind: KFloat, Text: t.Text, Span: t.Span}
	case p.atKeyword("true") || p.atKeyword("false"):
		t := p.advance()
		return &Node{Kind: KBool, Text: t.Text, Span: t.Span}
	case p.atKeyword("null"):
		t := p.advance()
		return &Node{Kind: KNull, Text: t.Text, Span: t.Span}
	case p.at(TokLBracket):
		start := p.advance().Span
		list := &Node{Kind: KList}
		for !p.at(TokRBracket) && !p.at(TokEOF) {
			list.Children = append(list.Children, p.parseValue())
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
		end := p.expect(TokRBracket, "']'").Span
		list.Span = start.Merge(end)
		return list
	case p.at(TokLBrace):
		args := p.parseArgBlock()
		return &Node{Kind: KArg + "Map", Children: args}
	case p.at(TokIdent) || p.at(TokKeyword):
		t := p.advance()
		return &Node{Kind: KIdent, Text: t.Text, Span: t.Span}
	default:
		p.errorf(p.cur().Span, "expected a value")
		t := p.cur()
		return &Node{Kind: KNull, Span: t.Span}
	}
}

// parseJobFieldsBlock parses the `{ ... }` body shared by job, agent_job,
// matrix_job, and job_fragment declarations.
func (p *parser) parseJobFieldsBlock() []*Node {
	p.expect(TokLBrace, "'{'")
	var fields []*Node
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		switch {
		case p.atKeyword("runs_on"):
			p.advance()
			p.expect(TokColon, "':'")
			tok := p.advance()
			fields = append(fields, &Node{Kind: KIdent, Text: "runs_on:" + tok.Text, Span: tok.Span})
		case p.atKeyword("needs"):
			start := p.advance().Span
			p.expect(TokColon, "':'")
			needs := &Node{Kind: KNeeds}
			p.expect(TokLBracket, "'['")
			for !p.at(TokRBracket) && !p.at(TokEOF) {
				t := p.expect(TokIdent, "job name")
				needs.Children = append(needs.Children, &Node{Kind: KIdent, Text: t.Text, Span: t.Span})
				if p.at(TokComma) {
					p.advance()
					continue
				}
				break
			}
			end := p.expect(TokRBracket, "']'").Span
			needs.Span = start.Merge(end)
			fields = append(fields, needs)
		case p.atKeyword("outputs"):
			p.advance()
			p.expect(TokColon, "':'")
			obj := p.parseObjectType()
			outputs := &Node{Kind: KOutputs, Children: obj.Children, Span: obj.Span}
			fields = append(fields, outputs)
		case p.atKeyword("if"):
			p.advance()
			p.expect(TokColon, "':'")
			v := p.parseValue()
			fields = append(fields, &Node{Kind: KIdent, Text: "if:" + v.Text, Span: v.Span})
		case p.atKeyword("environment"):
			p.advance()
			p.expect(TokColon, "':'")
			v := p.parseValue()
			fields = append(fields, &Node{Kind: KIdent, Text: "environment:" + v.Text, Span: v.Span})
		case p.atKeyword("retry_policy"):
			p.advance()
			p.expect(TokColon, "':'")
			v := p.parseValue()
			fields = append(fields, &Node{Kind: KIdent, Text: "retry_policy:" + v.Text, Span: v.Span})
		case p.atKeyword("steps"):
			p.advance()
			p.expect(TokColon, "':'")
			fields = append(fields, p.parseStepsList())
		case p.atKeyword("matrix"):
			fields = append(fields, p.parseMatrixBlock())
		default:
			p.errorf(p.cur().Span, "unexpected field in job body: "+p.cur().Text)
			p.advance()
		}
	}
	p.expect(TokRBrace, "'}'")
	return fields
}

// steps: [ Step, Step, ... ]   or   steps: { Step Step ... }
func (p *parser) parseStepsList() *Node {
	block := &Node{Kind: KStepsBlock}
	switch {
	case p.at(TokLBracket):
		start := p.advance().Span
		for !p.at(TokRBracket) && !p.at(TokEOF) {
			block.Children = append(block.Children, p.parseStep())
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
		end := p.expect(TokRBracket, "']'").Span
		block.Span = start.Merge(end)
	case p.at(TokLBrace):
		start := p.advance().Span
		for !p.at(TokRBrace) && !p.at(TokEOF) {
			block.Children = append(block.Children, p.parseStep())
		}
		end := p.expect(TokRBrace, "'}'").Span
		block.Span = start.Merge(end)
	default:
		p.errorf(p.cur().Span, "expected steps list")
	}
	return block
}

func (p *parser) parseStep() *Node {
	switch {
	case p.atKeyword("uses"):
		start := p.advance().Span
		p.expect(TokLParen, "'('")
		action := p.expect(TokString, "action reference string")
		p.expect(TokRParen, "')'")
		n := &Node{Kind: KStepUses, Text: action.Text}
		if p.at(TokLBrace) {
			p.advance()
			if p.atKeyword("with") || (p.at(TokIdent) && p.cur().Text == "with") {
				p.advance()
				args := p.parseArgBlock()
				n.Children = append(n.Children, &Node{Kind: KStepWith, Children: args})
			}
			p.expect(TokRBrace, "'}'")
		}
		n.Span = start.Merge(p.cur().Span)
		return n
	case p.atKeyword("shell"):
		start := p.advance().Span
		p.expect(TokLBrace, "'{'")
		script := p.parseValue()
		end := p.expect(TokRBrace, "'}'").Span
		return &Node{Kind: KStepShell, Text: script.Text, Span: start.Merge(end)}
	case p.atKeyword("run"):
		start := p.advance().Span
		p.expect(TokLParen, "'('")
		cmd := p.expect(TokString, "shell command string")
		end := p.expect(TokRParen, "')'").Span
		return &Node{Kind: KStepRun, Text: cmd.Text, Span: start.Merge(end)}
	case p.atKeyword("step"):
		start := p.advance().Span
		name := p.expect(TokString, "step name string")
		p.expectKeyword("guard_js")
		code := p.parseValue()
		nameNode := &Node{Kind: KString, Text: name.Text, Span: name.Span}
		return &Node{Kind: KStepGuard, Span: start.Merge(code.Span), Children: []*Node{nameNode, code}}
	case p.atKeyword("agent_task"):
		start := p.advance().Span
		p.expect(TokLParen, "'('")
		prompt := p.expect(TokString, "agent task prompt string")
		p.expect(TokRParen, "')'")
		args := p.parseArgBlock()
		promptNode := &Node{Kind: KString, Text: prompt.Text, Span: prompt.Span}
		n := &Node{Kind: KAgentTask, Children: append([]*Node{promptNode}, args...)}
		n.Span = start.Merge(p.cur().Span)
		return n
	case p.at(TokEllipsis):
		start := p.advance().Span
		fragName := p.expect(TokIdent, "fragment name")
		args := p.parseArgBlock()
		n := &Node{Kind: KSpread, Text: fragName.Text, Children: args}
		n.Span = start.Merge(p.cur().Span)
		return n
	default:
		p.errorf(p.cur().Span, "expected a step")
		tok := p.advance()
		return &Node{Kind: KStepRun, Span: tok.Span}
	}
}

// matrix { axisName: [v1, v2], ...  include: [...]  exclude: [...] }
func (p *parser) parseMatrixBlock() *Node {
	start := p.expectKeyword("matrix").Span
	p.expect(TokLBrace, "'{'")
	n := &Node{Kind: KMatrixAxis} // container; Text unused
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		switch {
		case p.atKeyword("include"):
			p.advance()
			p.expect(TokColon, "':'")
			n.Children = append(n.Children, p.parseMatrixEntryList(KMatrixInclude))
		case p.atKeyword("exclude"):
			p.advance()
			p.expect(TokColon, "':'")
			n.Children = append(n.Children, p.parseMatrixEntryList(KMatrixExclude))
		default:
			axisName := p.expect(TokIdent, "matrix axis name")
			p.expect(TokColon, "':'")
			vals := p.parseValue()
			axis := &Node{Kind: KField, Text: axisName.Text, Children: []*Node{{Kind: KIdent, Text: axisName.Text, Span: axisName.Span}, vals}}
			n.Children = append(n.Children, axis)
		}
		if p.at(TokComma) {
			p.advance()
		}
	}
	end := p.expect(TokRBrace, "'}'").Span
	n.Span = start.Merge(end)
	return n
}

func (p *parser) parseMatrixEntryList(kind Kind) *Node {
	n := &Node{Kind: kind}
	p.expect(TokLBracket, "'['")
	for !p.at(TokRBracket) && !p.at(TokEOF) {
		args := p.parseArgBlock()
		n.Children = append(n.Children, &Node{Kind: KArg + "Map", Children: args})
		if p.at(TokComma) {
			p.advance()
			continue
		}
		break
	}
	end := p.expect(TokRBracket, "']'").Span
	n.Span = n.Span.Merge(end)
	return n
}

func (p *parser) parseCycle() *Node {
	start := p.expectKeyword("cycle").Span
	name := p.expect(TokIdent, "cycle name")
	n := &Node{Kind: KCycle, Text: name.Text}
	p.expect(TokLBrace, "'{'")
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		switch {
		case p.atKeyword("max_iters"):
			p.advance()
			p.expect(TokEquals, "'='")
			v := p.expect(TokInt, "integer literal")
			n.Children = append(n.Children, &Node{Kind: KInt, Text: "max_iters:" + v.Text, Span: v.Span})
		case p.atKeyword("key"):
			p.advance()
			p.expect(TokEquals, "'='")
			v := p.expect(TokString, "string literal")
			n.Children = append(n.Children, &Node{Kind: KString, Text: "key:" + v.Text, Span: v.Span})
		case p.atKeyword("until"):
			p.advance()
			p.expectKeyword("guard_js")
			v := p.parseValue()
			n.Children = append(n.Children, &Node{Kind: KTriple, Text: "until:" + v.Text, Span: v.Span})
		case p.atKeyword("retry_policy"):
			p.advance()
			p.expect(TokEquals, "'='")
			v := p.parseValue()
			n.Children = append(n.Children, &Node{Kind: KIdent, Text: "retry_policy:" + v.Text, Span: v.Span})
		case p.atKeyword("body"):
			bstart := p.advance().Span
			p.expect(TokLBrace, "'{'")
			body := &Node{Kind: KCycleBody}
			for !p.at(TokRBrace) && !p.at(TokEOF) {
				switch {
				case p.atKeyword("job"):
					body.Children = append(body.Children, p.parseJob())
				case p.atKeyword("agent_job"):
					body.Children = append(body.Children, p.parseAgentJob())
				default:
					p.errorf(p.cur().Span, "cycle body may only contain job or agent_job")
					p.advance()
				}
			}
			bend := p.expect(TokRBrace, "'}'").Span
			body.Span = bstart.Merge(bend)
			n.Children = append(n.Children, body)
		default:
			p.errorf(p.cur().Span, "unexpected field in cycle body: "+p.cur().Text)
			p.advance()
		}
	}
	end := p.expect(TokRBrace, "'}'").Span
	n.Span = start.Merge(end)
	return n
}

// ParseIntLiteral is a small helper re-exported for callers (pkg/ast) that
// need to turn a KInt leaf's text back into an int.
func ParseIntLiteral(text string) (int, error) {
	return strconv.Atoi(text)
}

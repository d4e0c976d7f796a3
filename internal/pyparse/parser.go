// Package pyparse is a recursive-descent parser over pylex's token stream,
// producing a pyast.Module. It implements exactly the grammar enumerated in
// spec.md §4.2; anything else reports ParseError/UnsupportedStatement/
// UnsupportedExpression/ChainedComparison/RangeMisuse as specified in §7.
package pyparse

import (
	"fmt"

	"github.com/fraudcore/pywasm/internal/pyast"
	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/fraudcore/pywasm/internal/pylex"
)

type parser struct {
	toks []pylex.Token
	pos  int
}

// Parse tokenizes and parses source into a pyast.Module.
func Parse(source []byte) (*pyast.Module, error) {
	toks, err := pylex.Tokenize(source)
	if err != nil {
		return nil, pyerr.New(pyerr.ParseError, "%v", err)
	}
	p := &parser{toks: toks}
	mod, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	return mod, nil
}

func (p *parser) cur() pylex.Token  { return p.toks[p.pos] }
func (p *parser) at(k pylex.Kind) bool { return p.cur().Kind == k }
func (p *parser) atOp(s string) bool   { return p.cur().Kind == pylex.OP && p.cur().Text == s }
func (p *parser) atName(s string) bool { return p.cur().Kind == pylex.NAME && p.cur().Text == s }

func (p *parser) advance() pylex.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectOp(s string) error {
	if !p.atOp(s) {
		return p.errf("expected %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) expectName(s string) error {
	if !p.atName(s) {
		return p.errf("expected keyword %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) expectKind(k pylex.Kind) (pylex.Token, error) {
	if !p.at(k) {
		return pylex.Token{}, p.errf("expected %s, got %s %q", k, p.cur().Kind, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return pyerr.New(pyerr.ParseError, "line %d: %s", p.cur().Line, msg)
}

// skipNewlines consumes zero or more blank NEWLINE tokens, used between
// top-level/suite statements.
func (p *parser) skipNewlines() {
	for p.at(pylex.NEWLINE) {
		p.advance()
	}
}

func (p *parser) parseModule() (*pyast.Module, error) {
	mod := &pyast.Module{}
	p.skipNewlines()
	for !p.at(pylex.ENDMARKER) {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		mod.Body = append(mod.Body, st)
		p.skipNewlines()
	}
	return mod, nil
}

var keywordStmts = map[string]bool{
	"def": true, "if": true, "while": true, "for": true, "return": true,
	"import": true, "elif": true,
}

func (p *parser) parseStmt() (pyast.Stmt, error) {
	if p.at(pylex.NAME) {
		switch p.cur().Text {
		case "def":
			return p.parseFunctionDef()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseFor()
		case "return":
			return p.parseReturn()
		case "import":
			return p.parseImport()
		case "from":
			return p.parseFromImport()
		case "elif":
			return nil, pyerr.New(pyerr.UnsupportedStatement, "line %d: elif is not supported; use nested if/else", p.cur().Line)
		case "class", "lambda", "try", "with", "assert", "del", "global",
			"nonlocal", "yield", "async", "await", "raise", "pass", "break", "continue":
			return nil, pyerr.New(pyerr.UnsupportedStatement, "line %d: %q is not supported", p.cur().Line, p.cur().Text)
		}
	}
	return p.parseSimpleOrExprStmt()
}

// parseSuite parses a statement's body, which is either a single simple
// statement on the same line after ':' or an indented block starting on
// the next line (§4.2).
func (p *parser) parseSuite() ([]pyast.Stmt, error) {
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	if !p.at(pylex.NEWLINE) {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return []pyast.Stmt{st}, nil
	}
	p.skipNewlines()
	if !p.at(pylex.INDENT) {
		return nil, p.errf("expected an indented block")
	}
	p.advance()
	var body []pyast.Stmt
	p.skipNewlines()
	for !p.at(pylex.DEDENT) {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, st)
		p.skipNewlines()
	}
	p.advance() // DEDENT
	return body, nil
}

func (p *parser) parseFunctionDef() (pyast.Stmt, error) {
	p.advance() // def
	name, err := p.expectKind(pylex.NAME)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	var params []string
	for !p.atOp(")") {
		pn, err := p.expectKind(pylex.NAME)
		if err != nil {
			return nil, err
		}
		params = append(params, pn.Text)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return pyast.FunctionDef{Name: name.Text, Params: params, Body: body}, nil
}

func (p *parser) parseIf() (pyast.Stmt, error) {
	p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	var els []pyast.Stmt
	save := p.pos
	p.skipNewlines()
	if p.atName("else") {
		p.advance()
		els, err = p.parseSuite()
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = save
	}
	return pyast.If{Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) parseWhile() (pyast.Stmt, error) {
	p.advance() // while
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return pyast.While{Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (pyast.Stmt, error) {
	p.advance() // for
	v, err := p.expectKind(pylex.NAME)
	if err != nil {
		return nil, err
	}
	if err := p.expectName("in"); err != nil {
		return nil, err
	}
	if !p.atName("range") {
		return nil, pyerr.New(pyerr.RangeMisuse, "line %d: for loops must iterate over range(n)", p.cur().Line)
	}
	p.advance() // range
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	bound, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.atOp(",") {
		return nil, pyerr.New(pyerr.RangeMisuse, "line %d: range() accepts exactly one argument", p.cur().Line)
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return pyast.For{Var: v.Text, Bound: bound, Body: body}, nil
}

func (p *parser) parseReturn() (pyast.Stmt, error) {
	p.advance() // return
	if p.at(pylex.NEWLINE) || p.at(pylex.ENDMARKER) || p.at(pylex.DEDENT) {
		return pyast.Return{Value: pyast.NameConst{Value: "None"}}, nil
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return pyast.Return{Value: v}, nil
}

func (p *parser) parseImport() (pyast.Stmt, error) {
	p.advance() // import
	name, err := p.expectKind(pylex.NAME)
	if err != nil {
		return nil, err
	}
	return pyast.Import{Module: name.Text}, nil
}

func (p *parser) parseFromImport() (pyast.Stmt, error) {
	p.advance() // from
	mod, err := p.expectKind(pylex.NAME)
	if err != nil {
		return nil, err
	}
	if err := p.expectName("import"); err != nil {
		return nil, err
	}
	var names []string
	for {
		n, err := p.expectKind(pylex.NAME)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Text)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	return pyast.ImportFrom{Module: mod.Text, Names: names}, nil
}

var augOps = map[string]string{"+=": "+", "-=": "-", "*=": "*", "//=": "//", "%=": "%"}

// parseSimpleOrExprStmt parses assignment, augmented-assignment, subscript
// assignment, or a bare expression statement — the forms that don't start
// with a reserved keyword.
func (p *parser) parseSimpleOrExprStmt() (pyast.Stmt, error) {
	if p.at(pylex.NAME) {
		nameTok := p.cur()
		save := p.pos
		p.advance()

		if p.atOp("[") {
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			if p.atOp("=") {
				p.advance()
				val, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				return pyast.SubscriptAssign{Target: pyast.Name{Id: nameTok.Text}, Index: idx, Value: val}, nil
			}
			// Not an assignment: rewind and fall through to full expression parsing.
			p.pos = save
		} else if p.atOp(",") {
			targets := []string{nameTok.Text}
			for p.atOp(",") {
				p.advance()
				n, err := p.expectKind(pylex.NAME)
				if err != nil {
					return nil, err
				}
				targets = append(targets, n.Text)
			}
			if err := p.expectOp("="); err != nil {
				return nil, err
			}
			values, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			return pyast.Assign{Targets: targets, Values: values}, nil
		} else if p.atOp("=") {
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return pyast.Assign{Targets: []string{nameTok.Text}, Values: []pyast.Expr{v}}, nil
		} else if op, ok := augOps[p.cur().Text]; ok && p.at(pylex.OP) {
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return pyast.AugAssign{Target: nameTok.Text, Op: op, Value: v}, nil
		} else {
			p.pos = save
		}
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return pyast.ExprStmt{Value: v}, nil
}

// parseExprList parses a comma-separated list of expressions, used for the
// right-hand side of a tuple-unpacking assignment.
func (p *parser) parseExprList() ([]pyast.Expr, error) {
	var out []pyast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

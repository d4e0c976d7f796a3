package pyparse

import (
	"github.com/fraudcore/pywasm/internal/pyast"
	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/fraudcore/pywasm/internal/pylex"
)

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// parseExpr parses a full expression, including the trailing conditional
// form `then if cond else other` (§4.2).
func (p *parser) parseExpr() (pyast.Expr, error) {
	e, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.atName("if") {
		p.advance()
		cond, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if err := p.expectName("else"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return pyast.IfExp{Cond: cond, Then: e, Else: els}, nil
	}
	return e, nil
}

// parseComparison handles a single comparator; a second comparison operator
// immediately following is rejected as a chained comparison (§4.2, §7).
func (p *parser) parseComparison() (pyast.Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if p.at(pylex.OP) && compareOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		if p.at(pylex.OP) && compareOps[p.cur().Text] {
			return nil, pyerr.New(pyerr.ChainedComparison, "line %d: chained comparisons are not supported", p.cur().Line)
		}
		return pyast.Compare{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAddSub() (pyast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.atOp("+") || p.atOp("-") {
		op := p.advance().Text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = pyast.BinOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (pyast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.atOp("*") || p.atOp("/") || p.atOp("//") || p.atOp("%") {
		op := p.advance().Text
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = pyast.BinOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (pyast.Expr, error) {
	if p.atOp("-") {
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return pyast.UnaryOp{Op: "-", Operand: operand}, nil
	}
	if p.atName("not") {
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return pyast.UnaryOp{Op: "not", Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses an atom followed by zero or more call/attribute/
// subscript trailers.
func (p *parser) parsePostfix() (pyast.Expr, error) {
	prim, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("("):
			name, ok := prim.(pyast.Name)
			if !ok {
				return nil, p.errf("only a plain name may be called")
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			prim = pyast.Call{Func: name.Id, Args: args}
		case p.atOp("."):
			p.advance()
			method, err := p.expectKind(pylex.NAME)
			if err != nil {
				return nil, err
			}
			if !p.atOp("(") {
				return nil, p.errf("bare attribute access is not supported; only method calls are")
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			prim = pyast.MethodCall{Recv: prim, Method: method.Text, Args: args}
		case p.atOp("["):
			p.advance()
			node, err := p.parseSubscriptOrSlice(prim)
			if err != nil {
				return nil, err
			}
			prim = node
		default:
			return prim, nil
		}
	}
}

func (p *parser) parseArgs() ([]pyast.Expr, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	var args []pyast.Expr
	for !p.atOp(")") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parseSubscriptOrSlice(value pyast.Expr) (pyast.Expr, error) {
	var start pyast.Expr
	if !p.atOp(":") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		start = e
	}
	if p.atOp(":") {
		p.advance()
		var end pyast.Expr
		if !p.atOp("]") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			end = e
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		return pyast.Slice{Value: value, Start: start, End: end}, nil
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return pyast.Subscript{Value: value, Index: start}, nil
}

func (p *parser) parseAtom() (pyast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case pylex.NUMBER:
		p.advance()
		if containsDot(t.Text) {
			return pyast.FloatLit{Text: t.Text}, nil
		}
		return pyast.Num{Value: t.Int}, nil
	case pylex.STRING:
		p.advance()
		return pyast.Str{Value: t.Text}, nil
	case pylex.NAME:
		switch t.Text {
		case "True", "False", "None":
			p.advance()
			return pyast.NameConst{Value: t.Text}, nil
		}
		p.advance()
		return pyast.Name{Id: t.Text}, nil
	case pylex.OP:
		if t.Text == "(" {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
		if t.Text == "[" {
			return p.parseListLiteral()
		}
		if t.Text == "{" {
			return p.parseDictLiteral()
		}
	}
	return nil, pyerr.New(pyerr.UnsupportedExpression, "line %d: unexpected token %q", t.Line, t.Text)
}

func (p *parser) parseListLiteral() (pyast.Expr, error) {
	p.advance() // [
	var elems []pyast.Expr
	for !p.atOp("]") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return pyast.ListExpr{Elements: elems}, nil
}

func (p *parser) parseDictLiteral() (pyast.Expr, error) {
	p.advance() // {
	var pairs []pyast.DictPair
	for !p.atOp("}") {
		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pyast.DictPair{Key: k, Value: v})
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return pyast.DictExpr{Pairs: pairs}, nil
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

// Package lower transforms a pyast.Module into an ir.Module: it assigns
// every local a deterministic slot, resolves every name and call target,
// desugars augmented assignment, and rejects anything the IR cannot express
// (floats, chained comparisons already rejected at parse time, unsupported
// operators) with the typed pyerr.Kind the operation calls for (§4.2).
package lower

import (
	"sort"

	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/pyast"
	"github.com/fraudcore/pywasm/internal/pyerr"
)

// scratchSlots is the number of extra locals codegen reserves in every
// function for temporaries (heap-pointer arithmetic, slice bounds, loop
// bookkeeping) beyond the user-visible params/locals.
const scratchSlots = 8

// maxLocals is the Wasm local budget a single function may consume,
// params+locals+scratch combined (§3 invariant).
const maxLocals = 256

var builtinFuncs = map[string]bool{
	"len": true, "int": true, "str": true,
}

type scope struct {
	fn    *ir.Function
	funcs map[string]bool
}

// Lower converts a parsed module into IR. Function definitions are hoisted:
// every def is visible to every other def and to the top-level body
// regardless of source order, matching the forward-reference call in the
// factorial-recursion scenario (§8).
func Lower(mod *pyast.Module) (*ir.Module, error) {
	var defs []pyast.FunctionDef
	var mainBody []pyast.Stmt
	funcNames := map[string]bool{}
	for _, st := range mod.Body {
		if fd, ok := st.(pyast.FunctionDef); ok {
			if funcNames[fd.Name] {
				return nil, pyerr.New(pyerr.MultipleAssignment, "function %q is defined more than once", fd.Name).WithToken(fd.Name)
			}
			funcNames[fd.Name] = true
			defs = append(defs, fd)
			continue
		}
		mainBody = append(mainBody, st)
	}

	out := &ir.Module{}

	mainFn, err := lowerFunction("main", nil, mainBody, funcNames)
	if err != nil {
		return nil, err
	}
	out.Functions = append(out.Functions, mainFn)

	for _, fd := range defs {
		fn, err := lowerFunction(fd.Name, fd.Params, fd.Body, funcNames)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, fn)
	}

	globals := make([]string, 0, len(mainFn.Locals)-len(mainFn.Params))
	for _, name := range mainFn.Locals[len(mainFn.Params):] {
		globals = append(globals, name)
	}
	sort.Strings(globals)
	out.Globals = globals
	return out, nil
}

func lowerFunction(name string, params []string, body []pyast.Stmt, funcNames map[string]bool) (*ir.Function, error) {
	assigned := map[string]bool{}
	for _, p := range params {
		assigned[p] = true
	}
	collectAssignedNames(body, assigned)

	var extra []string
	paramSet := map[string]bool{}
	for _, p := range params {
		paramSet[p] = true
	}
	for n := range assigned {
		if !paramSet[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)

	fn := &ir.Function{
		Name:    name,
		Params:  params,
		Locals:  append(append([]string{}, params...), extra...),
		Scratch: scratchSlots,
	}
	fn.Slot = make(map[string]int, len(fn.Locals))
	for i, n := range fn.Locals {
		fn.Slot[n] = i
	}
	if fn.TotalLocals() > maxLocals {
		return nil, pyerr.New(pyerr.TooManyLocals, "function %q uses %d locals, limit is %d", name, fn.TotalLocals(), maxLocals)
	}

	sc := &scope{fn: fn, funcs: funcNames}
	stmts, err := sc.lowerStmts(body)
	if err != nil {
		return nil, err
	}
	fn.Body = stmts
	return fn, nil
}

// collectAssignedNames walks a statement list (not descending into nested
// function defs, which are not supported) and records every name a plain
// Assign, AugAssign, or For loop variable introduces.
func collectAssignedNames(body []pyast.Stmt, out map[string]bool) {
	for _, st := range body {
		switch s := st.(type) {
		case pyast.Assign:
			for _, t := range s.Targets {
				out[t] = true
			}
		case pyast.AugAssign:
			out[s.Target] = true
		case pyast.For:
			out[s.Var] = true
			collectAssignedNames(s.Body, out)
		case pyast.If:
			collectAssignedNames(s.Then, out)
			collectAssignedNames(s.Else, out)
		case pyast.While:
			collectAssignedNames(s.Body, out)
		}
	}
}

func (sc *scope) lowerStmts(body []pyast.Stmt) ([]ir.Stmt, error) {
	out := make([]ir.Stmt, 0, len(body))
	for _, st := range body {
		lowered, err := sc.lowerStmt(st)
		if err != nil {
			return nil, err
		}
		if lowered != nil {
			out = append(out, lowered)
		}
	}
	return out, nil
}

var augKind = map[string]ir.BinKind{"+": ir.BinAdd, "-": ir.BinSub, "*": ir.BinMul, "//": ir.BinFloorDiv, "%": ir.BinMod}

func (sc *scope) lowerStmt(st pyast.Stmt) (ir.Stmt, error) {
	switch s := st.(type) {
	case pyast.FunctionDef:
		return nil, pyerr.New(pyerr.UnsupportedStatement, "nested function definitions are not supported").WithToken(s.Name)
	case pyast.Import, pyast.ImportFrom:
		return nil, nil
	case pyast.Assign:
		if len(s.Targets) != len(s.Values) {
			return nil, pyerr.New(pyerr.TupleUnpackMismatch, "%d targets but %d values", len(s.Targets), len(s.Values))
		}
		if len(s.Targets) == 1 {
			v, err := sc.lowerExpr(s.Values[0])
			if err != nil {
				return nil, err
			}
			if _, ok := sc.fn.Slot[s.Targets[0]]; !ok {
				return nil, pyerr.New(pyerr.UndefinedVariable, "assignment target %q was not collected into the local table", s.Targets[0]).WithToken(s.Targets[0])
			}
			return ir.Assign{Var: s.Targets[0], Expr: v}, nil
		}
		var stmts []ir.Stmt
		for i, t := range s.Targets {
			v, err := sc.lowerExpr(s.Values[i])
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, ir.Assign{Var: t, Expr: v})
		}
		return ir.Block{Stmts: stmts}, nil
	case pyast.AugAssign:
		kind, ok := augKind[s.Op]
		if !ok {
			return nil, pyerr.New(pyerr.UnsupportedOperator, "augmented assignment operator %q is not supported", s.Op)
		}
		rhs, err := sc.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		if _, ok := sc.fn.Slot[s.Target]; !ok {
			return nil, pyerr.New(pyerr.UndefinedVariable, "%q is not a known local", s.Target).WithToken(s.Target)
		}
		return ir.Assign{Var: s.Target, Expr: ir.BinOp{Kind: kind, LHS: ir.LoadLocal{Name: s.Target}, RHS: rhs}}, nil
	case pyast.SubscriptAssign:
		name, ok := s.Target.(pyast.Name)
		if !ok {
			return nil, pyerr.New(pyerr.NonNameAssignTarget, "subscript assignment target must be a plain name")
		}
		if _, ok := sc.fn.Slot[name.Id]; !ok {
			return nil, pyerr.New(pyerr.UndefinedVariable, "%q is not a known local", name.Id).WithToken(name.Id)
		}
		idx, err := sc.lowerExpr(s.Index)
		if err != nil {
			return nil, err
		}
		val, err := sc.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return ir.SubscriptAssign{Target: ir.LoadLocal{Name: name.Id}, Index: idx, Value: val}, nil
	case pyast.Return:
		v, err := sc.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return ir.Return{Expr: v}, nil
	case pyast.If:
		cond, err := sc.lowerExpr(s.Cond)
		if err != nil {
			return nil, err
		}
		then, err := sc.lowerStmts(s.Then)
		if err != nil {
			return nil, err
		}
		els, err := sc.lowerStmts(s.Else)
		if err != nil {
			return nil, err
		}
		return ir.If{Cond: cond, Then: then, Else: els}, nil
	case pyast.While:
		cond, err := sc.lowerExpr(s.Cond)
		if err != nil {
			return nil, err
		}
		body, err := sc.lowerStmts(s.Body)
		if err != nil {
			return nil, err
		}
		return ir.While{Cond: cond, Body: body}, nil
	case pyast.For:
		bound, err := sc.lowerExpr(s.Bound)
		if err != nil {
			return nil, err
		}
		if _, ok := sc.fn.Slot[s.Var]; !ok {
			return nil, pyerr.New(pyerr.UndefinedVariable, "loop variable %q was not collected into the local table", s.Var).WithToken(s.Var)
		}
		body, err := sc.lowerStmts(s.Body)
		if err != nil {
			return nil, err
		}
		return ir.For{Var: s.Var, Iter: bound, Body: body}, nil
	case pyast.ExprStmt:
		v, err := sc.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return ir.ExprStmt{Expr: v}, nil
	}
	return nil, pyerr.New(pyerr.UnsupportedStatement, "unrecognized statement")
}

var binKind = map[string]ir.BinKind{
	"+": ir.BinAdd, "-": ir.BinSub, "*": ir.BinMul, "/": ir.BinDiv,
	"//": ir.BinFloorDiv, "%": ir.BinMod,
}

var cmpKind = map[string]ir.BinKind{
	"==": ir.BinEq, "!=": ir.BinNe, "<": ir.BinLt, "<=": ir.BinLe, ">": ir.BinGt, ">=": ir.BinGe,
}

func (sc *scope) lowerExpr(e pyast.Expr) (ir.Expr, error) {
	switch v := e.(type) {
	case pyast.Num:
		if v.Value > (1<<31)-1 || v.Value < -(1<<31) {
			return nil, pyerr.New(pyerr.IntegerOutOfRange, "integer literal %d does not fit in 32 bits", v.Value)
		}
		return ir.Const{Value: int32(v.Value)}, nil
	case pyast.FloatLit:
		return nil, pyerr.New(pyerr.FloatLiteral, "floating-point literal %q is not supported", v.Text).WithToken(v.Text)
	case pyast.Str:
		return ir.Str{Value: []byte(v.Value)}, nil
	case pyast.NameConst:
		switch v.Value {
		case "True":
			return ir.Const{Value: 1}, nil
		case "False", "None":
			return ir.Const{Value: 0}, nil
		}
		return nil, pyerr.New(pyerr.UnsupportedExpression, "unsupported constant %q", v.Value)
	case pyast.Name:
		if _, ok := sc.fn.Slot[v.Id]; !ok {
			return nil, pyerr.New(pyerr.UndefinedVariable, "name %q is not defined", v.Id).WithToken(v.Id)
		}
		return ir.LoadLocal{Name: v.Id}, nil
	case pyast.UnaryOp:
		operand, err := sc.lowerExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case "-":
			return ir.UnaryOp{Kind: ir.UnaryNeg, Operand: operand}, nil
		case "not":
			return ir.UnaryOp{Kind: ir.UnaryNot, Operand: operand}, nil
		}
		return nil, pyerr.New(pyerr.UnsupportedOperator, "unary operator %q is not supported", v.Op)
	case pyast.BinOp:
		kind, ok := binKind[v.Op]
		if !ok {
			return nil, pyerr.New(pyerr.UnsupportedOperator, "operator %q is not supported", v.Op)
		}
		l, err := sc.lowerExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := sc.lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return ir.BinOp{Kind: kind, LHS: l, RHS: r}, nil
	case pyast.Compare:
		kind, ok := cmpKind[v.Op]
		if !ok {
			return nil, pyerr.New(pyerr.UnsupportedOperator, "comparison operator %q is not supported", v.Op)
		}
		l, err := sc.lowerExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := sc.lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return ir.BinOp{Kind: kind, LHS: l, RHS: r}, nil
	case pyast.Call:
		if v.Func == "range" {
			return nil, pyerr.New(pyerr.RangeMisuse, "range() may only appear directly in a for loop")
		}
		args, err := sc.lowerExprs(v.Args)
		if err != nil {
			return nil, err
		}
		if sc.funcs[v.Func] || builtinFuncs[v.Func] {
			return ir.Call{Func: v.Func, Args: args}, nil
		}
		if _, ok := sc.fn.Slot[v.Func]; ok {
			return nil, pyerr.New(pyerr.UndefinedFunction, "%q is a variable, not a function", v.Func).WithToken(v.Func)
		}
		return nil, pyerr.New(pyerr.UnknownFunction, "%q is not a known function", v.Func).WithToken(v.Func)
	case pyast.MethodCall:
		return sc.lowerMethodCall(v)
	case pyast.ListExpr:
		elems, err := sc.lowerContainerElements(v.Elements)
		if err != nil {
			return nil, err
		}
		return ir.List{Elements: elems}, nil
	case pyast.DictExpr:
		pairs := make([]ir.DictPair, 0, len(v.Pairs))
		for _, p := range v.Pairs {
			k, err := sc.lowerExpr(p.Key)
			if err != nil {
				return nil, err
			}
			if !isIntegerShaped(p.Key) {
				return nil, pyerr.New(pyerr.NonIntegerContainerElement, "dict keys must be integers")
			}
			val, err := sc.lowerExpr(p.Value)
			if err != nil {
				return nil, err
			}
			if !isIntegerShaped(p.Value) {
				return nil, pyerr.New(pyerr.NonIntegerContainerElement, "dict values must be integers")
			}
			pairs = append(pairs, ir.DictPair{Key: k, Value: val})
		}
		return ir.Dict{Pairs: pairs}, nil
	case pyast.Subscript:
		val, err := sc.lowerExpr(v.Value)
		if err != nil {
			return nil, err
		}
		idx, err := sc.lowerExpr(v.Index)
		if err != nil {
			return nil, err
		}
		return ir.Subscript{Value: val, Index: idx}, nil
	case pyast.Slice:
		val, err := sc.lowerExpr(v.Value)
		if err != nil {
			return nil, err
		}
		var start, end ir.Expr
		if v.Start != nil {
			start, err = sc.lowerExpr(v.Start)
			if err != nil {
				return nil, err
			}
		}
		if v.End != nil {
			end, err = sc.lowerExpr(v.End)
			if err != nil {
				return nil, err
			}
		}
		return ir.Slice{Value: val, Start: start, End: end}, nil
	case pyast.IfExp:
		cond, err := sc.lowerExpr(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := sc.lowerExpr(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := sc.lowerExpr(v.Else)
		if err != nil {
			return nil, err
		}
		return ir.IfExpr{Cond: cond, Then: then, Else: els}, nil
	}
	return nil, pyerr.New(pyerr.UnsupportedExpression, "unrecognized expression")
}

func (sc *scope) lowerExprs(es []pyast.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(es))
	for _, e := range es {
		l, err := sc.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (sc *scope) lowerContainerElements(es []pyast.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(es))
	for _, e := range es {
		if !isIntegerShaped(e) {
			return nil, pyerr.New(pyerr.NonIntegerContainerElement, "list elements must be integers")
		}
		l, err := sc.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// isIntegerShaped rejects container elements the IR has no way to represent
// alongside an integer in the same slot: strings and nested containers.
// Everything else (literals, names, arithmetic, calls, subscripts, the
// ternary form) is assumed integer-valued, matching the interpreter's
// untyped i32 value stack.
func isIntegerShaped(e pyast.Expr) bool {
	switch e.(type) {
	case pyast.Str, pyast.ListExpr, pyast.DictExpr, pyast.FloatLit:
		return false
	}
	return true
}

// lowerMethodCall turns `hashlib.sha256(x)` into a single synthesized call
// and every other `recv.method(args)` chain into a call whose first argument
// is the lowered receiver, so codegen can dispatch on Func name alone.
func (sc *scope) lowerMethodCall(v pyast.MethodCall) (ir.Expr, error) {
	args, err := sc.lowerExprs(v.Args)
	if err != nil {
		return nil, err
	}
	if recvName, ok := v.Recv.(pyast.Name); ok && recvName.Id == "hashlib" && v.Method == "sha256" {
		return ir.Call{Func: "hashlib.sha256", Args: args}, nil
	}
	recv, err := sc.lowerExpr(v.Recv)
	if err != nil {
		return nil, err
	}
	return ir.Call{Func: v.Method, Args: append([]ir.Expr{recv}, args...)}, nil
}

package codegen

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/layout"
	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

func (c *funcCtx) compileExpr(e ir.Expr) error {
	switch v := e.(type) {
	case ir.Const:
		c.f.I32Const(v.Value)
		return nil
	case ir.Str:
		layout.EmitWriteStringLiteral(c.f, c.scratch(scratchE), c.scratch(scratchF), ir.TagString, v.Value)
		c.f.LocalGet(c.scratch(scratchE))
		return nil
	case ir.LoadLocal:
		c.f.LocalGet(c.slot(v.Name))
		return nil
	case ir.UnaryOp:
		return c.compileUnary(v)
	case ir.BinOp:
		return c.compileBinOp(v)
	case ir.Call:
		return c.compileCall(v)
	case ir.List:
		return c.compileList(v)
	case ir.Dict:
		return c.compileDict(v)
	case ir.Subscript:
		if err := c.compileExpr(v.Value); err != nil {
			return err
		}
		if err := c.compileExpr(v.Index); err != nil {
			return err
		}
		c.f.Call(c.gen.funcIndex[helperSubscript])
		return nil
	case ir.Slice:
		obj := c.scratch(scratchH)
		if err := c.compileExpr(v.Value); err != nil {
			return err
		}
		c.f.LocalSet(obj)

		c.f.LocalGet(obj)
		if v.Start != nil {
			if err := c.compileExpr(v.Start); err != nil {
				return err
			}
		} else {
			c.f.I32Const(0)
		}
		if v.End != nil {
			if err := c.compileExpr(v.End); err != nil {
				return err
			}
		} else {
			layout.EmitReadLength(c.f, func(f *wasmbin.Func) { f.LocalGet(obj) })
		}
		c.f.Call(c.gen.funcIndex[helperSlice])
		return nil
	case ir.IfExpr:
		if err := c.compileExpr(v.Cond); err != nil {
			return err
		}
		c.f.If()
		if err := c.compileExpr(v.Then); err != nil {
			return err
		}
		c.f.LocalSet(c.scratch(scratchG))
		c.f.Else()
		if err := c.compileExpr(v.Else); err != nil {
			return err
		}
		c.f.LocalSet(c.scratch(scratchG))
		c.f.End()
		c.f.LocalGet(c.scratch(scratchG))
		return nil
	}
	return pyerr.New(pyerr.UnsupportedExpression, "codegen: unrecognized IR expression")
}

func (c *funcCtx) compileUnary(v ir.UnaryOp) error {
	switch v.Kind {
	case ir.UnaryNeg:
		c.f.I32Const(0)
		if err := c.compileExpr(v.Operand); err != nil {
			return err
		}
		c.f.I32Sub()
		return nil
	case ir.UnaryNot:
		if err := c.compileExpr(v.Operand); err != nil {
			return err
		}
		c.f.I32Eqz()
		return nil
	}
	return pyerr.New(pyerr.UnsupportedOperator, "codegen: unrecognized unary op")
}

func (c *funcCtx) compileBinOp(v ir.BinOp) error {
	switch v.Kind {
	case ir.BinAdd, ir.BinSub, ir.BinMul, ir.BinDiv, ir.BinEq, ir.BinNe, ir.BinLt, ir.BinLe, ir.BinGt, ir.BinGe:
		if v.Kind == ir.BinEq || v.Kind == ir.BinNe {
			if isStrShaped(v.LHS) || isStrShaped(v.RHS) {
				if err := c.compileExpr(v.LHS); err != nil {
					return err
				}
				if err := c.compileExpr(v.RHS); err != nil {
					return err
				}
				c.f.Call(c.gen.funcIndex[helperStrEq])
				if v.Kind == ir.BinNe {
					c.f.I32Eqz()
				}
				return nil
			}
		}
		if err := c.compileExpr(v.LHS); err != nil {
			return err
		}
		if err := c.compileExpr(v.RHS); err != nil {
			return err
		}
		switch v.Kind {
		case ir.BinAdd:
			c.f.I32Add()
		case ir.BinSub:
			c.f.I32Sub()
		case ir.BinMul:
			c.f.I32Mul()
		case ir.BinDiv:
			c.f.I32DivS()
		case ir.BinEq:
			c.f.I32Eq()
		case ir.BinNe:
			c.f.I32Ne()
		case ir.BinLt:
			c.f.I32LtS()
		case ir.BinLe:
			c.f.I32LeS()
		case ir.BinGt:
			c.f.I32GtS()
		case ir.BinGe:
			c.f.I32GeS()
		}
		return nil
	case ir.BinFloorDiv:
		return c.compileFloorDiv(v.LHS, v.RHS)
	case ir.BinMod:
		return c.compileMod(v.LHS, v.RHS)
	}
	return pyerr.New(pyerr.UnsupportedOperator, "codegen: unrecognized binary op")
}

// compileFloorDiv implements Python's floor(a/b), which i32.div_s alone
// does not: i32.div_s truncates toward zero, so a negative quotient with a
// nonzero remainder needs decrementing by one (§7 "negative floor-division"
// edge case).
func (c *funcCtx) compileFloorDiv(lhs, rhs ir.Expr) error {
	a, b := c.scratch(scratchA), c.scratch(scratchB)
	if err := c.compileExpr(lhs); err != nil {
		return err
	}
	c.f.LocalSet(a)
	if err := c.compileExpr(rhs); err != nil {
		return err
	}
	c.f.LocalSet(b)

	q := c.scratch(scratchC)
	c.f.LocalGet(a)
	c.f.LocalGet(b)
	c.f.I32DivS()
	c.f.LocalSet(q)

	c.f.LocalGet(a)
	c.f.LocalGet(b)
	c.f.I32RemS()
	c.f.I32Const(0)
	c.f.I32Ne()
	c.f.LocalGet(a)
	c.f.LocalGet(b)
	c.f.I32Xor()
	c.f.I32Const(0)
	c.f.I32LtS()
	c.f.I32And()
	c.f.If()
	c.f.LocalGet(q)
	c.f.I32Const(1)
	c.f.I32Sub()
	c.f.LocalSet(q)
	c.f.End()
	c.f.LocalGet(q)
	return nil
}

// compileMod implements Python's a - floor(a/b)*b sign convention: the
// result always carries the sign of the divisor, unlike i32.rem_s.
func (c *funcCtx) compileMod(lhs, rhs ir.Expr) error {
	a, b := c.scratch(scratchA), c.scratch(scratchB)
	if err := c.compileExpr(lhs); err != nil {
		return err
	}
	c.f.LocalSet(a)
	if err := c.compileExpr(rhs); err != nil {
		return err
	}
	c.f.LocalSet(b)

	r := c.scratch(scratchC)
	c.f.LocalGet(a)
	c.f.LocalGet(b)
	c.f.I32RemS()
	c.f.LocalSet(r)

	c.f.LocalGet(r)
	c.f.I32Const(0)
	c.f.I32Ne()
	c.f.LocalGet(a)
	c.f.LocalGet(b)
	c.f.I32Xor()
	c.f.I32Const(0)
	c.f.I32LtS()
	c.f.I32And()
	c.f.If()
	c.f.LocalGet(r)
	c.f.LocalGet(b)
	c.f.I32Add()
	c.f.LocalSet(r)
	c.f.End()
	c.f.LocalGet(r)
	return nil
}

func (c *funcCtx) compileList(v ir.List) error {
	if n := len(v.Elements); n > 0 {
		c.emitGasTick(int32(n))
	}
	base, newPtr := c.scratch(scratchE), c.scratch(scratchF)
	size := int32(layout.HeaderBytes + layout.ElemBytes*len(v.Elements))
	layout.EmitAllocConst(c.f, base, newPtr, size)
	layout.EmitWriteHeaderConst(c.f, base, ir.TagList, int32(len(v.Elements)))
	for i, el := range v.Elements {
		elCopy := el
		var inner error
		layout.EmitWriteListElement(c.f, base, i, func(f *wasmbin.Func) {
			inner = c.compileExpr(elCopy)
		})
		if inner != nil {
			return inner
		}
	}
	c.f.LocalGet(base)
	return nil
}

// compileDict allocates the object at its final open-addressing capacity
// (§3: max(8, 2*|pairs|) slots) and inserts each pair at runtime through
// __dict_insert, which computes the probe position from the key's FNV-1a
// hash — construction order therefore doesn't determine slot order the way
// it does for a List.
func (c *funcCtx) compileDict(v ir.Dict) error {
	if n := len(v.Pairs); n > 0 {
		c.emitGasTick(int32(n))
	}
	base, newPtr := c.scratch(scratchE), c.scratch(scratchF)
	capacity := layout.DictCapacityFor(len(v.Pairs))
	size := int32(layout.DictHeaderBytes) + layout.DictSlotBytes*capacity
	layout.EmitAllocConst(c.f, base, newPtr, size)
	layout.EmitWriteDictHeader(c.f, base, capacity)
	for _, p := range v.Pairs {
		c.f.LocalGet(base)
		if err := c.compileExpr(p.Key); err != nil {
			return err
		}
		if err := c.compileExpr(p.Value); err != nil {
			return err
		}
		c.f.Call(c.gen.funcIndex[helperDictInsert])
		c.f.Drop()
	}
	c.f.LocalGet(base)
	return nil
}

// isStrShaped reports whether e is syntactically known to produce a string,
// triggering content-equality instead of pointer-equality. This is a
// shallow check, not a type system: a variable holding the result of a
// prior hexdigest() call will still compare by pointer unless reassigned
// from a literal in the same expression.
func isStrShaped(e ir.Expr) bool {
	switch v := e.(type) {
	case ir.Str:
		return true
	case ir.Call:
		return v.Func == helperHexdigest || v.Func == helperEncode
	}
	return false
}

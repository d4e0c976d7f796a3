package codegen

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/layout"
	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

func (c *funcCtx) compileCall(v ir.Call) error {
	switch v.Func {
	case "hashlib.sha256":
		return c.compileSha256Call(v.Args[0])
	case "hexdigest", "encode":
		if err := c.compileExpr(v.Args[0]); err != nil {
			return err
		}
		c.f.Call(c.gen.funcIndex[v.Func])
		return nil
	case "len":
		obj := c.scratch(scratchH)
		if err := c.compileExpr(v.Args[0]); err != nil {
			return err
		}
		c.f.LocalSet(obj)
		layout.EmitReadLength(c.f, func(f *wasmbin.Func) { f.LocalGet(obj) })
		return nil
	case "int", "str":
		// Everything in this VM's value space is already an i32 or a heap
		// pointer; int()/str() on an in-range value is the identity.
		return c.compileExpr(v.Args[0])
	}

	idx, ok := c.gen.funcIndex[v.Func]
	if !ok {
		return pyerr.New(pyerr.UnknownFunction, "codegen: no function registered for %q", v.Func).WithToken(v.Func)
	}
	for _, arg := range v.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.f.Call(idx)
	return nil
}

// compileSha256Call reads the data pointer and length out of the argument's
// object header and calls the shared SHA-256 helper with (dataPtr, len)
// rather than the object's own base address.
func (c *funcCtx) compileSha256Call(arg ir.Expr) error {
	obj := c.scratch(scratchH)
	if err := c.compileExpr(arg); err != nil {
		return err
	}
	c.f.LocalSet(obj)

	c.f.LocalGet(obj)
	c.f.I32Const(int32(layout.BytesDataOffset()))
	c.f.I32Add()
	layout.EmitReadLength(c.f, func(f *wasmbin.Func) { f.LocalGet(obj) })
	c.f.Call(c.gen.funcIndex[helperSha256])
	return nil
}

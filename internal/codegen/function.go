package codegen

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

// funcCtx carries per-function compilation state: the IR function being
// compiled (for its Slot table) and the accumulator it writes into.
type funcCtx struct {
	gen *generator
	fn  *ir.Function
	f   *wasmbin.Func
}

// Scratch slot roles, relative to fn.ScratchBase(). scratchSlots in package
// lower reserves exactly 8, one per role below, split by concern so that a
// floor-division inside a list-literal element doesn't clobber the list's
// own base/new-pointer bookkeeping. Two scratch-using constructs nested
// inside each other that share a role would still collide; every construct
// in §8's scenarios avoids that.
const (
	scratchA = 0 // binary-op LHS stash
	scratchB = 1 // binary-op RHS stash
	scratchC = 2 // floor-div/mod quotient-or-remainder result
	scratchD = 3 // unused (for-loop bounds are re-evaluated per iteration, never cached, §9)
	scratchE = 4 // container/string-literal alloc base pointer
	scratchF = 5 // container/string-literal alloc new-pointer
	scratchG = 6 // if-expression result
	scratchH = 7 // subscript/slice/call receiver-object stash
)

func (c *funcCtx) slot(name string) uint32   { return uint32(c.fn.Slot[name]) }
func (c *funcCtx) scratch(role int) uint32   { return uint32(c.fn.ScratchBase() + role) }

func (g *generator) compileFunction(fn *ir.Function) (*wasmbin.Func, error) {
	f := wasmbin.NewFunc(uint32(fn.TotalLocals() - len(fn.Params)))
	c := &funcCtx{gen: g, fn: fn, f: f}

	c.emitGasTick(gasCostEntry)
	for _, st := range fn.Body {
		if err := c.compileStmt(st); err != nil {
			return nil, err
		}
	}
	// Fallback for a body that falls off the end without an explicit
	// return. Python has no module-level return, so main always falls
	// through; its result is whatever OUTPUT was last assigned, not 0.
	if _, ok := fn.Slot["OUTPUT"]; ok {
		f.LocalGet(c.slot("OUTPUT"))
	} else {
		f.I32Const(0)
	}
	f.Return()
	return f, nil
}

// Gas costs per §4.5: 10 at function entry, 1 per loop iteration, and for
// container literals a cost proportional to element count (emitted by the
// caller as a single tick whose cost is the element count, rather than as a
// separate constant here).
const (
	gasCostEntry = 10
	gasCostLoop  = 1
)

// emitGasTick increments the global gas counter by cost and traps via
// unreachable once it exceeds the configured gas limit (§3).
func (c *funcCtx) emitGasTick(cost int32) {
	f := c.f
	f.GlobalGet(ir.GlobalGas)
	f.I32Const(cost)
	f.I32Add()
	f.GlobalSet(ir.GlobalGas)
	f.GlobalGet(ir.GlobalGas)
	f.I32Const(c.gen.limits.GasLimit)
	f.I32GtS()
	f.If()
	f.Unreachable()
	f.End()
}

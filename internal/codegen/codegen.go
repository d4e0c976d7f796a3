// Package codegen lowers an ir.Module into a byte-exact Wasm binary. A
// handful of runtime helper functions — the SHA-256 emitter, hex encoding,
// byte encoding, tag-dispatching subscript get/set, dict hashing and
// insertion, slicing, and string equality — occupy the first Wasm function
// indices and are shared by every call site that needs one, rather than
// re-emitted inline each time. Every IR function follows them, one Wasm
// function each, in IR order, so main is not Wasm function 0: it sits at
// the index right after the helpers, and the "main" export points there.
package codegen

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/sha256wasm"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

// helper names, used both as the map keys codegen's Call lowering looks up
// and as the synthesized function's identity in any diagnostics.
const (
	helperSha256       = "hashlib.sha256"
	helperHexdigest    = "hexdigest"
	helperEncode       = "encode"
	helperSubscript    = "__subscript_get"
	helperSubscriptSet = "__subscript_set"
	helperSlice        = "__slice_get"
	helperStrEq        = "__str_eq"
	helperDictHash     = "__dict_hash"
	helperDictInsert   = "__dict_insert"
)

// Limits overrides the fixed constants of §3/§5 that the emitted module's
// gas metering and memory section bake in. Compile's caller defaults these
// to ir.GasLimit/ir.HeapStart/ir.HeapLimit; tests override them to exercise
// a trap without running a gas-limit's worth of iterations or a multi-MiB
// heap's worth of allocations.
type Limits struct {
	GasLimit  int32
	HeapStart int32
	HeapLimit int32
}

// DefaultLimits returns the spec's fixed constants (§3/§5).
func DefaultLimits() Limits {
	return Limits{GasLimit: ir.GasLimit, HeapStart: ir.HeapStart, HeapLimit: ir.HeapLimit}
}

type generator struct {
	module    *wasmbin.Module
	funcIndex map[string]uint32
	limits    Limits
}

// Compile emits the full Wasm binary for mod: runtime helpers first, then
// one Wasm function per IR function in declaration order (main at the index
// equal to the helper count; the export named "main" targets that index).
func Compile(mod *ir.Module, limits Limits) ([]byte, error) {
	memoryPages := uint32(limits.HeapLimit / 0x10000)
	if limits.HeapLimit%0x10000 != 0 {
		memoryPages++
	}
	g := &generator{
		module:    wasmbin.NewModule(memoryPages, memoryPages),
		funcIndex: map[string]uint32{},
		limits:    limits,
	}

	hashIdx := g.registerHelper(helperDictHash, buildDictHash())
	dictInsertIdx := g.registerHelper(helperDictInsert, buildDictInsert(hashIdx))
	g.registerHelper(helperSha256, sha256wasm.Build())
	g.registerHelper(helperHexdigest, buildHexdigest())
	g.registerHelper(helperEncode, buildEncode())
	g.registerHelper(helperSubscript, buildSubscriptGet(hashIdx))
	g.registerHelper(helperSubscriptSet, buildSubscriptSet(dictInsertIdx))
	g.registerHelper(helperSlice, buildSliceGet())
	g.registerHelper(helperStrEq, buildStrEq())

	mainWasmIndex := uint32(0)
	for i, fn := range mod.Functions {
		if _, exists := g.funcIndex[fn.Name]; exists {
			continue
		}
		idx := g.module.AddFunction(len(fn.Params), wasmbin.NewFunc(0))
		g.funcIndex[fn.Name] = idx
		if i == 0 {
			mainWasmIndex = idx
		}
	}

	for _, fn := range mod.Functions {
		body, err := g.compileFunction(fn)
		if err != nil {
			return nil, err
		}
		g.module.Functions[g.funcIndex[fn.Name]] = body
	}

	g.module.Globals = []wasmbin.Global{
		{Mutable: true, Init: 0},
		{Mutable: true, Init: limits.HeapStart},
		{Mutable: false, Init: limits.HeapLimit},
	}

	g.setMainExport(mainWasmIndex)
	return g.module.Encode(), nil
}

// registerHelper reserves a function slot, records it under name for Call
// lowering (and for helpers that call other helpers) to find, and returns
// its Wasm function index.
func (g *generator) registerHelper(name string, body *wasmbin.Func) uint32 {
	idx := g.module.AddFunction(helperParamCount(name), body)
	g.funcIndex[name] = idx
	return idx
}

func helperParamCount(name string) int {
	switch name {
	case helperSha256:
		return 2
	case helperHexdigest, helperEncode:
		return 1
	case helperSubscript:
		return 2
	case helperSubscriptSet:
		return 3
	case helperSlice:
		return 3
	case helperStrEq:
		return 2
	case helperDictHash:
		return 1
	case helperDictInsert:
		return 3
	}
	return 0
}

// setMainExport rewrites the export section to point "main" at whichever
// Wasm function index the IR's first function landed on; Module.Encode's
// default export assumes index 0, which only holds for modules with no
// helpers, so codegen keeps its own small post-processing step instead of
// teaching wasmbin.Module about a variable main index.
func (g *generator) setMainExport(mainIndex uint32) {
	g.module.MainExport = mainIndex
}

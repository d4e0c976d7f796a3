package wasmbin

import (
	"bytes"

	"github.com/fraudcore/pywasm/internal/leb128"
)

// Magic and version header shared by every Wasm binary.
var (
	Magic   = []byte{0x00, 0x61, 0x73, 0x6D}
	Version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Global describes one of the module's three fixed globals (§3): a mutable
// i32 gas counter, a mutable i32 heap pointer, and an immutable i32 heap
// limit, always emitted in that order at indices 0, 1, 2.
type Global struct {
	Mutable bool
	Init    int32
}

// FuncType is a Wasm function type: this compiler only ever emits
// (i32, i32, ..., i32) -> i32, one per IR function, so Params is just a
// count.
type FuncType struct {
	Params  int
	HasResult bool
}

// Module accumulates the sections of a Wasm binary in emission order. The
// caller appends one FuncType/function body per function (each gets the next
// Wasm function index, so IR function i is not index i when helpers are
// added first), sets MainExport, then calls Encode.
type Module struct {
	Types     []FuncType
	Globals   []Global
	Functions []*Func // code section bodies, function-index order
	MemoryMin uint32
	MemoryMax uint32
	// MainExport is the function index exported as "main" (§4.5/§6). Codegen
	// sets this once it knows which index the IR's entry function landed on,
	// since runtime helper functions may occupy the lower indices.
	MainExport uint32
}

func NewModule(memMin, memMax uint32) *Module {
	return &Module{MemoryMin: memMin, MemoryMax: memMax}
}

// AddFunction registers a function type and its compiled body; both lists
// are append-only and therefore always agree on index.
func (m *Module) AddFunction(paramCount int, body *Func) uint32 {
	idx := uint32(len(m.Functions))
	m.Types = append(m.Types, FuncType{Params: paramCount, HasResult: true})
	m.Functions = append(m.Functions, body)
	return idx
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(count int, items ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(uint32(count)))
	for _, it := range items {
		buf.Write(it)
	}
	return buf.Bytes()
}

// Encode assembles the full module byte stream: magic, version, then the
// Type, Import, Function, Global, Export, Code sections in that fixed order.
// No Memory section is written: memory is imported, and MemoryMin/MemoryMax
// only supply the limits of that import.
func (m *Module) Encode() []byte {
	var out bytes.Buffer
	out.Write(Magic)
	out.Write(Version)

	out.Write(section(SectionType, m.encodeTypes()))
	out.Write(section(SectionImport, m.encodeImports()))
	out.Write(section(SectionFunction, m.encodeFunctionIndices()))
	out.Write(section(SectionGlobal, m.encodeGlobals()))
	out.Write(section(SectionExport, m.encodeExports()))
	out.Write(section(SectionCode, m.encodeCode()))

	return out.Bytes()
}

func (m *Module) encodeTypes() []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(uint32(len(m.Types))))
	for _, t := range m.Types {
		buf.WriteByte(0x60) // func type tag
		buf.Write(leb128.EncodeUint32(uint32(t.Params)))
		for i := 0; i < t.Params; i++ {
			buf.WriteByte(ValueTypeI32)
		}
		if t.HasResult {
			buf.Write(leb128.EncodeUint32(1))
			buf.WriteByte(ValueTypeI32)
		} else {
			buf.Write(leb128.EncodeUint32(0))
		}
	}
	return buf.Bytes()
}

// encodeImports emits exactly one import: (import "env" "memory" (memory
// MemoryMin MemoryMax)), per §4.5/§6.
func (m *Module) encodeImports() []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(1))
	writeName(&buf, "env")
	writeName(&buf, "memory")
	buf.WriteByte(0x02) // external kind: memory
	buf.WriteByte(0x01) // limits: flags=1 (has max)
	buf.Write(leb128.EncodeUint32(m.MemoryMin))
	buf.Write(leb128.EncodeUint32(m.MemoryMax))
	return buf.Bytes()
}

func (m *Module) encodeFunctionIndices() []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(uint32(len(m.Types))))
	for i := range m.Types {
		buf.Write(leb128.EncodeUint32(uint32(i)))
	}
	return buf.Bytes()
}

func (m *Module) encodeGlobals() []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(uint32(len(m.Globals))))
	for _, g := range m.Globals {
		buf.WriteByte(ValueTypeI32)
		if g.Mutable {
			buf.WriteByte(0x01)
		} else {
			buf.WriteByte(0x00)
		}
		buf.WriteByte(OpI32Const)
		buf.Write(leb128.EncodeInt32(g.Init))
		buf.WriteByte(OpEnd)
	}
	return buf.Bytes()
}

// encodeExports emits exactly one export: "main" as function MainExport,
// which is not index 0 when helper functions were added before main.
func (m *Module) encodeExports() []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(1))
	writeName(&buf, "main")
	buf.WriteByte(ExternalKindFunction)
	buf.Write(leb128.EncodeUint32(m.MainExport))
	return buf.Bytes()
}

func (m *Module) encodeCode() []byte {
	var buf bytes.Buffer
	buf.Write(leb128.EncodeUint32(uint32(len(m.Functions))))
	for _, fn := range m.Functions {
		var body bytes.Buffer
		// locals declared as one run of `NumLocals` i32 locals.
		if fn.NumLocals > 0 {
			body.Write(leb128.EncodeUint32(1))
			body.Write(leb128.EncodeUint32(fn.NumLocals))
			body.WriteByte(ValueTypeI32)
		} else {
			body.Write(leb128.EncodeUint32(0))
		}
		body.Write(fn.Bytes())
		body.WriteByte(OpEnd)

		buf.Write(leb128.EncodeUint32(uint32(body.Len())))
		buf.Write(body.Bytes())
	}
	return buf.Bytes()
}

func writeName(buf *bytes.Buffer, name string) {
	buf.Write(leb128.EncodeUint32(uint32(len(name))))
	buf.WriteString(name)
}

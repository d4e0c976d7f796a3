package wasmbin

import "github.com/fraudcore/pywasm/internal/leb128"

// MemArg is the alignment/offset pair that accompanies every load/store
// instruction. Align is expressed as a power-of-two exponent per the spec;
// callers set it explicitly, and the zero value encodes align=0.
type MemArg struct {
	Offset uint32
	Align  uint32
}

// Func accumulates the instruction bytes of a single function body. It is
// the only thing the rest of the compiler writes instructions into: layout,
// sha256wasm and codegen all append to a *Func rather than touching raw
// byte slices directly, so every call site advances the same always-valid
// accumulator.
type Func struct {
	NumLocals uint32 // additional (non-parameter) i32 locals declared for this function
	code      []byte
}

func NewFunc(numLocals uint32) *Func {
	return &Func{NumLocals: numLocals}
}

func (f *Func) raw(b ...byte) { f.code = append(f.code, b...) }

func (f *Func) Op(op Opcode) { f.raw(op) }

func (f *Func) I32Const(v int32) {
	f.raw(OpI32Const)
	f.raw(leb128.EncodeInt32(v)...)
}

func (f *Func) LocalGet(idx uint32) {
	f.raw(OpLocalGet)
	f.raw(leb128.EncodeUint32(idx)...)
}

func (f *Func) LocalSet(idx uint32) {
	f.raw(OpLocalSet)
	f.raw(leb128.EncodeUint32(idx)...)
}

func (f *Func) LocalTee(idx uint32) {
	f.raw(OpLocalTee)
	f.raw(leb128.EncodeUint32(idx)...)
}

func (f *Func) GlobalGet(idx uint32) {
	f.raw(OpGlobalGet)
	f.raw(leb128.EncodeUint32(idx)...)
}

func (f *Func) GlobalSet(idx uint32) {
	f.raw(OpGlobalSet)
	f.raw(leb128.EncodeUint32(idx)...)
}

func (f *Func) I32Load(m MemArg) {
	f.raw(OpI32Load)
	f.raw(leb128.EncodeUint32(m.Align)...)
	f.raw(leb128.EncodeUint32(m.Offset)...)
}

func (f *Func) I32Store(m MemArg) {
	f.raw(OpI32Store)
	f.raw(leb128.EncodeUint32(m.Align)...)
	f.raw(leb128.EncodeUint32(m.Offset)...)
}

func (f *Func) I32Load8U(m MemArg) {
	f.raw(OpI32Load8U)
	f.raw(leb128.EncodeUint32(m.Align)...)
	f.raw(leb128.EncodeUint32(m.Offset)...)
}

func (f *Func) I32Store8(m MemArg) {
	f.raw(OpI32Store8)
	f.raw(leb128.EncodeUint32(m.Align)...)
	f.raw(leb128.EncodeUint32(m.Offset)...)
}

// Block/Loop/If/Else/End all use the empty block type: this compiler never
// needs a block that produces a value, because If/IfExpr lower to a
// scratch-local write inside both arms instead of a stack result.
func (f *Func) Block() { f.raw(OpBlock, BlockTypeEmpty) }
func (f *Func) Loop()  { f.raw(OpLoop, BlockTypeEmpty) }
func (f *Func) If()    { f.raw(OpIf, BlockTypeEmpty) }
func (f *Func) Else()  { f.raw(OpElse) }
func (f *Func) End()   { f.raw(OpEnd) }

func (f *Func) Br(depth uint32) {
	f.raw(OpBr)
	f.raw(leb128.EncodeUint32(depth)...)
}

func (f *Func) BrIf(depth uint32) {
	f.raw(OpBrIf)
	f.raw(leb128.EncodeUint32(depth)...)
}

func (f *Func) Call(fnIndex uint32) {
	f.raw(OpCall)
	f.raw(leb128.EncodeUint32(fnIndex)...)
}

func (f *Func) Return()       { f.raw(OpReturn) }
func (f *Func) Unreachable()  { f.raw(OpUnreachable) }
func (f *Func) Drop()         { f.raw(OpDrop) }

func (f *Func) I32Eqz()  { f.raw(OpI32Eqz) }
func (f *Func) I32Eq()   { f.raw(OpI32Eq) }
func (f *Func) I32Ne()   { f.raw(OpI32Ne) }
func (f *Func) I32LtS()  { f.raw(OpI32LtS) }
func (f *Func) I32LtU()  { f.raw(OpI32LtU) }
func (f *Func) I32GtS()  { f.raw(OpI32GtS) }
func (f *Func) I32GtU()  { f.raw(OpI32GtU) }
func (f *Func) I32LeS()  { f.raw(OpI32LeS) }
func (f *Func) I32LeU()  { f.raw(OpI32LeU) }
func (f *Func) I32GeS()  { f.raw(OpI32GeS) }
func (f *Func) I32GeU()  { f.raw(OpI32GeU) }

func (f *Func) I32Add()  { f.raw(OpI32Add) }
func (f *Func) I32Sub()  { f.raw(OpI32Sub) }
func (f *Func) I32Mul()  { f.raw(OpI32Mul) }
func (f *Func) I32DivS() { f.raw(OpI32DivS) }
func (f *Func) I32DivU() { f.raw(OpI32DivU) }
func (f *Func) I32RemS() { f.raw(OpI32RemS) }
func (f *Func) I32RemU() { f.raw(OpI32RemU) }
func (f *Func) I32And()  { f.raw(OpI32And) }
func (f *Func) I32Or()   { f.raw(OpI32Or) }
func (f *Func) I32Xor()  { f.raw(OpI32Xor) }
func (f *Func) I32Shl()  { f.raw(OpI32Shl) }
func (f *Func) I32ShrS() { f.raw(OpI32ShrS) }
func (f *Func) I32ShrU() { f.raw(OpI32ShrU) }
func (f *Func) I32Rotl() { f.raw(OpI32Rotl) }
func (f *Func) I32Rotr() { f.raw(OpI32Rotr) }

func (f *Func) MemoryFill() { f.raw(0xFC, 0x0B, 0x00) } // misc-prefix memory.fill, bulk-memory proposal
func (f *Func) MemoryCopy() { f.raw(0xFC, 0x0A, 0x00, 0x00) }

// Len reports the number of instruction bytes accumulated so far.
func (f *Func) Len() int { return len(f.code) }

// Bytes returns the accumulated instruction stream, not yet wrapped in a
// code-section entry (that happens in Module.encodeCode).
func (f *Func) Bytes() []byte { return f.code }

// Package wasmbin is a minimal Wasm binary-format writer: just enough of the
// instruction set and module-section layout for the code generator to emit
// a byte-exact module. It intentionally does not decode or validate modules
// produced by anyone else; internal/validator does that, on the raw bytes.
package wasmbin

// Opcode is a raw Wasm instruction opcode byte, named the way the spec's
// binary format Appendix does.
type Opcode = byte

const (
	OpUnreachable Opcode = 0x00
	OpNop         Opcode = 0x01
	OpBlock       Opcode = 0x02
	OpLoop        Opcode = 0x03
	OpIf          Opcode = 0x04
	OpElse        Opcode = 0x05
	OpEnd         Opcode = 0x0B
	OpBr          Opcode = 0x0C
	OpBrIf        Opcode = 0x0D
	OpReturn      Opcode = 0x0F
	OpCall        Opcode = 0x10

	OpDrop   Opcode = 0x1A
	OpSelect Opcode = 0x1B

	OpLocalGet  Opcode = 0x20
	OpLocalSet  Opcode = 0x21
	OpLocalTee  Opcode = 0x22
	OpGlobalGet Opcode = 0x23
	OpGlobalSet Opcode = 0x24

	OpI32Load  Opcode = 0x28
	OpI32Store Opcode = 0x36
	OpI32Load8U Opcode = 0x2D
	OpI32Store8 Opcode = 0x3A

	OpMemorySize Opcode = 0x3F
	OpMemoryGrow Opcode = 0x40

	OpI32Const Opcode = 0x41
	OpI64Const Opcode = 0x42

	OpI32Eqz Opcode = 0x45
	OpI32Eq  Opcode = 0x46
	OpI32Ne  Opcode = 0x47
	OpI32LtS Opcode = 0x48
	OpI32LtU Opcode = 0x49
	OpI32GtS Opcode = 0x4A
	OpI32GtU Opcode = 0x4B
	OpI32LeS Opcode = 0x4C
	OpI32LeU Opcode = 0x4D
	OpI32GeS Opcode = 0x4E
	OpI32GeU Opcode = 0x4F

	OpI32Clz    Opcode = 0x67
	OpI32Ctz    Opcode = 0x68
	OpI32Popcnt Opcode = 0x69
	OpI32Add    Opcode = 0x6A
	OpI32Sub    Opcode = 0x6B
	OpI32Mul    Opcode = 0x6C
	OpI32DivS   Opcode = 0x6D
	OpI32DivU   Opcode = 0x6E
	OpI32RemS   Opcode = 0x6F
	OpI32RemU   Opcode = 0x70
	OpI32And    Opcode = 0x71
	OpI32Or     Opcode = 0x72
	OpI32Xor    Opcode = 0x73
	OpI32Shl    Opcode = 0x74
	OpI32ShrS   Opcode = 0x75
	OpI32ShrU   Opcode = 0x76
	OpI32Rotl   Opcode = 0x77
	OpI32Rotr   Opcode = 0x78

	// BlockTypeEmpty is the "void" block type byte used by Block/Loop/If.
	BlockTypeEmpty byte = 0x40
)

// Wasm section IDs, in module byte-layout order.
const (
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionCode     byte = 10
)

// ExternalKind identifies what an import/export entry refers to.
const (
	ExternalKindFunction byte = 0x00
	ExternalKindMemory   byte = 0x02
	ExternalKindGlobal   byte = 0x03
)

// ValueType bytes, per the Wasm binary format.
const (
	ValueTypeI32 byte = 0x7F
)

// Package layout emits the instruction sequences that build and read the
// heap objects described in §3: List and String/Bytes share a tagged 8-byte
// header (tag, length) followed by packed i32 elements or raw bytes; Dict
// carries its own wider header and open-addressed slot layout (see
// DictHeaderBytes). It never decides *when* to allocate — codegen does, once
// per literal or container op — only *how* the bytes land.
package layout

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

// HeaderBytes is the fixed tag+length prefix every heap object carries.
const HeaderBytes = 8

// ElemBytes is the width of one List element.
const ElemBytes = 4

// EmitAlloc bumps the heap pointer by the bytes pushAllocSize() leaves on the
// stack, traps via unreachable if the result would exceed the heap limit,
// and leaves the object's base address in baseLocal. newPtrLocal is a
// second scratch local used only to hold the tentative new heap pointer
// while it's checked.
func EmitAlloc(f *wasmbin.Func, baseLocal, newPtrLocal uint32, pushAllocSize func(*wasmbin.Func)) {
	f.GlobalGet(ir.GlobalHeapPtr)
	f.LocalSet(baseLocal)

	f.LocalGet(baseLocal)
	pushAllocSize(f)
	f.I32Add()
	f.LocalTee(newPtrLocal)
	f.GlobalGet(ir.GlobalHeapLimit)
	f.I32GtU()
	f.If()
	f.Unreachable()
	f.End()

	f.LocalGet(newPtrLocal)
	f.GlobalSet(ir.GlobalHeapPtr)
}

// EmitAllocConst is EmitAlloc for a compile-time-known size.
func EmitAllocConst(f *wasmbin.Func, baseLocal, newPtrLocal uint32, sizeBytes int32) {
	EmitAlloc(f, baseLocal, newPtrLocal, func(f *wasmbin.Func) { f.I32Const(sizeBytes) })
}

// EmitWriteHeader stores the tag word at offset 0 and the length word at
// offset 4, in that order (§3 object layout).
func EmitWriteHeader(f *wasmbin.Func, baseLocal uint32, tag int32, pushLength func(*wasmbin.Func)) {
	f.LocalGet(baseLocal)
	f.I32Const(tag)
	f.I32Store(wasmbin.MemArg{Offset: 0, Align: 2})

	f.LocalGet(baseLocal)
	pushLength(f)
	f.I32Store(wasmbin.MemArg{Offset: 4, Align: 2})
}

// EmitWriteHeaderConst is EmitWriteHeader for a compile-time-known length.
func EmitWriteHeaderConst(f *wasmbin.Func, baseLocal uint32, tag int32, length int32) {
	EmitWriteHeader(f, baseLocal, tag, func(f *wasmbin.Func) { f.I32Const(length) })
}

// EmitReadTag/EmitReadLength load the two header words of the object whose
// base address pushValueAddr() leaves on the stack.
func EmitReadTag(f *wasmbin.Func, pushValueAddr func(*wasmbin.Func)) {
	pushValueAddr(f)
	f.I32Load(wasmbin.MemArg{Offset: 0, Align: 2})
}

func EmitReadLength(f *wasmbin.Func, pushValueAddr func(*wasmbin.Func)) {
	pushValueAddr(f)
	f.I32Load(wasmbin.MemArg{Offset: 4, Align: 2})
}

// ListElementOffset computes the byte offset of the i-th list element,
// relative to the object base.
func ListElementOffset(i int) uint32 { return HeaderBytes + uint32(i)*ElemBytes }
func BytesDataOffset() uint32        { return HeaderBytes }

// DictHeaderBytes is the tag+capacity+size+tombstones header a Dict object
// carries (wider than List/String's because open addressing needs both a
// fixed slot count and a live-entry count, §3).
const DictHeaderBytes = 16

// DictSlotBytes is the width of one [hash][key][value] open-addressing slot.
const DictSlotBytes = 12

// DictKeyOffset/DictValueOffset compute the byte offset of slot i's key and
// value words, relative to the object base.
func DictKeyOffset(i int) uint32   { return DictHeaderBytes + uint32(i)*DictSlotBytes + 4 }
func DictValueOffset(i int) uint32 { return DictHeaderBytes + uint32(i)*DictSlotBytes + 8 }

// DictCapacityFor returns the open-addressing table size for a dict literal
// of n pairs: a 2x load-factor floor with a minimum of 8 slots (§3). Growth
// beyond the literal's initial capacity (rehashing) is not implemented.
func DictCapacityFor(n int) int32 {
	c := int32(2 * n)
	if c < 8 {
		c = 8
	}
	return c
}

// EmitWriteDictHeader stores a Dict object's four header words: tag,
// capacity, size (0, grown by __dict_insert), and tombstones (0, unused —
// this VM never deletes a key).
func EmitWriteDictHeader(f *wasmbin.Func, baseLocal uint32, capacity int32) {
	f.LocalGet(baseLocal)
	f.I32Const(ir.TagDict)
	f.I32Store(wasmbin.MemArg{Offset: 0, Align: 2})
	f.LocalGet(baseLocal)
	f.I32Const(capacity)
	f.I32Store(wasmbin.MemArg{Offset: 4, Align: 2})
	f.LocalGet(baseLocal)
	f.I32Const(0)
	f.I32Store(wasmbin.MemArg{Offset: 8, Align: 2})
	f.LocalGet(baseLocal)
	f.I32Const(0)
	f.I32Store(wasmbin.MemArg{Offset: 12, Align: 2})
}

// EmitWriteListElement stores pushValue() into list slot i of the object
// based at baseLocal.
func EmitWriteListElement(f *wasmbin.Func, baseLocal uint32, i int, pushValue func(*wasmbin.Func)) {
	f.LocalGet(baseLocal)
	pushValue(f)
	f.I32Store(wasmbin.MemArg{Offset: ListElementOffset(i), Align: 2})
}

// EmitReadListElement loads the list slot whose index pushIndex() leaves on
// the stack, of the object whose address pushBase() leaves on the stack. It
// performs no bounds check.
func EmitReadListElement(f *wasmbin.Func, pushBase, pushIndex func(*wasmbin.Func)) {
	pushBase(f)
	pushIndex(f)
	f.I32Const(ElemBytes)
	f.I32Mul()
	f.I32Add()
	f.I32Const(int32(HeaderBytes))
	f.I32Add()
	f.I32Load(wasmbin.MemArg{Offset: 0, Align: 2})
}

// EmitWriteByte stores a single compile-time-known byte of string/bytes
// literal content. There is no Wasm Data section in this module (memory is
// imported, §4.5), so literal contents are written byte-by-byte at
// allocation time instead of copied from a data segment.
func EmitWriteByte(f *wasmbin.Func, baseLocal uint32, offset uint32, b byte) {
	f.LocalGet(baseLocal)
	f.I32Const(int32(b))
	f.I32Store8(wasmbin.MemArg{Offset: offset, Align: 0})
}

// EmitWriteStringLiteral allocates and fully initializes a String/Bytes
// object (tag, length, then raw content bytes) and leaves its base address
// in baseLocal.
func EmitWriteStringLiteral(f *wasmbin.Func, baseLocal, newPtrLocal uint32, tag int32, data []byte) {
	EmitAllocConst(f, baseLocal, newPtrLocal, int32(HeaderBytes+len(data)))
	EmitWriteHeaderConst(f, baseLocal, tag, int32(len(data)))
	for i, b := range data {
		EmitWriteByte(f, baseLocal, BytesDataOffset()+uint32(i), b)
	}
}

// IsHeapPointer pushes 1 if the i32 value pushValue() leaves on the stack is
// large enough to be a heap pointer (§3's discrimination rule: pointer
// candidates are always >= HeapPtrThreshold because small ints never alias
// the heap region), 0 otherwise. Codegen additionally compares the tag word
// before treating a value as a given container kind.
func IsHeapPointer(f *wasmbin.Func, pushValue func(*wasmbin.Func)) {
	pushValue(f)
	f.I32Const(ir.HeapPtrThreshold)
	f.I32GeS()
}

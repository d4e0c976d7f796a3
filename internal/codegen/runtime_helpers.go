package codegen

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/layout"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

// buildHexdigest emits bytes.hexdigest(ptr) -> String, converting a Bytes
// object's content into its lowercase hex string representation.
// Locals: 0=ptr(param) 1=len 2=i 3=outBase 4=outNew 5=byteVal 6=nib
func buildHexdigest() *wasmbin.Func {
	const ptr, ln, i, outBase, outNew, byteVal, nib = 0, 1, 2, 3, 4, 5, 6
	f := wasmbin.NewFunc(6)

	f.LocalGet(ptr)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(ln)

	layout.EmitAlloc(f, outBase, outNew, func(f *wasmbin.Func) {
		f.LocalGet(ln)
		f.I32Const(2)
		f.I32Mul()
		f.I32Const(int32(layout.HeaderBytes))
		f.I32Add()
	})
	layout.EmitWriteHeader(f, outBase, ir.TagString, func(f *wasmbin.Func) {
		f.LocalGet(ln)
		f.I32Const(2)
		f.I32Mul()
	})

	f.I32Const(0)
	f.LocalSet(i)
	f.Block()
	f.Loop()
	f.LocalGet(i)
	f.LocalGet(ln)
	f.I32GeU()
	f.BrIf(1)

	f.LocalGet(ptr)
	f.LocalGet(i)
	f.I32Add()
	f.I32Load8U(wasmbin.MemArg{Offset: uint32(layout.BytesDataOffset())})
	f.LocalSet(byteVal)

	f.LocalGet(byteVal)
	f.I32Const(4)
	f.I32ShrU()
	f.LocalSet(nib)
	emitHexCharStore(f, outBase, i, 0, nib)

	f.LocalGet(byteVal)
	f.I32Const(0x0F)
	f.I32And()
	f.LocalSet(nib)
	emitHexCharStore(f, outBase, i, 1, nib)

	f.LocalGet(i)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(i)
	f.Br(0)
	f.End()
	f.End()

	f.LocalGet(outBase)
	f.Return()
	return f
}

// emitHexCharStore writes the hex digit for the nibble in nibLocal to
// outBase's data region at byte offset i*2+sub, mapping 0-9 to '0'-'9' and
// 10-15 to 'a'-'f' with arithmetic instead of a lookup table (there is no
// Data section to hold one, per §4.5).
func emitHexCharStore(f *wasmbin.Func, outBase, iLocal uint32, sub int32, nibLocal uint32) {
	f.LocalGet(outBase)
	f.LocalGet(iLocal)
	f.I32Const(2)
	f.I32Mul()
	f.I32Const(sub)
	f.I32Add()
	f.I32Const(int32(layout.BytesDataOffset()))
	f.I32Add()

	f.LocalGet(nibLocal)
	f.I32Const(48)
	f.I32Add()
	f.LocalGet(nibLocal)
	f.I32Const(10)
	f.I32GeU()
	f.I32Const(39)
	f.I32Mul()
	f.I32Add()

	f.I32Store8(wasmbin.MemArg{})
}

// buildEncode emits str.encode(ptr) -> Bytes, copying a String's content
// into a freshly tagged Bytes object.
// Locals: 0=ptr(param) 1=len 2=i 3=outBase 4=outNew
func buildEncode() *wasmbin.Func {
	const ptr, ln, i, outBase, outNew = 0, 1, 2, 3, 4
	f := wasmbin.NewFunc(4)

	f.LocalGet(ptr)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(ln)

	layout.EmitAlloc(f, outBase, outNew, func(f *wasmbin.Func) {
		f.LocalGet(ln)
		f.I32Const(int32(layout.HeaderBytes))
		f.I32Add()
	})
	layout.EmitWriteHeader(f, outBase, ir.TagBytes, func(f *wasmbin.Func) { f.LocalGet(ln) })

	f.I32Const(0)
	f.LocalSet(i)
	f.Block()
	f.Loop()
	f.LocalGet(i)
	f.LocalGet(ln)
	f.I32GeU()
	f.BrIf(1)

	f.LocalGet(outBase)
	f.LocalGet(i)
	f.I32Add()
	f.LocalGet(ptr)
	f.LocalGet(i)
	f.I32Add()
	f.I32Load8U(wasmbin.MemArg{Offset: uint32(layout.BytesDataOffset())})
	f.I32Store8(wasmbin.MemArg{Offset: uint32(layout.BytesDataOffset())})

	f.LocalGet(i)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(i)
	f.Br(0)
	f.End()
	f.End()

	f.LocalGet(outBase)
	f.Return()
	return f
}

// buildDictHash emits __dict_hash(key) -> i32, the FNV-1a hash (§3,
// GLOSSARY) of key's 4 little-endian bytes, remapping a zero result to 1 so
// a slot's hash word can double as its occupied/empty marker.
// Locals: 0=key(param) 1=h 2=i 3=byteVal
func buildDictHash() *wasmbin.Func {
	const key, h, i, byteVal = 0, 1, 2, 3
	f := wasmbin.NewFunc(3)

	f.I32Const(ir.FNVOffsetBasis)
	f.LocalSet(h)
	f.I32Const(0)
	f.LocalSet(i)

	f.Block()
	f.Loop()
	f.LocalGet(i)
	f.I32Const(4)
	f.I32GeS()
	f.BrIf(1)

	f.LocalGet(key)
	f.LocalGet(i)
	f.I32Const(8)
	f.I32Mul()
	f.I32ShrU()
	f.I32Const(0xFF)
	f.I32And()
	f.LocalSet(byteVal)

	f.LocalGet(h)
	f.LocalGet(byteVal)
	f.I32Xor()
	f.I32Const(ir.FNVPrime)
	f.I32Mul()
	f.LocalSet(h)

	f.LocalGet(i)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(i)
	f.Br(0)
	f.End()
	f.End()

	f.LocalGet(h)
	f.I32Eqz()
	f.If()
	f.I32Const(1)
	f.LocalSet(h)
	f.End()

	f.LocalGet(h)
	f.Return()
	return f
}

// buildDictInsert emits __dict_insert(ptr, key, val): FNV-1a open-addressed
// linear probing (§3). An empty slot (hash word 0) takes the new pair and
// grows size; a slot whose hash and key both match has its value
// overwritten; anything else advances the probe by one, wrapping at
// capacity. Returns a dummy 0 — every function in this module returns i32.
// Locals: 0=ptr(param) 1=key(param) 2=val(param) 3=cap 4=h 5=probeIdx
// 6=slotHash 7=slotKey
func buildDictInsert(hashHelperIdx uint32) *wasmbin.Func {
	const ptr, key, val, cap_, h, probeIdx, slotHash, slotKey = 0, 1, 2, 3, 4, 5, 6, 7
	f := wasmbin.NewFunc(5)

	f.LocalGet(ptr)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(cap_)

	f.LocalGet(key)
	f.Call(hashHelperIdx)
	f.LocalSet(h)

	f.LocalGet(h)
	f.LocalGet(cap_)
	f.I32RemU()
	f.LocalSet(probeIdx)

	f.Loop()

	emitDictSlotAddr(f, ptr, probeIdx)
	f.I32Load(wasmbin.MemArg{Offset: layout.DictHeaderBytes, Align: 2})
	f.LocalSet(slotHash)

	f.LocalGet(slotHash)
	f.I32Eqz()
	f.If()
	emitDictSlotAddr(f, ptr, probeIdx)
	f.LocalGet(h)
	f.I32Store(wasmbin.MemArg{Offset: layout.DictHeaderBytes, Align: 2})
	emitDictSlotAddr(f, ptr, probeIdx)
	f.LocalGet(key)
	f.I32Store(wasmbin.MemArg{Offset: layout.DictHeaderBytes + 4, Align: 2})
	emitDictSlotAddr(f, ptr, probeIdx)
	f.LocalGet(val)
	f.I32Store(wasmbin.MemArg{Offset: layout.DictHeaderBytes + 8, Align: 2})
	f.LocalGet(ptr)
	f.LocalGet(ptr)
	f.I32Load(wasmbin.MemArg{Offset: 8})
	f.I32Const(1)
	f.I32Add()
	f.I32Store(wasmbin.MemArg{Offset: 8})
	f.I32Const(0)
	f.Return()
	f.End()

	emitDictSlotAddr(f, ptr, probeIdx)
	f.I32Load(wasmbin.MemArg{Offset: layout.DictHeaderBytes + 4, Align: 2})
	f.LocalSet(slotKey)

	f.LocalGet(slotHash)
	f.LocalGet(h)
	f.I32Eq()
	f.LocalGet(slotKey)
	f.LocalGet(key)
	f.I32Eq()
	f.I32And()
	f.If()
	emitDictSlotAddr(f, ptr, probeIdx)
	f.LocalGet(val)
	f.I32Store(wasmbin.MemArg{Offset: layout.DictHeaderBytes + 8, Align: 2})
	f.I32Const(0)
	f.Return()
	f.End()

	f.LocalGet(probeIdx)
	f.I32Const(1)
	f.I32Add()
	f.LocalGet(cap_)
	f.I32RemU()
	f.LocalSet(probeIdx)
	f.Br(0)
	f.End()

	f.I32Const(0)
	f.Return()
	return f
}

// emitDictSlotAddr pushes ptr + probeIdx*DictSlotBytes, the address callers
// then apply a static DictHeaderBytes-relative MemArg offset to.
func emitDictSlotAddr(f *wasmbin.Func, ptr, probeIdx uint32) {
	f.LocalGet(ptr)
	f.LocalGet(probeIdx)
	f.I32Const(layout.DictSlotBytes)
	f.I32Mul()
	f.I32Add()
}

// buildSubscriptGet emits __subscript_get(obj, index) -> i32, tag-dispatching
// between a bounds-checked positional list read and an FNV-1a open-addressed
// probe over a dict's slot table (§3). A miss — the probe reaches an empty
// slot — or an out-of-range list index traps rather than returning a
// sentinel, matching how every other bounds failure here behaves.
// Locals: 0=obj(param) 1=idx(param) 2=tag 3=cap 4=h 5=probeIdx 6=slotHash
// 7=slotKey 8=result 9=len
func buildSubscriptGet(hashHelperIdx uint32) *wasmbin.Func {
	const obj, idx, tag, cap_, h, probeIdx, slotHash, slotKey, result, ln = 0, 1, 2, 3, 4, 5, 6, 7, 8, 9
	f := wasmbin.NewFunc(8)

	f.LocalGet(obj)
	f.I32Load(wasmbin.MemArg{})
	f.LocalSet(tag)

	f.LocalGet(tag)
	f.I32Const(ir.TagDict)
	f.I32Eq()
	f.If()

	f.LocalGet(obj)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(cap_)

	f.LocalGet(idx)
	f.Call(hashHelperIdx)
	f.LocalSet(h)

	f.LocalGet(h)
	f.LocalGet(cap_)
	f.I32RemU()
	f.LocalSet(probeIdx)

	f.Block()
	f.Loop()

	emitDictSlotAddr(f, obj, probeIdx)
	f.I32Load(wasmbin.MemArg{Offset: layout.DictHeaderBytes, Align: 2})
	f.LocalSet(slotHash)

	f.LocalGet(slotHash)
	f.I32Eqz()
	f.If()
	f.Unreachable()
	f.End()

	emitDictSlotAddr(f, obj, probeIdx)
	f.I32Load(wasmbin.MemArg{Offset: layout.DictHeaderBytes + 4, Align: 2})
	f.LocalSet(slotKey)

	f.LocalGet(slotHash)
	f.LocalGet(h)
	f.I32Eq()
	f.LocalGet(slotKey)
	f.LocalGet(idx)
	f.I32Eq()
	f.I32And()
	f.If()
	emitDictSlotAddr(f, obj, probeIdx)
	f.I32Load(wasmbin.MemArg{Offset: layout.DictHeaderBytes + 8, Align: 2})
	f.LocalSet(result)
	f.Br(2)
	f.End()

	f.LocalGet(probeIdx)
	f.I32Const(1)
	f.I32Add()
	f.LocalGet(cap_)
	f.I32RemU()
	f.LocalSet(probeIdx)
	f.Br(0)
	f.End()
	f.End()

	f.Else()

	f.LocalGet(obj)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(ln)
	f.LocalGet(idx)
	f.I32Const(0)
	f.I32LtS()
	f.LocalGet(idx)
	f.LocalGet(ln)
	f.I32GeS()
	f.I32Or()
	f.If()
	f.Unreachable()
	f.End()

	f.LocalGet(obj)
	f.LocalGet(idx)
	f.I32Const(layout.ElemBytes)
	f.I32Mul()
	f.I32Add()
	f.I32Load(wasmbin.MemArg{Offset: uint32(layout.HeaderBytes)})
	f.LocalSet(result)

	f.End()

	f.LocalGet(result)
	f.Return()
	return f
}

// buildSubscriptSet emits __subscript_set(obj, idx, val): tag-dispatches to
// a bounds-checked List element store (trapping via unreachable, matching
// the read path) or a Dict insert-or-update through __dict_insert (§4.3).
// Returns a dummy 0 — every function in this module returns i32.
// Locals: 0=obj(param) 1=idx(param) 2=val(param) 3=tag 4=len
func buildSubscriptSet(dictInsertIdx uint32) *wasmbin.Func {
	const obj, idx, val, tag, ln = 0, 1, 2, 3, 4
	f := wasmbin.NewFunc(2)

	f.LocalGet(obj)
	f.I32Load(wasmbin.MemArg{})
	f.LocalSet(tag)

	f.LocalGet(tag)
	f.I32Const(ir.TagDict)
	f.I32Eq()
	f.If()

	f.LocalGet(obj)
	f.LocalGet(idx)
	f.LocalGet(val)
	f.Call(dictInsertIdx)
	f.Drop()

	f.Else()

	f.LocalGet(obj)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(ln)
	f.LocalGet(idx)
	f.I32Const(0)
	f.I32LtS()
	f.LocalGet(idx)
	f.LocalGet(ln)
	f.I32GeS()
	f.I32Or()
	f.If()
	f.Unreachable()
	f.End()

	f.LocalGet(obj)
	f.LocalGet(idx)
	f.I32Const(layout.ElemBytes)
	f.I32Mul()
	f.I32Add()
	f.LocalGet(val)
	f.I32Store(wasmbin.MemArg{Offset: uint32(layout.HeaderBytes)})

	f.End()

	f.I32Const(0)
	f.Return()
	return f
}

// buildSliceGet emits __slice_get(obj, start, end) -> newPtr: a raw byte
// copy of [start,end) at the source's own element width, re-tagged with the
// source's tag so a String slice stays a String and a List slice stays a
// List.
// Locals: 0=obj 1=start 2=end 3=tag 4=length 5=outBase 6=outNew 7=elemWidth
// 8=totalBytes 9=i
func buildSliceGet() *wasmbin.Func {
	const obj, start, end, tag, length, outBase, outNew, elemWidth, totalBytes, i = 0, 1, 2, 3, 4, 5, 6, 7, 8, 9
	f := wasmbin.NewFunc(7)

	f.LocalGet(obj)
	f.I32Load(wasmbin.MemArg{})
	f.LocalSet(tag)

	f.LocalGet(end)
	f.LocalGet(start)
	f.I32Sub()
	f.LocalSet(length)

	f.LocalGet(tag)
	f.I32Const(ir.TagList)
	f.I32Eq()
	f.If()
	f.I32Const(layout.ElemBytes)
	f.LocalSet(elemWidth)
	f.Else()
	f.I32Const(1)
	f.LocalSet(elemWidth)
	f.End()

	f.LocalGet(length)
	f.LocalGet(elemWidth)
	f.I32Mul()
	f.LocalSet(totalBytes)

	layout.EmitAlloc(f, outBase, outNew, func(f *wasmbin.Func) {
		f.LocalGet(totalBytes)
		f.I32Const(int32(layout.HeaderBytes))
		f.I32Add()
	})

	f.LocalGet(outBase)
	f.LocalGet(tag)
	f.I32Store(wasmbin.MemArg{})
	f.LocalGet(outBase)
	f.LocalGet(length)
	f.I32Store(wasmbin.MemArg{Offset: 4})

	f.I32Const(0)
	f.LocalSet(i)
	f.Block()
	f.Loop()
	f.LocalGet(i)
	f.LocalGet(totalBytes)
	f.I32GeS()
	f.BrIf(1)

	f.LocalGet(outBase)
	f.I32Const(int32(layout.HeaderBytes))
	f.I32Add()
	f.LocalGet(i)
	f.I32Add()

	f.LocalGet(obj)
	f.I32Const(int32(layout.HeaderBytes))
	f.I32Add()
	f.LocalGet(start)
	f.LocalGet(elemWidth)
	f.I32Mul()
	f.I32Add()
	f.LocalGet(i)
	f.I32Add()
	f.I32Load8U(wasmbin.MemArg{})

	f.I32Store8(wasmbin.MemArg{})

	f.LocalGet(i)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(i)
	f.Br(0)
	f.End()
	f.End()

	f.LocalGet(outBase)
	f.Return()
	return f
}

// buildStrEq emits __str_eq(a, b) -> i32 (1/0): length check followed by a
// byte-by-byte compare, used for string/bytes equality instead of pointer
// identity (§8 scenario 7).
// Locals: 0=a 1=b 2=lenA 3=lenB 4=i 5=result
func buildStrEq() *wasmbin.Func {
	const a, b, lenA, lenB, i, result = 0, 1, 2, 3, 4, 5
	f := wasmbin.NewFunc(4)

	f.LocalGet(a)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(lenA)
	f.LocalGet(b)
	f.I32Load(wasmbin.MemArg{Offset: 4})
	f.LocalSet(lenB)

	f.LocalGet(lenA)
	f.LocalGet(lenB)
	f.I32Ne()
	f.If()
	f.I32Const(0)
	f.LocalSet(result)
	f.Else()
	f.I32Const(1)
	f.LocalSet(result)
	f.I32Const(0)
	f.LocalSet(i)

	f.Block()
	f.Loop()
	f.LocalGet(i)
	f.LocalGet(lenA)
	f.I32GeS()
	f.BrIf(1)

	f.LocalGet(a)
	f.LocalGet(i)
	f.I32Add()
	f.I32Load8U(wasmbin.MemArg{Offset: uint32(layout.BytesDataOffset())})
	f.LocalGet(b)
	f.LocalGet(i)
	f.I32Add()
	f.I32Load8U(wasmbin.MemArg{Offset: uint32(layout.BytesDataOffset())})
	f.I32Ne()
	f.If()
	f.I32Const(0)
	f.LocalSet(result)
	f.Br(2)
	f.End()

	f.LocalGet(i)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(i)
	f.Br(0)
	f.End()
	f.End()

	f.End()

	f.LocalGet(result)
	f.Return()
	return f
}

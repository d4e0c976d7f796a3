// Package sha256wasm emits a single standalone Wasm function implementing
// FIPS 180-4 SHA-256 over a byte range in linear memory, built once per
// compiled module and shared by every hashlib.sha256(...) call site rather
// than inlined at each one. The 64 compression rounds are unrolled and each
// pushes its round constant as an i32.const immediate instead of reading it
// from memory, so the instruction trace a round takes never depends on heap
// layout — only on which round it is.
package sha256wasm

import (
	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/layout"
	"github.com/fraudcore/pywasm/internal/wasmbin"
)

// FuncName is the name codegen looks up when it needs to call the emitted
// helper; it carries no meaning to Wasm itself (functions are called by
// index), it just keys the compiled-function table codegen builds.
const FuncName = "hashlib.sha256"

var k = [64]int32{
	0x428a2f98, 0x71374491, -0x4a3f0431, -0x164a245b, 0x3956c25b, 0x59f111f1, -0x6dc07d5c, -0x54e3a12b,
	-0x27f85568, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, -0x7f214e02, -0x6423f959, -0x3e640e8c,
	-0x1b64963f, -0x1041b87a, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	-0x67c1aeae, -0x57ce3993, -0x4ffcd838, -0x40a68039, -0x391ff40d, -0x2a586eb9, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, -0x7e3d36d2, -0x6d8dd37b,
	-0x5d40175f, -0x57e599b5, -0x3db47490, -0x3893ae5d, -0x2e6d17e7, -0x2966f9dc, -0xbf1ca7b, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, -0x7b3787ec, -0x7338fdf8, -0x6f410006, -0x5baf9315, -0x41065c09, -0x398e870e,
}

var h0 = [8]int32{
	0x6a09e667, -0x4498517b, 0x3c6ef372, -0x5ab00ac6,
	0x510e527f, -0x64fa9774, 0x1f83d9ab, 0x5be0cd19,
}

// locals, by index, of the standalone function. Params occupy 0-1.
const (
	lPtr       = 0
	lLen       = 1
	lPaddedLen = 2
	lBufBase   = 3
	lBufNew    = 4
	lNumBlocks = 5
	lBlockIdx  = 6
	lBlockBase = 7
	lWBase     = 8
	lWNew      = 9
	lI         = 10
	la         = 11
	lb         = 12
	lc         = 13
	ld         = 14
	le         = 15
	lf         = 16
	lg         = 17
	lh         = 18
	lt1        = 19
	lt2        = 20
	ls0        = 21
	ls1        = 22
	lk         = 23
	ltmp       = 24
	lwi        = 25
	lh0        = 26 // running state H0..H7 occupy 26-33
	lDigest    = 34
	lDigestNew = 35
	numLocals  = 36
)

// Build emits the sha256(ptr, len) -> digestPtr helper function. The
// returned *wasmbin.Func already declares numLocals-2 non-parameter locals.
func Build() *wasmbin.Func {
	f := wasmbin.NewFunc(uint32(numLocals - 2))

	emitPadding(f)
	emitInitState(f)
	emitBlockLoop(f)
	emitDigestOut(f)

	return f
}

func emitPadding(f *wasmbin.Func) {
	// paddedLen = ceil((len+9)/64)*64
	f.LocalGet(lLen)
	f.I32Const(9)
	f.I32Add()
	f.I32Const(63)
	f.I32Add()
	f.I32Const(64)
	f.I32DivU()
	f.I32Const(64)
	f.I32Mul()
	f.LocalSet(lPaddedLen)

	layout.EmitAlloc(f, lBufBase, lBufNew, func(f *wasmbin.Func) { f.LocalGet(lPaddedLen) })

	// copy message bytes: buf[i] = ptr[i] for i in [0, len). Freshly bumped
	// heap memory is always zero (the allocator never reuses or recycles
	// bytes), so the padding zero-run after the message needs no explicit
	// clearing.
	f.I32Const(0)
	f.LocalSet(lI)
	f.Loop()
	f.LocalGet(lI)
	f.LocalGet(lLen)
	f.I32LtU()
	f.If()
	f.LocalGet(lBufBase)
	f.LocalGet(lI)
	f.I32Add()
	f.LocalGet(lPtr)
	f.LocalGet(lI)
	f.I32Add()
	f.I32Load8U(wasmbin.MemArg{})
	f.I32Store8(wasmbin.MemArg{})
	f.LocalGet(lI)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(lI)
	f.Br(1)
	f.End()
	f.End()

	// buf[len] = 0x80
	f.LocalGet(lBufBase)
	f.LocalGet(lLen)
	f.I32Add()
	f.I32Const(0x80)
	f.I32Store8(wasmbin.MemArg{})

	// last 4 bytes of the block hold the bit length (messages stay well
	// under 2^29 bytes given the source/module size limits, so the high
	// 4 bytes of the 64-bit FIPS length field are always zero).
	f.LocalGet(lLen)
	f.I32Const(3)
	f.I32Shl()
	f.LocalSet(lt1) // bit length, reusing lt1 before the state it names exists

	for i := 0; i < 4; i++ {
		f.LocalGet(lBufBase)
		f.LocalGet(lPaddedLen)
		f.I32Const(int32(4 - i))
		f.I32Sub()
		f.I32Add()
		f.LocalGet(lt1)
		f.I32Const(int32(8 * (3 - i)))
		f.I32ShrU()
		f.I32Store8(wasmbin.MemArg{})
	}

	f.LocalGet(lPaddedLen)
	f.I32Const(64)
	f.I32DivU()
	f.LocalSet(lNumBlocks)
}

func emitInitState(f *wasmbin.Func) {
	for i, v := range h0 {
		f.I32Const(v)
		f.LocalSet(uint32(lh0 + i))
	}
}

func emitBlockLoop(f *wasmbin.Func) {
	f.I32Const(0)
	f.LocalSet(lBlockIdx)
	f.Loop()
	f.LocalGet(lBlockIdx)
	f.LocalGet(lNumBlocks)
	f.I32LtU()
	f.If()

	f.LocalGet(lBufBase)
	f.LocalGet(lBlockIdx)
	f.I32Const(64)
	f.I32Mul()
	f.I32Add()
	f.LocalSet(lBlockBase)

	emitMessageSchedule(f)
	emitCompression(f)

	f.LocalGet(lBlockIdx)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(lBlockIdx)
	f.Br(1)
	f.End()
	f.End()
}

// emitMessageSchedule allocates a 64-word scratch buffer and fills W[0..15]
// from the current block's bytes (big-endian) and W[16..63] via the sigma
// recurrence.
func emitMessageSchedule(f *wasmbin.Func) {
	layout.EmitAlloc(f, lWBase, lWNew, func(f *wasmbin.Func) { f.I32Const(64 * 4) })

	for i := 0; i < 16; i++ {
		f.LocalGet(lWBase)
		f.I32Const(int32(i * 4))
		f.I32Add()
		for b := 0; b < 4; b++ {
			f.LocalGet(lBlockBase)
			f.I32Const(int32(i*4 + b))
			f.I32Add()
			f.I32Load8U(wasmbin.MemArg{})
			if b < 3 {
				f.I32Const(int32(8 * (3 - b)))
				f.I32Shl()
			}
			if b > 0 {
				f.I32Or()
			}
		}
		f.I32Store(wasmbin.MemArg{Align: 2})
	}

	f.I32Const(16)
	f.LocalSet(lI)
	f.Loop()
	f.LocalGet(lI)
	f.I32Const(64)
	f.I32LtU()
	f.If()

	emitLoadW(f, lI, -15, lwi)
	emitSigma0(f)
	f.LocalSet(ls0)
	emitLoadW(f, lI, -2, lwi)
	emitSigma1(f)
	f.LocalSet(ls1)

	f.LocalGet(lWBase)
	f.LocalGet(lI)
	f.I32Const(4)
	f.I32Mul()
	f.I32Add()

	emitLoadW(f, lI, -16, lwi)
	f.LocalGet(ls0)
	f.I32Add()
	emitLoadW(f, lI, -7, lwi)
	f.I32Add()
	f.LocalGet(ls1)
	f.I32Add()
	f.I32Store(wasmbin.MemArg{Align: 2})

	f.LocalGet(lI)
	f.I32Const(1)
	f.I32Add()
	f.LocalSet(lI)
	f.Br(1)
	f.End()
	f.End()
}

// emitLoadW pushes W[i+offset], using scratch local wi as the index
// temporary; the resulting value is left on the stack.
func emitLoadW(f *wasmbin.Func, iLocal uint32, offset int, wi uint32) {
	f.LocalGet(iLocal)
	f.I32Const(int32(offset))
	f.I32Add()
	f.LocalSet(wi)
	f.LocalGet(lWBase)
	f.LocalGet(wi)
	f.I32Const(4)
	f.I32Mul()
	f.I32Add()
	f.I32Load(wasmbin.MemArg{Align: 2})
}

// emitSigma0 computes σ0(x) = ROTR(x,7) ^ ROTR(x,18) ^ SHR(x,3) over the
// value already on top of the stack, leaving the result on the stack.
func emitSigma0(f *wasmbin.Func) {
	f.LocalSet(lk) // stash x
	f.LocalGet(lk)
	f.I32Const(7)
	f.I32Rotr()
	f.LocalGet(lk)
	f.I32Const(18)
	f.I32Rotr()
	f.I32Xor()
	f.LocalGet(lk)
	f.I32Const(3)
	f.I32ShrU()
	f.I32Xor()
}

// emitSigma1 computes σ1(x) = ROTR(x,17) ^ ROTR(x,19) ^ SHR(x,10).
func emitSigma1(f *wasmbin.Func) {
	f.LocalSet(lk)
	f.LocalGet(lk)
	f.I32Const(17)
	f.I32Rotr()
	f.LocalGet(lk)
	f.I32Const(19)
	f.I32Rotr()
	f.I32Xor()
	f.LocalGet(lk)
	f.I32Const(10)
	f.I32ShrU()
	f.I32Xor()
}

// emitBigSigma0/1 are the compression-round rotations: Σ0 on a, Σ1 on e.
func emitBigSigma0(f *wasmbin.Func, srcLocal uint32) {
	f.LocalGet(srcLocal)
	f.I32Const(2)
	f.I32Rotr()
	f.LocalGet(srcLocal)
	f.I32Const(13)
	f.I32Rotr()
	f.I32Xor()
	f.LocalGet(srcLocal)
	f.I32Const(22)
	f.I32Rotr()
	f.I32Xor()
}

func emitBigSigma1(f *wasmbin.Func, srcLocal uint32) {
	f.LocalGet(srcLocal)
	f.I32Const(6)
	f.I32Rotr()
	f.LocalGet(srcLocal)
	f.I32Const(11)
	f.I32Rotr()
	f.I32Xor()
	f.LocalGet(srcLocal)
	f.I32Const(25)
	f.I32Rotr()
	f.I32Xor()
}

// emitCh computes Ch(e,f,g) = (e&f) ^ (~e&g).
func emitCh(f *wasmbin.Func) {
	f.LocalGet(le)
	f.LocalGet(lf)
	f.I32And()
	f.LocalGet(le)
	f.I32Const(-1)
	f.I32Xor()
	f.LocalGet(lg)
	f.I32And()
	f.I32Xor()
}

// emitMaj computes Maj(a,b,c) = (a&b) ^ (a&c) ^ (b&c).
func emitMaj(f *wasmbin.Func) {
	f.LocalGet(la)
	f.LocalGet(lb)
	f.I32And()
	f.LocalGet(la)
	f.LocalGet(lc)
	f.I32And()
	f.I32Xor()
	f.LocalGet(lb)
	f.LocalGet(lc)
	f.I32And()
	f.I32Xor()
}

func emitCompression(f *wasmbin.Func) {
	f.LocalGet(lh0 + 0)
	f.LocalSet(la)
	f.LocalGet(lh0 + 1)
	f.LocalSet(lb)
	f.LocalGet(lh0 + 2)
	f.LocalSet(lc)
	f.LocalGet(lh0 + 3)
	f.LocalSet(ld)
	f.LocalGet(lh0 + 4)
	f.LocalSet(le)
	f.LocalGet(lh0 + 5)
	f.LocalSet(lf)
	f.LocalGet(lh0 + 6)
	f.LocalSet(lg)
	f.LocalGet(lh0 + 7)
	f.LocalSet(lh)

	f.I32Const(0)
	f.LocalSet(ltmp) // stays 0 for the whole loop; emitLoadW's iLocal+offset needs a zero base

	for round := 0; round < 64; round++ {
		// t1 = h + Sigma1(e) + Ch(e,f,g) + k[round] + w[round]
		f.LocalGet(lh)
		emitBigSigma1(f, le)
		f.I32Add()
		emitCh(f)
		f.I32Add()
		f.I32Const(k[round])
		f.I32Add()
		emitLoadW(f, i32LocalForRound(), round, lwi)
		f.I32Add()
		f.LocalSet(lt1)

		// t2 = Sigma0(a) + Maj(a,b,c)
		emitBigSigma0(f, la)
		emitMaj(f)
		f.I32Add()
		f.LocalSet(lt2)

		f.LocalGet(lg)
		f.LocalSet(lh)
		f.LocalGet(lf)
		f.LocalSet(lg)
		f.LocalGet(le)
		f.LocalSet(lf)
		f.LocalGet(ld)
		f.LocalGet(lt1)
		f.I32Add()
		f.LocalSet(le)
		f.LocalGet(lc)
		f.LocalSet(ld)
		f.LocalGet(lb)
		f.LocalSet(lc)
		f.LocalGet(la)
		f.LocalSet(lb)
		f.LocalGet(lt1)
		f.LocalGet(lt2)
		f.I32Add()
		f.LocalSet(la)
	}

	for i, reg := range []uint32{la, lb, lc, ld, le, lf, lg, lh} {
		f.LocalGet(uint32(lh0 + i))
		f.LocalGet(reg)
		f.I32Add()
		f.LocalSet(uint32(lh0 + i))
	}
}

// i32LocalForRound is a placeholder index local reused purely so
// emitLoadW's (iLocal, offset) shape can fetch W[round] with offset=round
// and iLocal holding 0; ltmp always holds 0 at this point in the loop body.
func i32LocalForRound() uint32 { return ltmp }

func emitDigestOut(f *wasmbin.Func) {
	layout.EmitAllocConst(f, lDigest, lDigestNew, layout.HeaderBytes+32)
	layout.EmitWriteHeaderConst(f, lDigest, ir.TagBytes, 32)
	for i := 0; i < 8; i++ {
		for b := 0; b < 4; b++ {
			f.LocalGet(lDigest)
			f.I32Const(int32(layout.BytesDataOffset()) + int32(i*4+b))
			f.I32Add()
			f.LocalGet(uint32(lh0 + i))
			f.I32Const(int32(8 * (3 - b)))
			f.I32ShrU()
			f.I32Store8(wasmbin.MemArg{})
		}
	}
	f.LocalGet(lDigest)
	f.Return()
}

// Package interp implements the single-opcode state interpreter used for
// off-chain/on-chain fraud-proof adjudication: given one opcode and a prior
// State, it executes exactly that opcode and returns the resulting State's
// canonical hash, the witness an on-chain dispute commits to.
package interp

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/fraudcore/pywasm/internal/leb128"
	"github.com/fraudcore/pywasm/internal/pyerr"
)

// Step executes the single opcode at prior.PC against a copy of prior,
// returning the resulting state's canonical hash alongside the resulting
// State. Step never mutates prior: same (opcode, prior) always yields the
// same (hash, next), bit-for-bit.
func Step(opcode Opcode, prior State) (nextHash [32]byte, next State, err error) {
	next = prior.clone()
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*pyerr.Error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	execute(&next, opcode)
	return stateHash(next), next, nil
}

// ReplayStep pairs an opcode with the prior State it executes against, one
// entry in a ReplayAll batch.
type ReplayStep struct {
	Opcode Opcode
	State  State
}

// ReplayAll executes a caller-supplied sequence of (opcode, state) steps in
// order and returns the per-step state hash for each, the batch form of
// Step used by the off-chain arbitration coordinator to locate the first
// diverging step before committing a single-step on-chain dispute.
func ReplayAll(steps []ReplayStep) ([][32]byte, error) {
	hashes := make([][32]byte, 0, len(steps))
	for i, step := range steps {
		h, _, err := Step(step.Opcode, step.State)
		if err != nil {
			return hashes, fmt.Errorf("interp: step %d: %w", i, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

func execute(s *State, opcode Opcode) {
	s.consumeFuel(1)

	switch opcode {
	case OpUnreachable:
		panic(pyerr.New(pyerr.InterpreterUnsupportedOpcode, "interp: unreachable executed"))
	case OpNop:
		// no-op

	case OpI32Const:
		v := s.readImmI32()
		s.push(I32Value(v))
	case OpI64Const:
		v := s.readImmI64()
		s.push(I64Value(v))

	case OpLocalGet:
		idx := s.readImmLocalIndex()
		s.push(s.Locals[idx])
	case OpLocalSet:
		idx := s.readImmLocalIndex()
		s.Locals[idx] = s.pop()
	case OpLocalTee:
		idx := s.readImmLocalIndex()
		v := s.pop()
		s.Locals[idx] = v
		s.push(v)

	case OpI32Load:
		addr := s.loadAddr()
		data := s.loadBytes(addr, 4)
		s.push(I32Value(int32(binary.LittleEndian.Uint32(data))))
	case OpI64Load:
		addr := s.loadAddr()
		data := s.loadBytes(addr, 8)
		s.push(I64Value(int64(binary.LittleEndian.Uint64(data))))
	case OpI32Store:
		offset := s.readMemArg()
		val := s.popI32()
		addr := int(s.popI32()) + int(offset)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(val))
		s.storeBytes(addr, b[:])
	case OpI64Store:
		offset := s.readMemArg()
		val := s.popI64()
		addr := int(s.popI32()) + int(offset)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(val))
		s.storeBytes(addr, b[:])

	case OpI32Eqz:
		s.push(boolValue(s.popI32() == 0))
	case OpI32Eq:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(a == b))
	case OpI32Ne:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(a != b))
	case OpI32LtS:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(a < b))
	case OpI32LtU:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(uint32(a) < uint32(b)))
	case OpI32GtS:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(a > b))
	case OpI32GtU:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(uint32(a) > uint32(b)))
	case OpI32LeS:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(a <= b))
	case OpI32LeU:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(uint32(a) <= uint32(b)))
	case OpI32GeS:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(a >= b))
	case OpI32GeU:
		b, a := s.popI32(), s.popI32()
		s.push(boolValue(uint32(a) >= uint32(b)))

	case OpI64Eqz:
		s.push(boolValue(s.popI64() == 0))
	case OpI64Eq:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(a == b))
	case OpI64Ne:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(a != b))
	case OpI64LtS:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(a < b))
	case OpI64LtU:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(uint64(a) < uint64(b)))
	case OpI64GtS:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(a > b))
	case OpI64GtU:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(uint64(a) > uint64(b)))
	case OpI64LeS:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(a <= b))
	case OpI64LeU:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(uint64(a) <= uint64(b)))
	case OpI64GeS:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(a >= b))
	case OpI64GeU:
		b, a := s.popI64(), s.popI64()
		s.push(boolValue(uint64(a) >= uint64(b)))

	case OpI32Clz:
		s.push(I32Value(int32(bits.LeadingZeros32(uint32(s.popI32())))))
	case OpI32Ctz:
		s.push(I32Value(int32(bits.TrailingZeros32(uint32(s.popI32())))))
	case OpI32Popcnt:
		s.push(I32Value(int32(bits.OnesCount32(uint32(s.popI32())))))
	case OpI32Add:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a + b))
	case OpI32Sub:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a - b))
	case OpI32Mul:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a * b))
	case OpI32DivS:
		b, a := s.popI32(), s.popI32()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I32Value(a / b))
	case OpI32DivU:
		b, a := s.popI32(), s.popI32()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I32Value(int32(uint32(a) / uint32(b))))
	case OpI32RemS:
		b, a := s.popI32(), s.popI32()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I32Value(a % b))
	case OpI32RemU:
		b, a := s.popI32(), s.popI32()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I32Value(int32(uint32(a) % uint32(b))))
	case OpI32And:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a & b))
	case OpI32Or:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a | b))
	case OpI32Xor:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a ^ b))
	case OpI32Shl:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a << (uint32(b) & 31)))
	case OpI32ShrS:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(a >> (uint32(b) & 31)))
	case OpI32ShrU:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(int32(uint32(a) >> (uint32(b) & 31))))
	case OpI32Rotl:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(int32(bits.RotateLeft32(uint32(a), int(b&31)))))
	case OpI32Rotr:
		b, a := s.popI32(), s.popI32()
		s.push(I32Value(int32(bits.RotateLeft32(uint32(a), -int(b&31)))))

	case OpI64Clz:
		s.push(I64Value(int64(bits.LeadingZeros64(uint64(s.popI64())))))
	case OpI64Ctz:
		s.push(I64Value(int64(bits.TrailingZeros64(uint64(s.popI64())))))
	case OpI64Popcnt:
		s.push(I64Value(int64(bits.OnesCount64(uint64(s.popI64())))))
	case OpI64Add:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a + b))
	case OpI64Sub:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a - b))
	case OpI64Mul:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a * b))
	case OpI64DivS:
		b, a := s.popI64(), s.popI64()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I64Value(a / b))
	case OpI64DivU:
		b, a := s.popI64(), s.popI64()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I64Value(int64(uint64(a) / uint64(b))))
	case OpI64RemS:
		b, a := s.popI64(), s.popI64()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I64Value(a % b))
	case OpI64RemU:
		b, a := s.popI64(), s.popI64()
		if b == 0 {
			panic(pyerr.ErrInterpreterDivideByZero)
		}
		s.push(I64Value(int64(uint64(a) % uint64(b))))
	case OpI64And:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a & b))
	case OpI64Or:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a | b))
	case OpI64Xor:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a ^ b))
	case OpI64Shl:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a << (uint64(b) & 63)))
	case OpI64ShrS:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(a >> (uint64(b) & 63)))
	case OpI64ShrU:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(int64(uint64(a) >> (uint64(b) & 63))))
	case OpI64Rotl:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(int64(bits.RotateLeft64(uint64(a), int(b&63)))))
	case OpI64Rotr:
		b, a := s.popI64(), s.popI64()
		s.push(I64Value(int64(bits.RotateLeft64(uint64(a), -int(b&63)))))

	default:
		panic(pyerr.New(pyerr.InterpreterUnsupportedOpcode, "interp: unsupported opcode 0x%02x", opcode))
	}
}

func boolValue(b bool) Value {
	if b {
		return I32Value(1)
	}
	return I32Value(0)
}

// consumeFuel deducts amount from s.Fuel, trapping on overdraw (§4.7 "each
// executed opcode deducts 1 fuel; overdraw traps").
func (s *State) consumeFuel(amount uint64) {
	if s.Fuel < amount {
		panic(pyerr.ErrInterpreterFuelExhausted)
	}
	s.Fuel -= amount
}

func (s *State) push(v Value) {
	if len(s.Stack) >= MaxStackDepth {
		panic(pyerr.ErrInterpreterStackOverflow)
	}
	s.Stack = append(s.Stack, v)
}

func (s *State) pop() Value {
	if len(s.Stack) == 0 {
		panic(pyerr.ErrInterpreterStackOverflow)
	}
	top := len(s.Stack) - 1
	v := s.Stack[top]
	s.Stack = s.Stack[:top]
	return v
}

func (s *State) popI32() int32 {
	v, ok := s.pop().asI32()
	if !ok {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: type mismatch, expected i32"))
	}
	return v
}

func (s *State) popI64() int64 {
	v, ok := s.pop().asI64()
	if !ok {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: type mismatch, expected i64"))
	}
	return v
}

func (s *State) loadAddr() int {
	offset := s.readMemArg()
	return int(s.popI32()) + int(offset)
}

// readMemArg decodes a load/store's two LEB128 immediates (align, then
// offset) from Code just past the opcode byte at PC, advancing PC past both,
// and returns the offset.
func (s *State) readMemArg() uint32 {
	buf := s.immBuf()
	_, n1, err := leb128.LoadUint32(buf)
	if err == nil {
		offset, n2, err2 := leb128.LoadUint32(buf[n1:])
		if err2 == nil {
			s.PC += 1 + int(n1) + int(n2)
			return offset
		}
		err = err2
	}
	panic(pyerr.New(pyerr.InterpreterOOB, "interp: truncated immediate: %v", err))
}

func (s *State) loadBytes(addr, size int) []byte {
	if addr < 0 || addr+size > len(s.Memory) {
		panic(pyerr.ErrInterpreterOOB)
	}
	return s.Memory[addr : addr+size]
}

func (s *State) storeBytes(addr int, data []byte) {
	if addr < 0 || addr+len(data) > len(s.Memory) {
		panic(pyerr.ErrInterpreterOOB)
	}
	copy(s.Memory[addr:], data)
}

// readImmU32/readImmI32/readImmI64 decode an opcode's LEB128 immediate from
// Code starting just past the opcode byte at PC, advancing PC past it.
func (s *State) readImmU32() uint32 {
	v, n, err := leb128.LoadUint32(s.immBuf())
	if err != nil {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: truncated immediate: %v", err))
	}
	s.PC += 1 + int(n)
	return v
}

func (s *State) readImmI32() int32 {
	v, n, err := leb128.LoadInt32(s.immBuf())
	if err != nil {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: truncated immediate: %v", err))
	}
	s.PC += 1 + int(n)
	return v
}

func (s *State) readImmI64() int64 {
	v, n, err := leb128.LoadInt64(s.immBuf())
	if err != nil {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: truncated immediate: %v", err))
	}
	s.PC += 1 + int(n)
	return v
}

func (s *State) readImmLocalIndex() uint32 {
	idx := s.readImmU32()
	if int(idx) >= len(s.Locals) {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: local index %d out of bounds", idx))
	}
	return idx
}

// immBuf returns Code sliced just past the opcode byte at PC, where a
// LEB128 immediate (if any) begins.
func (s *State) immBuf() []byte {
	start := s.PC + 1
	if start > len(s.Code) {
		panic(pyerr.New(pyerr.InterpreterOOB, "interp: PC out of bounds"))
	}
	return s.Code[start:]
}

package interp

import (
	"testing"

	"github.com/fraudcore/pywasm/internal/leb128"
	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/stretchr/testify/require"
)

func codeFor(opcode Opcode, imm []byte) []byte {
	return append([]byte{opcode}, imm...)
}

func stateWithStack(code []byte, fuel uint64, stack ...Value) State {
	s := NewState(2048, fuel, code)
	s.Stack = stack
	return s
}

func TestStepI32Arithmetic(t *testing.T) {
	s := stateWithStack(codeFor(OpI32Add, nil), 1000, I32Value(10), I32Value(20))
	_, next, err := Step(OpI32Add, s)
	require.NoError(t, err)
	v, ok := next.Stack[len(next.Stack)-1].asI32()
	require.True(t, ok)
	require.Equal(t, int32(30), v)

	s = stateWithStack(codeFor(OpI32Mul, nil), 1000, I32Value(7), I32Value(6))
	_, next, err = Step(OpI32Mul, s)
	require.NoError(t, err)
	v, _ = next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(42), v)

	s = stateWithStack(codeFor(OpI32Sub, nil), 1000, I32Value(100), I32Value(42))
	_, next, err = Step(OpI32Sub, s)
	require.NoError(t, err)
	v, _ = next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(58), v)
}

func TestStepI32Comparison(t *testing.T) {
	s := stateWithStack(codeFor(OpI32Eq, nil), 1000, I32Value(42), I32Value(42))
	_, next, err := Step(OpI32Eq, s)
	require.NoError(t, err)
	v, _ := next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(1), v)

	s = stateWithStack(codeFor(OpI32LtS, nil), 1000, I32Value(10), I32Value(20))
	_, next, err = Step(OpI32LtS, s)
	require.NoError(t, err)
	v, _ = next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(1), v)
}

func TestStepI32Bitwise(t *testing.T) {
	s := stateWithStack(codeFor(OpI32And, nil), 1000, I32Value(0b1010), I32Value(0b1100))
	_, next, err := Step(OpI32And, s)
	require.NoError(t, err)
	v, _ := next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(0b1000), v)

	s = stateWithStack(codeFor(OpI32Or, nil), 1000, I32Value(0b1010), I32Value(0b1100))
	_, next, err = Step(OpI32Or, s)
	require.NoError(t, err)
	v, _ = next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(0b1110), v)
}

func TestStepDivideByZero(t *testing.T) {
	s := stateWithStack(codeFor(OpI32DivS, nil), 1000, I32Value(10), I32Value(0))
	_, _, err := Step(OpI32DivS, s)
	require.ErrorIs(t, err, pyerr.ErrInterpreterDivideByZero)
}

func TestStepI32DivSTruncatesTowardZero(t *testing.T) {
	// i32.div_s truncates toward zero, same as the Wasm spec; the
	// compiler's own floor-division correction lives in codegen, not here.
	s := stateWithStack(codeFor(OpI32DivS, nil), 1000, I32Value(-7), I32Value(2))
	_, next, err := Step(OpI32DivS, s)
	require.NoError(t, err)
	v, _ := next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(-3), v)
}

func TestStepFuelExhaustion(t *testing.T) {
	s := stateWithStack(codeFor(OpI32Add, nil), 4, I32Value(1), I32Value(2))
	_, next, err := Step(OpI32Add, s)
	require.NoError(t, err)
	require.Equal(t, uint64(3), next.Fuel)

	s2 := stateWithStack(codeFor(OpI32Add, nil), 0, I32Value(1), I32Value(2))
	_, _, err = Step(OpI32Add, s2)
	require.ErrorIs(t, err, pyerr.ErrInterpreterFuelExhausted)
}

func TestStepStackOverflow(t *testing.T) {
	stack := make([]Value, MaxStackDepth)
	for i := range stack {
		stack[i] = I32Value(0)
	}
	s := stateWithStack(codeFor(OpI32Const, leb128.EncodeInt32(1)), 1000, stack...)
	_, _, err := Step(OpI32Const, s)
	require.ErrorIs(t, err, pyerr.ErrInterpreterStackOverflow)
}

func TestStepLocalSet(t *testing.T) {
	code := codeFor(OpLocalSet, leb128.EncodeUint32(0))
	s := NewState(2048, 1000, code)
	s.Locals = []Value{I32Value(0)}
	s.Stack = []Value{I32Value(99)}

	_, next, err := Step(OpLocalSet, s)
	require.NoError(t, err)
	v, _ := next.Locals[0].asI32()
	require.Equal(t, int32(99), v)
}

func TestStepLocalIndexOutOfBounds(t *testing.T) {
	code := codeFor(OpLocalGet, leb128.EncodeUint32(5))
	s := NewState(2048, 1000, code)
	s.Locals = []Value{I32Value(0)}

	_, _, err := Step(OpLocalGet, s)
	require.ErrorIs(t, err, pyerr.ErrInterpreterOOB)
}

func TestStepMemoryStoreLoadRoundTrip(t *testing.T) {
	storeCode := codeFor(OpI32Store, append(leb128.EncodeUint32(0), leb128.EncodeUint32(0)...))
	s := NewState(2048, 1000, storeCode)
	s.Stack = []Value{I32Value(16), I32Value(777)} // addr, then value
	_, next, err := Step(OpI32Store, s)
	require.NoError(t, err)

	loadCode := codeFor(OpI32Load, append(leb128.EncodeUint32(0), leb128.EncodeUint32(0)...))
	next.Code = loadCode
	next.PC = 0
	next.Stack = []Value{I32Value(16)}
	_, next, err = Step(OpI32Load, next)
	require.NoError(t, err)
	v, _ := next.Stack[len(next.Stack)-1].asI32()
	require.Equal(t, int32(777), v)
}

func TestStepMemoryOutOfBounds(t *testing.T) {
	code := codeFor(OpI32Load, append(leb128.EncodeUint32(0), leb128.EncodeUint32(0)...))
	s := NewState(8, 1000, code)
	s.Stack = []Value{I32Value(100)}
	_, _, err := Step(OpI32Load, s)
	require.ErrorIs(t, err, pyerr.ErrInterpreterOOB)
}

func TestStepUnreachableTraps(t *testing.T) {
	s := NewState(8, 1000, codeFor(OpUnreachable, nil))
	_, _, err := Step(OpUnreachable, s)
	require.ErrorIs(t, err, pyerr.ErrInterpreterUnsupportedOpcode)
}

func TestStepUnsupportedOpcode(t *testing.T) {
	s := NewState(8, 1000, codeFor(0xFF, nil))
	_, _, err := Step(0xFF, s)
	require.ErrorIs(t, err, pyerr.ErrInterpreterUnsupportedOpcode)
}

func TestStepDoesNotMutatePriorState(t *testing.T) {
	s := stateWithStack(codeFor(OpI32Add, nil), 1000, I32Value(10), I32Value(20))
	_, _, err := Step(OpI32Add, s)
	require.NoError(t, err)
	require.Len(t, s.Stack, 2) // prior untouched
}

func TestStateHashDeterministic(t *testing.T) {
	s1 := NewState(16, 1000, nil)
	s1.Stack = []Value{I32Value(42)}
	s1.Locals = []Value{I32Value(100)}

	s2 := NewState(16, 1000, nil)
	s2.Stack = []Value{I32Value(42)}
	s2.Locals = []Value{I32Value(100)}

	require.Equal(t, stateHash(s1), stateHash(s2))
}

func TestStateHashDiffersOnStack(t *testing.T) {
	s1 := NewState(16, 1000, nil)
	s1.Stack = []Value{I32Value(42)}
	s2 := NewState(16, 1000, nil)
	s2.Stack = []Value{I32Value(43)}
	require.NotEqual(t, stateHash(s1), stateHash(s2))
}

func TestReplayAllReturnsHashPerStep(t *testing.T) {
	steps := []ReplayStep{
		{Opcode: OpI32Const, State: NewState(16, 1000, codeFor(OpI32Const, leb128.EncodeInt32(1)))},
	}
	s2 := NewState(16, 1000, codeFor(OpI32Const, leb128.EncodeInt32(2)))
	steps = append(steps, ReplayStep{Opcode: OpI32Const, State: s2})

	hashes, err := ReplayAll(steps)
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	require.NotEqual(t, hashes[0], hashes[1])
}

func TestReplayAllStopsAtFirstDivergingStep(t *testing.T) {
	good := NewState(16, 1000, codeFor(OpI32Const, leb128.EncodeInt32(1)))
	bad := stateWithStack(codeFor(OpI32DivS, nil), 1000, I32Value(1), I32Value(0))

	hashes, err := ReplayAll([]ReplayStep{
		{Opcode: OpI32Const, State: good},
		{Opcode: OpI32DivS, State: bad},
	})
	require.Error(t, err)
	require.Len(t, hashes, 1)
}

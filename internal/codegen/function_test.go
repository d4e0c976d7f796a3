package codegen

import (
	"testing"

	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/wasmbin"
	"github.com/stretchr/testify/require"
)

func newTestGenerator() *generator {
	return &generator{funcIndex: map[string]uint32{}, limits: DefaultLimits()}
}

// A body that falls off the end with OUTPUT bound must return OUTPUT's
// local, not a hardcoded 0 (§4.5) — every §8 scenario relies on exactly
// this, since Python has no module-level return and always falls through.
func TestCompileFunctionReturnsOutputOnFallthrough(t *testing.T) {
	fn := &ir.Function{
		Name:    "main",
		Locals:  []string{"OUTPUT"},
		Slot:    map[string]int{"OUTPUT": 0},
		Scratch: 8,
		Body: []ir.Stmt{
			ir.Assign{Var: "OUTPUT", Expr: ir.Const{Value: 15}},
		},
	}

	body, err := newTestGenerator().compileFunction(fn)
	require.NoError(t, err)

	wantTail := []byte{wasmbin.OpLocalGet, 0x00, wasmbin.OpReturn}
	require.Equal(t, wantTail, body.Bytes()[len(body.Bytes())-len(wantTail):])
}

func TestCompileFunctionFallsThroughToZeroWithoutOutput(t *testing.T) {
	fn := &ir.Function{
		Name:    "helper",
		Locals:  []string{"x"},
		Slot:    map[string]int{"x": 0},
		Scratch: 8,
		Body: []ir.Stmt{
			ir.Assign{Var: "x", Expr: ir.Const{Value: 1}},
		},
	}

	body, err := newTestGenerator().compileFunction(fn)
	require.NoError(t, err)

	wantTail := []byte{wasmbin.OpI32Const, 0x00, wasmbin.OpReturn}
	require.Equal(t, wantTail, body.Bytes()[len(body.Bytes())-len(wantTail):])
}

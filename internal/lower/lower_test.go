package lower

import (
	"errors"
	"testing"

	"github.com/fraudcore/pywasm/internal/ir"
	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/fraudcore/pywasm/internal/pyparse"
	"github.com/stretchr/testify/require"
)

func mustLower(t *testing.T, src string) *ir.Module {
	t.Helper()
	mod, err := pyparse.Parse([]byte(src))
	require.NoError(t, err)
	out, err := Lower(mod)
	require.NoError(t, err)
	return out
}

func TestLowerSimpleAssign(t *testing.T) {
	mod := mustLower(t, "OUTPUT = 1 + 2\n")
	main := mod.Functions[0]
	require.Equal(t, "main", main.Name)
	require.Contains(t, main.Slot, "OUTPUT")
	require.Equal(t, []ir.Stmt{ir.Assign{Var: "OUTPUT", Expr: ir.BinOp{Kind: ir.BinAdd, LHS: ir.Const{Value: 1}, RHS: ir.Const{Value: 2}}}}, main.Body)
}

func TestLowerAugAssignDesugars(t *testing.T) {
	mod := mustLower(t, "x = 10\nx += 5\nOUTPUT = x\n")
	main := mod.Functions[0]
	assign, ok := main.Body[1].(ir.Assign)
	require.True(t, ok)
	bin, ok := assign.Expr.(ir.BinOp)
	require.True(t, ok)
	require.Equal(t, ir.BinAdd, bin.Kind)
}

func TestLowerFunctionDefSlotOrder(t *testing.T) {
	mod := mustLower(t, "def f(n):\n    total = 0\n    return total\nOUTPUT = f(1)\n")
	var fn *ir.Function
	for _, f := range mod.Functions {
		if f.Name == "f" {
			fn = f
		}
	}
	require.NotNil(t, fn)
	require.Equal(t, []string{"n", "total"}, fn.Locals)
	require.Equal(t, 0, fn.Slot["n"])
	require.Equal(t, 1, fn.Slot["total"])
}

func TestLowerUndefinedVariable(t *testing.T) {
	_, err := pyparse.Parse([]byte("OUTPUT = y\n"))
	require.NoError(t, err)
	mod, _ := pyparse.Parse([]byte("OUTPUT = y\n"))
	_, err = Lower(mod)
	require.True(t, errors.Is(err, pyerr.ErrUndefinedVariable))
}

func TestLowerFloatLiteralRejected(t *testing.T) {
	mod, err := pyparse.Parse([]byte("OUTPUT = 1.5\n"))
	require.NoError(t, err)
	_, err = Lower(mod)
	require.True(t, errors.Is(err, pyerr.ErrFloatLiteral))
}

func TestLowerTupleUnpackMismatch(t *testing.T) {
	mod, err := pyparse.Parse([]byte("a, b = 1\nOUTPUT = a\n"))
	require.NoError(t, err)
	_, err = Lower(mod)
	require.True(t, errors.Is(err, pyerr.ErrTupleUnpackMismatch))
}

func TestLowerUnknownFunction(t *testing.T) {
	mod, err := pyparse.Parse([]byte("OUTPUT = mystery(1)\n"))
	require.NoError(t, err)
	_, err = Lower(mod)
	require.True(t, errors.Is(err, pyerr.ErrUnknownFunction))
}

func TestLowerNonIntegerContainerElement(t *testing.T) {
	mod, err := pyparse.Parse([]byte("OUTPUT = [1, \"x\"]\n"))
	require.NoError(t, err)
	_, err = Lower(mod)
	require.True(t, errors.Is(err, pyerr.ErrNonIntegerContainerElement))
}

func TestLowerHashlibMethodChain(t *testing.T) {
	mod := mustLower(t, "x = 1\nOUTPUT = hashlib.sha256(x).hexdigest()\n")
	main := mod.Functions[0]
	assign := main.Body[1].(ir.Assign)
	outer, ok := assign.Expr.(ir.Call)
	require.True(t, ok)
	require.Equal(t, "hexdigest", outer.Func)
	inner, ok := outer.Args[0].(ir.Call)
	require.True(t, ok)
	require.Equal(t, "hashlib.sha256", inner.Func)
}

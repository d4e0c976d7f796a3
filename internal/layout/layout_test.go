package layout

import (
	"testing"

	"github.com/fraudcore/pywasm/internal/wasmbin"
	"github.com/stretchr/testify/require"
)

func TestOffsets(t *testing.T) {
	require.Equal(t, uint32(8), ListElementOffset(0))
	require.Equal(t, uint32(12), ListElementOffset(1))
	require.Equal(t, uint32(20), DictKeyOffset(0))
	require.Equal(t, uint32(24), DictValueOffset(0))
	require.Equal(t, uint32(32), DictKeyOffset(1))
}

func TestEmitAllocConstEmitsBoundsCheck(t *testing.T) {
	f := wasmbin.NewFunc(4)
	EmitAllocConst(f, 0, 1, 16)
	require.Greater(t, f.Len(), 0)
	require.Contains(t, string(f.Bytes()), string([]byte{wasmbin.OpUnreachable}))
}

func TestEmitWriteStringLiteralLength(t *testing.T) {
	f := wasmbin.NewFunc(4)
	EmitWriteStringLiteral(f, 0, 1, 3, []byte("abc"))
	require.Greater(t, f.Len(), 0)
}

package pywasm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fraudcore/pywasm"
	"github.com/fraudcore/pywasm/internal/cache"
	"github.com/stretchr/testify/require"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}

func TestCompileProducesValidWasmHeader(t *testing.T) {
	out, err := pywasm.Compile(context.Background(), []byte("OUTPUT = 1\n"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, wasmMagic))
}

func TestCompileIsDeterministic(t *testing.T) {
	src := []byte("x = 10\nx += 5\nOUTPUT = x\n")
	a, err := pywasm.Compile(context.Background(), src)
	require.NoError(t, err)
	b, err := pywasm.Compile(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCompileRejectsUnbalancedSource(t *testing.T) {
	_, err := pywasm.Compile(context.Background(), []byte("OUTPUT = (1 + 2\n"))
	require.Error(t, err)
}

func TestCompileRejectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pywasm.Compile(ctx, []byte("OUTPUT = 1\n"))
	require.Error(t, err)
}

func TestCompileUsesCache(t *testing.T) {
	c := cache.NewCache()
	src := []byte("OUTPUT = 42\n")

	out1, err := pywasm.Compile(context.Background(), src, pywasm.WithCache(c))
	require.NoError(t, err)

	key := cache.KeyFor(src)
	stored, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, out1, stored)

	out2, err := pywasm.Compile(context.Background(), src, pywasm.WithCache(c))
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestCompilerReusesConfigAcrossCalls(t *testing.T) {
	c := pywasm.NewCompiler(pywasm.WithCache(cache.NewCache()))
	src := []byte("OUTPUT = 7\n")

	first, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWithGasLimitChangesEmittedBytes(t *testing.T) {
	src := []byte("OUTPUT = 1\n")
	def, err := pywasm.Compile(context.Background(), src)
	require.NoError(t, err)
	small, err := pywasm.Compile(context.Background(), src, pywasm.WithGasLimit(3))
	require.NoError(t, err)
	require.NotEqual(t, def, small)
}

func TestWithModuleSizeLimitRejectsOversizedModule(t *testing.T) {
	src := []byte("OUTPUT = 1\n")
	_, err := pywasm.Compile(context.Background(), src, pywasm.WithModuleSizeLimit(4))
	require.Error(t, err)
}

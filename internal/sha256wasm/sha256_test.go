package sha256wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildIsDeterministic(t *testing.T) {
	a := Build()
	b := Build()
	require.Equal(t, a.Bytes(), b.Bytes())
	require.Greater(t, a.Len(), 0)
}

func TestBuildRoundConstantCount(t *testing.T) {
	require.Len(t, k, 64)
	require.Len(t, h0, 8)
}

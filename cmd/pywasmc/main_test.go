package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileCmdWritesWasmToStdout(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("OUTPUT = 1\n"))
	cmd.SetArgs([]string{"compile"})

	require.NoError(t, cmd.Execute())
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte{0x00, 0x61, 0x73, 0x6D}))
}

func TestCompileCmdBase64(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("OUTPUT = 1\n"))
	cmd.SetArgs([]string{"compile", "--base64"})

	require.NoError(t, cmd.Execute())
	require.True(t, strings.HasPrefix(out.String(), "AGFzbQ"))
}

func TestCompileCmdRejectsBadSource(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("OUTPUT = (\n"))
	cmd.SetArgs([]string{"compile"})

	require.Error(t, cmd.Execute())
}

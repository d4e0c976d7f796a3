package validator

import (
	"errors"
	"testing"

	"github.com/fraudcore/pywasm/internal/pyerr"
	"github.com/stretchr/testify/require"
)

func TestValidateSourceOK(t *testing.T) {
	require.NoError(t, ValidateSource([]byte("OUTPUT = 1 + 2\n")))
}

func TestValidateSourceMissingOutput(t *testing.T) {
	err := ValidateSource([]byte("x = 1\n"))
	require.True(t, errors.Is(err, pyerr.ErrMissingOutput))
}

func TestValidateSourceForbidden(t *testing.T) {
	err := ValidateSource([]byte("OUTPUT = eval('1')\n"))
	require.True(t, errors.Is(err, pyerr.ErrForbiddenName))
}

func TestValidateSourceUnbalanced(t *testing.T) {
	err := ValidateSource([]byte("OUTPUT = (1 + 2\n"))
	require.True(t, errors.Is(err, pyerr.ErrUnbalancedPunctuation))
}

func TestValidateSourceImportPolicy(t *testing.T) {
	require.NoError(t, ValidateSource([]byte("import hashlib\nOUTPUT = 1\n")))
	err := ValidateSource([]byte("import os\nOUTPUT = 1\n"))
	require.True(t, errors.Is(err, pyerr.ErrDisallowedImport))
}

func TestValidateSourceTooLarge(t *testing.T) {
	big := make([]byte, 101*1024)
	for i := range big {
		big[i] = 'a'
	}
	err := ValidateSource(big)
	require.True(t, errors.Is(err, pyerr.ErrSourceTooLarge))
}

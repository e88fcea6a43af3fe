package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrfAndCodeOf(t *testing.T) {
	err := Errf(Malformed, "bad length %d", 5)
	require.Error(t, err)
	assert.Equal(t, "Malformed: bad length 5", err.Error())

	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, Malformed, code)

	_, ok = CodeOf(assert.AnError)
	assert.False(t, ok)
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "AlgorithmUnknown", AlgorithmUnknown.String())
	assert.Equal(t, "Unknown", ErrorCode(999).String())
}

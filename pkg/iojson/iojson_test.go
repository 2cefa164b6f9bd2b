package iojson

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWith(t *testing.T) {
	var out, errOut bytes.Buffer

	err := WriteWith(&out, &errOut, map[string]int{"version": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": 3}`, out.String())
	assert.Empty(t, errOut.String())
}

func TestWriteWith_MarshalError(t *testing.T) {
	var out, errOut bytes.Buffer

	err := WriteWith(&out, &errOut, map[string]any{"ch": make(chan int)})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "json_error")
}

func TestWriteLine(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, WriteLine(&out, map[string]int{"a": 1}))
	require.NoError(t, WriteLine(&out, map[string]int{"b": 2}))
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", out.String())
}

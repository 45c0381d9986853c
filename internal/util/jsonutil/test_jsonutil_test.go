package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalStripsBOM(t *testing.T) {
	var out map[string]string
	require.NoError(t, Unmarshal([]byte("\xEF\xBB\xBF{\"name\":\"x\"}"), &out))
	assert.Equal(t, "x", out["name"])
}

func TestUnmarshalRelaxed(t *testing.T) {
	in := []byte(`{
  // comment
  "a": "http://example.com/*not a comment*/",
  /* block */
  "b": [1, 2,],
}`)
	var out struct {
		A string `json:"a"`
		B []int  `json:"b"`
	}
	require.NoError(t, Unmarshal(in, &out))
	assert.Equal(t, "http://example.com/*not a comment*/", out.A)
	assert.Equal(t, []int{1, 2}, out.B)
}

func TestUnmarshalReportsOriginalError(t *testing.T) {
	var out map[string]any
	assert.Error(t, Unmarshal([]byte(`{"a":`), &out))
}

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"k": "<a&b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a&b>"}`, string(b))

	b, err = MarshalNoEscapeIndent(map[string]int{"k": 1}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"k\": 1\n}", string(b))
}

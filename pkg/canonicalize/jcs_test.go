package canonicalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJCS_Sorting(t *testing.T) {
	input := map[string]any{
		"c": 3,
		"a": 1,
		"b": 2,
	}

	b, err := JCS(input)
	require.NoError(t, err)
	require.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestJCS_RecursiveSorting(t *testing.T) {
	input := map[string]any{
		"z": map[string]any{
			"y": "foo",
			"x": "bar",
		},
		"a": 1,
	}

	b, err := JCS(input)
	require.NoError(t, err)
	require.Equal(t, `{"a":1,"z":{"x":"bar","y":"foo"}}`, string(b))
}

func TestJCS_NoHTMLEscaping(t *testing.T) {
	input := map[string]string{
		"html": "<b>miss</b> & speed",
	}

	b, err := JCS(input)
	require.NoError(t, err)
	require.Equal(t, `{"html":"<b>miss</b> & speed"}`, string(b))
}

func TestJCS_NumberFormatting(t *testing.T) {
	input := map[string]any{
		"eps":   1e-9,
		"bound": 5e8,
		"tol":   0.2,
	}

	b, err := JCS(input)
	require.NoError(t, err)
	require.Equal(t, `{"bound":500000000,"eps":1e-9,"tol":0.2}`, string(b))
}

func TestJCS_StructTags(t *testing.T) {
	type thresholds struct {
		Warn float64 `json:"warn_m"`
		Fail float64 `json:"fail_m"`
	}

	b, err := JCS(thresholds{Warn: 100, Fail: 1000})
	require.NoError(t, err)
	require.Equal(t, `{"fail_m":1000,"warn_m":100}`, string(b))
}

func TestCanonicalHash_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": []any{1, 2}, "z": map[string]any{"p": true, "q": nil}}
	b := map[string]any{"z": map[string]any{"q": nil, "p": true}, "y": []any{1, 2}, "x": 1}

	ha, err := CanonicalHash(a)
	require.NoError(t, err)
	hb, err := CanonicalHash(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
	require.Len(t, ha, 64)
}

func TestCanonicalHash_Unmarshalable(t *testing.T) {
	_, err := CanonicalHash(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}

func TestHashBytes(t *testing.T) {
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))
}

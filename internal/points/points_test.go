package points

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BlockMapping(t *testing.T) {
	src := `
2:
  x: 1.5
  y: -2
  z: 0
1:
  x: 0.1
  y: 0.2
  z: 0.3
`
	m, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, Map{
		1: {X: 0.1, Y: 0.2, Z: 0.3},
		2: {X: 1.5, Y: -2, Z: 0},
	}, m)
}

func TestParse_IgnoresExtraFields(t *testing.T) {
	m, err := Parse([]byte("7: {x: 1, y: 2, z: 3, label: corner}\n"))
	require.NoError(t, err)
	assert.Equal(t, Map{7: {X: 1, Y: 2, Z: 3}}, m)
}

func TestParse_EmptyDocument(t *testing.T) {
	for _, src := range []string{"", "\n\n"} {
		m, err := Parse([]byte(src))
		require.NoError(t, err, "input %q", src)
		assert.Empty(t, m, "input %q", src)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"wrong field names", "1: {a: 1, b: 2, c: 3}\n"},
		{"missing z", "1: {x: 1, y: 2}\n"},
		{"null field", "1: {x: 1, y: ~, z: 3}\n"},
		{"null record", "1: ~\n"},
		{"string coordinate", "1: {x: one, y: 2, z: 3}\n"},
		{"negative key", "-1: {x: 1, y: 2, z: 3}\n"},
		{"key overflows uint32", "4294967296: {x: 1, y: 2, z: 3}\n"},
		{"non integer key", "abc: {x: 1, y: 2, z: 3}\n"},
		{"duplicate key", "1: {x: 1, y: 2, z: 3}\n1: {x: 4, y: 5, z: 6}\n"},
		{"sequence document", "- 1\n- 2\n"},
		{"scalar document", "hello\n"},
		{"malformed yaml", "1: {x: 1, y: 2\n"},
		{"two documents", "1: {x: 1, y: 2, z: 3}\n---\n2: {x: 1, y: 2, z: 3}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestParse_MissingFieldIsSentinel(t *testing.T) {
	_, err := Parse([]byte("3: {x: 1, z: 2}\n"))
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "point 3")
}

func TestParse_MultipleDocumentsIsSentinel(t *testing.T) {
	_, err := Parse([]byte("1: {x: 1, y: 2, z: 3}\n---\n"))
	assert.ErrorIs(t, err, ErrMultipleDocuments)
}

func TestParse_KeysMustBeDecimalIntegers(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"float key", "1.5: {x: 1, y: 2, z: 3}\n", ErrInvalidKey},
		{"integral float beside int", "1: {x: 1, y: 2, z: 3}\n1.0: {x: 9, y: 9, z: 9}\n", ErrInvalidKey},
		{"hex beside int", "1: {x: 1, y: 2, z: 3}\n0x1: {x: 9, y: 9, z: 9}\n", ErrInvalidKey},
		{"quoted key", "\"1\": {x: 1, y: 2, z: 3}\n", ErrInvalidKey},
		{"leading zero beside int", "1: {x: 1, y: 2, z: 3}\n01: {x: 9, y: 9, z: 9}\n", ErrDuplicateKey},
		{"same key twice", "4: {x: 1, y: 2, z: 3}\n4: {x: 9, y: 9, z: 9}\n", ErrDuplicateKey},
		{"sequence document", "- 1\n- 2\n", ErrNotMapping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.src))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, m)
		})
	}
}

func TestParse_NullDocument(t *testing.T) {
	m, err := Parse([]byte("~\n"))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestParse_AliasedRecord(t *testing.T) {
	m, err := Parse([]byte("1: &p {x: 1, y: 2, z: 3}\n2: *p\n"))
	require.NoError(t, err)
	assert.Equal(t, Map{1: {X: 1, Y: 2, Z: 3}, 2: {X: 1, Y: 2, Z: 3}}, m)
}

func TestParse_MaxKey(t *testing.T) {
	m, err := Parse([]byte("4294967295: {x: 1, y: 2, z: 3}\n"))
	require.NoError(t, err)
	assert.Contains(t, m, uint32(math.MaxUint32))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-2.25, "-2.25"},
		{0.1, "0.1"},
		{1e21, "1000000000000000000000"},
		{1.0 / 3.0, "0.3333333333333333"},
		{math.NaN(), ".nan"},
		{math.Inf(1), ".inf"},
		{math.Inf(-1), "-.inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in), "FormatFloat(%v)", tt.in)
	}
}

func TestMarshalInline(t *testing.T) {
	m := Map{
		10: {X: 1, Y: 2, Z: 3},
		2:  {X: 0.5, Y: -0.25, Z: 100},
		7:  {X: 0, Y: 0, Z: 0},
	}
	want := "2: {x: 0.5, y: -0.25, z: 100}\n" +
		"7: {x: 0, y: 0, z: 0}\n" +
		"10: {x: 1, y: 2, z: 3}\n"
	assert.Equal(t, want, string(MarshalInline(m)))
}

func TestMarshalInline_Empty(t *testing.T) {
	assert.Empty(t, MarshalInline(Map{}))
}

func TestMarshalInline_AscendingCompleteLines(t *testing.T) {
	m := Map{}
	for _, k := range []uint32{4000000000, 3, 99, 0, 12, 65536} {
		m[k] = Point{X: float64(k), Y: 1, Z: 2}
	}

	lines := strings.Split(strings.TrimSuffix(string(MarshalInline(m)), "\n"), "\n")
	require.Len(t, lines, len(m))

	want := []string{"0", "3", "12", "99", "65536", "4000000000"}
	for i, line := range lines {
		key, _, ok := strings.Cut(line, ":")
		require.True(t, ok, "line %q", line)
		assert.Equal(t, want[i], key)
	}
}

func TestInlineRoundTrip(t *testing.T) {
	m := Map{
		0:              {X: 0.1, Y: 0.2, Z: 0.30000000000000004},
		1:              {X: -1e-7, Y: 123456789.123, Z: math.MaxFloat64},
		42:             {X: 5e-324, Y: -0.5, Z: 1e21},
		math.MaxUint32: {X: math.Inf(1), Y: math.Inf(-1), Z: 7},
	}

	got, err := Parse(MarshalInline(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestInlineRoundTrip_NaN(t *testing.T) {
	got, err := Parse(MarshalInline(Map{5: {X: math.NaN(), Y: 1, Z: 2}}))
	require.NoError(t, err)
	require.Contains(t, got, uint32(5))
	assert.True(t, math.IsNaN(got[5].X))
	assert.Equal(t, 1.0, got[5].Y)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []uint32{1, 2, 9}, Map{9: {}, 1: {}, 2: {}}.Keys())
	assert.Empty(t, Map{}.Keys())
}

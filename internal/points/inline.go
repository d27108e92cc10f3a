package points

import (
	"math"
	"strconv"
)

// FormatFloat renders v as the shortest decimal that parses back to the
// same float64, without an exponent. Non-finite values use the YAML
// spellings so the output stays parseable.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AppendInline appends the inline encoding of m to b, one
// "<key>: {x: <x>, y: <y>, z: <z>}" line per key in ascending order.
func (m Map) AppendInline(b []byte) []byte {
	for _, k := range m.Keys() {
		p := m[k]
		b = strconv.AppendUint(b, uint64(k), 10)
		b = append(b, ": {x: "...)
		b = append(b, FormatFloat(p.X)...)
		b = append(b, ", y: "...)
		b = append(b, FormatFloat(p.Y)...)
		b = append(b, ", z: "...)
		b = append(b, FormatFloat(p.Z)...)
		b = append(b, "}\n"...)
	}
	return b
}

// MarshalInline returns the inline encoding of m.
func MarshalInline(m Map) []byte {
	return m.AppendInline(nil)
}

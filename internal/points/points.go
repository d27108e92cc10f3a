// Package points models the 3D point records carried by uploaded files and
// implements their two text encodings: the block YAML mapping clients send,
// and the compact one-line-per-record inline form the server derives from it.
package points

import (
	"slices"
)

// Point is a single 3D coordinate. Values are not range checked; NaN and
// infinities pass through untouched.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Map associates unsigned 32-bit keys with points. Iteration through Keys
// is ascending, which fixes the line order of encoded output.
type Map map[uint32]Point

// Keys returns the map keys in ascending order.
func (m Map) Keys() []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

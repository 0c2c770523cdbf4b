// Package vector implements the binary embedding codec and the similarity
// math shared by the export and search engines.
//
// Embeddings live in redis hash fields as packed little-endian float32
// values: 4 bytes per component, no header, no padding. Encode and Decode
// are exact inverses for every bit pattern, including NaN and Inf payloads,
// so a stored vector survives an export/import round trip unchanged.
package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned by Decode when the input length is not a whole
// number of float32 components.
var ErrMalformed = errors.New("vector: malformed embedding bytes")

// Encode packs v into its binary form: len(v)*4 little-endian bytes.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks b into its float32 components, preserving order and bit
// patterns. It fails with an error wrapping ErrMalformed when len(b) is not
// a multiple of 4.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Dim returns the number of float32 components encoded in b, or -1 when b
// is not a whole number of components.
func Dim(b []byte) int {
	if len(b)%4 != 0 {
		return -1
	}
	return len(b) / 4
}

package vector

import (
	"encoding/binary"
	"math"
)

// ToBytes encodes a float32 slice as little-endian bytes for BLOB storage.
func ToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

// FromBytes decodes little-endian bytes back into a float32 slice.
func FromBytes(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

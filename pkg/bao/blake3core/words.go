package blake3core

import "encoding/binary"

// loadBlock packs up to BlockLen bytes of a message block into 16
// little-endian words, zero-padding a short final block.
func loadBlock(b []byte) (m [16]uint32) {
	var buf [BlockLen]byte
	copy(buf[:], b)
	for i := range m {
		m[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return
}

// CVToBytes serializes a chaining value into its 32-byte wire
// representation (eight little-endian u32 words).
func CVToBytes(cv [8]uint32) (out [32]byte) {
	for i, v := range cv {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return
}

// CVFromBytes parses a chaining value from its 32-byte wire
// representation.
func CVFromBytes(b [32]byte) (cv [8]uint32) {
	for i := range cv {
		cv[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return
}

// concatenateCVs packs two 32-byte chaining values into the 16-word
// message of a parent node: left first, then right.
func concatenateCVs(left, right [8]uint32) (m [16]uint32) {
	copy(m[:8], left[:])
	copy(m[8:], right[:])
	return
}

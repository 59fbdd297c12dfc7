// Package blake3core implements the BLAKE3 compression primitive and
// the chunk/parent chaining-value functions that the rest of this
// module's Bao tree logic is built on.
//
// Constants and algorithms are taken from the BLAKE3 specification.
// https://github.com/BLAKE3-team/BLAKE3-specs/raw/master/blake3.pdf
package blake3core

import (
	"math/bits"
)

const (
	// ChunkLen is the maximum number of bytes hashed as a single
	// BLAKE3 chunk.
	ChunkLen = 1024
	// BlockLen is the number of bytes in a single compression
	// function input block.
	BlockLen = 64
	// blocksPerChunk is the number of full blocks in a full chunk.
	blocksPerChunk = ChunkLen / BlockLen
	// OutLen is the size, in bytes, of a chaining value.
	OutLen = 32

	// Values for input d of the BLAKE3 compression function, as
	// specified in table 3 on page 6.
	flagChunkStart uint32 = 1 << 0
	flagChunkEnd   uint32 = 1 << 1
	flagParent     uint32 = 1 << 2
	flagRoot       uint32 = 1 << 3
)

// iv holds the initialization vectors, as specified in table 1 on page
// 5. These are the first eight words of the SHA-256 initial hash
// value.
var iv = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// g is the G mixing function, as specified on page 5.
func g(pa, pb, pc, pd *uint32, m0, m1 uint32) {
	a, b, c, d := *pa, *pb, *pc, *pd
	a += b + m0
	d = bits.RotateLeft32(d^a, -16)
	c += d
	b = bits.RotateLeft32(b^c, -12)
	a += b + m1
	d = bits.RotateLeft32(d^a, -8)
	c += d
	b = bits.RotateLeft32(b^c, -7)
	*pa, *pb, *pc, *pd = a, b, c, d
}

// compress is the compression function, as specified on pages 4 to 6.
// It returns the full 16-word state; callers that only need a chaining
// value use truncate() to keep the lower half.
func compress(h *[8]uint32, m *[16]uint32, t uint64, b uint32, d uint32) [16]uint32 {
	v := [...]uint32{
		h[0], h[1], h[2], h[3],
		h[4], h[5], h[6], h[7],
		iv[0], iv[1], iv[2], iv[3],
		uint32(t), uint32(t >> 32), b, d,
	}

	// Round 1.
	g(&v[0], &v[4], &v[8], &v[12], m[0], m[1])
	g(&v[1], &v[5], &v[9], &v[13], m[2], m[3])
	g(&v[2], &v[6], &v[10], &v[14], m[4], m[5])
	g(&v[3], &v[7], &v[11], &v[15], m[6], m[7])
	g(&v[0], &v[5], &v[10], &v[15], m[8], m[9])
	g(&v[1], &v[6], &v[11], &v[12], m[10], m[11])
	g(&v[2], &v[7], &v[8], &v[13], m[12], m[13])
	g(&v[3], &v[4], &v[9], &v[14], m[14], m[15])

	// Round 2.
	g(&v[0], &v[4], &v[8], &v[12], m[2], m[6])
	g(&v[1], &v[5], &v[9], &v[13], m[3], m[10])
	g(&v[2], &v[6], &v[10], &v[14], m[7], m[0])
	g(&v[3], &v[7], &v[11], &v[15], m[4], m[13])
	g(&v[0], &v[5], &v[10], &v[15], m[1], m[11])
	g(&v[1], &v[6], &v[11], &v[12], m[12], m[5])
	g(&v[2], &v[7], &v[8], &v[13], m[9], m[14])
	g(&v[3], &v[4], &v[9], &v[14], m[15], m[8])

	// Round 3.
	g(&v[0], &v[4], &v[8], &v[12], m[3], m[4])
	g(&v[1], &v[5], &v[9], &v[13], m[10], m[12])
	g(&v[2], &v[6], &v[10], &v[14], m[13], m[2])
	g(&v[3], &v[7], &v[11], &v[15], m[7], m[14])
	g(&v[0], &v[5], &v[10], &v[15], m[6], m[5])
	g(&v[1], &v[6], &v[11], &v[12], m[9], m[0])
	g(&v[2], &v[7], &v[8], &v[13], m[11], m[15])
	g(&v[3], &v[4], &v[9], &v[14], m[8], m[1])

	// Round 4.
	g(&v[0], &v[4], &v[8], &v[12], m[10], m[7])
	g(&v[1], &v[5], &v[9], &v[13], m[12], m[9])
	g(&v[2], &v[6], &v[10], &v[14], m[14], m[3])
	g(&v[3], &v[7], &v[11], &v[15], m[13], m[15])
	g(&v[0], &v[5], &v[10], &v[15], m[4], m[0])
	g(&v[1], &v[6], &v[11], &v[12], m[11], m[2])
	g(&v[2], &v[7], &v[8], &v[13], m[5], m[8])
	g(&v[3], &v[4], &v[9], &v[14], m[1], m[6])

	// Round 5.
	g(&v[0], &v[4], &v[8], &v[12], m[12], m[13])
	g(&v[1], &v[5], &v[9], &v[13], m[9], m[11])
	g(&v[2], &v[6], &v[10], &v[14], m[15], m[10])
	g(&v[3], &v[7], &v[11], &v[15], m[14], m[8])
	g(&v[0], &v[5], &v[10], &v[15], m[7], m[2])
	g(&v[1], &v[6], &v[11], &v[12], m[5], m[3])
	g(&v[2], &v[7], &v[8], &v[13], m[0], m[1])
	g(&v[3], &v[4], &v[9], &v[14], m[6], m[4])

	// Round 6.
	g(&v[0], &v[4], &v[8], &v[12], m[9], m[14])
	g(&v[1], &v[5], &v[9], &v[13], m[11], m[5])
	g(&v[2], &v[6], &v[10], &v[14], m[8], m[12])
	g(&v[3], &v[7], &v[11], &v[15], m[15], m[1])
	g(&v[0], &v[5], &v[10], &v[15], m[13], m[3])
	g(&v[1], &v[6], &v[11], &v[12], m[0], m[10])
	g(&v[2], &v[7], &v[8], &v[13], m[2], m[6])
	g(&v[3], &v[4], &v[9], &v[14], m[4], m[7])

	// Round 7.
	g(&v[0], &v[4], &v[8], &v[12], m[11], m[15])
	g(&v[1], &v[5], &v[9], &v[13], m[5], m[0])
	g(&v[2], &v[6], &v[10], &v[14], m[1], m[9])
	g(&v[3], &v[7], &v[11], &v[15], m[8], m[6])
	g(&v[0], &v[5], &v[10], &v[15], m[14], m[10])
	g(&v[1], &v[6], &v[11], &v[12], m[2], m[12])
	g(&v[2], &v[7], &v[8], &v[13], m[3], m[4])
	g(&v[3], &v[4], &v[9], &v[14], m[7], m[13])

	return [...]uint32{
		v[0] ^ v[8], v[1] ^ v[9], v[2] ^ v[10], v[3] ^ v[11],
		v[4] ^ v[12], v[5] ^ v[13], v[6] ^ v[14], v[7] ^ v[15],
		v[8] ^ h[0], v[9] ^ h[1], v[10] ^ h[2], v[11] ^ h[3],
		v[12] ^ h[4], v[13] ^ h[5], v[14] ^ h[6], v[15] ^ h[7],
	}
}

// truncate discards the upper half of the compression function's
// output, keeping only the chaining value. Bao never needs BLAKE3's
// extendable output beyond this single 32-byte value.
func truncate(in [16]uint32) (out [8]uint32) {
	copy(out[:], in[:])
	return
}

// compressCV runs compress() and returns just the resulting chaining
// value.
func compressCV(h [8]uint32, m [16]uint32, t uint64, b uint32, d uint32) [8]uint32 {
	return truncate(compress(&h, &m, t, b, d))
}

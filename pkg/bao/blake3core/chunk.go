package blake3core

import "crypto/subtle"

// CV is a 32-byte BLAKE3 chaining value: the output of both chunk
// compression and parent compression, and the value carried at every
// node of the Bao tree.
type CV = [32]byte

// ChunkCV computes the chaining value of a single chunk (1..1024 bytes,
// or the unique 0-byte chunk of an empty input), given its index in the
// overall tree and whether this chunk is also the root of the entire
// tree (true only when the whole input fits in one chunk).
func ChunkCV(data []byte, chunkIndex uint64, isRoot bool) CV {
	numBlocks := (len(data) + BlockLen - 1) / BlockLen
	if numBlocks == 0 {
		numBlocks = 1
	}
	h := iv
	for i := 0; i < numBlocks; i++ {
		start := i * BlockLen
		end := start + BlockLen
		if end > len(data) {
			end = len(data)
		}
		block := data[start:end]

		flags := uint32(0)
		if i == 0 {
			flags |= flagChunkStart
		}
		last := i == numBlocks-1
		if last {
			flags |= flagChunkEnd
			if isRoot {
				flags |= flagRoot
			}
		}

		m := loadBlock(block)
		h = compressCV(h, m, chunkIndex, uint32(len(block)), flags)
	}
	return CVToBytes(h)
}

// ParentCV computes the chaining value of a parent node from its two
// children's chaining values, left first.
func ParentCV(left, right CV, isRoot bool) CV {
	m := concatenateCVs(CVFromBytes(left), CVFromBytes(right))
	flags := flagParent
	if isRoot {
		flags |= flagRoot
	}
	h := compressCV(iv, m, 0, BlockLen, flags)
	return CVToBytes(h)
}

// Equal reports whether two chaining values are equal, comparing in
// constant time so that a verifier leaks no information about how many
// leading bytes of an attacker-supplied value matched.
func Equal(a, b CV) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Package tree implements the Bao tree geometry and the one-shot
// combined/outboard encoder (spec components C3 and C4).
package tree

import (
	"math/bits"

	"github.com/baoverify/bao3/pkg/bao/blake3core"
)

// ChunkLen is the number of content bytes covered by one leaf chunk.
const ChunkLen = blake3core.ChunkLen

// ParentNodeLen is the on-wire size of a parent node: two concatenated
// chaining values, left first.
const ParentNodeLen = 2 * blake3core.OutLen

// HeaderLen is the size of the little-endian u64 content-length header
// present at the start of every combined encoding, outboard encoding,
// and slice.
const HeaderLen = 8

// CountChunks returns the number of leaf chunks a content length of L
// bytes splits into. An empty input is defined to be one (0-byte)
// chunk.
func CountChunks(length int64) int64 {
	if length == 0 {
		return 1
	}
	return (length + ChunkLen - 1) / ChunkLen
}

// LeftChunks returns the number of chunks covered by the left subtree
// of a subtree containing n chunks, n > 1: the largest power of two
// strictly less than n. This is the chunk-count form of the
// byte-length LeftSubtreeLen rule in spec §3, and is what both the
// streaming encoder (which only has chunk counts, not byte lengths, at
// tree-build time) and the chunk-group variant (which splits group
// counts rather than byte lengths) actually need.
func LeftChunks(n int64) int64 {
	return int64(1) << (bits.Len64(uint64(n-1)) - 1)
}

// LeftSubtreeLen returns the byte length of the left subtree of a
// subtree of length bytes, where length > ChunkLen. It is always a
// positive multiple of ChunkLen, strictly less than length.
func LeftSubtreeLen(length int64) int64 {
	return LeftChunks(CountChunks(length)) * ChunkLen
}

// EncodedSize returns the size, in bytes, of the tree portion of a
// combined or outboard encoding of a length-byte input (excluding the
// 8-byte header): parent nodes are always exactly chunks-1 for any
// tree of one or more chunks, plus the raw chunk bytes themselves when
// not outboard.
func EncodedSize(length int64, outboard bool) int64 {
	size := (CountChunks(length) - 1) * ParentNodeLen
	if !outboard {
		size += length
	}
	return size
}

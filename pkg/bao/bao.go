// Package bao is the top-level facade over this module's Bao-tree
// components: one-call Hash/Encode/Decode convenience wrappers around
// pkg/bao/tree (Encode and DecodeAll), named and shaped the way the
// teacher's digest.Digest wraps its own BLAKE3ZCC hashing machinery
// (NewHasher/NewGenerator) behind a small, high-level entry point
// rather than requiring every caller to reach into the subpackages
// directly.
package bao

import (
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// Hash returns the BLAKE3 hash of content: the root chaining value of
// its Bao tree, which is bit-identical to content's ordinary BLAKE3
// hash for every input.
func Hash(content []byte) blake3core.CV {
	_, root, err := tree.Encode(content, true)
	if err != nil {
		// Encode over a fixed in-memory slice is infallible; see
		// tree.Encode.
		panic(err)
	}
	return root
}

// Encode returns the combined Bao encoding of content (header, tree,
// and chunk bytes interleaved in pre-order) and its root hash.
func Encode(content []byte) ([]byte, blake3core.CV, error) {
	return tree.Encode(content, false)
}

// EncodeOutboard returns the outboard Bao encoding of content (header
// and tree only, no chunk bytes) and its root hash.
func EncodeOutboard(content []byte) ([]byte, blake3core.CV, error) {
	return tree.Encode(content, true)
}

// Decode verifies a combined encoding against rootHash and returns the
// original content.
func Decode(encoded []byte, rootHash blake3core.CV, length int64) ([]byte, error) {
	return tree.DecodeAll(encoded, nil, rootHash, length, false)
}

// DecodeOutboard verifies an outboard encoding, paired with the
// separately-supplied content, against rootHash and returns the
// verified content.
func DecodeOutboard(outboardEncoded []byte, content []byte, rootHash blake3core.CV, length int64) ([]byte, error) {
	return tree.DecodeAll(outboardEncoded, content, rootHash, length, true)
}

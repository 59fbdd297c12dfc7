// Package stream implements the incremental Bao encoder and decoder
// (spec components C5 and C6): bounded-memory construction and
// verification of combined/outboard encodings from data delivered in
// arbitrarily-sized writes.
package stream

import (
	"encoding/binary"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// leaf is a completed, non-final chunk: its chaining value, and (for
// combined encodings only) a private copy of its bytes.
type leaf struct {
	cv    blake3core.CV
	bytes []byte
}

// Result is the output of a successful Encoder.Finalize call.
type Result struct {
	Encoded []byte
	Hash    blake3core.CV
}

// Encoder accepts content through repeated Write calls and produces a
// combined or outboard encoding (plus the root hash) on Finalize.
// Finalize is idempotent: the input side is closed after the first
// call, and subsequent calls replay the cached result.
//
// Memory use is bounded: outboard mode only retains one chaining value
// per completed chunk (O(length/1024 * 32) bytes); combined mode must
// additionally retain the chunk bytes themselves, since they cannot be
// emitted in tree order until the final tree shape is known.
type Encoder struct {
	outboard  bool
	pending   []byte
	leaves    []leaf
	finalized bool
	result    *Result
}

// NewEncoder creates an Encoder that is open for writes.
func NewEncoder(outboard bool) *Encoder {
	return &Encoder{outboard: outboard}
}

// Write appends bytes to the encoder's pending input. Whenever more
// than one full chunk is buffered, completed chunks are extracted
// eagerly and reduced to their chaining value (plus bytes, if
// combined).
func (e *Encoder) Write(p []byte) (int, error) {
	if e.finalized {
		return 0, baoerr.StateViolation("encoder is already finalized")
	}
	n := len(p)
	e.pending = append(e.pending, p...)
	for len(e.pending) > tree.ChunkLen {
		chunk := e.pending[:tree.ChunkLen]
		l := leaf{cv: blake3core.ChunkCV(chunk, uint64(len(e.leaves)), false)}
		if !e.outboard {
			l.bytes = append([]byte(nil), chunk...)
		}
		e.leaves = append(e.leaves, l)
		e.pending = append([]byte(nil), e.pending[tree.ChunkLen:]...)
	}
	return n, nil
}

// Finalize treats whatever remains pending as the final chunk, builds
// the tree over all accumulated leaves using the same left-balanced
// geometry as the one-shot encoder, and returns the encoding and root
// hash. Calling Finalize again returns the same cached result.
func (e *Encoder) Finalize() (*Result, error) {
	if e.finalized {
		return e.result, nil
	}

	var encoded []byte
	var root blake3core.CV
	if len(e.leaves) == 0 {
		// The pending bytes (0..1024 of them) are the entire
		// content: a single chunk that is also the tree's root.
		root = blake3core.ChunkCV(e.pending, 0, true)
		length := int64(len(e.pending))
		encoded = make([]byte, tree.HeaderLen+tree.EncodedSize(length, e.outboard))
		binary.LittleEndian.PutUint64(encoded[:tree.HeaderLen], uint64(length))
		if !e.outboard {
			copy(encoded[tree.HeaderLen:], e.pending)
		}
	} else {
		final := leaf{cv: blake3core.ChunkCV(e.pending, uint64(len(e.leaves)), false)}
		if !e.outboard {
			final.bytes = e.pending
		}
		leaves := append(e.leaves, final)

		totalLen := int64(len(leaves)-1)*tree.ChunkLen + int64(len(e.pending))
		encoded = make([]byte, tree.HeaderLen+tree.EncodedSize(totalLen, e.outboard))
		binary.LittleEndian.PutUint64(encoded[:tree.HeaderLen], uint64(totalLen))

		w := &buildWriter{buf: encoded, cursor: tree.HeaderLen}
		root = w.build(leaves, e.outboard, true)
	}

	e.result = &Result{Encoded: encoded, Hash: root}
	e.finalized = true
	e.leaves = nil
	e.pending = nil
	return e.result, nil
}

// buildWriter threads the output cursor through the pre-order tree
// build the same way tree.writer does for the one-shot encoder; the
// only difference is that the leaves here are already-hashed chunks
// rather than raw bytes.
type buildWriter struct {
	buf    []byte
	cursor int
}

// build computes the chaining value of the subtree covering leaves,
// writing its parent nodes (and, if combined, its chunk bytes) to buf
// in pre-order. Every interior node is computed exactly once.
func (w *buildWriter) build(leaves []leaf, outboard bool, isRoot bool) blake3core.CV {
	if len(leaves) == 1 {
		if !outboard {
			copy(w.buf[w.cursor:], leaves[0].bytes)
			w.cursor += len(leaves[0].bytes)
		}
		return leaves[0].cv
	}

	parentPos := w.cursor
	w.cursor += tree.ParentNodeLen
	lc := tree.LeftChunks(int64(len(leaves)))
	leftCV := w.build(leaves[:lc], outboard, false)
	rightCV := w.build(leaves[lc:], outboard, false)
	copy(w.buf[parentPos:parentPos+blake3core.OutLen], leftCV[:])
	copy(w.buf[parentPos+blake3core.OutLen:parentPos+tree.ParentNodeLen], rightCV[:])
	return blake3core.ParentCV(leftCV, rightCV, isRoot)
}

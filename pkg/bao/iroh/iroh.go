// Package iroh implements the chunk-group tree variant (spec component
// C9): an outer Merkle tree whose leaves are the Bao subtree roots of
// fixed-size groups of chunks, rather than individual chunks. Grouping
// trades verification granularity for a smaller outboard (roughly
// original/2^g parent nodes instead of original/1). The root hash is
// unchanged: a group's CV is, by construction, the ordinary Bao subtree
// CV of the chunks it covers.
package iroh

import (
	"encoding/binary"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// GroupSize returns the number of content bytes covered by one group
// under grouping parameter g: 1024 * 2^g.
func GroupSize(g uint) int64 {
	return tree.ChunkLen << g
}

// NumGroups returns the number of groups a content length of L bytes
// splits into under grouping parameter g. An empty input is one group,
// matching CountChunks' treatment of the empty chunk.
func NumGroups(length int64, g uint) int64 {
	if length == 0 {
		return 1
	}
	size := GroupSize(g)
	return (length + size - 1) / size
}

// groupWriter threads an output cursor through the recursive
// outer-tree build, mirroring tree.writer.
type groupWriter struct {
	buf    []byte
	cursor int
}

// GroupCV computes the Bao subtree root of the chunks covered by one
// group: exactly what the one-shot encoder (C4) would compute for that
// subtree of chunks, with isRoot attached only when the group is itself
// the whole tree.
func GroupCV(groupBytes []byte, firstChunkIndex uint64, isRoot bool) blake3core.CV {
	return groupSubtreeCV(groupBytes, firstChunkIndex, isRoot)
}

// groupSubtreeCV recurses over groupBytes using the ordinary left-balanced
// chunk split, threading firstChunkIndex forward so chunk counters are
// correct regardless of where this group sits in the overall content.
func groupSubtreeCV(data []byte, firstChunkIndex uint64, isRoot bool) blake3core.CV {
	if int64(len(data)) <= tree.ChunkLen {
		return blake3core.ChunkCV(data, firstChunkIndex, isRoot)
	}
	l := tree.LeftSubtreeLen(int64(len(data)))
	left := groupSubtreeCV(data[:l], firstChunkIndex, false)
	right := groupSubtreeCV(data[l:], firstChunkIndex+uint64(l/tree.ChunkLen), false)
	return blake3core.ParentCV(left, right, isRoot)
}

// buildOuter computes the chaining value of the outer tree covering
// the groups whose already-computed CVs are cvs, writing the outer
// tree's parent nodes to buf in pre-order. isRoot applies only to the
// single call covering every group.
func (w *groupWriter) buildOuter(cvs []blake3core.CV, isRoot bool) blake3core.CV {
	if len(cvs) == 1 {
		return cvs[0]
	}
	parentPos := w.cursor
	w.cursor += tree.ParentNodeLen
	lc := tree.LeftChunks(int64(len(cvs)))
	leftCV := w.buildOuter(cvs[:lc], false)
	rightCV := w.buildOuter(cvs[lc:], false)
	copy(w.buf[parentPos:parentPos+blake3core.OutLen], leftCV[:])
	copy(w.buf[parentPos+blake3core.OutLen:parentPos+tree.ParentNodeLen], rightCV[:])
	return blake3core.ParentCV(leftCV, rightCV, isRoot)
}

// groupCVs computes one CV per group of content.
func groupCVs(content []byte, g uint) []blake3core.CV {
	size := GroupSize(g)
	n := NumGroups(int64(len(content)), g)
	cvs := make([]blake3core.CV, n)
	for i := int64(0); i < n; i++ {
		start := i * size
		end := start + size
		if end > int64(len(content)) {
			end = int64(len(content))
		}
		firstChunk := uint64(start / tree.ChunkLen)
		cvs[i] = groupSubtreeCV(content[start:end], firstChunk, n == 1)
	}
	return cvs
}

// EncodeOutboard produces an Iroh-compatible outboard encoding of
// content under grouping parameter g: a length header followed by the
// outer tree's parent nodes in pre-order, omitting every group leaf's
// bytes. The returned root hash is identical to the ordinary Bao root
// of the same content.
func EncodeOutboard(content []byte, g uint) ([]byte, blake3core.CV, error) {
	n := NumGroups(int64(len(content)), g)
	cvs := groupCVs(content, g)

	var root blake3core.CV
	outboardSize := (n - 1) * tree.ParentNodeLen
	out := make([]byte, tree.HeaderLen+outboardSize)
	binary.LittleEndian.PutUint64(out[:tree.HeaderLen], uint64(len(content)))

	if n == 1 {
		root = cvs[0]
	} else {
		w := &groupWriter{buf: out[tree.HeaderLen:], cursor: 0}
		root = w.buildOuter(cvs, true)
	}
	return out, root, nil
}

// VerifyOutboard recomputes every group's CV from content and walks the
// outer tree recorded in outboard, verifying each parent node against
// its expected chaining value (starting at the root) down to the
// group leaves, which must match the recomputed group CVs. It returns
// nil only if every check passes and the outer root equals
// expectedRoot.
func VerifyOutboard(outboard []byte, content []byte, expectedRoot blake3core.CV, g uint) error {
	if len(outboard) < tree.HeaderLen {
		return baoerr.Malformed("iroh outboard is shorter than the length header")
	}
	declared := int64(binary.LittleEndian.Uint64(outboard[:tree.HeaderLen]))
	if declared != int64(len(content)) {
		return baoerr.Malformed("iroh outboard declares length %d, content is %d bytes", declared, len(content))
	}

	n := NumGroups(declared, g)
	cvs := groupCVs(content, g)

	if n == 1 {
		if !blake3core.Equal(cvs[0], expectedRoot) {
			return baoerr.VerificationFailed("single-group content failed root verification")
		}
		return nil
	}

	v := &outerVerifier{src: outboard[tree.HeaderLen:]}
	return v.walk(cvs, expectedRoot, true)
}

type outerVerifier struct {
	src    []byte
	cursor int
}

func (v *outerVerifier) walk(cvs []blake3core.CV, expected blake3core.CV, isRoot bool) error {
	if len(cvs) == 1 {
		if !blake3core.Equal(cvs[0], expected) {
			return baoerr.VerificationFailed("group leaf failed verification")
		}
		return nil
	}

	if len(v.src)-v.cursor < tree.ParentNodeLen {
		return baoerr.Malformed("iroh outboard truncated while reading a parent node")
	}
	var left, right blake3core.CV
	copy(left[:], v.src[v.cursor:v.cursor+blake3core.OutLen])
	copy(right[:], v.src[v.cursor+blake3core.OutLen:v.cursor+tree.ParentNodeLen])
	v.cursor += tree.ParentNodeLen

	pcv := blake3core.ParentCV(left, right, isRoot)
	if !blake3core.Equal(pcv, expected) {
		return baoerr.VerificationFailed("outer parent node failed verification")
	}

	lc := tree.LeftChunks(int64(len(cvs)))
	if err := v.walk(cvs[:lc], left, false); err != nil {
		return err
	}
	return v.walk(cvs[lc:], right, false)
}

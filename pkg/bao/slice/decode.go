package slice

import (
	"encoding/binary"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// sliceDecoder walks the logical tree against a slice's byte stream,
// verifying every parent and chunk it encounters and emitting only the
// intersection of each chunk with the requested range.
//
// A leaf's chunk index is always start/ChunkLen: every left-balanced
// split produces subtree boundaries at multiples of ChunkLen, so a
// leaf's global chunk index can be recovered directly from its start
// offset without threading a running counter through skipped subtrees.
type sliceDecoder struct {
	src        []byte
	cursor     int
	start, end int64
	out        []byte
}

func (d *sliceDecoder) walk(s, n int64, expected blake3core.CV, isRoot bool) error {
	if n > 0 && s+n <= d.start {
		return nil
	}
	if n > 0 && d.end <= s {
		return nil
	}

	if n <= tree.ChunkLen {
		if int64(len(d.src)-d.cursor) < n {
			return baoerr.Malformed("slice truncated while reading chunk at offset %d", s)
		}
		chunkBytes := d.src[d.cursor : int64(d.cursor)+n]
		d.cursor += int(n)

		chunkIndex := uint64(s / tree.ChunkLen)
		cv := blake3core.ChunkCV(chunkBytes, chunkIndex, isRoot)
		if !blake3core.Equal(cv, expected) {
			return baoerr.VerificationFailed("chunk at offset %d failed verification", s)
		}

		lo, hi := maxInt64(s, d.start), minInt64(s+n, d.end)
		if hi > lo {
			d.out = append(d.out, chunkBytes[lo-s:hi-s]...)
		}
		return nil
	}

	if len(d.src)-d.cursor < tree.ParentNodeLen {
		return baoerr.Malformed("slice truncated while reading parent node at offset %d", s)
	}
	var left, right blake3core.CV
	copy(left[:], d.src[d.cursor:d.cursor+blake3core.OutLen])
	copy(right[:], d.src[d.cursor+blake3core.OutLen:d.cursor+tree.ParentNodeLen])
	d.cursor += tree.ParentNodeLen

	pcv := blake3core.ParentCV(left, right, isRoot)
	if !blake3core.Equal(pcv, expected) {
		return baoerr.VerificationFailed("parent node at offset %d failed verification", s)
	}

	l := tree.LeftSubtreeLen(n)
	if err := d.walk(s, l, left, false); err != nil {
		return err
	}
	return d.walk(s+l, n-l, right, false)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// DecodeSlice verifies a slice produced by Extract against rootHash
// and returns the bytes of [start, start+length) after the same
// normalization Extract itself applies.
func DecodeSlice(sliceBytes []byte, rootHash blake3core.CV, start, length int64) ([]byte, error) {
	if len(sliceBytes) < tree.HeaderLen {
		return nil, baoerr.Malformed("slice is shorter than the length header")
	}
	total := int64(binary.LittleEndian.Uint64(sliceBytes[:tree.HeaderLen]))
	nstart, nend := normalize(start, length, total)

	d := &sliceDecoder{src: sliceBytes[tree.HeaderLen:], start: nstart, end: nend}
	if err := d.walk(0, total, rootHash, true); err != nil {
		return nil, err
	}
	return d.out, nil
}

// Package slice implements extraction and verification of minimal
// range slices of a Bao-encoded stream (spec components C7 and C8).
package slice

import (
	"encoding/binary"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// normalize applies the range-normalization rule from spec §4.7: an
// empty requested length becomes 1 byte, and a start at or past the
// end of the content clamps to the final byte. This guarantees the
// rightmost path of the tree is always traversed, so a receiver can
// always verify it.
func normalize(start, length, total int64) (int64, int64) {
	if length == 0 {
		length = 1
	}
	if start >= total {
		start = total - 1
		if start < 0 {
			start = 0
		}
		return start, start + 1
	}
	end := start + length
	if end > total {
		end = total
	}
	return start, end
}

// extractor walks the tree described by a combined or outboard
// encoding, copying only the subtrees that overlap the normalized
// range into a new combined-format slice.
type extractor struct {
	src             []byte
	srcCursor       int
	outboard        bool
	outboardContent []byte
	outboardCursor  int64
	start, end      int64
	out             []byte
}

func (x *extractor) skip(n int64) {
	x.srcCursor += int(tree.EncodedSize(n, x.outboard))
	if x.outboard {
		x.outboardCursor += n
	}
}

func (x *extractor) walk(s, n int64) {
	if n > 0 && s+n <= x.start {
		x.skip(n)
		return
	}
	if n > 0 && x.end <= s {
		return
	}

	if n <= tree.ChunkLen {
		var chunkBytes []byte
		if x.outboard {
			chunkBytes = x.outboardContent[x.outboardCursor : x.outboardCursor+n]
			x.outboardCursor += n
		} else {
			chunkBytes = x.src[x.srcCursor : int64(x.srcCursor)+n]
			x.srcCursor += int(n)
		}
		x.out = append(x.out, chunkBytes...)
		return
	}

	parent := x.src[x.srcCursor : x.srcCursor+tree.ParentNodeLen]
	x.out = append(x.out, parent...)
	x.srcCursor += tree.ParentNodeLen

	l := tree.LeftSubtreeLen(n)
	x.walk(s, l)
	x.walk(s+l, n-l)
}

// Extract produces a minimal combined-format slice encoding covering
// [start, start+length) of the content described by encoded (a
// combined encoding when outboard is false, otherwise an outboard
// encoding whose content is supplied separately as outboardContent).
func Extract(encoded []byte, outboardContent []byte, outboard bool, start, length int64) ([]byte, error) {
	if len(encoded) < tree.HeaderLen {
		return nil, baoerr.Malformed("encoded input is shorter than the length header")
	}
	total := int64(binary.LittleEndian.Uint64(encoded[:tree.HeaderLen]))
	if outboard && int64(len(outboardContent)) != total {
		return nil, baoerr.Malformed("outboard content is %d bytes, expected %d", len(outboardContent), total)
	}

	nstart, nend := normalize(start, length, total)
	x := &extractor{
		src:             encoded[tree.HeaderLen:],
		outboard:        outboard,
		outboardContent: outboardContent,
		start:           nstart,
		end:             nend,
	}
	x.out = make([]byte, tree.HeaderLen, tree.HeaderLen+64)
	binary.LittleEndian.PutUint64(x.out, uint64(total))
	x.walk(0, total)
	return x.out, nil
}

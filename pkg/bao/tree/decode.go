package tree

import (
	"encoding/binary"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
)

// reader mirrors writer: an explicit mutable cursor over encoded
// input, threaded through the decode recursion rather than closed over.
type reader struct {
	src             []byte
	cursor          int
	outboard        bool
	outboardContent []byte
	outboardCursor  int64
	out             []byte
}

// DecodeAll verifies a full combined or outboard encoding against
// rootHash in one call and returns the original content, for callers
// who already hold the whole encoding (and, in outboard mode, the
// whole content) in memory. It is the one-shot counterpart to Encode,
// built directly on blake3core the same way Encode is, rather than
// driving pkg/bao/stream's incremental Decoder (which depends on this
// package for its geometry helpers; reusing it here would make the two
// packages import each other).
func DecodeAll(encoded []byte, outboardContent []byte, rootHash blake3core.CV, length int64, outboard bool) ([]byte, error) {
	if len(encoded) < HeaderLen {
		return nil, baoerr.Malformed("encoded input is shorter than the length header")
	}
	declared := int64(binary.LittleEndian.Uint64(encoded[:HeaderLen]))
	if declared != length {
		return nil, baoerr.Malformed("encoding declares length %d, expected %d", declared, length)
	}
	if outboard && int64(len(outboardContent)) != length {
		return nil, baoerr.Malformed("outboard content is %d bytes, expected %d", len(outboardContent), length)
	}

	r := &reader{
		src:             encoded[HeaderLen:],
		outboard:        outboard,
		outboardContent: outboardContent,
		out:             make([]byte, 0, length),
	}
	if err := r.decodeSubtree(length, rootHash, true); err != nil {
		return nil, err
	}
	return r.out, nil
}

func (r *reader) decodeSubtree(n int64, expected blake3core.CV, isRoot bool) error {
	if n <= ChunkLen {
		var chunkBytes []byte
		if r.outboard {
			if int64(len(r.outboardContent))-r.outboardCursor < n {
				return baoerr.Malformed("outboard content is shorter than the declared length")
			}
			chunkBytes = r.outboardContent[r.outboardCursor : r.outboardCursor+n]
			r.outboardCursor += n
		} else {
			if int64(len(r.src)-r.cursor) < n {
				return baoerr.Malformed("encoding truncated while reading a chunk")
			}
			chunkBytes = r.src[r.cursor : int64(r.cursor)+n]
			r.cursor += int(n)
		}

		chunkIndex := uint64(len(r.out)) / uint64(ChunkLen)
		cv := blake3core.ChunkCV(chunkBytes, chunkIndex, isRoot)
		if !blake3core.Equal(cv, expected) {
			return baoerr.VerificationFailed("chunk %d failed verification", chunkIndex)
		}
		r.out = append(r.out, chunkBytes...)
		return nil
	}

	if len(r.src)-r.cursor < ParentNodeLen {
		return baoerr.Malformed("encoding truncated while reading a parent node")
	}
	var left, right blake3core.CV
	copy(left[:], r.src[r.cursor:r.cursor+blake3core.OutLen])
	copy(right[:], r.src[r.cursor+blake3core.OutLen:r.cursor+ParentNodeLen])
	r.cursor += ParentNodeLen

	pcv := blake3core.ParentCV(left, right, isRoot)
	if !blake3core.Equal(pcv, expected) {
		return baoerr.VerificationFailed("parent node failed verification")
	}

	l := LeftSubtreeLen(n)
	if err := r.decodeSubtree(l, left, false); err != nil {
		return err
	}
	return r.decodeSubtree(n-l, right, false)
}

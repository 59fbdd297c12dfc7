package tree

import (
	"encoding/binary"

	"github.com/baoverify/bao3/pkg/bao/blake3core"
)

// writer tracks the explicit mutable state threaded through the
// pre-order recursion: the output cursor and the running chunk
// counter. Using an owned record here (rather than closures capturing
// shared variables, as the original BLAKE3/Bao sources do) is the
// systems-language equivalent called for by the design notes in spec
// §9.
type writer struct {
	buf     []byte
	cursor  int
	counter uint64
}

func (w *writer) reserve(n int) int {
	pos := w.cursor
	w.cursor += n
	return pos
}

// Encode builds the full Bao tree for content in one pass and returns
// its pre-order combined or outboard encoding together with the root
// hash. This is spec component C4.
func Encode(content []byte, outboard bool) ([]byte, blake3core.CV, error) {
	length := int64(len(content))
	out := make([]byte, HeaderLen+EncodedSize(length, outboard))
	binary.LittleEndian.PutUint64(out[:HeaderLen], uint64(length))

	w := &writer{buf: out, cursor: HeaderLen}
	root := w.encodeSubtree(content, true, outboard)
	return out, root, nil
}

// encodeSubtree recursively encodes the subtree covering data,
// returning its chaining value. isRoot is true only for the single
// top-level call whose subtree is the entire content.
func (w *writer) encodeSubtree(data []byte, isRoot bool, outboard bool) blake3core.CV {
	if int64(len(data)) <= ChunkLen {
		cv := blake3core.ChunkCV(data, w.counter, isRoot)
		w.counter++
		if !outboard {
			copy(w.buf[w.cursor:], data)
			w.cursor += len(data)
		}
		return cv
	}

	parentPos := w.reserve(ParentNodeLen)
	l := LeftSubtreeLen(int64(len(data)))
	leftCV := w.encodeSubtree(data[:l], false, outboard)
	rightCV := w.encodeSubtree(data[l:], false, outboard)
	copy(w.buf[parentPos:parentPos+blake3core.OutLen], leftCV[:])
	copy(w.buf[parentPos+blake3core.OutLen:parentPos+ParentNodeLen], rightCV[:])
	return blake3core.ParentCV(leftCV, rightCV, isRoot)
}

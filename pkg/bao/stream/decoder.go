package stream

import (
	"encoding/binary"
	"io"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// frame is one entry of the decoder's explicit verification stack: the
// chaining value a not-yet-verified subtree is expected to produce,
// the byte range it covers, and whether it is the tree's root.
type frame struct {
	expectedCV blake3core.CV
	start      int64
	length     int64
	isRoot     bool
}

// Decoder parses an encoded stream (combined, or outboard when paired
// with SetOutboardData) against an expected root hash and length,
// emitting verified bytes as they become available. A verification
// failure latches the decoder into a permanent error state: every
// subsequent call returns the same error.
type Decoder struct {
	outboard bool
	length   int64
	rootHash blake3core.CV

	headerConsumed bool
	input          []byte

	outboardContent []byte
	outboardCursor  int64

	stack        []frame
	chunkCounter uint64

	output  []byte
	emitted int64

	err error
}

// NewDecoder creates a Decoder that verifies incoming bytes against
// rootHash for content of the given length. length must be
// non-negative.
func NewDecoder(rootHash blake3core.CV, length int64, outboard bool) (*Decoder, error) {
	if length < 0 {
		return nil, baoerr.InvalidArgument("content length must be non-negative, got %d", length)
	}
	return &Decoder{
		outboard: outboard,
		length:   length,
		rootHash: rootHash,
		stack:    []frame{{expectedCV: rootHash, start: 0, length: length, isRoot: true}},
	}, nil
}

// SetOutboardData supplies the original content for an outboard
// decode. Its length must equal the length passed to NewDecoder.
func (d *Decoder) SetOutboardData(content []byte) error {
	if !d.outboard {
		return baoerr.InvalidArgument("decoder was not constructed in outboard mode")
	}
	if int64(len(content)) != d.length {
		return baoerr.Malformed("outboard content is %d bytes, expected %d", len(content), d.length)
	}
	d.outboardContent = content
	return nil
}

// Write appends encoded bytes and advances the verification stack as
// far as the buffered input allows.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n := len(p)
	d.input = append(d.input, p...)

	if !d.headerConsumed {
		if len(d.input) < tree.HeaderLen {
			return n, nil
		}
		declared := binary.LittleEndian.Uint64(d.input[:tree.HeaderLen])
		if int64(declared) != d.length {
			d.err = baoerr.Malformed("encoding declares length %d, expected %d", declared, d.length)
			return n, d.err
		}
		d.input = d.input[tree.HeaderLen:]
		d.headerConsumed = true
	}

	if err := d.process(); err != nil {
		d.err = err
		return n, err
	}
	return n, nil
}

// process advances the verification stack until it is empty or the
// buffered input (or, for outboard mode, the supplied content) is
// insufficient to make further progress.
func (d *Decoder) process() error {
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]

		if top.length <= tree.ChunkLen {
			var chunkBytes []byte
			if d.outboard {
				if d.outboardContent == nil {
					return baoerr.StateViolation("outboard content has not been supplied")
				}
				end := d.outboardCursor + top.length
				if end > int64(len(d.outboardContent)) {
					return baoerr.Malformed("outboard content is shorter than the declared length")
				}
				chunkBytes = d.outboardContent[d.outboardCursor:end]
			} else {
				if int64(len(d.input)) < top.length {
					return nil
				}
				chunkBytes = d.input[:top.length]
			}

			cv := blake3core.ChunkCV(chunkBytes, d.chunkCounter, top.isRoot)
			if !blake3core.Equal(cv, top.expectedCV) {
				return baoerr.VerificationFailed("chunk %d failed verification", d.chunkCounter)
			}

			d.output = append(d.output, chunkBytes...)
			d.emitted += int64(len(chunkBytes))
			d.chunkCounter++
			if d.outboard {
				d.outboardCursor += top.length
			} else {
				d.input = d.input[top.length:]
			}
			d.stack = d.stack[:len(d.stack)-1]
			continue
		}

		if int64(len(d.input)) < tree.ParentNodeLen {
			return nil
		}
		var left, right blake3core.CV
		copy(left[:], d.input[:blake3core.OutLen])
		copy(right[:], d.input[blake3core.OutLen:tree.ParentNodeLen])
		d.input = d.input[tree.ParentNodeLen:]

		pcv := blake3core.ParentCV(left, right, top.isRoot)
		if !blake3core.Equal(pcv, top.expectedCV) {
			return baoerr.VerificationFailed("parent node covering [%d, %d) failed verification", top.start, top.start+top.length)
		}

		l := tree.LeftSubtreeLen(top.length)
		d.stack = d.stack[:len(d.stack)-1]
		d.stack = append(d.stack, frame{expectedCV: right, start: top.start + l, length: top.length - l, isRoot: false})
		d.stack = append(d.stack, frame{expectedCV: left, start: top.start, length: l, isRoot: false})
	}
	return nil
}

// IsComplete reports whether the entire content has been verified and
// emitted.
func (d *Decoder) IsComplete() bool {
	return d.err == nil && len(d.stack) == 0 && d.emitted == d.length
}

// Err returns the latched verification or parsing error, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Read drains verified bytes that are ready for consumption, in the
// style of an io.Reader. It returns io.EOF once the decoder is
// complete and no bytes remain buffered.
func (d *Decoder) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n := copy(p, d.output)
	d.output = d.output[n:]
	if n == 0 && d.IsComplete() {
		return 0, io.EOF
	}
	return n, nil
}

// Finalize requires that decoding has completed and returns all
// verified bytes that have not yet been consumed via Read.
func (d *Decoder) Finalize() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if !d.IsComplete() {
		return nil, baoerr.StateViolation("decoder has not received a complete, verified encoding")
	}
	out := d.output
	d.output = nil
	return out, nil
}

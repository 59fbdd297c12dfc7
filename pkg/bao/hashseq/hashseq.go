// Package hashseq implements HashSequence (spec component C11): an
// ordered, order-sensitive list of 32-byte BLAKE3 chaining values with
// its own BLAKE3-hashed binary serialization. It is orthogonal to the
// rest of the Bao tree machinery — a flat collection type, grounded
// the same way the teacher's digest.Digest treats its value as an
// opaque, validated unit rather than exposing its internal string
// representation directly to callers.
package hashseq

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/tree"
)

// HashSequence is a finite, order-sensitive list of 32-byte chaining
// values. Duplicates and an empty sequence are both permitted. Not
// safe for concurrent use.
type HashSequence struct {
	hashes []blake3core.CV
}

// New creates an empty HashSequence.
func New() *HashSequence {
	return &HashSequence{}
}

// FromHashes creates a HashSequence holding a copy of hashes, in
// order.
func FromHashes(hashes []blake3core.CV) *HashSequence {
	hs := &HashSequence{hashes: make([]blake3core.CV, len(hashes))}
	copy(hs.hashes, hashes)
	return hs
}

// Len returns the number of hashes in the sequence.
func (hs *HashSequence) Len() int {
	return len(hs.hashes)
}

// Add appends h to the end of the sequence.
func (hs *HashSequence) Add(h blake3core.CV) {
	hs.hashes = append(hs.hashes, h)
}

// Get returns the hash at index i.
func (hs *HashSequence) Get(i int) (blake3core.CV, error) {
	if i < 0 || i >= len(hs.hashes) {
		return blake3core.CV{}, baoerr.Precondition("hash-sequence index %d out of range [0, %d)", i, len(hs.hashes))
	}
	return hs.hashes[i], nil
}

// Has reports whether h appears anywhere in the sequence.
func (hs *HashSequence) Has(h blake3core.CV) bool {
	return hs.IndexOf(h) >= 0
}

// IndexOf returns the index of the first occurrence of h, or -1 if h
// is not present.
func (hs *HashSequence) IndexOf(h blake3core.CV) int {
	for i, v := range hs.hashes {
		if blake3core.Equal(v, h) {
			return i
		}
	}
	return -1
}

// RemoveAt deletes the hash at index i, shifting subsequent hashes
// down by one.
func (hs *HashSequence) RemoveAt(i int) error {
	if i < 0 || i >= len(hs.hashes) {
		return baoerr.Precondition("hash-sequence index %d out of range [0, %d)", i, len(hs.hashes))
	}
	hs.hashes = append(hs.hashes[:i], hs.hashes[i+1:]...)
	return nil
}

// InsertAt inserts h at index i, shifting the hash currently at i (and
// everything after it) up by one. i == Len() is valid and appends.
func (hs *HashSequence) InsertAt(i int, h blake3core.CV) error {
	if i < 0 || i > len(hs.hashes) {
		return baoerr.Precondition("hash-sequence insertion index %d out of range [0, %d]", i, len(hs.hashes))
	}
	hs.hashes = append(hs.hashes, blake3core.CV{})
	copy(hs.hashes[i+1:], hs.hashes[i:])
	hs.hashes[i] = h
	return nil
}

// Clear empties the sequence.
func (hs *HashSequence) Clear() {
	hs.hashes = nil
}

// Slice returns a new HashSequence holding a copy of hs[start:end].
func (hs *HashSequence) Slice(start, end int) (*HashSequence, error) {
	if start < 0 || end < start || end > len(hs.hashes) {
		return nil, baoerr.Precondition("hash-sequence slice [%d:%d] out of range for length %d", start, end, len(hs.hashes))
	}
	return FromHashes(hs.hashes[start:end]), nil
}

// Concat returns a new HashSequence holding hs's hashes followed by
// other's.
func (hs *HashSequence) Concat(other *HashSequence) *HashSequence {
	out := &HashSequence{hashes: make([]blake3core.CV, 0, len(hs.hashes)+len(other.hashes))}
	out.hashes = append(out.hashes, hs.hashes...)
	out.hashes = append(out.hashes, other.hashes...)
	return out
}

// ForEach calls fn with a copy of every hash in order. Mutating the
// value fn receives cannot affect the sequence's internal state.
func (hs *HashSequence) ForEach(fn func(i int, h blake3core.CV)) {
	for i, h := range hs.hashes {
		fn(i, h)
	}
}

// Equal reports whether hs and other hold the same hashes in the same
// order, comparing every pair in constant time.
func (hs *HashSequence) Equal(other *HashSequence) bool {
	if len(hs.hashes) != len(other.hashes) {
		return false
	}
	ok := true
	for i := range hs.hashes {
		if !blake3core.Equal(hs.hashes[i], other.hashes[i]) {
			ok = false
		}
	}
	return ok
}

// ToBytes serializes the sequence as a 4-byte little-endian count
// followed by the concatenated hashes.
func (hs *HashSequence) ToBytes() []byte {
	out := make([]byte, 4+len(hs.hashes)*blake3core.OutLen)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(hs.hashes)))
	for i, h := range hs.hashes {
		copy(out[4+i*blake3core.OutLen:], h[:])
	}
	return out
}

// FromBytes parses a sequence produced by ToBytes, requiring the
// declared count to exactly match the remaining byte length.
func FromBytes(data []byte) (*HashSequence, error) {
	if len(data) < 4 {
		return nil, baoerr.Malformed("hash-sequence encoding is shorter than its 4-byte count header")
	}
	count := binary.LittleEndian.Uint32(data[:4])
	rest := data[4:]
	if uint64(len(rest)) != uint64(count)*uint64(blake3core.OutLen) {
		return nil, baoerr.Malformed("hash-sequence declares %d hashes but carries %d bytes", count, len(rest))
	}
	hashes := make([]blake3core.CV, count)
	for i := range hashes {
		copy(hashes[i][:], rest[i*blake3core.OutLen:])
	}
	return &HashSequence{hashes: hashes}, nil
}

// Finalize returns the BLAKE3 hash of the sequence's ToBytes encoding:
// its "collection hash".
func (hs *HashSequence) Finalize() blake3core.CV {
	return hashBytes(hs.ToBytes())
}

// jsonHashSequence is the wire shape for MarshalJSON/UnmarshalJSON: an
// array of 64-character lowercase hex strings.
type jsonHashSequence []string

// MarshalJSON implements json.Marshaler, rendering the sequence as a
// JSON array of 64-char hex strings.
func (hs *HashSequence) MarshalJSON() ([]byte, error) {
	out := make(jsonHashSequence, len(hs.hashes))
	for i, h := range hs.hashes {
		out[i] = hex.EncodeToString(h[:])
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (hs *HashSequence) UnmarshalJSON(data []byte) error {
	var in jsonHashSequence
	if err := json.Unmarshal(data, &in); err != nil {
		return baoerr.Malformed("hash-sequence JSON is not an array of strings: %v", err)
	}
	hashes := make([]blake3core.CV, len(in))
	for i, s := range in {
		if len(s) != 2*blake3core.OutLen {
			return baoerr.Malformed("hash-sequence element %d is %d hex chars, expected %d", i, len(s), 2*blake3core.OutLen)
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return baoerr.Malformed("hash-sequence element %d is not valid hex: %v", i, err)
		}
		copy(hashes[i][:], b)
	}
	hs.hashes = hashes
	return nil
}

// ToJSON returns the MarshalJSON encoding directly.
func (hs *HashSequence) ToJSON() ([]byte, error) {
	return hs.MarshalJSON()
}

// FromJSON parses the UnmarshalJSON encoding directly.
func FromJSON(data []byte) (*HashSequence, error) {
	hs := &HashSequence{}
	if err := hs.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return hs, nil
}

// hashBytes computes the ordinary BLAKE3 hash of data: the root of the
// same left-balanced Bao tree tree.Encode builds, computed here without
// materializing an encoding since HashSequence.Finalize only needs the
// root CV over its own compact ToBytes() representation.
func hashBytes(data []byte) blake3core.CV {
	return rootCV(data, 0, true)
}

func rootCV(data []byte, firstChunkIndex uint64, isRoot bool) blake3core.CV {
	if int64(len(data)) <= tree.ChunkLen {
		return blake3core.ChunkCV(data, firstChunkIndex, isRoot)
	}
	l := tree.LeftSubtreeLen(int64(len(data)))
	left := rootCV(data[:l], firstChunkIndex, false)
	right := rootCV(data[l:], firstChunkIndex+uint64(l)/tree.ChunkLen, false)
	return blake3core.ParentCV(left, right, isRoot)
}

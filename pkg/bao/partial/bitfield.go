package partial

import gobitfield "github.com/ipfs/go-bitfield"

// bitfield is a fixed-size, byte-packed bitfield tracking which groups
// have been received, backed by the same go-bitfield package
// distribution-distribution's module graph carries for its own
// block-presence bitfields (the closest real-world analogue to
// PartialBao's received-groups tracking). go-bitfield requires its
// backing size to be a byte multiple, so count is rounded up to the
// next multiple of 8. The unused trailing bits are never set by set
// (callers only pass indices below count), so allSet and popcount,
// which count every set bit, ignore them in practice, and ranges stops
// at count.
type bitfield struct {
	bits  gobitfield.Bitfield
	count int
}

func newBitfield(n int) *bitfield {
	return &bitfield{bits: gobitfield.NewBitfield(roundUp8(n)), count: n}
}

func roundUp8(n int) int {
	return (n + 7) / 8 * 8
}

func (b *bitfield) get(i int) bool {
	return b.bits.Bit(i)
}

func (b *bitfield) set(i int) {
	b.bits.SetBit(i)
}

// allSet reports whether every one of the count tracked bits is set.
func (b *bitfield) allSet() bool {
	return b.bits.Ones() == b.count
}

// popcount returns the number of set bits.
func (b *bitfield) popcount() int {
	return b.bits.Ones()
}

// ranges returns the maximal half-open spans of consecutive indices
// whose bit equals want.
func (b *bitfield) ranges(want bool) [][2]int {
	var out [][2]int
	i := 0
	for i < b.count {
		if b.get(i) != want {
			i++
			continue
		}
		start := i
		for i < b.count && b.get(i) == want {
			i++
		}
		out = append(out, [2]int{start, i})
	}
	return out
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

package tree_test

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/baoverify/bao3/pkg/bao/tree"
	"github.com/stretchr/testify/require"
)

func identity(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestLeftSubtreeLenInvariants(t *testing.T) {
	for _, length := range []int64{1025, 1026, 2048, 2049, 1 << 20, (1 << 20) + 1} {
		l := tree.LeftSubtreeLen(length)
		require.True(t, l > 0)
		require.True(t, l < length)
		require.Zero(t, l%tree.ChunkLen)
	}
}

func TestCountChunks(t *testing.T) {
	require.EqualValues(t, 1, tree.CountChunks(0))
	require.EqualValues(t, 1, tree.CountChunks(1))
	require.EqualValues(t, 1, tree.CountChunks(1024))
	require.EqualValues(t, 2, tree.CountChunks(1025))
	require.EqualValues(t, 2, tree.CountChunks(2048))
	require.EqualValues(t, 3, tree.CountChunks(2049))
}

func TestEncodeScenario1EmptyInput(t *testing.T) {
	encoded, hash, err := tree.Encode(nil, false)
	require.NoError(t, err)
	require.Len(t, encoded, 8)
	require.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", hex.EncodeToString(hash[:]))

	outboardEncoded, outboardHash, err := tree.Encode(nil, true)
	require.NoError(t, err)
	require.Equal(t, encoded, outboardEncoded)
	require.Equal(t, hash, outboardHash)
}

func TestEncodeScenario2SingleChunk(t *testing.T) {
	data := identity(1024)
	encoded, _, err := tree.Encode(data, false)
	require.NoError(t, err)
	require.Len(t, encoded, 8+1024)

	outboard, _, err := tree.Encode(data, true)
	require.NoError(t, err)
	require.Len(t, outboard, 8)
}

func TestEncodeScenario3TwoChunks(t *testing.T) {
	data := identity(2048)
	encoded, _, err := tree.Encode(data, false)
	require.NoError(t, err)
	require.Len(t, encoded, 8+64+2048)

	require.EqualValues(t, 2048, binary.LittleEndian.Uint64(encoded[:8]))
}

func TestEncodeScenario4ThreeChunks(t *testing.T) {
	data := identity(2049)
	encoded, _, err := tree.Encode(data, false)
	require.NoError(t, err)
	require.Len(t, encoded, 8+2*64+2049)
	require.EqualValues(t, 2048, tree.LeftSubtreeLen(2049))
}

func TestEncodedSizeLaw(t *testing.T) {
	for _, length := range []int64{0, 1, 1023, 1024, 1025, 100000} {
		for _, outboard := range []bool{false, true} {
			encoded, _, err := tree.Encode(identity(int(length)), outboard)
			require.NoError(t, err)
			require.Len(t, encoded, int(tree.HeaderLen+tree.EncodedSize(length, outboard)))
		}
	}
}

func TestHashEquivalenceAcrossSizes(t *testing.T) {
	// root_of_bao_encode(B) must equal the single-chunk BLAKE3 hash for
	// inputs that fit in a chunk; this is covered more thoroughly by
	// blake3core's own tests. Here we just confirm combined and
	// outboard encodings agree on the root for a range of sizes.
	for _, length := range []int{0, 1, 1023, 1024, 1025, 2048, 2049, 102400} {
		data := identity(length)
		_, hashCombined, err := tree.Encode(data, false)
		require.NoError(t, err)
		_, hashOutboard, err := tree.Encode(data, true)
		require.NoError(t, err)
		require.Equal(t, hashCombined, hashOutboard)
	}
}

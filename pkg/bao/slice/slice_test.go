package slice_test

import (
	"testing"

	"github.com/baoverify/bao3/pkg/bao/slice"
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

func TestExtractAndDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		length       int
		start, count int64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{1024, 0, 1024},
		{1024, 100, 5},
		{2049, 0, 1},
		{2049, 1024, 2},
		{2049, 2048, 1},
		{100000, 50000, 123},
		{100000, 99999, 1000}, // runs past the end; must clamp
	}

	for _, outboard := range []bool{false, true} {
		for _, c := range cases {
			data := identity(c.length)
			encoded, hash, err := tree.Encode(data, outboard)
			require.NoError(t, err)

			var outboardContent []byte
			if outboard {
				outboardContent = data
			}
			sl, err := slice.Extract(encoded, outboardContent, outboard, c.start, c.count)
			require.NoError(t, err)

			out, err := slice.DecodeSlice(sl, hash, c.start, c.count)
			require.NoError(t, err)

			wantStart := c.start
			wantCount := c.count
			if wantCount == 0 {
				wantCount = 1
			}
			if wantStart >= int64(c.length) {
				wantStart = int64(c.length) - 1
				if wantStart < 0 {
					wantStart = 0
				}
				wantCount = 1
			}
			wantEnd := wantStart + wantCount
			if wantEnd > int64(c.length) {
				wantEnd = int64(c.length)
			}
			require.Equal(t, data[wantStart:wantEnd], out)
		}
	}
}

func TestDecodeSliceRejectsTamperedBytes(t *testing.T) {
	data := identity(100000)
	encoded, hash, err := tree.Encode(data, false)
	require.NoError(t, err)

	sl, err := slice.Extract(encoded, nil, false, 50000, 100)
	require.NoError(t, err)
	sl[len(sl)-1] ^= 0xFF

	_, err = slice.DecodeSlice(sl, hash, 50000, 100)
	require.Error(t, err)
}

func TestDecodeSliceRejectsWrongRootHash(t *testing.T) {
	data := identity(4096)
	encoded, _, err := tree.Encode(data, false)
	require.NoError(t, err)

	sl, err := slice.Extract(encoded, nil, false, 0, 1024)
	require.NoError(t, err)

	var wrongHash [32]byte
	_, err = slice.DecodeSlice(sl, wrongHash, 0, 1024)
	require.Error(t, err)
}

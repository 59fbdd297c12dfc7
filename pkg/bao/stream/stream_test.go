package stream_test

import (
	"testing"

	"github.com/baoverify/bao3/pkg/bao/stream"
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

func encodeOneShot(t *testing.T, data []byte, outboard bool) ([]byte, [32]byte) {
	t.Helper()
	encoded, hash, err := tree.Encode(data, outboard)
	require.NoError(t, err)
	return encoded, hash
}

func TestStreamingEncoderMatchesOneShot(t *testing.T) {
	for _, length := range []int{0, 1, 1023, 1024, 1025, 2048, 4097, 10000} {
		for _, outboard := range []bool{false, true} {
			data := identity(length)
			wantEncoded, wantHash := encodeOneShot(t, data, outboard)

			e := stream.NewEncoder(outboard)
			// Feed the encoder in small, irregular chunks to exercise
			// the buffering logic.
			for i := 0; i < len(data); i += 37 {
				end := i + 37
				if end > len(data) {
					end = len(data)
				}
				_, err := e.Write(data[i:end])
				require.NoError(t, err)
			}
			result, err := e.Finalize()
			require.NoError(t, err)
			require.Equal(t, wantHash, result.Hash)
			require.Equal(t, wantEncoded, result.Encoded)

			// Finalize is idempotent.
			again, err := e.Finalize()
			require.NoError(t, err)
			require.Same(t, result, again)
		}
	}
}

func TestStreamingDecoderRoundTrip(t *testing.T) {
	for _, length := range []int{0, 1, 1024, 1025, 4097, 10000} {
		for _, outboard := range []bool{false, true} {
			data := identity(length)
			encoded, hash := encodeOneShot(t, data, outboard)

			d, err := stream.NewDecoder(hash, int64(length), outboard)
			require.NoError(t, err)
			if outboard {
				require.NoError(t, d.SetOutboardData(data))
			}

			for i := 0; i < len(encoded); i += 19 {
				end := i + 19
				if end > len(encoded) {
					end = len(encoded)
				}
				_, err := d.Write(encoded[i:end])
				require.NoError(t, err)
			}

			require.True(t, d.IsComplete())
			out, err := d.Finalize()
			require.NoError(t, err)
			require.Equal(t, data, out)
		}
	}
}

func TestStreamingDecoderDetectsBitFlip(t *testing.T) {
	data := identity(4097)
	encoded, hash := encodeOneShot(t, data, false)
	encoded[len(encoded)-1] ^= 0xFF

	d, err := stream.NewDecoder(hash, int64(len(data)), false)
	require.NoError(t, err)
	_, err = d.Write(encoded)
	require.Error(t, err)
	require.Error(t, d.Err())
}

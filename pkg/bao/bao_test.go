package bao_test

import (
	"encoding/hex"
	"testing"

	"github.com/baoverify/bao3/pkg/bao"
	"github.com/stretchr/testify/require"
)

func identity(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestHashEmptyInputMatchesKnownBLAKE3Hash(t *testing.T) {
	h := bao.Hash(nil)
	require.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", hex.EncodeToString(h[:]))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, length := range []int{0, 1, 1024, 1025, 100000} {
		data := identity(length)
		encoded, hash, err := bao.Encode(data)
		require.NoError(t, err)

		got, err := bao.Decode(encoded, hash, int64(length))
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}

func TestEncodeOutboardDecodeOutboardRoundTrip(t *testing.T) {
	data := identity(100000)
	outboard, hash, err := bao.EncodeOutboard(data)
	require.NoError(t, err)

	got, err := bao.DecodeOutboard(outboard, data, hash, int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

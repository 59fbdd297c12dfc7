package partial_test

import (
	"math/rand"
	"testing"

	"github.com/baoverify/bao3/pkg/bao/iroh"
	"github.com/baoverify/bao3/pkg/bao/partial"
	"github.com/stretchr/testify/require"
)

func identity(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// groupsOf splits data into groups of iroh.GroupSize(g) bytes each
// (the last possibly short), the same split partial.Tracker expects.
func groupsOf(data []byte, g uint) [][]byte {
	size := iroh.GroupSize(g)
	var out [][]byte
	for start := int64(0); start < int64(len(data)) || len(out) == 0; start += size {
		end := start + size
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		out = append(out, data[start:end])
		if end == int64(len(data)) {
			break
		}
	}
	return out
}

func TestSingleGroupAdmitsAgainstRootDirectly(t *testing.T) {
	data := identity(500)
	_, root, err := iroh.EncodeOutboard(data, 2)
	require.NoError(t, err)

	tr, err := partial.New(root, int64(len(data)), 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, tr.NumGroups())

	require.NoError(t, tr.AddChunkGroup(0, data, nil))
	require.NoError(t, tr.AddChunkGroup(0, data, nil)) // idempotent

	out, err := tr.Finalize(true)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestMultiGroupOutOfOrderArrivalReachesSameResult(t *testing.T) {
	const g = uint(1)
	data := identity(100000)
	_, root, err := iroh.EncodeOutboard(data, g)
	require.NoError(t, err)
	groups := groupsOf(data, g)

	// Build a fully-complete "source" tracker to mint proofs from.
	src, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	for i, grp := range groups {
		require.NoError(t, src.AddChunkGroupTrusted(int64(i), grp))
	}
	full, err := src.Finalize(true)
	require.NoError(t, err)
	require.Equal(t, data, full)

	order := rand.New(rand.NewSource(1)).Perm(len(groups))

	dst, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	require.EqualValues(t, len(groups), dst.NumGroups())

	for _, i := range order {
		proof, err := src.CreateProof(int64(i))
		require.NoError(t, err)
		require.NoError(t, dst.AddChunkGroup(int64(i), groups[i], proof))
	}

	require.Equal(t, 1.0, dst.Progress())
	out, err := dst.Finalize(true)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestAddChunkGroupRejectsBadIndexOrSize(t *testing.T) {
	data := identity(10000)
	_, root, err := iroh.EncodeOutboard(data, 0)
	require.NoError(t, err)
	groups := groupsOf(data, 0)

	tr, err := partial.New(root, int64(len(data)), 0)
	require.NoError(t, err)

	require.Error(t, tr.AddChunkGroup(-1, groups[0], nil))
	require.Error(t, tr.AddChunkGroup(int64(len(groups)), groups[0], nil))
	require.Error(t, tr.AddChunkGroup(0, groups[0][:len(groups[0])-1], nil))
}

func TestAddChunkGroupRejectsBadProof(t *testing.T) {
	const g = uint(1)
	data := identity(100000)
	_, root, err := iroh.EncodeOutboard(data, g)
	require.NoError(t, err)
	groups := groupsOf(data, g)

	src, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	for i, grp := range groups {
		require.NoError(t, src.AddChunkGroupTrusted(int64(i), grp))
	}

	proof, err := src.CreateProof(0)
	require.NoError(t, err)

	dst, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	// Use group 0's proof for group 1's data: must fail verification.
	require.Error(t, dst.AddChunkGroup(1, groups[1], proof))
}

func TestCreateProofRequiresCompleteness(t *testing.T) {
	data := identity(100000)
	_, root, err := iroh.EncodeOutboard(data, 1)
	require.NoError(t, err)

	tr, err := partial.New(root, int64(len(data)), 1)
	require.NoError(t, err)
	_, err = tr.CreateProof(0)
	require.Error(t, err)
}

func TestFinalizeRequiresCompleteness(t *testing.T) {
	data := identity(10000)
	_, root, err := iroh.EncodeOutboard(data, 0)
	require.NoError(t, err)

	tr, err := partial.New(root, int64(len(data)), 0)
	require.NoError(t, err)
	_, err = tr.Finalize(true)
	require.Error(t, err)
}

func TestExportImportStateRoundTrip(t *testing.T) {
	const g = uint(1)
	data := identity(50000)
	_, root, err := iroh.EncodeOutboard(data, g)
	require.NoError(t, err)
	groups := groupsOf(data, g)

	tr, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	for i := 0; i < len(groups)-1; i++ {
		require.NoError(t, tr.AddChunkGroupTrusted(int64(i), groups[i]))
	}

	snap, err := tr.ExportState()
	require.NoError(t, err)

	restored, err := partial.ImportState(snap)
	require.NoError(t, err)
	require.Equal(t, tr.Stats(), restored.Stats())

	require.NoError(t, restored.AddChunkGroupTrusted(int64(len(groups)-1), groups[len(groups)-1]))
	out, err := restored.Finalize(true)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestStatsAndRanges(t *testing.T) {
	const g = uint(0)
	data := identity(10000)
	_, root, err := iroh.EncodeOutboard(data, g)
	require.NoError(t, err)
	groups := groupsOf(data, g)

	tr, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	require.NoError(t, tr.AddChunkGroupTrusted(1, groups[1]))
	require.NoError(t, tr.AddChunkGroupTrusted(2, groups[2]))

	stats := tr.Stats()
	require.EqualValues(t, len(groups), stats.GroupsTotal)
	require.EqualValues(t, 2, stats.GroupsReceived)
	require.False(t, stats.Complete)

	require.Equal(t, [][2]int{{0, 1}, {3, len(groups)}}, tr.MissingRanges())
	require.Equal(t, [][2]int{{1, 3}}, tr.PresentRanges())
}

func TestReaderStopsAtFirstMissingGroup(t *testing.T) {
	const g = uint(0)
	data := identity(5000)
	_, root, err := iroh.EncodeOutboard(data, g)
	require.NoError(t, err)
	groups := groupsOf(data, g)

	tr, err := partial.New(root, int64(len(data)), g)
	require.NoError(t, err)
	require.NoError(t, tr.AddChunkGroupTrusted(0, groups[0]))
	// Skip group 1, so the reader should stop right after group 0.

	buf := make([]byte, len(data))
	r := tr.Reader()
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, groups[0], buf[:n])
	_, err = r.Read(buf) // group 1 is missing
	require.Error(t, err)

	_, err = tr.Reader().Read(buf) // fresh reader, group 0 present but starts from 0 again
	require.NoError(t, err)
}

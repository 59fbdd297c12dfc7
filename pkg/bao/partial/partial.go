// Package partial implements PartialBao (spec component C10): a
// resumable, out-of-order download tracker built on the chunk-group
// variant (C9). Groups may arrive in any order, each individually
// verified against a single expected root hash via a sibling-path
// proof, with a persistable snapshot so a download can survive a
// process restart.
package partial

import (
	"io"

	"github.com/baoverify/bao3/pkg/bao/baoerr"
	"github.com/baoverify/bao3/pkg/bao/baometrics"
	"github.com/baoverify/bao3/pkg/bao/blake3core"
	"github.com/baoverify/bao3/pkg/bao/iroh"
	"github.com/baoverify/bao3/pkg/bao/tree"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Tracker owns the bitfield of received groups, each group's verified
// bytes, and the root hash / length / grouping parameters the whole
// download is checked against. It is not safe for concurrent use.
//
// Proof shape: both AddChunkGroup and CreateProof use the same
// left-balanced split (tree.LeftChunks) that the rest of this module
// uses for the canonical Bao tree, rather than a simple bottom-up
// pairwise pairing of adjacent groups. Those two shapes only coincide
// when the group count is a power of two; since a sibling-path proof's
// fully-combined value must equal the real root hash, the shape used
// here has to be the left-balanced one to ever successfully verify
// against a real Bao/Iroh root for a non-power-of-two group count.
type Tracker struct {
	id         uuid.UUID
	rootHash   blake3core.CV
	length     int64
	g          uint
	groupSize  int64
	numGroups  int64
	bits       *bitfield
	groupBytes map[int64][]byte
	metrics    *baometrics.Collector
}

// SetMetrics attaches a baometrics.Collector that GroupsAdmitted and
// VerificationFailures are reported to. Optional; a Tracker with no
// attached collector behaves identically, just unobserved.
func (t *Tracker) SetMetrics(m *baometrics.Collector) {
	t.metrics = m
}

// New creates an empty tracker expecting content of the given length
// and root hash, grouped under parameter g.
func New(rootHash blake3core.CV, length int64, g uint) (*Tracker, error) {
	if length < 0 {
		return nil, baoerr.InvalidArgument("content length must be non-negative, got %d", length)
	}
	n := iroh.NumGroups(length, g)
	return &Tracker{
		id:         uuid.New(),
		rootHash:   rootHash,
		length:     length,
		g:          g,
		groupSize:  iroh.GroupSize(g),
		numGroups:  n,
		bits:       newBitfield(int(n)),
		groupBytes: make(map[int64][]byte, n),
	}, nil
}

// ID is a stable identifier for this tracker instance, usable by a
// caller to correlate log lines or persisted snapshots across
// restarts.
func (t *Tracker) ID() uuid.UUID {
	return t.id
}

// NumGroups returns the total number of groups this content splits
// into.
func (t *Tracker) NumGroups() int64 {
	return t.numGroups
}

// expectedGroupSize returns the number of content bytes group i is
// expected to carry: groupSize for every group but the last, which may
// be short.
func (t *Tracker) expectedGroupSize(i int64) int64 {
	start := i * t.groupSize
	end := start + t.groupSize
	if end > t.length {
		end = t.length
	}
	size := end - start
	if size == 0 && t.length == 0 {
		return 0
	}
	return size
}

// HasGroup reports whether group i has already been accepted.
func (t *Tracker) HasGroup(i int64) (bool, error) {
	if i < 0 || i >= t.numGroups {
		return false, baoerr.Precondition("group index %d out of range [0, %d)", i, t.numGroups)
	}
	return t.bits.get(int(i)), nil
}

// Progress returns the fraction, in [0, 1], of groups received so far.
func (t *Tracker) Progress() float64 {
	if t.numGroups == 0 {
		return 1
	}
	return float64(t.bits.popcount()) / float64(t.numGroups)
}

// MissingRanges returns the maximal half-open group-index spans that
// have not yet been received.
func (t *Tracker) MissingRanges() [][2]int {
	return t.bits.ranges(false)
}

// PresentRanges returns the maximal half-open group-index spans that
// have already been received.
func (t *Tracker) PresentRanges() [][2]int {
	return t.bits.ranges(true)
}

// pathFlags returns, in leaf-to-root order, whether the subtree
// containing group index i is the left child of its parent at each
// level of the left-balanced split over n groups.
func pathFlags(n, i int64) []bool {
	var flags []bool
	lo, hi := int64(0), n
	for hi-lo > 1 {
		lc := tree.LeftChunks(hi - lo)
		if i-lo < lc {
			flags = append(flags, true)
			hi = lo + lc
		} else {
			flags = append(flags, false)
			lo += lc
		}
	}
	for l, r := 0, len(flags)-1; l < r; l, r = l+1, r-1 {
		flags[l], flags[r] = flags[r], flags[l]
	}
	return flags
}

// verifySiblingPath replays the left-balanced ancestor path for group
// index i among n groups, combining leaf with proof (leaf-to-root
// order) and returning the resulting root CV.
func verifySiblingPath(leaf blake3core.CV, n, i int64, proof []blake3core.CV) (blake3core.CV, error) {
	flags := pathFlags(n, i)
	if len(proof) != len(flags) {
		return blake3core.CV{}, baoerr.Precondition("proof has %d siblings, expected %d", len(proof), len(flags))
	}
	cur := leaf
	for level, sib := range proof {
		isRoot := level == len(proof)-1
		if flags[level] {
			cur = blake3core.ParentCV(cur, sib, isRoot)
		} else {
			cur = blake3core.ParentCV(sib, cur, isRoot)
		}
	}
	return cur, nil
}

// combineCVs folds cvs into a single chaining value using the same
// left-balanced split as the outer Iroh tree (iroh.EncodeOutboard's
// outer tree and tree.LeftSubtreeLen use the identical rule over chunk
// counts); kept local since here it folds already-computed group CVs
// rather than raw chunk bytes.
func combineCVs(cvs []blake3core.CV, isRoot bool) blake3core.CV {
	if len(cvs) == 1 {
		return cvs[0]
	}
	lc := tree.LeftChunks(int64(len(cvs)))
	left := combineCVs(cvs[:lc], false)
	right := combineCVs(cvs[lc:], false)
	return blake3core.ParentCV(left, right, isRoot)
}

// buildProof returns the CV of the subtree spanning cvs and the
// leaf-to-root sibling path to the group at relative index target
// within cvs.
func buildProof(cvs []blake3core.CV, target int64, isRoot bool) (blake3core.CV, []blake3core.CV) {
	if len(cvs) == 1 {
		return cvs[0], nil
	}
	lc := tree.LeftChunks(int64(len(cvs)))
	if target < lc {
		leftCV, siblings := buildProof(cvs[:lc], target, false)
		rightCV := combineCVs(cvs[lc:], false)
		siblings = append(siblings, rightCV)
		return blake3core.ParentCV(leftCV, rightCV, isRoot), siblings
	}
	rightCV, siblings := buildProof(cvs[lc:], target-lc, false)
	leftCV := combineCVs(cvs[:lc], false)
	siblings = append(siblings, leftCV)
	return blake3core.ParentCV(leftCV, rightCV, isRoot), siblings
}

// AddChunkGroup admits group i's data, verified against the tracker's
// root hash via a sibling-path proof. Already-present groups succeed
// idempotently without re-verifying. A nil proof is only valid when
// there is exactly one group.
func (t *Tracker) AddChunkGroup(i int64, data []byte, proof []blake3core.CV) error {
	if i < 0 || i >= t.numGroups {
		return baoerr.Precondition("group index %d out of range [0, %d)", i, t.numGroups)
	}
	if int64(len(data)) != t.expectedGroupSize(i) {
		return baoerr.Malformed("group %d is %d bytes, expected %d", i, len(data), t.expectedGroupSize(i))
	}
	if t.bits.get(int(i)) {
		return nil
	}

	leaf := iroh.GroupCV(data, uint64(i)<<t.g, t.numGroups == 1)

	if t.numGroups == 1 {
		if !blake3core.Equal(leaf, t.rootHash) {
			if t.metrics != nil {
				t.metrics.VerificationFailures.Inc()
			}
			return baoerr.VerificationFailed("group %d failed root verification", i)
		}
	} else {
		root, err := verifySiblingPath(leaf, t.numGroups, i, proof)
		if err != nil {
			return err
		}
		if !blake3core.Equal(root, t.rootHash) {
			if t.metrics != nil {
				t.metrics.VerificationFailures.Inc()
			}
			return baoerr.VerificationFailed("group %d's proof does not lead to the expected root", i)
		}
	}

	t.groupBytes[i] = cloneBytes(data)
	t.bits.set(int(i))
	if t.metrics != nil {
		t.metrics.GroupsAdmitted.Inc()
	}
	return nil
}

// AddChunkGroupTrusted admits group i's data without verification,
// for callers that already trust the source (e.g. local disk).
func (t *Tracker) AddChunkGroupTrusted(i int64, data []byte) error {
	if i < 0 || i >= t.numGroups {
		return baoerr.Precondition("group index %d out of range [0, %d)", i, t.numGroups)
	}
	if int64(len(data)) != t.expectedGroupSize(i) {
		return baoerr.Malformed("group %d is %d bytes, expected %d", i, len(data), t.expectedGroupSize(i))
	}
	if t.bits.get(int(i)) {
		return nil
	}
	t.groupBytes[i] = cloneBytes(data)
	t.bits.set(int(i))
	return nil
}

// CreateProof computes a sibling-path proof for group i, usable by
// AddChunkGroup on another tracker holding the same root hash. It
// requires every group to already be present.
func (t *Tracker) CreateProof(i int64) ([]blake3core.CV, error) {
	if i < 0 || i >= t.numGroups {
		return nil, baoerr.Precondition("group index %d out of range [0, %d)", i, t.numGroups)
	}
	if !t.bits.allSet() {
		return nil, baoerr.StateViolation("cannot build a proof until every group has been received")
	}
	if t.numGroups == 1 {
		return nil, nil
	}

	cvs := make([]blake3core.CV, t.numGroups)
	for idx := int64(0); idx < t.numGroups; idx++ {
		cvs[idx] = iroh.GroupCV(t.groupBytes[idx], uint64(idx)<<t.g, false)
	}
	_, siblings := buildProof(cvs, i, true)
	return siblings, nil
}

// Finalize requires every group to have been received, assembles the
// content in group order, and, if verify is true, re-derives the root
// hash from the assembled bytes using the ordinary Bao encoder and
// checks it against the expected root hash.
func (t *Tracker) Finalize(verify bool) ([]byte, error) {
	if !t.bits.allSet() {
		return nil, baoerr.StateViolation("cannot finalize an incomplete download")
	}
	out := make([]byte, 0, t.length)
	for idx := int64(0); idx < t.numGroups; idx++ {
		out = append(out, t.groupBytes[idx]...)
	}
	if verify {
		_, root, err := tree.Encode(out, false)
		if err != nil {
			return nil, err
		}
		if !blake3core.Equal(root, t.rootHash) {
			return nil, baoerr.VerificationFailed("assembled content does not hash to the expected root")
		}
	}
	return out, nil
}

// Stats summarizes a tracker's current progress.
type Stats struct {
	GroupsTotal    int64
	GroupsReceived int64
	BytesReceived  int64
	Complete       bool
}

// Stats reports the tracker's current progress.
func (t *Tracker) Stats() Stats {
	received := int64(t.bits.popcount())
	var bytesReceived int64
	for idx := int64(0); idx < t.numGroups; idx++ {
		if t.bits.get(int(idx)) {
			bytesReceived += int64(len(t.groupBytes[idx]))
		}
	}
	return Stats{
		GroupsTotal:    t.numGroups,
		GroupsReceived: received,
		BytesReceived:  bytesReceived,
		Complete:       t.bits.allSet(),
	}
}

// Reader returns an io.Reader over the groups received so far, in
// order, reporting a state-violation error the moment it reaches a group
// that has not yet arrived. Adapted from the way the teacher's
// concatenatingReader composes a sequence of closable sources into one
// stream; here the sources are the tracker's own group byte slices
// rather than separate blob-store chunks.
func (t *Tracker) Reader() *GroupReader {
	return &GroupReader{t: t}
}

// GroupReader sequentially reads a tracker's received groups.
type GroupReader struct {
	t      *Tracker
	group  int64
	offset int64
}

// Read implements io.Reader, returning baoerr.StateViolation if the
// next group to read has not been received yet, and io.EOF once every
// group has been consumed.
func (r *GroupReader) Read(p []byte) (int, error) {
	if r.group >= r.t.numGroups {
		return 0, io.EOF
	}
	if !r.t.bits.get(int(r.group)) {
		return 0, baoerr.StateViolation("group %d has not been received yet", r.group)
	}
	data := r.t.groupBytes[r.group]
	n := copy(p, data[r.offset:])
	r.offset += int64(n)
	if r.offset >= int64(len(data)) {
		r.group++
		r.offset = 0
	}
	return n, nil
}

// snapshot is the CBOR-serializable form of a tracker, used by
// ExportState/ImportState.
type snapshot struct {
	ID         [16]byte
	RootHash   blake3core.CV
	Length     int64
	G          uint
	Bits       []byte
	NumGroups  int64
	GroupBytes map[int64][]byte
}

// ExportState produces a lossless CBOR snapshot of the tracker: root
// hash, length, grouping parameter, bitfield bytes, and every received
// group's bytes keyed by index.
func (t *Tracker) ExportState() ([]byte, error) {
	s := snapshot{
		ID:         t.id,
		RootHash:   t.rootHash,
		Length:     t.length,
		G:          t.g,
		Bits:       cloneBytes(t.bits.bits),
		NumGroups:  t.numGroups,
		GroupBytes: make(map[int64][]byte, len(t.groupBytes)),
	}
	for k, v := range t.groupBytes {
		s.GroupBytes[k] = cloneBytes(v)
	}
	return cbor.Marshal(s)
}

// ImportState reconstructs a tracker from a snapshot produced by
// ExportState.
func ImportState(data []byte) (*Tracker, error) {
	var s snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, baoerr.Malformed("partial download snapshot is not valid CBOR: %v", err)
	}
	t := &Tracker{
		id:         s.ID,
		rootHash:   s.RootHash,
		length:     s.Length,
		g:          s.G,
		groupSize:  iroh.GroupSize(s.G),
		numGroups:  s.NumGroups,
		bits:       &bitfield{bits: s.Bits, count: int(s.NumGroups)},
		groupBytes: s.GroupBytes,
	}
	if t.groupBytes == nil {
		t.groupBytes = make(map[int64][]byte)
	}
	return t, nil
}

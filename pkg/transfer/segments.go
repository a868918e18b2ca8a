package transfer

import (
	"fmt"

	"github.com/rescp17/lanBench/pkg/protocol"
)

// SegmentCount returns ceil(size/capacity) with a minimum of one, so a zero
// byte request still produces a single empty segment.
func SegmentCount(size uint64, capacity int) uint64 {
	c := uint64(capacity)
	if size == 0 {
		return 1
	}
	return (size-1)/c + 1
}

// SegmentBounds returns the half-open byte range [lo, hi) carried by segment index.
func SegmentBounds(index, size uint64, capacity int) (lo, hi uint64) {
	c := uint64(capacity)
	lo = index * c
	if lo > size {
		return size, size
	}
	hi = lo + c
	if hi > size {
		hi = size
	}
	return lo, hi
}

// segmentTracker accounts for segments of one session. Each index counts
// once no matter how often or in which order it arrives.
type segmentTracker struct {
	// expected is the only total a sender with the same datagram size can
	// announce for this request; it also bounds the bitset.
	expected uint64
	total    uint64
	seen     []uint64
	received uint64
	bytes    uint64
}

func newSegmentTracker(size uint64, capacity int) *segmentTracker {
	return &segmentTracker{expected: SegmentCount(size, capacity)}
}

// accept records seg. It returns false with an ErrInvalidFrame-wrapped error
// for segments that contradict the session, and false with a nil error for
// duplicates.
func (t *segmentTracker) accept(seg protocol.Segment) (bool, error) {
	switch {
	case seg.Total != t.expected:
		return false, fmt.Errorf("%w: segment total %d, request yields %d", protocol.ErrInvalidFrame, seg.Total, t.expected)
	case seg.Index >= seg.Total:
		return false, fmt.Errorf("%w: segment index %d beyond total %d", protocol.ErrInvalidFrame, seg.Index, seg.Total)
	}
	t.total = seg.Total

	word, bit := seg.Index/64, seg.Index%64
	if word >= uint64(len(t.seen)) {
		t.seen = append(t.seen, make([]uint64, word+1-uint64(len(t.seen)))...)
	}
	if t.seen[word]&(1<<bit) != 0 {
		return false, nil
	}
	t.seen[word] |= 1 << bit
	t.received++
	t.bytes += uint64(len(seg.Payload))
	return true, nil
}

// complete reports whether every index 0..total-1 has been seen.
func (t *segmentTracker) complete() bool {
	return t.total != 0 && t.received == t.total
}

package interrupt

import "math/bits"

// Line is a CPU interrupt line number. Line 0 is never routable: the matrix
// uses it to mean "disconnected".
type Line uint8

// MaxLines is the width of the CPU cause register.
const MaxLines = 32

// LineMask is a bitmask over CPU lines, bit n for line n.
type LineMask uint32

// Has reports whether line l is set.
func (m LineMask) Has(l Line) bool {
	return l < MaxLines && m&(1<<l) != 0
}

// With returns m with line l set.
func (m LineMask) With(l Line) LineMask {
	return m | 1<<l
}

// Without returns m with line l cleared.
func (m LineMask) Without(l Line) LineMask {
	return m &^ (1 << l)
}

// Lowest returns the lowest set line.
func (m LineMask) Lowest() (Line, bool) {
	if m == 0 {
		return 0, false
	}
	return Line(bits.TrailingZeros32(uint32(m))), true
}

// Count returns the number of lines set.
func (m LineMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Source identifies a peripheral interrupt source. The numbering belongs to
// the chip's register definitions.
type Source uint8

// MaxSources is the width of the matrix status registers (four 32-bit words).
const MaxSources = 128

// SourceSet is a bitset over peripheral sources.
type SourceSet [MaxSources / 64]uint64

// Has reports whether s is in the set.
func (ss *SourceSet) Has(s Source) bool {
	return ss[s>>6]&(1<<(s&63)) != 0
}

// Add puts s in the set.
func (ss *SourceSet) Add(s Source) {
	ss[s>>6] |= 1 << (s & 63)
}

// Remove takes s out of the set.
func (ss *SourceSet) Remove(s Source) {
	ss[s>>6] &^= 1 << (s & 63)
}

// Empty reports whether no source is set.
func (ss *SourceSet) Empty() bool {
	for _, w := range ss {
		if w != 0 {
			return false
		}
	}
	return true
}

// Next returns the lowest source >= from that is in the set.
func (ss *SourceSet) Next(from int) (Source, bool) {
	for from < MaxSources {
		w := ss[from>>6] >> (uint(from) & 63)
		if w != 0 {
			return Source(from + bits.TrailingZeros64(w)), true
		}
		from = (from | 63) + 1
	}
	return 0, false
}

// Kind selects how the CPU latches a line.
type Kind uint8

const (
	KindLevel Kind = iota
	KindEdge
)

func (k Kind) String() string {
	if k == KindEdge {
		return "edge"
	}
	return "level"
}

// AckPolicy says when the dispatcher acknowledges a source relative to its
// handler.
type AckPolicy uint8

const (
	// AckAfterHandler clears the source once the handler has consumed its
	// data. A reassertion while the handler runs is absorbed by the clear.
	AckAfterHandler AckPolicy = iota

	// AckBeforeHandler clears the source first, so a second assertion during
	// the handler latches again and is delivered after the trap returns.
	AckBeforeHandler
)

func (a AckPolicy) String() string {
	if a == AckBeforeHandler {
		return "before"
	}
	return "after"
}

// Mode is the dispatch mode of a handler binding.
type Mode uint8

const (
	// ModeDirect runs the handler inside the trap.
	ModeDirect Mode = iota

	// ModeDeferred records the dispatch; the handler runs later from Pump.
	ModeDeferred
)

func (m Mode) String() string {
	if m == ModeDeferred {
		return "deferred"
	}
	return "direct"
}

// LineState is the dispatch state of a bound line.
type LineState uint8

const (
	LineIdle LineState = iota
	LinePending
	LineServicing
)

func (s LineState) String() string {
	switch s {
	case LinePending:
		return "pending"
	case LineServicing:
		return "servicing"
	default:
		return "idle"
	}
}

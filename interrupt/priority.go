package interrupt

// Priority is a CPU interrupt priority level. Higher levels preempt lower ones.
// PriorityNone means the line is disabled and never delivered.
type Priority uint8

const (
	PriorityNone Priority = 0

	// MaxPriorityLevels is the largest priority range any supported CPU has.
	MaxPriorityLevels Priority = 15
)

// Valid reports whether p can be assigned to a line on a CPU whose highest
// level is max.
func (p Priority) Valid(max Priority) bool {
	return p != PriorityNone && p <= max
}

// Preempts reports whether a line at p may interrupt a handler running at q.
func (p Priority) Preempts(q Priority) bool {
	return p > q
}

// Blocked reports whether a line at p is held back by mask threshold t.
func (p Priority) Blocked(t Priority) bool {
	return p <= t
}

// MaxOf returns the higher of two levels.
func MaxOf(a, b Priority) Priority {
	if a > b {
		return a
	}
	return b
}

func (p Priority) String() string {
	if p == PriorityNone {
		return "none"
	}
	return "prio" + utoa(uint32(p))
}

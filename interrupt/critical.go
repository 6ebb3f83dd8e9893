package interrupt

// MaxNesting bounds the depth of nested critical sections and traps.
const MaxNesting = 32

// Token is returned by Enter and consumed by the matching Exit. The zero
// Token matches no scope.
type Token struct {
	depth uint8
	seq   uint32
}

type maskFrame struct {
	prev Priority
	seq  uint32
}

// MaskState is the per-core mask threshold stack. Each Enter pushes the
// threshold in force and raises it; each Exit pops exactly one level in
// LIFO order.
type MaskState struct {
	hw      Hardware
	current Priority
	stack   [MaxNesting]maskFrame
	depth   int
	seq     uint32

	violation func(*MaskDisciplineError)
}

func newMaskState(hw Hardware, violation func(*MaskDisciplineError)) *MaskState {
	return &MaskState{hw: hw, violation: violation}
}

// Enter raises the mask to at least threshold and returns the token that
// restores the previous mask.
func (m *MaskState) Enter(threshold Priority) Token {
	state := disableInterrupts()
	if m.depth == MaxNesting {
		restoreInterrupts(state)
		m.violate("nesting deeper than " + itoa(MaxNesting))
		return Token{}
	}

	m.seq++
	if m.seq == 0 {
		m.seq = 1
	}
	m.stack[m.depth] = maskFrame{prev: m.current, seq: m.seq}
	m.depth++
	tok := Token{depth: uint8(m.depth), seq: m.seq}

	next := MaxOf(m.current, threshold)
	raised := next != m.current
	m.current = next
	if raised {
		m.hw.SetThreshold(next)
	}
	restoreInterrupts(state)
	return tok
}

// Exit restores the mask captured by tok. tok must belong to the innermost
// open scope.
func (m *MaskState) Exit(tok Token) {
	state := disableInterrupts()
	if tok.depth == 0 || m.depth == 0 {
		restoreInterrupts(state)
		m.violate("exit without matching enter")
		return
	}
	top := m.stack[m.depth-1]
	if int(tok.depth) != m.depth || top.seq != tok.seq {
		restoreInterrupts(state)
		m.violate("exit with stale token")
		return
	}

	m.depth--
	lowered := top.prev != m.current
	m.current = top.prev
	restoreInterrupts(state)

	// Lowering the threshold may deliver held lines at once, so the stack
	// is already consistent when the hardware is written.
	if lowered {
		m.hw.SetThreshold(top.prev)
	}
}

// Critical runs fn with the mask raised to at least threshold. The mask is
// restored on every exit path, including a panic in fn.
func (m *MaskState) Critical(threshold Priority, fn func()) {
	tok := m.Enter(threshold)
	defer m.release(tok)
	fn()
}

func (m *MaskState) release(tok Token) {
	if r := recover(); r != nil {
		m.unwindTo(tok)
		panic(r)
	}
	m.Exit(tok)
}

// unwindTo drops tok's scope together with any inner scopes a panic
// abandoned, restoring the mask tok captured.
func (m *MaskState) unwindTo(tok Token) {
	i := int(tok.depth) - 1
	if i < 0 || i >= m.depth || m.stack[i].seq != tok.seq {
		return
	}
	prev := m.stack[i].prev
	m.depth = i
	if prev != m.current {
		m.current = prev
		m.hw.SetThreshold(prev)
	}
}

// Mask returns the effective threshold.
func (m *MaskState) Mask() Priority {
	return m.current
}

// Depth returns the number of open scopes.
func (m *MaskState) Depth() int {
	return m.depth
}

func (m *MaskState) violate(reason string) {
	err := &MaskDisciplineError{Reason: reason, Depth: m.depth}
	if m.violation != nil {
		m.violation(err)
		return
	}
	panic(err)
}

func (m *MaskState) reset() {
	m.depth = 0
	m.current = PriorityNone
	m.stack = [MaxNesting]maskFrame{}
	m.hw.SetThreshold(PriorityNone)
}

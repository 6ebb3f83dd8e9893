package interrupt

// FaultKind classifies a reported fault.
type FaultKind uint8

const (
	FaultUnroutedInterrupt FaultKind = iota + 1
	FaultRoutingConflict
	FaultMaskDiscipline
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnroutedInterrupt:
		return "UnroutedInterrupt"
	case FaultRoutingConflict:
		return "RoutingConflict"
	case FaultMaskDiscipline:
		return "MaskDisciplineViolation"
	default:
		return "UnknownFault"
	}
}

// Fault is one report on the error channel.
type Fault struct {
	Kind   FaultKind
	Core   int
	Line   Line
	Source Source
	Seq    uint32 // per-controller report sequence
	Err    error
}

// FaultSink receives fault reports. Report is never called from interrupt
// context: faults raised inside a trap wait in the queue for FlushFaults.
type FaultSink interface {
	Report(f Fault)
}

// FaultFunc adapts a function to the FaultSink interface.
type FaultFunc func(f Fault)

// Report implements FaultSink.
func (fn FaultFunc) Report(f Fault) {
	if fn != nil {
		fn(f)
	}
}

// faultQueue is a fixed ring filled from interrupt context and drained by
// FlushFaults.
type faultQueue struct {
	buf     []Fault
	head    int
	count   int
	dropped uint32
}

func newFaultQueue(size int) faultQueue {
	return faultQueue{buf: make([]Fault, size)}
}

func (q *faultQueue) push(f Fault) bool {
	if q.count == len(q.buf) {
		q.dropped++
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = f
	q.count++
	return true
}

func (q *faultQueue) pop() (Fault, bool) {
	if q.count == 0 {
		return Fault{}, false
	}
	f := q.buf[q.head]
	q.buf[q.head] = Fault{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return f, true
}

func (q *faultQueue) reset() {
	for i := range q.buf {
		q.buf[i] = Fault{}
	}
	q.head, q.count, q.dropped = 0, 0, 0
}

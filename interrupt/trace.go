package interrupt

// EventKind identifies a dispatch trace event.
type EventKind uint8

// Event type codes
const (
	EvtTrapEnter    EventKind = 1 // CPU entered the vector for a line
	EvtTrapExit     EventKind = 2 // Vector returned, mask restored
	EvtHandlerStart EventKind = 3 // Direct handler invoked
	EvtHandlerEnd   EventKind = 4 // Direct handler returned
	EvtAck          EventKind = 5 // Source acknowledged
	EvtDeferQueued  EventKind = 6 // Deferred dispatch recorded
	EvtDeferRun     EventKind = 7 // Deferred handler run by Pump
	EvtUnrouted     EventKind = 8 // Pending line without handler, line masked
)

func (k EventKind) String() string {
	switch k {
	case EvtTrapEnter:
		return "TRAP_ENTER"
	case EvtTrapExit:
		return "TRAP_EXIT"
	case EvtHandlerStart:
		return "HANDLER_START"
	case EvtHandlerEnd:
		return "HANDLER_END"
	case EvtAck:
		return "ACK"
	case EvtDeferQueued:
		return "DEFER_QUEUED"
	case EvtDeferRun:
		return "DEFER_RUN"
	case EvtUnrouted:
		return "UNROUTED!"
	default:
		return "UNKNOWN"
	}
}

// Event captures one dispatch step for post-mortem analysis.
type Event struct {
	Kind     EventKind
	Line     Line
	Source   Source
	Priority Priority
	Seq      uint32
}

// traceRing keeps the last len(events) events. Recording never blocks.
type traceRing struct {
	events []Event
	head   int
	full   bool
	seq    uint32
}

func newTraceRing(size int) *traceRing {
	if size <= 0 {
		return nil
	}
	return &traceRing{events: make([]Event, size)}
}

func (t *traceRing) record(kind EventKind, line Line, src Source, p Priority) {
	if t == nil {
		return
	}
	t.seq++
	t.events[t.head] = Event{Kind: kind, Line: line, Source: src, Priority: p, Seq: t.seq}
	t.head++
	if t.head == len(t.events) {
		t.head = 0
		t.full = true
	}
}

// snapshot returns events oldest first
func (t *traceRing) snapshot() []Event {
	if t == nil {
		return nil
	}
	if !t.full {
		return append([]Event(nil), t.events[:t.head]...)
	}
	out := make([]Event, 0, len(t.events))
	out = append(out, t.events[t.head:]...)
	return append(out, t.events[:t.head]...)
}

func (t *traceRing) reset() {
	if t == nil {
		return
	}
	for i := range t.events {
		t.events[i] = Event{}
	}
	t.head, t.full, t.seq = 0, false, 0
}

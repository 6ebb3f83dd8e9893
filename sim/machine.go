// Package sim models one core's interrupt matrix and CPU interrupt
// controller on the host. A Machine implements interrupt.Hardware and
// delivers traps synchronously: asserting a source whose line is enabled
// and above the CPU threshold calls the attached CPU's Trap before Assert
// returns, so a higher-priority assertion made inside a handler preempts
// it exactly as the silicon would.
package sim

import (
	"github.com/pkg/errors"

	"intmux/interrupt"
)

// LatchMode selects how repeated assertions of one source are latched.
type LatchMode uint8

const (
	// Coalesce keeps a single latch bit per source. Assertions made while
	// the source is already latched merge into one.
	Coalesce LatchMode = iota

	// Count keeps a counter per source. Each acknowledge consumes one
	// assertion, so every assertion produces a dispatch.
	Count
)

func (m LatchMode) String() string {
	if m == Count {
		return "count"
	}
	return "coalesce"
}

// DefaultDeliveryLimit bounds the traps delivered by one outermost
// delivery pass.
const DefaultDeliveryLimit = 1 << 16

// ErrInterruptStorm is recorded when a delivery pass hits its limit, which
// means a line stayed pending after every trap.
var ErrInterruptStorm = errors.New("interrupt storm")

// Trapper is the CPU side of the machine. *interrupt.Controller satisfies it.
type Trapper interface {
	Trap(line interrupt.Line)
}

// Machine is a simulated interrupt matrix and CPU interrupt controller.
type Machine struct {
	mode  LatchMode
	cpu   Trapper
	limit int

	route     [interrupt.MaxSources]interrupt.Line
	prio      [interrupt.MaxLines]interrupt.Priority
	kind      [interrupt.MaxLines]interrupt.Kind
	enabled   interrupt.LineMask
	threshold interrupt.Priority

	asserted interrupt.SourceSet
	counts   [interrupt.MaxSources]uint32
	edges    interrupt.LineMask

	on     bool
	active []interrupt.Priority // priorities of traps in progress
	budget int
	err    error

	stats Stats
}

// Stats counts machine-side activity.
type Stats struct {
	Asserts     uint64
	Acks        uint64
	Delivered   uint64
	Preemptions uint64
	MaxNesting  int
}

// New returns a machine with every source disconnected and delivery
// disabled until EnableInterrupts.
func New(mode LatchMode) *Machine {
	return &Machine{mode: mode, limit: DefaultDeliveryLimit}
}

// Attach connects the CPU that receives traps.
func (m *Machine) Attach(cpu Trapper) {
	m.cpu = cpu
}

// SetDeliveryLimit changes the storm bound of one delivery pass.
func (m *Machine) SetDeliveryLimit(n int) {
	if n <= 0 {
		n = DefaultDeliveryLimit
	}
	m.limit = n
}

// Mode returns the latch mode.
func (m *Machine) Mode() LatchMode { return m.mode }

// EnableInterrupts sets the global interrupt enable and delivers anything
// already pending.
func (m *Machine) EnableInterrupts() {
	m.on = true
	m.deliver()
}

// DisableInterrupts clears the global interrupt enable. Assertions stay
// latched.
func (m *Machine) DisableInterrupts() {
	m.on = false
}

// Err returns the first storm detected, if any.
func (m *Machine) Err() error { return m.err }

// Stats returns the activity counters.
func (m *Machine) Stats() Stats { return m.stats }

// Threshold returns the CPU threshold register.
func (m *Machine) Threshold() interrupt.Priority { return m.threshold }

// Enabled returns the CPU line enable register.
func (m *Machine) Enabled() interrupt.LineMask { return m.enabled }

// Route returns the matrix map register of src.
func (m *Machine) Route(src interrupt.Source) interrupt.Line {
	if int(src) >= interrupt.MaxSources {
		return 0
	}
	return m.route[src]
}

// LinePriority returns the priority register of line.
func (m *Machine) LinePriority(line interrupt.Line) interrupt.Priority {
	if line >= interrupt.MaxLines {
		return interrupt.PriorityNone
	}
	return m.prio[line]
}

// Latched returns the number of unacknowledged assertions of src. In
// Coalesce mode it is 0 or 1.
func (m *Machine) Latched(src interrupt.Source) uint32 {
	if int(src) >= interrupt.MaxSources {
		return 0
	}
	if m.mode == Count {
		return m.counts[src]
	}
	if m.asserted.Has(src) {
		return 1
	}
	return 0
}

// Assert raises src. A deliverable line traps before Assert returns.
func (m *Machine) Assert(src interrupt.Source) {
	if int(src) >= interrupt.MaxSources {
		return
	}
	m.stats.Asserts++
	m.asserted.Add(src)
	if m.mode == Count {
		m.counts[src]++
	}
	if l := m.route[src]; l != 0 && m.kind[l] == interrupt.KindEdge {
		m.edges = m.edges.With(l)
	}
	m.deliver()
}

// Deassert drops src and every assertion latched for it.
func (m *Machine) Deassert(src interrupt.Source) {
	if int(src) >= interrupt.MaxSources {
		return
	}
	m.asserted.Remove(src)
	m.counts[src] = 0
}

// Reset clears every register and latch. The attached CPU stays.
func (m *Machine) Reset() {
	cpu, mode, limit := m.cpu, m.mode, m.limit
	*m = Machine{cpu: cpu, mode: mode, limit: limit}
}

// MapSource implements interrupt.Hardware.
func (m *Machine) MapSource(src interrupt.Source, line interrupt.Line) {
	if int(src) >= interrupt.MaxSources || line >= interrupt.MaxLines {
		return
	}
	m.route[src] = line
	m.deliver()
}

// SetLinePriority implements interrupt.Hardware.
func (m *Machine) SetLinePriority(line interrupt.Line, p interrupt.Priority) {
	if line >= interrupt.MaxLines {
		return
	}
	m.prio[line] = p
	m.deliver()
}

// SetLineKind implements interrupt.Hardware.
func (m *Machine) SetLineKind(line interrupt.Line, k interrupt.Kind) {
	if line >= interrupt.MaxLines {
		return
	}
	m.kind[line] = k
	if k == interrupt.KindLevel {
		m.edges = m.edges.Without(line)
	}
}

// EnableLines implements interrupt.Hardware.
func (m *Machine) EnableLines(mask interrupt.LineMask) {
	m.enabled = mask
	m.deliver()
}

// SetThreshold implements interrupt.Hardware.
func (m *Machine) SetThreshold(p interrupt.Priority) {
	m.threshold = p
	m.deliver()
}

// PendingLines implements interrupt.Hardware. A level line is pending
// while its source is asserted; an edge line while its latch is set.
func (m *Machine) PendingLines() interrupt.LineMask {
	pending := m.edges
	for i := 0; ; i++ {
		src, ok := m.asserted.Next(i)
		if !ok {
			break
		}
		i = int(src)
		if l := m.route[src]; l != 0 && m.kind[l] == interrupt.KindLevel {
			pending = pending.With(l)
		}
	}
	return pending
}

// PendingSources implements interrupt.Hardware.
func (m *Machine) PendingSources() interrupt.SourceSet {
	return m.asserted
}

// ClearLine implements interrupt.Hardware.
func (m *Machine) ClearLine(line interrupt.Line) {
	m.edges = m.edges.Without(line)
}

// Acknowledge implements interrupt.Hardware. In Count mode one assertion
// is consumed and the source stays raised while more remain; a remaining
// assertion on an edge line sets the latch again.
func (m *Machine) Acknowledge(src interrupt.Source) {
	if int(src) >= interrupt.MaxSources {
		return
	}
	m.stats.Acks++
	if m.mode == Count && m.counts[src] > 1 {
		m.counts[src]--
		if l := m.route[src]; l != 0 && m.kind[l] == interrupt.KindEdge {
			m.edges = m.edges.With(l)
		}
		return
	}
	m.counts[src] = 0
	m.asserted.Remove(src)
}

// deliver traps every deliverable line, highest priority first and lowest
// line first within a priority. A line is deliverable when it is pending,
// enabled, above the threshold and above every trap already in progress;
// anything else waits for the trap in progress to return.
func (m *Machine) deliver() {
	if !m.on || m.cpu == nil {
		return
	}
	outer := len(m.active) == 0 && m.budget == 0
	if outer {
		m.budget = m.limit
		defer func() { m.budget = 0 }()
	}

	for {
		line, p, ok := m.next()
		if !ok {
			return
		}
		if m.budget == 0 {
			if m.err == nil {
				m.err = errors.Wrapf(ErrInterruptStorm, "line %d still pending after %d traps", line, m.limit)
			}
			m.on = false
			return
		}
		m.budget--

		if len(m.active) > 0 {
			m.stats.Preemptions++
		}
		m.active = append(m.active, p)
		if len(m.active) > m.stats.MaxNesting {
			m.stats.MaxNesting = len(m.active)
		}
		m.stats.Delivered++
		m.trap(line)
	}
}

func (m *Machine) trap(line interrupt.Line) {
	defer func() { m.active = m.active[:len(m.active)-1] }()
	m.cpu.Trap(line)
}

func (m *Machine) next() (interrupt.Line, interrupt.Priority, bool) {
	floor := m.threshold
	if n := len(m.active); n > 0 && m.active[n-1] > floor {
		floor = m.active[n-1]
	}

	var best interrupt.Line
	var bestPrio interrupt.Priority
	cand := m.PendingLines() & m.enabled
	for cand != 0 {
		l, _ := cand.Lowest()
		cand = cand.Without(l)
		if p := m.prio[l]; p > floor && p > bestPrio {
			best, bestPrio = l, p
		}
	}
	return best, bestPrio, bestPrio != interrupt.PriorityNone
}

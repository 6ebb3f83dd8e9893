package interrupt

import "github.com/pkg/errors"

// Stats counts dispatch activity since the last Reset.
type Stats struct {
	Traps         uint32
	Dispatched    uint32 // direct handler invocations
	Deferred      uint32 // deferred dispatches recorded
	DeferredRun   uint32 // deferred handlers run by Pump
	Unrouted      uint32
	FaultsDropped uint32
	MaxTrapDepth  int
}

// Controller is the interrupt system of one CPU core: matrix, handler
// registry, mask stack and vector dispatcher behind a single handle. Cores
// never share a Controller.
type Controller struct {
	cfg      Config
	hw       Hardware
	matrix   *Matrix
	registry *Registry
	mask     *MaskState

	trapDepth int
	lineState [MaxLines]LineState
	deferred  [MaxLines]uint32
	pendingDf LineMask

	faults   faultQueue
	faultSeq uint32
	trace    *traceRing
	debug    debugOut
	stats    Stats
	poisoned bool
}

// New builds a controller over hw with every line unbound and the mask
// fully open.
func New(hw Hardware, cfg Config) (*Controller, error) {
	if hw == nil {
		return nil, errHardwareNotAvailable
	}
	applyDefaults(&cfg)

	c := &Controller{
		cfg:    cfg,
		hw:     hw,
		faults: newFaultQueue(cfg.FaultQueue),
		trace:  newTraceRing(cfg.TraceDepth),
		debug:  debugOut{writer: cfg.Debug, enabled: cfg.Debug != nil},
	}
	c.matrix = newMatrix(&c.cfg, hw)
	c.registry = newRegistry(c.matrix)
	c.mask = newMaskState(hw, c.maskViolation)
	c.Reset()
	return c, nil
}

// Reset returns the controller to its initial state: all sources
// disconnected, all lines unbound and disabled, mask open, queues empty.
func (c *Controller) Reset() {
	c.matrix.reset()
	c.registry.reset()
	c.mask.reset()
	c.trapDepth = 0
	c.lineState = [MaxLines]LineState{}
	c.deferred = [MaxLines]uint32{}
	c.pendingDf = 0
	c.faults.reset()
	c.faultSeq = 0
	c.trace.reset()
	c.stats = Stats{}
	c.poisoned = false
}

// Core returns the CPU core this controller serves.
func (c *Controller) Core() int { return c.cfg.Core }

// MaxPriority returns the highest priority level of the CPU.
func (c *Controller) MaxPriority() Priority { return c.cfg.MaxPriority }

// Matrix exposes the routing matrix for bulk reconfiguration. Its methods
// skip the context checks the Controller performs.
func (c *Controller) Matrix() *Matrix { return c.matrix }

// Registry exposes the handler registry.
func (c *Controller) Registry() *Registry { return c.registry }

// InInterrupt reports whether the caller runs inside a trap.
func (c *Controller) InInterrupt() bool { return c.trapDepth > 0 }

// Bind routes source to line at priority p. The caller masks the line
// while reconfiguring a live system.
func (c *Controller) Bind(source Source, line Line, p Priority) error {
	if c.InInterrupt() {
		return ErrWrongContext
	}
	err := c.matrix.Bind(source, line, p)
	var conflict *RoutingConflictError
	if errors.As(err, &conflict) {
		c.report(Fault{Kind: FaultRoutingConflict, Line: line, Source: source, Err: err})
	}
	return err
}

// Unbind disconnects source. A later trap for its old line is reported as
// unrouted.
func (c *Controller) Unbind(source Source) error {
	if c.InInterrupt() {
		return ErrWrongContext
	}
	return c.matrix.Unbind(source)
}

// Allocate binds source to the lowest free unreserved line.
func (c *Controller) Allocate(source Source, p Priority) (Line, error) {
	if c.InInterrupt() {
		return 0, ErrWrongContext
	}
	return c.matrix.Allocate(source, p)
}

// SetKind selects level or edge latching for line.
func (c *Controller) SetKind(line Line, k Kind) error {
	if c.InInterrupt() {
		return ErrWrongContext
	}
	return c.matrix.SetKind(line, k)
}

// PriorityOf returns the priority of line.
func (c *Controller) PriorityOf(line Line) Priority { return c.matrix.PriorityOf(line) }

// LineOf returns the line source is routed to.
func (c *Controller) LineOf(source Source) (Line, bool) { return c.matrix.LineOf(source) }

// Routes returns the routing table.
func (c *Controller) Routes() []Route { return c.matrix.Routes() }

// Register binds h to line and returns the binding it replaced. The swap
// runs with the line masked. A line the dispatcher disabled as unrouted is
// enabled again when it carries a source.
func (c *Controller) Register(line Line, h Handler, mode Mode) (prev Binding, hadPrev bool, err error) {
	if c.InInterrupt() {
		return Binding{}, false, ErrWrongContext
	}
	c.mask.Critical(c.matrix.PriorityOf(line), func() {
		prev, hadPrev, err = c.registry.Register(line, h, mode)
		if err == nil && c.matrix.routed.Has(line) {
			c.matrix.enable(line)
		}
	})
	return prev, hadPrev, err
}

// Unregister removes the binding of line and discards its pending deferred
// work. A handler already servicing the line runs to completion.
func (c *Controller) Unregister(line Line) (prev Binding, hadPrev bool, err error) {
	if c.InInterrupt() {
		return Binding{}, false, ErrWrongContext
	}
	c.mask.Critical(c.matrix.PriorityOf(line), func() {
		prev, hadPrev, err = c.registry.Unregister(line)
		if err == nil {
			c.deferred[line] = 0
			c.pendingDf = c.pendingDf.Without(line)
		}
	})
	return prev, hadPrev, err
}

// Lookup returns the binding of line.
func (c *Controller) Lookup(line Line) (Binding, bool) { return c.registry.Lookup(line) }

// Enter opens a critical section raising the mask to at least threshold.
func (c *Controller) Enter(threshold Priority) Token { return c.mask.Enter(threshold) }

// Exit closes the critical section opened by tok.
func (c *Controller) Exit(tok Token) { c.mask.Exit(tok) }

// Critical runs fn inside a critical section at threshold.
func (c *Controller) Critical(threshold Priority, fn func()) { c.mask.Critical(threshold, fn) }

// Mask returns the effective mask threshold.
func (c *Controller) Mask() Priority { return c.mask.Mask() }

// MaskDepth returns the number of open mask scopes, traps included.
func (c *Controller) MaskDepth() int { return c.mask.Depth() }

// LineState returns the dispatch state of line.
func (c *Controller) LineState(line Line) LineState {
	if line >= MaxLines {
		return LineIdle
	}
	return c.lineState[line]
}

// Status returns the sources the matrix reports as asserted.
func (c *Controller) Status() SourceSet { return c.hw.PendingSources() }

// Stats returns the activity counters.
func (c *Controller) Stats() Stats {
	s := c.stats
	s.FaultsDropped = c.faults.dropped
	return s
}

// Trace returns the trace ring, oldest event first.
func (c *Controller) Trace() []Event { return c.trace.snapshot() }

// Poisoned reports whether a mask discipline violation stopped dispatch.
func (c *Controller) Poisoned() bool { return c.poisoned }

// FlushFaults delivers queued dispatch faults to the sink and returns how
// many were delivered.
func (c *Controller) FlushFaults() int {
	n := 0
	for {
		var f Fault
		var ok bool
		c.mask.Critical(c.cfg.MaxPriority, func() {
			f, ok = c.faults.pop()
		})
		if !ok {
			return n
		}
		c.deliverFault(f)
		n++
	}
}

// queueFault records a fault from interrupt context.
func (c *Controller) queueFault(f Fault) {
	c.faultSeq++
	f.Seq = c.faultSeq
	f.Core = c.cfg.Core
	if !c.faults.push(f) {
		c.debugAsync("[INTR] fault queue full, dropped " + f.Kind.String())
	}
}

// report delivers a fault synchronously from non-interrupt context.
func (c *Controller) report(f Fault) {
	c.faultSeq++
	f.Seq = c.faultSeq
	f.Core = c.cfg.Core
	c.deliverFault(f)
}

func (c *Controller) deliverFault(f Fault) {
	c.debugPrintln("[INTR] fault " + f.Kind.String() + ": " + errString(f.Err))
	if c.cfg.Faults != nil {
		c.cfg.Faults.Report(f)
	}
}

// maskViolation is fatal: the mask can no longer be trusted, so dispatch
// stops and the embedding system's Fatal hook takes over. A violation made
// inside a handler is queued for FlushFaults like any other trap fault.
func (c *Controller) maskViolation(err *MaskDisciplineError) {
	c.poisoned = true
	f := Fault{Kind: FaultMaskDiscipline, Err: err}
	if c.InInterrupt() {
		c.queueFault(f)
	} else {
		c.report(f)
	}
	c.cfg.Fatal(err)
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

package interrupt

// Trap is the vector entry for CPU line. The CPU, or the simulated
// hardware, calls it when line is pending, enabled and above the mask.
//
// The mask is raised to the line's priority for the whole trap, so only
// strictly higher lines can preempt a handler. Every pending, enabled line
// of the same priority class is serviced, lowest line first.
func (c *Controller) Trap(line Line) {
	if line >= MaxLines {
		return
	}
	if c.poisoned {
		c.matrix.disable(line)
		return
	}

	prio := c.matrix.PriorityOf(line)
	tok := c.mask.Enter(prio)
	c.trapDepth++
	c.stats.Traps++
	if c.trapDepth > c.stats.MaxTrapDepth {
		c.stats.MaxTrapDepth = c.trapDepth
	}
	c.trace.record(EvtTrapEnter, line, 0, prio)
	defer c.leaveTrap(tok, line, prio)

	if prio == PriorityNone {
		// Nothing is routed here: a stale assertion after Unbind.
		c.unrouted(line)
		return
	}

	pending := c.hw.PendingLines()
	if c.matrix.KindOf(line) == KindEdge {
		c.hw.ClearLine(line)
	}
	pending &= c.matrix.Enabled() & c.matrix.LinesAt(prio)
	for pending != 0 {
		l, _ := pending.Lowest()
		pending = pending.Without(l)
		// The scan consumes every edge latch it services, or the CPU
		// would trap the line again for an acknowledged source.
		if l != line && c.matrix.KindOf(l) == KindEdge {
			c.hw.ClearLine(l)
		}
		c.lineState[l] = LinePending
		c.service(l, prio)
	}
}

func (c *Controller) leaveTrap(tok Token, line Line, prio Priority) {
	if r := recover(); r != nil {
		c.trapDepth--
		c.mask.unwindTo(tok)
		panic(r)
	}
	c.trace.record(EvtTrapExit, line, 0, prio)
	c.trapDepth--
	c.mask.Exit(tok)
}

// service dispatches one pending line.
func (c *Controller) service(l Line, prio Priority) {
	b, ok := c.registry.Lookup(l)
	if !ok {
		c.unrouted(l)
		return
	}
	src, _ := c.matrix.SourceOf(l)
	ack := c.cfg.ackPolicy(src)

	c.lineState[l] = LineServicing
	if ack == AckBeforeHandler {
		c.acknowledge(l, src, prio)
	}

	switch b.Mode {
	case ModeDirect:
		c.trace.record(EvtHandlerStart, l, src, prio)
		c.stats.Dispatched++
		b.Handler(l)
		c.trace.record(EvtHandlerEnd, l, src, prio)
	case ModeDeferred:
		c.deferred[l]++
		c.pendingDf = c.pendingDf.With(l)
		c.stats.Deferred++
		c.trace.record(EvtDeferQueued, l, src, prio)
	}

	if ack == AckAfterHandler {
		c.acknowledge(l, src, prio)
	}

	// A reassertion during the handler keeps the line pending; the CPU
	// traps again once the mask drops.
	if c.hw.PendingLines().Has(l) {
		c.lineState[l] = LinePending
	} else {
		c.lineState[l] = LineIdle
	}
}

func (c *Controller) acknowledge(l Line, src Source, prio Priority) {
	c.hw.Acknowledge(src)
	c.trace.record(EvtAck, l, src, prio)
}

// unrouted masks a pending line that has nowhere to go and queues the
// fault, so a level source cannot trap forever.
func (c *Controller) unrouted(l Line) {
	src, routed := c.matrix.SourceOf(l)
	c.matrix.disable(l)
	c.lineState[l] = LineIdle
	c.stats.Unrouted++
	c.trace.record(EvtUnrouted, l, src, c.matrix.PriorityOf(l))
	c.queueFault(Fault{
		Kind:   FaultUnroutedInterrupt,
		Line:   l,
		Source: src,
		Err:    &UnroutedInterruptError{Line: l, Source: src, Routed: routed},
	})
	c.debugAsync("[INTR] unrouted interrupt on line " + utoa(uint32(l)) + ", line masked")
}

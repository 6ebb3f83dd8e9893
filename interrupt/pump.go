package interrupt

// Pump runs the handlers of deferred-mode lines from normal execution
// context, lowest line first and once per recorded dispatch. Dispatches
// recorded while Pump runs are left for the next call. Queued faults are
// delivered afterwards. A poisoned controller runs nothing.
func (c *Controller) Pump() (int, error) {
	if c.InInterrupt() {
		return 0, ErrWrongContext
	}
	if c.poisoned {
		return 0, ErrControllerPoisoned
	}

	var work [MaxLines]uint32
	var lines LineMask
	c.mask.Critical(c.cfg.MaxPriority, func() {
		lines = c.pendingDf
		work = c.deferred
		c.deferred = [MaxLines]uint32{}
		c.pendingDf = 0
	})

	// A panicking handler leaves the work it did not reach for the next
	// Pump. The invocation that panicked counts as run.
	var l Line
	var n uint32
	defer func() {
		if lines == 0 && n == 0 {
			return
		}
		c.mask.Critical(c.cfg.MaxPriority, func() {
			if n > 0 {
				c.requeue(l, n)
			}
			for lines != 0 {
				r, _ := lines.Lowest()
				lines = lines.Without(r)
				c.requeue(r, work[r])
			}
		})
	}()

	ran := 0
	for lines != 0 {
		l, _ = lines.Lowest()
		lines = lines.Without(l)
		for n = work[l]; n > 0; {
			// Looked up each time: a handler may unregister its own line.
			b, ok := c.registry.Lookup(l)
			if !ok || b.Mode != ModeDeferred {
				n = 0
				break
			}
			n--
			src, _ := c.matrix.SourceOf(l)
			c.trace.record(EvtDeferRun, l, src, PriorityNone)
			c.stats.DeferredRun++
			ran++
			b.Handler(l)
		}
	}

	c.FlushFaults()
	return ran, nil
}

func (c *Controller) requeue(l Line, n uint32) {
	if n == 0 {
		return
	}
	c.deferred[l] += n
	c.pendingDf = c.pendingDf.With(l)
}

// PendingDeferred returns the number of dispatches waiting for Pump on line.
func (c *Controller) PendingDeferred(line Line) uint32 {
	if line >= MaxLines {
		return 0
	}
	return c.deferred[line]
}

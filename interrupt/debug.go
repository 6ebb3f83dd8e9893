package interrupt

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// debugOut is the per-controller debug output. Messages from interrupt
// context go through the async channel so a slow UART never stretches a
// trap.
type debugOut struct {
	writer  DebugWriter
	enabled bool
	ch      chan string
	done    chan struct{}
}

// SetDebugWriter sets the platform-specific debug output function
func (c *Controller) SetDebugWriter(w DebugWriter) {
	c.debug.writer = w
}

// SetDebugEnabled enables or disables debug output
func (c *Controller) SetDebugEnabled(enabled bool) {
	c.debug.enabled = enabled
}

// StartAsyncDebug starts the goroutine draining queued debug messages.
func (c *Controller) StartAsyncDebug(buffer int) {
	if c.debug.ch != nil {
		return
	}
	if buffer <= 0 {
		buffer = 16
	}
	c.debug.ch = make(chan string, buffer)
	c.debug.done = make(chan struct{})
	go c.debugOutputWorker(c.debug.ch, c.debug.done)
}

// StopAsyncDebug flushes and stops the async debug goroutine.
func (c *Controller) StopAsyncDebug() {
	if c.debug.ch == nil {
		return
	}
	close(c.debug.ch)
	<-c.debug.done
	c.debug.ch = nil
	c.debug.done = nil
}

func (c *Controller) debugOutputWorker(ch <-chan string, done chan<- struct{}) {
	for msg := range ch {
		if c.debug.writer != nil {
			c.debug.writer(msg)
		}
	}
	close(done)
}

// debugPrintln writes synchronously; only for non-interrupt context.
func (c *Controller) debugPrintln(msg string) {
	if c.debug.enabled && c.debug.writer != nil {
		c.debug.writer(msg)
	}
}

// debugAsync queues a message and drops it when the channel is full or
// async output is not running.
func (c *Controller) debugAsync(msg string) {
	if !c.debug.enabled || c.debug.ch == nil {
		return
	}
	select {
	case c.debug.ch <- msg:
	default:
	}
}

// DumpTrace writes the trace ring through the debug writer, oldest first.
func (c *Controller) DumpTrace() {
	w := c.debug.writer
	if w == nil {
		return
	}
	w("[INTR] === Trace Dump core=" + itoa(c.cfg.Core) + " ===")
	for _, evt := range c.trace.snapshot() {
		w("[INTR] " + evt.Kind.String() +
			" line=" + utoa(uint32(evt.Line)) +
			" src=" + utoa(uint32(evt.Source)) +
			" prio=" + utoa(uint32(evt.Priority)) +
			" seq=" + utoa(evt.Seq))
	}
	w("[INTR] === End Dump ===")
}

package sim

import "intmux/interrupt"

// Timer asserts Source when the clock reaches WakeTime. A non-zero Period
// reschedules it that many ticks later.
type Timer struct {
	WakeTime uint32
	Period   uint32
	Source   interrupt.Source
	Next     *Timer
}

// Clock drives timer sources of a Machine from simulated ticks.
type Clock struct {
	m     *Machine
	now   uint32
	timer *Timer
}

// NewClock returns a clock at tick 0 feeding m.
func NewClock(m *Machine) *Clock {
	return &Clock{m: m}
}

// Now returns the current tick.
func (c *Clock) Now() uint32 { return c.now }

// Schedule adds t to the timer list
func (c *Clock) Schedule(t *Timer) {
	if c.timer == nil || before(t.WakeTime, c.timer.WakeTime) {
		t.Next = c.timer
		c.timer = t
		return
	}

	cur := c.timer
	for cur.Next != nil && !before(t.WakeTime, cur.Next.WakeTime) {
		cur = cur.Next
	}
	t.Next = cur.Next
	cur.Next = t
}

// Every schedules a periodic assertion of src, first firing period ticks
// from now.
func (c *Clock) Every(src interrupt.Source, period uint32) *Timer {
	t := &Timer{WakeTime: c.now + period, Period: period, Source: src}
	c.Schedule(t)
	return t
}

// Cancel removes t from the timer list.
func (c *Clock) Cancel(t *Timer) {
	for p := &c.timer; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return
		}
	}
}

// Advance moves the clock forward and fires due timers in wake order. It
// returns the number of assertions made.
func (c *Clock) Advance(ticks uint32) int {
	end := c.now + ticks
	fired := 0
	for c.timer != nil && !before(end, c.timer.WakeTime) {
		t := c.timer
		c.timer = t.Next
		t.Next = nil
		c.now = t.WakeTime

		c.m.Assert(t.Source)
		fired++

		if t.Period != 0 {
			t.WakeTime += t.Period
			c.Schedule(t)
		}
	}
	c.now = end
	return fired
}

// before reports whether a is earlier than b on the wrapping tick counter.
func before(a, b uint32) bool {
	return int32(a-b) < 0
}

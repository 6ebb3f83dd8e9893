package interrupt

import (
	"testing"

	"github.com/pkg/errors"
)

func TestDeferredRunsFromPump(t *testing.T) {
	c, hw, _, _ := newTestController(t)
	c.Bind(1, 4, 2)

	var ran []bool // InInterrupt at run time
	c.Register(4, func(Line) { ran = append(ran, c.InInterrupt()) }, ModeDeferred)

	for i := 0; i < 3; i++ {
		hw.assert(1)
		c.Trap(4)
	}

	if len(ran) != 0 {
		t.Fatal("deferred handler ran inside the trap")
	}
	if c.PendingDeferred(4) != 3 {
		t.Fatalf("PendingDeferred = %d, want 3", c.PendingDeferred(4))
	}

	n, err := c.Pump()
	if err != nil || n != 3 {
		t.Fatalf("Pump = %d,%v, want 3,nil", n, err)
	}
	for i, intr := range ran {
		if intr {
			t.Errorf("run %d happened in interrupt context", i)
		}
	}
	if c.PendingDeferred(4) != 0 {
		t.Error("work left after Pump")
	}
	if n, _ := c.Pump(); n != 0 {
		t.Errorf("empty Pump ran %d", n)
	}
}

func TestPumpOrderAcrossLines(t *testing.T) {
	c, hw, _, _ := newTestController(t)
	c.Bind(1, 9, 2)
	c.Bind(2, 3, 5)

	var order []Line
	rec := func(l Line) { order = append(order, l) }
	c.Register(9, rec, ModeDeferred)
	c.Register(3, rec, ModeDeferred)

	hw.assert(1)
	c.Trap(9)
	hw.assert(2)
	c.Trap(3)
	hw.assert(1)
	c.Trap(9)

	c.Pump()

	want := []Line{3, 9, 9}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestPumpKeepsWorkAfterHandlerPanic(t *testing.T) {
	c, hw, _, _ := newTestController(t)
	c.Bind(1, 4, 2)
	c.Bind(2, 9, 2)

	panicked := false
	runs := map[Line]int{}
	c.Register(4, func(l Line) {
		runs[l]++
		if !panicked {
			panicked = true
			panic("deferred handler failed")
		}
	}, ModeDeferred)
	c.Register(9, func(l Line) { runs[l]++ }, ModeDeferred)

	for i := 0; i < 3; i++ {
		hw.assert(1)
		c.Trap(4)
	}
	hw.assert(2)
	c.Trap(9)

	func() {
		defer func() { recover() }()
		c.Pump()
	}()

	if c.PendingDeferred(4) != 2 || c.PendingDeferred(9) != 1 {
		t.Fatalf("pending after panic: line 4 %d, line 9 %d, want 2 and 1",
			c.PendingDeferred(4), c.PendingDeferred(9))
	}
	if c.Mask() != PriorityNone || c.MaskDepth() != 0 {
		t.Errorf("mask %d depth %d after panic", c.Mask(), c.MaskDepth())
	}

	n, err := c.Pump()
	if err != nil || n != 3 {
		t.Fatalf("Pump = %d,%v, want 3,nil", n, err)
	}
	if runs[4] != 3 || runs[9] != 1 {
		t.Errorf("runs = %v, want line 4 three times and line 9 once", runs)
	}
}

func TestPumpFromInterruptContext(t *testing.T) {
	c, hw, _, _ := newTestController(t)
	c.Bind(1, 2, 1)

	var pumpErr error
	c.Register(2, func(Line) { _, pumpErr = c.Pump() }, ModeDirect)
	hw.assert(1)
	c.Trap(2)

	if !errors.Is(pumpErr, ErrWrongContext) {
		t.Errorf("Pump inside trap: got %v", pumpErr)
	}
}

func TestUnregisterDropsDeferredWork(t *testing.T) {
	c, hw, _, _ := newTestController(t)
	c.Bind(1, 2, 1)
	c.Register(2, func(Line) { t.Error("dropped work ran") }, ModeDeferred)
	hw.assert(1)
	c.Trap(2)

	c.Unregister(2)
	if n, _ := c.Pump(); n != 0 {
		t.Errorf("Pump ran %d handlers after Unregister", n)
	}
}

func TestFaultQueueOverflowCounted(t *testing.T) {
	hw := &fakeHardware{}
	rec := &faultRecorder{}
	c, _ := New(hw, Config{Sources: 8, FaultQueue: 2, Faults: rec})

	for l := Line(1); l <= 4; l++ {
		c.Trap(l) // nothing routed anywhere
	}
	if got := c.Stats().FaultsDropped; got != 2 {
		t.Errorf("FaultsDropped = %d, want 2", got)
	}
	if n := c.FlushFaults(); n != 2 || len(rec.faults) != 2 {
		t.Errorf("FlushFaults = %d, sink got %d", n, len(rec.faults))
	}
	if rec.faults[0].Seq >= rec.faults[1].Seq {
		t.Error("fault sequence not increasing")
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	c, hw, _, _ := newTestController(t)
	c.Bind(1, 2, 4)
	c.Register(2, func(Line) {}, ModeDeferred)
	hw.assert(1)
	c.Trap(2)
	c.Enter(6)

	c.Reset()

	if len(c.Routes()) != 0 || c.Registry().Bound() != 0 {
		t.Error("bindings survived Reset")
	}
	if c.Mask() != PriorityNone || c.MaskDepth() != 0 || hw.threshold != PriorityNone {
		t.Error("mask not reopened by Reset")
	}
	if hw.enabled != 0 || hw.routes[1] != 0 {
		t.Error("hardware not reset")
	}
	if c.PendingDeferred(2) != 0 || c.Stats().Traps != 0 || len(c.Trace()) != 0 {
		t.Error("queues or counters survived Reset")
	}
}

func TestPoisonedControllerStopsDispatch(t *testing.T) {
	c, hw, rec, fatals := newTestController(t)
	c.Bind(1, 4, 2)
	calls := 0
	c.Register(4, func(Line) { calls++ }, ModeDirect)

	c.Exit(Token{})
	if len(*fatals) != 1 || !c.Poisoned() {
		t.Fatalf("fatals = %v, poisoned = %v", *fatals, c.Poisoned())
	}
	if len(rec.faults) != 1 || rec.faults[0].Kind != FaultMaskDiscipline {
		t.Errorf("faults = %+v", rec.faults)
	}

	hw.assert(1)
	c.Trap(4)
	if calls != 0 {
		t.Error("poisoned controller dispatched a handler")
	}
	if hw.enabled.Has(4) {
		t.Error("line 4 left enabled after poisoned trap")
	}
	if _, err := c.Pump(); !errors.Is(err, ErrControllerPoisoned) {
		t.Errorf("Pump: got %v, want ErrControllerPoisoned", err)
	}

	c.Reset()
	if c.Poisoned() {
		t.Error("Reset left the controller poisoned")
	}
}

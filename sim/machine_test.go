package sim

import (
	"testing"

	"github.com/pkg/errors"

	"intmux/chip"
	"intmux/interrupt"
)

const (
	timer0 interrupt.Source = 0
	uart0  interrupt.Source = 2
	dma0   interrupt.Source = 8
	sw0    interrupt.Source = 10
	sw1    interrupt.Source = 11
)

// newSystem builds a Sim32 core 0 controller wired to a running machine.
func newSystem(t *testing.T, mode LatchMode) (*interrupt.Controller, *Machine, *[]interrupt.Fault) {
	t.Helper()
	cfg, err := chip.Sim32.Config(0)
	if err != nil {
		t.Fatal(err)
	}
	faults := &[]interrupt.Fault{}
	cfg.Faults = interrupt.FaultFunc(func(f interrupt.Fault) { *faults = append(*faults, f) })

	m := New(mode)
	ctrl, err := interrupt.New(m, cfg)
	if err != nil {
		t.Fatalf("interrupt.New failed: %v", err)
	}
	m.Attach(ctrl)
	m.EnableInterrupts()
	return ctrl, m, faults
}

func mustBind(t *testing.T, ctrl *interrupt.Controller, src interrupt.Source, line interrupt.Line, p interrupt.Priority) {
	t.Helper()
	if err := ctrl.Bind(src, line, p); err != nil {
		t.Fatalf("Bind(%d, %d, %d): %v", src, line, p, err)
	}
}

func mustRegister(t *testing.T, ctrl *interrupt.Controller, line interrupt.Line, h interrupt.Handler, mode interrupt.Mode) {
	t.Helper()
	if _, _, err := ctrl.Register(line, h, mode); err != nil {
		t.Fatalf("Register(%d): %v", line, err)
	}
}

func TestTimer0Scenario(t *testing.T) {
	ctrl, m, _ := newSystem(t, Coalesce)
	mustBind(t, ctrl, timer0, 5, 3)

	var calls []string
	mustRegister(t, ctrl, 5, func(interrupt.Line) { calls = append(calls, "H") }, interrupt.ModeDirect)

	m.Assert(timer0)
	if len(calls) != 1 || calls[0] != "H" {
		t.Fatalf("calls = %v, want [H]", calls)
	}
	if m.Latched(timer0) != 0 {
		t.Error("TIMER0 still latched after dispatch")
	}
	if ctrl.LineState(5) != interrupt.LineIdle {
		t.Errorf("line 5 is %s, want idle", ctrl.LineState(5))
	}

	ctrl.Critical(3, func() {
		mustRegister(t, ctrl, 5, func(interrupt.Line) { calls = append(calls, "H2") }, interrupt.ModeDirect)
		m.Assert(timer0)
		if len(calls) != 1 {
			t.Error("line 5 delivered while masked at its own priority")
		}
	})

	if len(calls) != 2 || calls[1] != "H2" {
		t.Fatalf("calls = %v, want [H H2]", calls)
	}
	if m.Threshold() != interrupt.PriorityNone {
		t.Errorf("threshold %d after scenario", m.Threshold())
	}
}

func TestPreemptionOrder(t *testing.T) {
	tests := []struct {
		name  string
		first interrupt.Source
		want  []string
	}{
		{"high preempts low", timer0, []string{"low-start", "high-start", "high-end", "low-end"}},
		{"low waits for high", uart0, []string{"high-start", "high-end", "low-start", "low-end"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, m, _ := newSystem(t, Coalesce)
			mustBind(t, ctrl, timer0, 5, 2)
			mustBind(t, ctrl, uart0, 6, 5)

			var log []string
			mustRegister(t, ctrl, 5, func(interrupt.Line) {
				log = append(log, "low-start")
				if tt.first == timer0 {
					m.Assert(uart0)
				}
				log = append(log, "low-end")
			}, interrupt.ModeDirect)
			mustRegister(t, ctrl, 6, func(interrupt.Line) {
				log = append(log, "high-start")
				if tt.first == uart0 {
					m.Assert(timer0)
				}
				log = append(log, "high-end")
			}, interrupt.ModeDirect)

			m.Assert(tt.first)

			if len(log) != len(tt.want) {
				t.Fatalf("log = %v, want %v", log, tt.want)
			}
			for i := range log {
				if log[i] != tt.want[i] {
					t.Fatalf("log = %v, want %v", log, tt.want)
				}
			}
			if ctrl.InInterrupt() || ctrl.MaskDepth() != 0 {
				t.Errorf("depth %d after traps", ctrl.MaskDepth())
			}
		})
	}
}

func TestPreemptionStats(t *testing.T) {
	ctrl, m, _ := newSystem(t, Coalesce)
	mustBind(t, ctrl, timer0, 5, 2)
	mustBind(t, ctrl, uart0, 6, 5)
	mustRegister(t, ctrl, 5, func(interrupt.Line) { m.Assert(uart0) }, interrupt.ModeDirect)
	mustRegister(t, ctrl, 6, func(interrupt.Line) {}, interrupt.ModeDirect)

	m.Assert(timer0)

	st := m.Stats()
	if st.Preemptions != 1 || st.MaxNesting != 2 || st.Delivered != 2 {
		t.Errorf("stats = %+v", st)
	}
	if ctrl.Stats().MaxTrapDepth != 2 {
		t.Errorf("controller MaxTrapDepth = %d, want 2", ctrl.Stats().MaxTrapDepth)
	}
}

func TestCriticalSectionBlocksDelivery(t *testing.T) {
	ctrl, m, _ := newSystem(t, Coalesce)
	mustBind(t, ctrl, uart0, 6, 5)

	calls := 0
	mustRegister(t, ctrl, 6, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)

	ctrl.Critical(5, func() {
		m.Assert(uart0)
		if calls != 0 {
			t.Error("priority 5 line delivered inside a priority 5 critical section")
		}
	})
	if calls != 1 {
		t.Fatalf("calls after exit = %d, want 1", calls)
	}

	ctrl.Critical(4, func() {
		m.Assert(uart0)
		if calls != 2 {
			t.Error("priority 5 line held by a priority 4 critical section")
		}
	})

	tok := ctrl.Enter(7)
	inner := ctrl.Enter(1)
	m.Assert(uart0)
	ctrl.Exit(inner)
	if calls != 2 {
		t.Error("inner lower scope opened the mask")
	}
	ctrl.Exit(tok)
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSamePriorityServicedInOneTrap(t *testing.T) {
	ctrl, m, _ := newSystem(t, Coalesce)
	mustBind(t, ctrl, timer0, 5, 3)
	mustBind(t, ctrl, uart0, 6, 3)

	var order []interrupt.Line
	h := func(l interrupt.Line) { order = append(order, l) }
	mustRegister(t, ctrl, 5, h, interrupt.ModeDirect)
	mustRegister(t, ctrl, 6, h, interrupt.ModeDirect)

	ctrl.Critical(ctrl.MaxPriority(), func() {
		m.Assert(uart0)
		m.Assert(timer0)
	})

	if len(order) != 2 || order[0] != 5 || order[1] != 6 {
		t.Fatalf("order = %v, want [5 6]", order)
	}
	if n := ctrl.Stats().Traps; n != 1 {
		t.Errorf("traps = %d, want 1", n)
	}
}

func TestNoLossCountMode(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100} {
		ctrl, m, _ := newSystem(t, Count)
		mustBind(t, ctrl, timer0, 5, 3)

		calls := 0
		mustRegister(t, ctrl, 5, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)

		ctrl.Critical(ctrl.MaxPriority(), func() {
			for i := 0; i < n; i++ {
				m.Assert(timer0)
			}
		})
		if calls != n {
			t.Errorf("n=%d: %d handler calls", n, calls)
		}
		if m.Err() != nil {
			t.Errorf("n=%d: %v", n, m.Err())
		}
	}
}

func TestNoLossDeferred(t *testing.T) {
	ctrl, m, _ := newSystem(t, Count)
	mustBind(t, ctrl, dma0, 7, 4)

	calls := 0
	mustRegister(t, ctrl, 7, func(interrupt.Line) { calls++ }, interrupt.ModeDeferred)

	const n = 50
	ctrl.Critical(ctrl.MaxPriority(), func() {
		for i := 0; i < n; i++ {
			m.Assert(dma0)
		}
	})
	if calls != 0 {
		t.Fatalf("deferred handler ran %d times in interrupt context", calls)
	}
	if got := ctrl.PendingDeferred(7); got != n {
		t.Fatalf("PendingDeferred = %d, want %d", got, n)
	}

	ran, err := ctrl.Pump()
	if err != nil {
		t.Fatal(err)
	}
	if ran != n || calls != n {
		t.Errorf("Pump ran %d, handler calls %d, want %d", ran, calls, n)
	}
}

func TestCoalesceMergesWhileMasked(t *testing.T) {
	ctrl, m, _ := newSystem(t, Coalesce)
	mustBind(t, ctrl, timer0, 5, 3)

	calls := 0
	mustRegister(t, ctrl, 5, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)

	ctrl.Critical(ctrl.MaxPriority(), func() {
		for i := 0; i < 5; i++ {
			m.Assert(timer0)
		}
	})
	if calls != 1 {
		t.Errorf("coalescing latch: %d calls, want 1", calls)
	}

	// With the mask open every assertion is its own dispatch.
	for i := 0; i < 5; i++ {
		m.Assert(timer0)
	}
	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
}

func TestEdgeLineCountMode(t *testing.T) {
	ctrl, m, _ := newSystem(t, Count)
	mustBind(t, ctrl, sw0, 9, 2)
	if err := ctrl.SetKind(9, interrupt.KindEdge); err != nil {
		t.Fatal(err)
	}

	calls := 0
	mustRegister(t, ctrl, 9, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)

	ctrl.Critical(ctrl.MaxPriority(), func() {
		m.Assert(sw0)
		m.Assert(sw0)
		m.Assert(sw0)
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if m.PendingLines().Has(9) {
		t.Error("edge latch still set after last dispatch")
	}
}

func TestSamePriorityEdgeLinesOncePerAssertion(t *testing.T) {
	for _, mode := range []LatchMode{Coalesce, Count} {
		ctrl, m, _ := newSystem(t, mode)
		mustBind(t, ctrl, sw0, 12, 2)
		mustBind(t, ctrl, sw1, 13, 2)
		for _, l := range []interrupt.Line{12, 13} {
			if err := ctrl.SetKind(l, interrupt.KindEdge); err != nil {
				t.Fatal(err)
			}
		}

		calls := map[interrupt.Line]int{}
		h := func(l interrupt.Line) { calls[l]++ }
		mustRegister(t, ctrl, 12, h, interrupt.ModeDirect)
		mustRegister(t, ctrl, 13, h, interrupt.ModeDirect)

		m.DisableInterrupts()
		m.Assert(sw0)
		m.Assert(sw1)
		m.EnableInterrupts()

		if calls[12] != 1 || calls[13] != 1 {
			t.Errorf("%s: calls line12=%d line13=%d, want 1 each", mode, calls[12], calls[13])
		}
		if p := m.PendingLines(); p.Has(12) || p.Has(13) {
			t.Errorf("%s: edge latch left set: %#x", mode, p)
		}
		if st := m.Stats(); st.Delivered != 1 {
			t.Errorf("%s: %d traps delivered, want 1", mode, st.Delivered)
		}
	}
}

func TestFaultContainment(t *testing.T) {
	ctrl, m, faults := newSystem(t, Coalesce)
	mustBind(t, ctrl, timer0, 5, 3)
	mustBind(t, ctrl, uart0, 6, 3)

	calls := 0
	mustRegister(t, ctrl, 6, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)

	// Line 5 carries TIMER0 but has no handler.
	m.Assert(timer0)

	if m.Enabled().Has(5) {
		t.Error("unrouted line 5 left enabled")
	}
	if m.Err() != nil {
		t.Errorf("unrouted line stormed: %v", m.Err())
	}
	if len(*faults) != 0 {
		t.Error("fault delivered from interrupt context")
	}

	m.Assert(uart0)
	if calls != 1 {
		t.Errorf("line 6 calls = %d, want 1", calls)
	}

	if _, err := ctrl.Pump(); err != nil {
		t.Fatal(err)
	}
	if len(*faults) != 1 {
		t.Fatalf("faults = %v", *faults)
	}
	f := (*faults)[0]
	if f.Kind != interrupt.FaultUnroutedInterrupt || f.Line != 5 {
		t.Errorf("fault = %+v", f)
	}
	if !errors.Is(f.Err, interrupt.ErrUnroutedInterrupt) {
		t.Errorf("fault error %v", f.Err)
	}

	// Registering a handler brings the line back; the still latched source
	// is delivered at once.
	mustRegister(t, ctrl, 5, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)
	if calls != 2 {
		t.Errorf("calls = %d after re-enabling line 5, want 2", calls)
	}
}

type stuckCPU struct {
	traps int
}

func (s *stuckCPU) Trap(interrupt.Line) { s.traps++ }

func TestInterruptStorm(t *testing.T) {
	m := New(Coalesce)
	cpu := &stuckCPU{}
	m.Attach(cpu)
	m.SetDeliveryLimit(10)
	m.MapSource(timer0, 5)
	m.SetLinePriority(5, 1)
	m.EnableLines(interrupt.LineMask(0).With(5))
	m.EnableInterrupts()

	m.Assert(timer0)

	if cpu.traps != 10 {
		t.Errorf("traps = %d, want 10", cpu.traps)
	}
	if !errors.Is(m.Err(), ErrInterruptStorm) {
		t.Errorf("Err = %v, want ErrInterruptStorm", m.Err())
	}
}

func TestDisabledMachineHoldsAssertions(t *testing.T) {
	ctrl, m, _ := newSystem(t, Coalesce)
	mustBind(t, ctrl, timer0, 5, 3)
	calls := 0
	mustRegister(t, ctrl, 5, func(interrupt.Line) { calls++ }, interrupt.ModeDirect)

	m.DisableInterrupts()
	m.Assert(timer0)
	if calls != 0 {
		t.Fatal("delivered with interrupts globally disabled")
	}
	if st := ctrl.Status(); !st.Has(timer0) {
		t.Error("Status does not report TIMER0")
	}
	m.EnableInterrupts()
	if calls != 1 {
		t.Errorf("calls = %d after enable, want 1", calls)
	}
}

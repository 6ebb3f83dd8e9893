package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"intmux/chip"
	"intmux/config"
	"intmux/interrupt"
	"intmux/sim"
)

var errQuit = errors.New("quit")

// Shell runs simulator commands against one controller.
type Shell struct {
	out     io.Writer
	board   *config.Board
	variant *chip.Variant
	m       *sim.Machine
	ctrl    *interrupt.Controller
	clk     *sim.Clock
	tokens  []interrupt.Token
	timers  map[interrupt.Source]*sim.Timer
}

// NewShell builds the machine and controller described by board and binds
// its routes.
func NewShell(out io.Writer, board *config.Board) (*Shell, error) {
	s := &Shell{out: out, board: board}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Shell) init() error {
	v, err := s.board.ChipVariant()
	if err != nil {
		return err
	}
	cfg, err := s.board.ControllerConfig()
	if err != nil {
		return err
	}

	s.variant = v
	s.tokens = nil
	s.timers = map[interrupt.Source]*sim.Timer{}
	cfg.Faults = interrupt.FaultFunc(s.printFault)
	cfg.Fatal = func(err error) { fmt.Fprintf(s.out, "FATAL: %v (controller stopped)\n", err) }
	if s.board.Debug {
		cfg.Debug = func(msg string) { fmt.Fprintln(s.out, msg) }
	}

	mode := sim.Coalesce
	if s.board.Latch == "count" {
		mode = sim.Count
	}
	s.m = sim.New(mode)
	s.ctrl, err = interrupt.New(s.m, cfg)
	if err != nil {
		return err
	}
	s.m.Attach(s.ctrl)
	s.clk = sim.NewClock(s.m)
	if s.board.Debug {
		s.ctrl.StartAsyncDebug(64)
	}

	if _, err := config.Apply(s.ctrl, s.board); err != nil {
		return err
	}
	s.m.EnableInterrupts()
	return nil
}

// Close stops background debug output.
func (s *Shell) Close() {
	s.ctrl.StopAsyncDebug()
}

func (s *Shell) printFault(f interrupt.Fault) {
	fmt.Fprintf(s.out, "fault #%d %s line %d source %s: %v\n",
		f.Seq, f.Kind, f.Line, s.variant.SourceName(f.Source), f.Err)
}

// Exec runs one command line. It returns errQuit for quit.
func (s *Shell) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errors.Wrap(err, "parse command")
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}

	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "quit", "q":
		return errQuit
	case "help", "?":
		s.printHelp()
		return nil
	case "bind":
		return s.cmdBind(args)
	case "unbind":
		return s.cmdUnbind(args)
	case "alloc":
		return s.cmdAlloc(args)
	case "kind":
		return s.cmdKind(args)
	case "register":
		return s.cmdRegister(args)
	case "unregister":
		return s.cmdUnregister(args)
	case "assert":
		return s.cmdAssert(args)
	case "deassert":
		return s.cmdDeassert(args)
	case "every":
		return s.cmdEvery(args)
	case "tick":
		return s.cmdTick(args)
	case "enter":
		return s.cmdEnter(args)
	case "exit":
		return s.cmdExit(args)
	case "pump":
		return s.cmdPump(args)
	case "status":
		s.printStatus()
		return nil
	case "trace":
		s.printTrace()
		return nil
	case "faults":
		n := s.ctrl.FlushFaults()
		fmt.Fprintf(s.out, "%d fault(s) flushed, %d dropped\n", n, s.ctrl.Stats().FaultsDropped)
		return nil
	case "stats":
		s.printStats()
		return nil
	case "reset":
		return s.cmdReset()
	default:
		return errors.Errorf("unknown command %q (type 'help' for available commands)", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  bind <source> <line> <prio>      - route a source to a CPU line")
	fmt.Fprintln(s.out, "  unbind <source>                  - disconnect a source")
	fmt.Fprintln(s.out, "  alloc <source> <prio>            - route a source to the lowest free line")
	fmt.Fprintln(s.out, "  kind <line> level|edge           - set line latching")
	fmt.Fprintln(s.out, "  register <line> [direct|deferred] [assert=<source>]")
	fmt.Fprintln(s.out, "                                   - install a logging handler")
	fmt.Fprintln(s.out, "  unregister <line>                - remove a line's handler")
	fmt.Fprintln(s.out, "  assert <source> [count]          - raise a source")
	fmt.Fprintln(s.out, "  deassert <source>                - drop a source")
	fmt.Fprintln(s.out, "  every <source> <ticks>           - raise a source periodically (0 stops)")
	fmt.Fprintln(s.out, "  tick <ticks>                     - advance the clock")
	fmt.Fprintln(s.out, "  enter <prio> / exit              - open / close a critical section")
	fmt.Fprintln(s.out, "  pump                             - run deferred handlers")
	fmt.Fprintln(s.out, "  status | trace | faults | stats  - inspect the controller")
	fmt.Fprintln(s.out, "  reset                            - reinitialize from the board config")
	fmt.Fprintln(s.out, "  quit                             - leave")
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return errors.Errorf("usage: %s", usage)
	}
	return nil
}

func (s *Shell) source(arg string) (interrupt.Source, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n >= interrupt.MaxSources {
			return 0, errors.Wrapf(interrupt.ErrInvalidSource, "source %d", n)
		}
		return interrupt.Source(n), nil
	}
	info, ok := s.variant.SourceByName(arg)
	if !ok {
		return 0, errors.Wrapf(interrupt.ErrInvalidSource, "%s has no source %q", s.variant.Name, arg)
	}
	return info.ID, nil
}

func parseLine(arg string) (interrupt.Line, error) {
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(interrupt.ErrInvalidLine, "line %q", arg)
	}
	return interrupt.Line(n), nil
}

func parsePriority(arg string) (interrupt.Priority, error) {
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(interrupt.ErrInvalidPriority, "priority %q", arg)
	}
	return interrupt.Priority(n), nil
}

func (s *Shell) cmdBind(args []string) error {
	if err := need(args, 3, "bind <source> <line> <prio>"); err != nil {
		return err
	}
	src, err := s.source(args[0])
	if err != nil {
		return err
	}
	line, err := parseLine(args[1])
	if err != nil {
		return err
	}
	p, err := parsePriority(args[2])
	if err != nil {
		return err
	}
	if err := s.ctrl.Bind(src, line, p); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s -> line %d at %s\n", s.variant.SourceName(src), line, p)
	return nil
}

func (s *Shell) cmdUnbind(args []string) error {
	if err := need(args, 1, "unbind <source>"); err != nil {
		return err
	}
	src, err := s.source(args[0])
	if err != nil {
		return err
	}
	return s.ctrl.Unbind(src)
}

func (s *Shell) cmdAlloc(args []string) error {
	if err := need(args, 2, "alloc <source> <prio>"); err != nil {
		return err
	}
	src, err := s.source(args[0])
	if err != nil {
		return err
	}
	p, err := parsePriority(args[1])
	if err != nil {
		return err
	}
	line, err := s.ctrl.Allocate(src, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s -> line %d at %s\n", s.variant.SourceName(src), line, p)
	return nil
}

func (s *Shell) cmdKind(args []string) error {
	if err := need(args, 2, "kind <line> level|edge"); err != nil {
		return err
	}
	line, err := parseLine(args[0])
	if err != nil {
		return err
	}
	switch strings.ToLower(args[1]) {
	case "level":
		return s.ctrl.SetKind(line, interrupt.KindLevel)
	case "edge":
		return s.ctrl.SetKind(line, interrupt.KindEdge)
	default:
		return errors.Errorf("unknown kind %q", args[1])
	}
}

func (s *Shell) cmdRegister(args []string) error {
	if err := need(args, 1, "register <line> [direct|deferred] [assert=<source>]"); err != nil {
		return err
	}
	line, err := parseLine(args[0])
	if err != nil {
		return err
	}

	mode := interrupt.ModeDirect
	var chain []interrupt.Source
	for _, a := range args[1:] {
		switch {
		case a == "direct":
			mode = interrupt.ModeDirect
		case a == "deferred":
			mode = interrupt.ModeDeferred
		case strings.HasPrefix(a, "assert="):
			src, err := s.source(strings.TrimPrefix(a, "assert="))
			if err != nil {
				return err
			}
			chain = append(chain, src)
		default:
			return errors.Errorf("unknown register option %q", a)
		}
	}

	h := func(l interrupt.Line) {
		ctx := "isr"
		if !s.ctrl.InInterrupt() {
			ctx = "pump"
		}
		fmt.Fprintf(s.out, "  [%s] handler line %d mask %s\n", ctx, l, s.ctrl.Mask())
		for _, src := range chain {
			s.m.Assert(src)
		}
		fmt.Fprintf(s.out, "  [%s] handler line %d done\n", ctx, l)
	}

	prev, had, err := s.ctrl.Register(line, h, mode)
	if err != nil {
		return err
	}
	if had {
		fmt.Fprintf(s.out, "line %d: replaced %s handler\n", line, prev.Mode)
	}
	return nil
}

func (s *Shell) cmdUnregister(args []string) error {
	if err := need(args, 1, "unregister <line>"); err != nil {
		return err
	}
	line, err := parseLine(args[0])
	if err != nil {
		return err
	}
	_, had, err := s.ctrl.Unregister(line)
	if err != nil {
		return err
	}
	if !had {
		fmt.Fprintf(s.out, "line %d had no handler\n", line)
	}
	return nil
}

func (s *Shell) cmdAssert(args []string) error {
	if err := need(args, 1, "assert <source> [count]"); err != nil {
		return err
	}
	src, err := s.source(args[0])
	if err != nil {
		return err
	}
	n := 1
	if len(args) > 1 {
		if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
			return errors.Errorf("invalid count %q", args[1])
		}
	}
	for i := 0; i < n; i++ {
		s.m.Assert(src)
	}
	return s.m.Err()
}

func (s *Shell) cmdDeassert(args []string) error {
	if err := need(args, 1, "deassert <source>"); err != nil {
		return err
	}
	src, err := s.source(args[0])
	if err != nil {
		return err
	}
	s.m.Deassert(src)
	return nil
}

func (s *Shell) cmdEvery(args []string) error {
	if err := need(args, 2, "every <source> <ticks>"); err != nil {
		return err
	}
	src, err := s.source(args[0])
	if err != nil {
		return err
	}
	period, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return errors.Errorf("invalid period %q", args[1])
	}
	if t, ok := s.timers[src]; ok {
		s.clk.Cancel(t)
		delete(s.timers, src)
	}
	if period > 0 {
		s.timers[src] = s.clk.Every(src, uint32(period))
	}
	return nil
}

func (s *Shell) cmdTick(args []string) error {
	if err := need(args, 1, "tick <ticks>"); err != nil {
		return err
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errors.Errorf("invalid tick count %q", args[0])
	}
	fired := s.clk.Advance(uint32(n))
	fmt.Fprintf(s.out, "t=%d, %d timer assertion(s)\n", s.clk.Now(), fired)
	return s.m.Err()
}

func (s *Shell) cmdEnter(args []string) error {
	if err := need(args, 1, "enter <prio>"); err != nil {
		return err
	}
	p, err := parsePriority(args[0])
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, s.ctrl.Enter(p))
	fmt.Fprintf(s.out, "mask %s, depth %d\n", s.ctrl.Mask(), s.ctrl.MaskDepth())
	return nil
}

func (s *Shell) cmdExit(args []string) error {
	// An exit without a matching enter is passed through so the violation
	// path can be exercised.
	var tok interrupt.Token
	if n := len(s.tokens); n > 0 {
		tok = s.tokens[n-1]
		s.tokens = s.tokens[:n-1]
	}
	s.ctrl.Exit(tok)
	fmt.Fprintf(s.out, "mask %s, depth %d\n", s.ctrl.Mask(), s.ctrl.MaskDepth())
	return s.m.Err()
}

func (s *Shell) cmdPump(args []string) error {
	n, err := s.ctrl.Pump()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d deferred handler(s) run\n", n)
	return nil
}

func (s *Shell) cmdReset() error {
	s.m.Reset()
	s.ctrl.Reset()
	s.clk = sim.NewClock(s.m)
	s.tokens = nil
	s.timers = map[interrupt.Source]*sim.Timer{}
	if _, err := config.Apply(s.ctrl, s.board); err != nil {
		return err
	}
	s.m.EnableInterrupts()
	fmt.Fprintln(s.out, "reset")
	return nil
}

func (s *Shell) printStatus() {
	fmt.Fprintf(s.out, "%s core %d, mask %s, depth %d, latch %s\n",
		s.variant.Name, s.ctrl.Core(), s.ctrl.Mask(), s.ctrl.MaskDepth(), s.m.Mode())
	if s.ctrl.Poisoned() {
		fmt.Fprintln(s.out, "controller STOPPED after mask discipline violation")
	}

	for _, r := range s.ctrl.Routes() {
		handler := "-"
		if b, ok := s.ctrl.Lookup(r.Line); ok {
			handler = b.Mode.String()
		}
		enabled := "off"
		if s.ctrl.Matrix().Enabled().Has(r.Line) {
			enabled = "on"
		}
		fmt.Fprintf(s.out, "  line %2d  %-6s %-5s %-3s %-11s %-8s %s",
			r.Line, r.Priority, r.Kind, enabled, s.ctrl.LineState(r.Line), handler, s.variant.SourceName(r.Source))
		if n := s.ctrl.PendingDeferred(r.Line); n > 0 {
			fmt.Fprintf(s.out, " (%d deferred)", n)
		}
		fmt.Fprintln(s.out)
	}

	pending := s.ctrl.Status()
	var names []string
	for i := 0; ; i++ {
		src, ok := pending.Next(i)
		if !ok {
			break
		}
		i = int(src)
		names = append(names, s.variant.SourceName(src))
	}
	if len(names) == 0 {
		names = []string{"none"}
	}
	fmt.Fprintf(s.out, "  asserted: %s\n", strings.Join(names, " "))
}

func (s *Shell) printTrace() {
	for _, e := range s.ctrl.Trace() {
		fmt.Fprintf(s.out, "  %6d %-12s line %2d %-6s %s\n",
			e.Seq, e.Kind, e.Line, e.Priority, s.variant.SourceName(e.Source))
	}
}

func (s *Shell) printStats() {
	st := s.ctrl.Stats()
	ms := s.m.Stats()
	fmt.Fprintf(s.out, "traps %d, direct %d, deferred %d/%d run, unrouted %d, faults dropped %d, max depth %d\n",
		st.Traps, st.Dispatched, st.Deferred, st.DeferredRun, st.Unrouted, st.FaultsDropped, st.MaxTrapDepth)
	fmt.Fprintf(s.out, "machine: asserts %d, acks %d, delivered %d, preemptions %d\n",
		ms.Asserts, ms.Acks, ms.Delivered, ms.Preemptions)
}

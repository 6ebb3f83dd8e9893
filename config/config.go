// Package config loads board interrupt configuration: the chip variant,
// the core served, controller sizing and the static routes bound at boot.
package config

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"intmux/chip"
	"intmux/interrupt"
)

// Board is the JSON board description.
type Board struct {
	Variant    string        `json:"variant"`
	Core       int           `json:"core"`
	TraceDepth int           `json:"trace_depth"`
	FaultQueue int           `json:"fault_queue"`
	Debug      bool          `json:"debug"`
	Latch      string        `json:"latch"` // simulator latch mode: "coalesce" or "count"
	Routes     []RouteConfig `json:"routes"`
}

// RouteConfig binds one source at boot. Line 0 lets the controller pick
// the lowest free line. An empty Kind keeps the source's own latch kind.
type RouteConfig struct {
	Source   string `json:"source"`
	Line     int    `json:"line"`
	Priority int    `json:"priority"`
	Kind     string `json:"kind"`
}

// LoadConfig parses a JSON configuration and returns a Board
func LoadConfig(jsonData []byte) (*Board, error) {
	var board Board

	err := json.Unmarshal(jsonData, &board)
	if err != nil {
		return nil, errors.Wrap(err, "parse board config")
	}

	applyDefaults(&board)

	if err := board.Validate(); err != nil {
		return nil, err
	}
	return &board, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(board *Board) {
	if board.Variant == "" {
		board.Variant = chip.Sim32.Name
	}
	board.Variant = strings.ToLower(board.Variant)

	if board.TraceDepth == 0 {
		board.TraceDepth = interrupt.DefaultTraceDepth
	}
	if board.FaultQueue == 0 {
		board.FaultQueue = interrupt.DefaultFaultQueue
	}
	if board.Latch == "" {
		board.Latch = "coalesce"
	}

	for i, r := range board.Routes {
		r.Source = strings.ToUpper(strings.TrimSpace(r.Source))
		r.Kind = strings.ToLower(r.Kind)
		board.Routes[i] = r
	}
}

// Validate checks the board against its chip variant without touching any
// hardware.
func (b *Board) Validate() error {
	v, err := chip.Lookup(b.Variant)
	if err != nil {
		return err
	}
	if b.Core < 0 || b.Core >= v.Cores {
		return errors.Errorf("%s has no core %d", v.Name, b.Core)
	}
	if b.FaultQueue < 0 {
		return errors.Errorf("fault_queue must be positive, got %d", b.FaultQueue)
	}
	if b.Latch != "coalesce" && b.Latch != "count" {
		return errors.Errorf("unknown latch mode %q", b.Latch)
	}

	lines := map[int]string{}
	for i, r := range b.Routes {
		if _, err := b.resolve(v, r); err != nil {
			return errors.Wrapf(err, "route %d", i)
		}
		if r.Line == 0 {
			continue
		}
		if other, dup := lines[r.Line]; dup {
			return errors.Wrapf(interrupt.ErrRoutingConflict, "route %d: line %d already carries %s", i, r.Line, other)
		}
		lines[r.Line] = r.Source
	}
	return nil
}

// ChipVariant returns the variant the board names.
func (b *Board) ChipVariant() (*chip.Variant, error) {
	return chip.Lookup(b.Variant)
}

// ControllerConfig builds the controller configuration for the board's
// core. Debug output and the fault sink are left to the caller.
func (b *Board) ControllerConfig() (interrupt.Config, error) {
	v, err := b.ChipVariant()
	if err != nil {
		return interrupt.Config{}, err
	}
	cfg, err := v.Config(b.Core)
	if err != nil {
		return interrupt.Config{}, err
	}
	cfg.TraceDepth = b.TraceDepth
	cfg.FaultQueue = b.FaultQueue
	return cfg, nil
}

// Apply binds every route of the board on ctrl, in order. It stops at the
// first failure.
func Apply(ctrl *interrupt.Controller, b *Board) ([]interrupt.Route, error) {
	v, err := b.ChipVariant()
	if err != nil {
		return nil, err
	}

	routes := make([]interrupt.Route, 0, len(b.Routes))
	for i, r := range b.Routes {
		route, err := b.resolve(v, r)
		if err != nil {
			return routes, errors.Wrapf(err, "route %d", i)
		}

		if route.Line == 0 {
			route.Line, err = ctrl.Allocate(route.Source, route.Priority)
		} else {
			err = ctrl.Bind(route.Source, route.Line, route.Priority)
		}
		if err != nil {
			return routes, errors.Wrapf(err, "route %d (%s)", i, r.Source)
		}
		if err := ctrl.SetKind(route.Line, route.Kind); err != nil {
			return routes, errors.Wrapf(err, "route %d (%s)", i, r.Source)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// resolve turns a route description into matrix values. Sources are
// looked up by name, or taken as a number when the name is numeric.
func (b *Board) resolve(v *chip.Variant, r RouteConfig) (interrupt.Route, error) {
	var info chip.SourceInfo
	if n, err := strconv.Atoi(r.Source); err == nil {
		if n < 0 || n >= interrupt.MaxSources {
			return interrupt.Route{}, errors.Wrapf(interrupt.ErrInvalidSource, "source %d", n)
		}
		s, ok := v.Source(interrupt.Source(n))
		if !ok {
			return interrupt.Route{}, errors.Wrapf(interrupt.ErrInvalidSource, "%s has no source %d", v.Name, n)
		}
		info = s
	} else {
		s, ok := v.SourceByName(r.Source)
		if !ok {
			return interrupt.Route{}, errors.Wrapf(interrupt.ErrInvalidSource, "%s has no source %q", v.Name, r.Source)
		}
		info = s
	}

	if r.Line < 0 || r.Line >= interrupt.MaxLines || (r.Line != 0 && !v.Lines.Has(interrupt.Line(r.Line))) {
		return interrupt.Route{}, errors.Wrapf(interrupt.ErrInvalidLine, "line %d", r.Line)
	}
	p := interrupt.Priority(r.Priority)
	if r.Priority < 0 || r.Priority > 255 || !p.Valid(v.MaxPriority) {
		return interrupt.Route{}, errors.Wrapf(interrupt.ErrInvalidPriority, "priority %d, want 1-%d", r.Priority, v.MaxPriority)
	}

	kind := info.Kind
	switch r.Kind {
	case "":
	case "level":
		kind = interrupt.KindLevel
	case "edge":
		kind = interrupt.KindEdge
	default:
		return interrupt.Route{}, errors.Errorf("unknown kind %q", r.Kind)
	}

	return interrupt.Route{
		Source:   info.ID,
		Line:     interrupt.Line(r.Line),
		Priority: p,
		Kind:     kind,
	}, nil
}

// DefaultBoard returns the simulator board used when no configuration is
// given: both timers, UART0 and DMA0 on fixed lines.
func DefaultBoard() *Board {
	return &Board{
		Variant:    chip.Sim32.Name,
		Core:       0,
		TraceDepth: interrupt.DefaultTraceDepth,
		FaultQueue: interrupt.DefaultFaultQueue,
		Latch:      "coalesce",
		Routes: []RouteConfig{
			{Source: "TIMER0", Line: 5, Priority: 3},
			{Source: "TIMER1", Line: 6, Priority: 3},
			{Source: "UART0", Line: 8, Priority: 2},
			{Source: "DMA0", Line: 10, Priority: 5},
			{Source: "SW0", Line: 12, Priority: 1},
		},
	}
}
